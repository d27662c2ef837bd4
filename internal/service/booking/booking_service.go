package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/lock"
	"github.com/Domenick1991/staybooking/internal/repository"
	"github.com/Domenick1991/staybooking/internal/service/pricing"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type BookingUseCase interface {
	Quote(ctx context.Context, input QuoteInput) (domain.PriceBreakdown, error)
	CreateBooking(ctx context.Context, actor domain.Identity, input CreateBookingInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, actor domain.Identity, id string) (*domain.Booking, error)
	GetByCode(ctx context.Context, actor domain.Identity, code string) (*domain.Booking, error)
	ListBookings(ctx context.Context, actor domain.Identity, query ListQuery) ([]domain.Booking, int, error)
	UpdateBooking(ctx context.Context, actor domain.Identity, id string, fields domain.BookingUpdateFields) (*domain.Booking, error)
	AuthorizePayment(ctx context.Context, actor domain.Identity, id string) (*domain.Booking, error)
	CapturePayment(ctx context.Context, actor domain.Identity, id string) (*domain.Booking, error)
	HandlePaymentResult(ctx context.Context, result domain.PaymentResult) (*domain.Booking, error)
	RecordRefund(ctx context.Context, result domain.PaymentResult) (*domain.Booking, error)
	CancelBooking(ctx context.Context, actor domain.Identity, id, reason string) (*domain.Booking, error)
	MarkNoShow(ctx context.Context, actor domain.Identity, id string) (*domain.Booking, error)
	ExpirePendingBookings(ctx context.Context) ([]domain.Booking, error)
	AdvanceLifecycles(ctx context.Context) (int, error)
}

// PaymentGateway is the external payment processor. Capture and Refund return a nil
// result when the answer arrives later through HandlePaymentResult.
type PaymentGateway interface {
	Authorize(ctx context.Context, bookingID string, amount domain.Amount, currency string) (domain.AuthResult, error)
	Capture(ctx context.Context, bookingID, reference string, amount domain.Amount, currency string) (*domain.PaymentResult, error)
	Refund(ctx context.Context, bookingID, reference string, amount domain.Amount, currency string) (*domain.PaymentResult, error)
}

// EventPublisher receives booking events after the change that caused them has committed.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.BookingEvent) error
}

const (
	defaultHoldTTL    = 30 * time.Minute
	defaultRetries    = 3
	retryBackoff      = 50 * time.Millisecond
	sweepBatch        = 100
	codeAttempts      = 5
	holdExpiredReason = "payment hold expired"
)

type BookingService struct {
	store      repository.Store
	calculator *pricing.Calculator
	locker     lock.Locker
	gateway    PaymentGateway
	publishers []EventPublisher
	logger     *logrus.Logger
	now        func() time.Time
	holdTTL    time.Duration
	retries    int
	newCode    func() string
}

type BookingServiceOption func(*BookingService)

func WithLogger(logger *logrus.Logger) BookingServiceOption {
	return func(s *BookingService) {
		s.logger = logger
	}
}

func WithLocker(locker lock.Locker) BookingServiceOption {
	return func(s *BookingService) {
		s.locker = locker
	}
}

func WithPaymentGateway(gateway PaymentGateway) BookingServiceOption {
	return func(s *BookingService) {
		s.gateway = gateway
	}
}

// WithPublisher adds a sink for booking events. Every publisher sees every event.
func WithPublisher(p EventPublisher) BookingServiceOption {
	return func(s *BookingService) {
		if p != nil {
			s.publishers = append(s.publishers, p)
		}
	}
}

func WithHoldTTL(ttl time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if ttl > 0 {
			s.holdTTL = ttl
		}
	}
}

// WithPersistenceRetries bounds how many times a transient storage failure is retried.
func WithPersistenceRetries(n int) BookingServiceOption {
	return func(s *BookingService) {
		if n >= 0 {
			s.retries = n
		}
	}
}

// WithCodeGenerator replaces the random booking code source.
func WithCodeGenerator(gen func() string) BookingServiceOption {
	return func(s *BookingService) {
		if gen != nil {
			s.newCode = gen
		}
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(store repository.Store, calculator *pricing.Calculator, opts ...BookingServiceOption) *BookingService {
	s := &BookingService{
		store:      store,
		calculator: calculator,
		locker:     lock.NewKeyedMutex(500 * time.Millisecond),
		logger:     logrus.StandardLogger(),
		now:        time.Now,
		holdTTL:    defaultHoldTTL,
		retries:    defaultRetries,
		newCode:    domain.NewBookingCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.calculator == nil {
		s.calculator = pricing.NewCalculator(pricing.WithLogger(s.logger))
	}
	return s
}

type QuoteInput struct {
	ListingID     string           `json:"listing_id"`
	Stay          domain.DateRange `json:"stay"`
	Occupancy     domain.Occupancy `json:"occupancy"`
	AdminOverride bool             `json:"admin_override"`
}

type CreateBookingInput struct {
	ListingID       string           `json:"listing_id"`
	Stay            domain.DateRange `json:"stay"`
	Occupancy       domain.Occupancy `json:"occupancy"`
	GuestMessage    string           `json:"guest_message"`
	SpecialRequests string           `json:"special_requests"`
	ArrivalTime     string           `json:"arrival_time"`
	GuestPhone      string           `json:"guest_phone"`
	GuestEmail      string           `json:"guest_email"`
	// AdminOverride skips the minimum-stay rule. It is honoured for admins only.
	AdminOverride bool `json:"admin_override"`
}

func (s *BookingService) Quote(ctx context.Context, input QuoteInput) (domain.PriceBreakdown, error) {
	listing, err := s.store.Listings().GetByID(ctx, input.ListingID)
	if err != nil {
		return domain.PriceBreakdown{}, err
	}
	stay, err := normalizeStay(input.Stay)
	if err != nil {
		return domain.PriceBreakdown{}, err
	}
	return s.price(ctx, listing, stay, input.Occupancy, input.AdminOverride)
}

// normalizeStay drops clock times so stays always run from midnight to midnight UTC.
func normalizeStay(stay domain.DateRange) (domain.DateRange, error) {
	if stay.IsZero() {
		return domain.DateRange{}, fmt.Errorf("%w: check-in and check-out are required", domain.ErrInvalidRange)
	}
	return domain.NewDateRange(stay.CheckIn, stay.CheckOut)
}

// price expects a stay already passed through normalizeStay.
func (s *BookingService) price(ctx context.Context, listing *domain.Listing, stay domain.DateRange, occupancy domain.Occupancy, adminOverride bool) (domain.PriceBreakdown, error) {
	windows, err := s.store.Availability().Windows(ctx, listing.ID, stay)
	if err != nil {
		return domain.PriceBreakdown{}, err
	}
	overrides := make([]domain.AvailabilityWindow, 0, len(windows))
	for _, w := range windows {
		if w.Status == domain.WindowOpen {
			overrides = append(overrides, w)
		}
	}
	return s.calculator.Quote(pricing.Request{
		Listing:       listing,
		Stay:          stay,
		Occupancy:     occupancy,
		Overrides:     overrides,
		BookedAt:      s.now(),
		AdminOverride: adminOverride,
	})
}

// CreateBooking prices the stay, then reserves the dates and inserts the Pending
// booking in one transaction under the listing lock. Events go out after commit.
func (s *BookingService) CreateBooking(ctx context.Context, actor domain.Identity, input CreateBookingInput) (*domain.Booking, error) {
	if actor.IsZero() {
		return nil, domain.ErrUnauthorized
	}
	if strings.TrimSpace(input.ListingID) == "" {
		return nil, fmt.Errorf("%w: listing id is required", domain.ErrInvalidInput)
	}
	if input.GuestEmail != "" && !strings.Contains(input.GuestEmail, "@") {
		return nil, fmt.Errorf("%w: guest email is malformed", domain.ErrInvalidInput)
	}

	listing, err := s.store.Listings().GetByID(ctx, input.ListingID)
	if err != nil {
		return nil, err
	}
	if !listing.Bookable() {
		return nil, domain.ErrListingInactive
	}
	if listing.OwnedBy(actor.UserID) {
		return nil, fmt.Errorf("%w: hosts cannot book their own listing", domain.ErrInvalidInput)
	}

	stay, err := normalizeStay(input.Stay)
	if err != nil {
		return nil, err
	}
	price, err := s.price(ctx, listing, stay, input.Occupancy, input.AdminOverride && actor.IsAdmin())
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	booking := &domain.Booking{
		ID:              uuid.NewString(),
		Code:            s.newCode(),
		ListingID:       listing.ID,
		GuestID:         actor.UserID,
		HostID:          listing.HostID,
		Stay:            stay,
		Occupancy:       input.Occupancy,
		Price:           price,
		Status:          domain.BookingStatusPending,
		PaymentStatus:   domain.PaymentStatusPending,
		GuestMessage:    strings.TrimSpace(input.GuestMessage),
		SpecialRequests: strings.TrimSpace(input.SpecialRequests),
		ArrivalTime:     strings.TrimSpace(input.ArrivalTime),
		GuestPhone:      strings.TrimSpace(input.GuestPhone),
		GuestEmail:      strings.TrimSpace(input.GuestEmail),
		ExpiresAt:       now.Add(s.holdTTL),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.underListingLock(ctx, listing.ID, func() error {
		return s.withRetry(ctx, "create booking", func() error {
			for attempt := 1; ; attempt++ {
				err := s.store.WithinTx(ctx, func(tx repository.Store) error {
					current, err := tx.Listings().GetForUpdate(ctx, listing.ID)
					if err != nil {
						return err
					}
					if !current.Bookable() {
						return domain.ErrListingInactive
					}
					if _, err := tx.Availability().Reserve(ctx, listing.ID, booking.Stay, booking.ID); err != nil {
						return err
					}
					return tx.Bookings().Create(ctx, booking)
				})
				if !errors.Is(err, repository.ErrDuplicateCode) || attempt == codeAttempts {
					return err
				}
				booking.Code = s.newCode()
			}
		})
	})
	if err != nil {
		return nil, s.resolveConflict(ctx, err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"code":       booking.Code,
		"listing_id": booking.ListingID,
		"stay":       booking.Stay.String(),
		"total":      booking.Price.Total.Format(booking.Price.Currency),
	}).Info("booking created")
	s.emit(ctx, domain.EventBookingCreated, booking)

	if listing.InstantBook && s.gateway != nil {
		confirmed, err := s.AuthorizePayment(ctx, domain.SystemIdentity(), booking.ID)
		if err != nil {
			s.logger.WithError(err).WithField("booking_id", booking.ID).Warn("instant book authorization failed")
		}
		if confirmed != nil {
			return confirmed, nil
		}
	}
	return booking, nil
}

// resolveConflict fills in the winner of a race the database settled. The aborted
// transaction could not see it, so it is looked up afterwards.
func (s *BookingService) resolveConflict(ctx context.Context, err error) error {
	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) || conflict.BookingID != "" || conflict.WindowID != "" {
		return err
	}
	w, lookupErr := s.store.Availability().FirstConflict(ctx, conflict.ListingID, conflict.Range)
	if lookupErr != nil || w == nil {
		return err
	}
	conflict.BookingID = w.BookingID
	conflict.WindowID = w.ID
	return err
}

func (s *BookingService) underListingLock(ctx context.Context, listingID string, fn func() error) error {
	if s.locker == nil {
		return fn()
	}
	release, err := s.locker.Acquire(ctx, listingID)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// withRetry retries fn while the storage layer reports transient failures and
// surfaces domain.ErrUnavailable once the budget is spent.
func (s *BookingService) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %s: %v", domain.ErrUnavailable, op, ctx.Err())
			case <-time.After(time.Duration(attempt) * retryBackoff):
			}
		}
		err = fn()
		if err == nil || !repository.IsTransient(err) {
			return err
		}
		s.logger.WithError(err).WithFields(logrus.Fields{"op": op, "attempt": attempt + 1}).Warn("transient storage failure")
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrUnavailable, op, err)
}

var errUnchanged = errors.New("booking unchanged")

// mutate loads and row-locks the booking inside a transaction, lets fn change it, and
// persists it. Writers in other processes wait on the row lock, so fn always sees the
// latest committed state. fn returning errUnchanged ends the transaction without writing.
func (s *BookingService) mutate(ctx context.Context, id string, fn func(tx repository.Store, b *domain.Booking) error) (*domain.Booking, error) {
	var out *domain.Booking
	err := s.withRetry(ctx, "update booking", func() error {
		return s.store.WithinTx(ctx, func(tx repository.Store) error {
			b, err := tx.Bookings().GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if err := fn(tx, b); err != nil {
				return err
			}
			if err := tx.Bookings().Update(ctx, b); err != nil {
				return err
			}
			out = b
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BookingService) emit(ctx context.Context, t domain.EventType, b *domain.Booking) {
	event := domain.NewBookingEvent(t, b, s.now())
	for _, p := range s.publishers {
		if err := p.Publish(ctx, event); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"event":      t,
				"booking_id": b.ID,
			}).Warn("failed to publish booking event")
		}
	}
}

func authorizeParty(actor domain.Identity, b *domain.Booking) error {
	if actor.IsAdmin() || b.IsParty(actor.UserID) {
		return nil
	}
	return fmt.Errorf("%w: not a party to booking %s", domain.ErrUnauthorized, b.ID)
}

func authorizeHost(actor domain.Identity, b *domain.Booking) error {
	if actor.IsAdmin() || (b.HostID != "" && b.HostID == actor.UserID) {
		return nil
	}
	return fmt.Errorf("%w: only the host can do this", domain.ErrUnauthorized)
}

var _ BookingUseCase = (*BookingService)(nil)
