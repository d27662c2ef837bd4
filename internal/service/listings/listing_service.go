package listings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/lock"
	"github.com/Domenick1991/staybooking/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type ListingUseCase interface {
	CreateListing(ctx context.Context, actor domain.Identity, input CreateListingInput) (*domain.Listing, error)
	GetListing(ctx context.Context, id string) (*domain.Listing, error)
	ListHostListings(ctx context.Context, hostID string) ([]domain.Listing, error)
	ListListings(ctx context.Context, page, pageSize int) ([]domain.Listing, int, error)
	UpdateListing(ctx context.Context, actor domain.Identity, id string, fields domain.ListingUpdateFields) (*domain.Listing, error)
	RetireListing(ctx context.Context, actor domain.Identity, id string) (*domain.Listing, error)
	BlockDates(ctx context.Context, actor domain.Identity, id string, stay domain.DateRange, reason string) (*domain.AvailabilityWindow, error)
	UnblockDates(ctx context.Context, actor domain.Identity, id string, stay domain.DateRange) (int, error)
	SetNightlyOverride(ctx context.Context, actor domain.Identity, id string, input OverrideInput) (*domain.AvailabilityWindow, error)
	Calendar(ctx context.Context, id string, stay domain.DateRange) ([]domain.AvailabilityWindow, error)
	CheckAvailability(ctx context.Context, id string, stay domain.DateRange) (bool, error)
}

type ListingCache interface {
	GetListing(ctx context.Context, id string) (*domain.Listing, error)
	SetListing(ctx context.Context, listing *domain.Listing) error
	InvalidateListing(ctx context.Context, id string) error
}

type ListingService struct {
	store  repository.Store
	cache  ListingCache
	locker lock.Locker
	logger *logrus.Logger
}

type Option func(*ListingService)

func WithCache(cache ListingCache) Option {
	return func(s *ListingService) {
		s.cache = cache
	}
}

// WithLocker shares the booking coordinator's per-listing lock so calendar blocks
// and reservations never interleave.
func WithLocker(locker lock.Locker) Option {
	return func(s *ListingService) {
		s.locker = locker
	}
}

func WithLogger(logger *logrus.Logger) Option {
	return func(s *ListingService) {
		s.logger = logger
	}
}

func NewListingService(store repository.Store, opts ...Option) *ListingService {
	s := &ListingService{store: store, logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateListingInput leaves optional policy fields nil to take the platform defaults.
type CreateListingInput struct {
	HostID                string         `json:"host_id"`
	Title                 string         `json:"title"`
	City                  string         `json:"city"`
	Currency              string         `json:"currency"`
	NightlyPrice          domain.Amount  `json:"nightly_price"`
	WeeklyPrice           *domain.Amount `json:"weekly_price"`
	MonthlyPrice          *domain.Amount `json:"monthly_price"`
	CleaningFee           *domain.Fee    `json:"cleaning_fee"`
	ServiceFee            *domain.Fee    `json:"service_fee"`
	Taxes                 *domain.Fee    `json:"taxes"`
	SecurityDeposit       *domain.Amount `json:"security_deposit"`
	WeeklyDiscountPct     *int           `json:"weekly_discount_pct"`
	MonthlyDiscountPct    *int           `json:"monthly_discount_pct"`
	EarlyBirdDiscountPct  *int           `json:"early_bird_discount_pct"`
	LastMinuteDiscountPct *int           `json:"last_minute_discount_pct"`
	MinNights             *int           `json:"min_nights"`
	MaxNights             *int           `json:"max_nights"`
	MaxGuests             *int           `json:"max_guests"`
	CancellationPolicy    string         `json:"cancellation_policy"`
	InstantBook           bool           `json:"instant_book"`
}

const defaultCurrency = "QAR"

func (in CreateListingInput) toListing(hostID string) *domain.Listing {
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	l := &domain.Listing{
		ID:                    uuid.NewString(),
		HostID:                hostID,
		Title:                 strings.TrimSpace(in.Title),
		City:                  strings.TrimSpace(in.City),
		Status:                domain.ListingStatusActive,
		Currency:              currency,
		NightlyPrice:          in.NightlyPrice,
		WeeklyPrice:           in.WeeklyPrice,
		MonthlyPrice:          in.MonthlyPrice,
		CleaningFee:           in.CleaningFee,
		ServiceFee:            in.ServiceFee,
		Taxes:                 in.Taxes,
		SecurityDeposit:       domain.Major(1000, currency),
		WeeklyDiscountPct:     in.WeeklyDiscountPct,
		MonthlyDiscountPct:    in.MonthlyDiscountPct,
		EarlyBirdDiscountPct:  in.EarlyBirdDiscountPct,
		LastMinuteDiscountPct: in.LastMinuteDiscountPct,
		MinNights:             domain.DefaultMinNights,
		MaxNights:             in.MaxNights,
		MaxGuests:             domain.DefaultMaxGuests,
		CancellationPolicy:    strings.TrimSpace(in.CancellationPolicy),
		InstantBook:           in.InstantBook,
	}
	if l.CleaningFee == nil {
		l.CleaningFee = domain.FlatFee(domain.Major(200, currency))
	}
	if in.SecurityDeposit != nil {
		l.SecurityDeposit = *in.SecurityDeposit
	}
	if in.MinNights != nil {
		l.MinNights = *in.MinNights
	}
	if l.MaxNights == nil {
		maxNights := domain.DefaultMaxNights
		l.MaxNights = &maxNights
	}
	if in.MaxGuests != nil {
		l.MaxGuests = *in.MaxGuests
	}
	if l.CancellationPolicy == "" {
		l.CancellationPolicy = domain.DefaultCancellationPolicy
	}
	return l
}

func (s *ListingService) CreateListing(ctx context.Context, actor domain.Identity, input CreateListingInput) (*domain.Listing, error) {
	if !actor.HasRole(domain.RoleHost) && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only hosts can publish listings", domain.ErrUnauthorized)
	}
	hostID := actor.UserID
	if actor.IsAdmin() && input.HostID != "" {
		hostID = input.HostID
	}
	listing := input.toListing(hostID)
	if err := listing.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Listings().Create(ctx, listing); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"listing_id": listing.ID, "host_id": hostID}).Info("listing published")
	return listing, nil
}

// GetListing reads through the cache. Cache failures fall back to the store.
func (s *ListingService) GetListing(ctx context.Context, id string) (*domain.Listing, error) {
	if s.cache != nil {
		cached, err := s.cache.GetListing(ctx, id)
		if err != nil {
			s.logger.WithError(err).WithField("listing_id", id).Warn("listing cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	listing, err := s.store.Listings().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetListing(ctx, listing); err != nil {
			s.logger.WithError(err).WithField("listing_id", id).Warn("listing cache write failed")
		}
	}
	return listing, nil
}

func (s *ListingService) ListHostListings(ctx context.Context, hostID string) ([]domain.Listing, error) {
	if strings.TrimSpace(hostID) == "" {
		return nil, fmt.Errorf("%w: host id is required", domain.ErrInvalidInput)
	}
	return s.store.Listings().ListByHost(ctx, hostID)
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListListings pages through bookable listings in publication order.
func (s *ListingService) ListListings(ctx context.Context, page, pageSize int) ([]domain.Listing, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return s.store.Listings().ListActive(ctx, page, pageSize)
}

func (s *ListingService) UpdateListing(ctx context.Context, actor domain.Identity, id string, fields domain.ListingUpdateFields) (*domain.Listing, error) {
	return s.modify(ctx, actor, id, func(l *domain.Listing) error {
		return fields.Apply(l)
	})
}

// RetireListing soft-deletes the listing. Existing bookings are untouched; no new ones are accepted.
func (s *ListingService) RetireListing(ctx context.Context, actor domain.Identity, id string) (*domain.Listing, error) {
	return s.modify(ctx, actor, id, func(l *domain.Listing) error {
		l.Status = domain.ListingStatusDeleted
		return nil
	})
}

func (s *ListingService) modify(ctx context.Context, actor domain.Identity, id string, fn func(l *domain.Listing) error) (*domain.Listing, error) {
	var out *domain.Listing
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		l, err := tx.Listings().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := authorizeHost(actor, l); err != nil {
			return err
		}
		if l.Status == domain.ListingStatusDeleted {
			return domain.ErrListingInactive
		}
		if err := fn(l); err != nil {
			return err
		}
		l.UpdatedAt = time.Now().UTC()
		if err := tx.Listings().Update(ctx, l); err != nil {
			return err
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return out, nil
}

func (s *ListingService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateListing(ctx, id); err != nil {
		s.logger.WithError(err).WithField("listing_id", id).Warn("listing cache invalidation failed")
	}
}

// BlockDates closes a range of the calendar. It fails with a conflict when the range
// overlaps a booking or another block.
func (s *ListingService) BlockDates(ctx context.Context, actor domain.Identity, id string, stay domain.DateRange, reason string) (*domain.AvailabilityWindow, error) {
	if stay.IsZero() || !stay.CheckIn.Before(stay.CheckOut) {
		return nil, domain.ErrInvalidRange
	}
	var window *domain.AvailabilityWindow
	err := s.calendarWrite(ctx, actor, id, func(tx repository.Store) error {
		var err error
		window, err = tx.Availability().Block(ctx, id, stay, strings.TrimSpace(reason))
		return err
	})
	if err != nil {
		return nil, err
	}
	return window, nil
}

func (s *ListingService) UnblockDates(ctx context.Context, actor domain.Identity, id string, stay domain.DateRange) (int, error) {
	if stay.IsZero() || !stay.CheckIn.Before(stay.CheckOut) {
		return 0, domain.ErrInvalidRange
	}
	var removed int
	err := s.calendarWrite(ctx, actor, id, func(tx repository.Store) error {
		var err error
		removed, err = tx.Availability().Unblock(ctx, id, stay)
		return err
	})
	return removed, err
}

type OverrideInput struct {
	Stay      domain.DateRange `json:"stay"`
	Price     *domain.Amount   `json:"price"`
	MinNights *int             `json:"min_nights"`
}

// SetNightlyOverride stores an open window that reprices nights or changes the minimum
// stay for arrivals inside it. It never occupies the calendar.
func (s *ListingService) SetNightlyOverride(ctx context.Context, actor domain.Identity, id string, input OverrideInput) (*domain.AvailabilityWindow, error) {
	if input.Stay.IsZero() || !input.Stay.CheckIn.Before(input.Stay.CheckOut) {
		return nil, domain.ErrInvalidRange
	}
	if input.Price == nil && input.MinNights == nil {
		return nil, fmt.Errorf("%w: price or min nights is required", domain.ErrInvalidInput)
	}
	if input.Price != nil && *input.Price <= 0 {
		return nil, fmt.Errorf("%w: override price must be positive", domain.ErrInvalidInput)
	}
	if input.MinNights != nil && *input.MinNights < 1 {
		return nil, fmt.Errorf("%w: min nights must be at least 1", domain.ErrInvalidInput)
	}

	window := &domain.AvailabilityWindow{
		ID:                uuid.NewString(),
		ListingID:         id,
		Status:            domain.WindowOpen,
		Range:             input.Stay,
		OverridePrice:     input.Price,
		MinNightsOverride: input.MinNights,
	}
	err := s.calendarWrite(ctx, actor, id, func(tx repository.Store) error {
		return tx.Availability().SetOverride(ctx, window)
	})
	if err != nil {
		return nil, err
	}
	return window, nil
}

func (s *ListingService) Calendar(ctx context.Context, id string, stay domain.DateRange) ([]domain.AvailabilityWindow, error) {
	if stay.IsZero() || !stay.CheckIn.Before(stay.CheckOut) {
		return nil, domain.ErrInvalidRange
	}
	if _, err := s.store.Listings().GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.store.Availability().Windows(ctx, id, stay)
}

// CheckAvailability reports whether every night of stay is free of blocks and live bookings.
func (s *ListingService) CheckAvailability(ctx context.Context, id string, stay domain.DateRange) (bool, error) {
	if stay.IsZero() {
		return false, domain.ErrInvalidRange
	}
	stay, err := domain.NewDateRange(stay.CheckIn, stay.CheckOut)
	if err != nil {
		return false, err
	}
	if _, err := s.store.Listings().GetByID(ctx, id); err != nil {
		return false, err
	}
	return s.store.Availability().QueryFree(ctx, id, stay)
}

func (s *ListingService) calendarWrite(ctx context.Context, actor domain.Identity, id string, fn func(tx repository.Store) error) error {
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, id)
		if err != nil {
			return err
		}
		defer release()
	}
	return s.store.WithinTx(ctx, func(tx repository.Store) error {
		l, err := tx.Listings().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := authorizeHost(actor, l); err != nil {
			return err
		}
		return fn(tx)
	})
}

func authorizeHost(actor domain.Identity, l *domain.Listing) error {
	if actor.IsAdmin() || l.OwnedBy(actor.UserID) {
		return nil
	}
	return fmt.Errorf("%w: listing %s belongs to another host", domain.ErrUnauthorized, l.ID)
}

var _ ListingUseCase = (*ListingService)(nil)
