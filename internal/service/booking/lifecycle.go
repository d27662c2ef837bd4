package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/repository"
	"github.com/sirupsen/logrus"
)

// ListQuery selects bookings from the caller's point of view. Non-admins only ever
// see bookings they are a party to.
type ListQuery struct {
	As        domain.Role          `json:"as"`
	ListingID string               `json:"listing_id"`
	Status    domain.BookingStatus `json:"status"`
	Page      int                  `json:"page"`
	PageSize  int                  `json:"page_size"`
}

func (s *BookingService) GetBooking(ctx context.Context, actor domain.Identity, id string) (*domain.Booking, error) {
	b, err := s.store.Bookings().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeParty(actor, b); err != nil {
		return nil, err
	}
	return s.catchUp(ctx, b), nil
}

func (s *BookingService) GetByCode(ctx context.Context, actor domain.Identity, code string) (*domain.Booking, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !domain.IsBookingCode(code) {
		return nil, fmt.Errorf("%w: malformed booking code", domain.ErrInvalidInput)
	}
	b, err := s.store.Bookings().GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := authorizeParty(actor, b); err != nil {
		return nil, err
	}
	return s.catchUp(ctx, b), nil
}

// catchUp applies the time-driven transitions a booking is owed. Persisting is
// best effort; the sweep retries whatever fails here.
func (s *BookingService) catchUp(ctx context.Context, b *domain.Booking) *domain.Booking {
	if _, due := b.DueTransition(s.now()); !due {
		return b
	}
	advanced, err := s.advance(ctx, b.ID)
	if err != nil {
		s.logger.WithError(err).WithField("booking_id", b.ID).Warn("lazy lifecycle advance failed")
		view := *b
		view.Advance(s.now())
		return &view
	}
	return advanced
}

func (s *BookingService) ListBookings(ctx context.Context, actor domain.Identity, query ListQuery) ([]domain.Booking, int, error) {
	if actor.IsZero() {
		return nil, 0, domain.ErrUnauthorized
	}
	if query.Status != "" && !query.Status.IsValid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, query.Status)
	}
	filter := repository.BookingFilter{
		ListingID: query.ListingID,
		Status:    query.Status,
		Page:      query.Page,
		PageSize:  query.PageSize,
	}
	switch {
	case query.As == domain.RoleHost:
		filter.HostID = actor.UserID
	case query.As == domain.RoleAdmin && actor.IsAdmin():
	default:
		filter.GuestID = actor.UserID
	}
	return s.store.Bookings().List(ctx, filter)
}

func (s *BookingService) UpdateBooking(ctx context.Context, actor domain.Identity, id string, fields domain.BookingUpdateFields) (*domain.Booking, error) {
	if fields.IsEmpty() {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrInvalidInput)
	}
	return s.mutate(ctx, id, func(_ repository.Store, b *domain.Booking) error {
		if err := authorizeParty(actor, b); err != nil {
			return err
		}
		if err := fields.Apply(b, actor); err != nil {
			return err
		}
		b.UpdatedAt = s.now().UTC()
		return nil
	})
}

// CancelBooking moves the booking to Cancelled and releases its dates in one transaction.
// A captured payment is sent back through a refund request once the cancellation commits.
func (s *BookingService) CancelBooking(ctx context.Context, actor domain.Identity, id, reason string) (*domain.Booking, error) {
	current, err := s.store.Bookings().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeParty(actor, current); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "cancelled by " + partyRole(actor, current)
	}

	var captured bool
	var cancelled *domain.Booking
	err = s.underListingLock(ctx, current.ListingID, func() error {
		var err error
		cancelled, err = s.mutate(ctx, id, func(tx repository.Store, b *domain.Booking) error {
			captured = b.PaymentStatus.Captured()
			if err := b.Transition(domain.BookingStatusCancelled, s.now(), actor.UserID, reason); err != nil {
				return err
			}
			return tx.Availability().Release(ctx, b.ListingID, b.Stay, b.ID)
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": cancelled.ID,
		"by":         actor.UserID,
		"reason":     reason,
	}).Info("booking cancelled")
	s.emit(ctx, domain.EventBookingCancelled, cancelled)
	if captured {
		s.requestRefund(ctx, cancelled)
	}
	return cancelled, nil
}

// MarkNoShow closes a confirmed booking whose guest never arrived and frees the remaining dates.
func (s *BookingService) MarkNoShow(ctx context.Context, actor domain.Identity, id string) (*domain.Booking, error) {
	current, err := s.store.Bookings().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeHost(actor, current); err != nil {
		return nil, err
	}

	var updated *domain.Booking
	err = s.underListingLock(ctx, current.ListingID, func() error {
		var err error
		updated, err = s.mutate(ctx, id, func(tx repository.Store, b *domain.Booking) error {
			if err := b.Transition(domain.BookingStatusNoShow, s.now(), actor.UserID, ""); err != nil {
				return err
			}
			return tx.Availability().Release(ctx, b.ListingID, b.Stay, b.ID)
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, domain.EventBookingNoShow, updated)
	return updated, nil
}

// ExpirePendingBookings cancels Pending bookings whose payment hold ran out and releases their dates.
func (s *BookingService) ExpirePendingBookings(ctx context.Context) ([]domain.Booking, error) {
	now := s.now()
	candidates, err := s.store.Bookings().ListPendingExpired(ctx, now, sweepBatch)
	if err != nil {
		return nil, err
	}

	expired := make([]domain.Booking, 0, len(candidates))
	for _, c := range candidates {
		var updated *domain.Booking
		err := s.underListingLock(ctx, c.ListingID, func() error {
			var err error
			updated, err = s.mutate(ctx, c.ID, func(tx repository.Store, b *domain.Booking) error {
				if b.Status != domain.BookingStatusPending || b.ExpiresAt.After(now) {
					return errUnchanged
				}
				if err := b.Transition(domain.BookingStatusCancelled, now, domain.SystemActor, holdExpiredReason); err != nil {
					return err
				}
				return tx.Availability().Release(ctx, b.ListingID, b.Stay, b.ID)
			})
			return err
		})
		if errors.Is(err, errUnchanged) {
			continue
		}
		if err != nil {
			s.logger.WithError(err).WithField("booking_id", c.ID).Error("failed to expire booking")
			continue
		}
		s.emit(ctx, domain.EventBookingExpired, updated)
		expired = append(expired, *updated)
	}
	if len(expired) > 0 {
		s.logger.WithField("count", len(expired)).Info("expired pending bookings")
	}
	return expired, nil
}

// AdvanceLifecycles starts bookings that reached check-in and completes those past check-out.
func (s *BookingService) AdvanceLifecycles(ctx context.Context) (int, error) {
	due, err := s.store.Bookings().ListDueForLifecycle(ctx, s.now(), sweepBatch)
	if err != nil {
		return 0, err
	}
	advanced := 0
	for _, b := range due {
		if _, err := s.advance(ctx, b.ID); err != nil {
			if !errors.Is(err, errUnchanged) {
				s.logger.WithError(err).WithField("booking_id", b.ID).Error("failed to advance booking")
			}
			continue
		}
		advanced++
	}
	return advanced, nil
}

// advance persists every owed time-driven transition, announces each one and
// captures an authorized payment once the stay has started.
func (s *BookingService) advance(ctx context.Context, id string) (*domain.Booking, error) {
	var passed []domain.BookingStatus
	updated, err := s.mutate(ctx, id, func(_ repository.Store, b *domain.Booking) error {
		passed = b.Advance(s.now())
		if len(passed) == 0 {
			return errUnchanged
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, status := range passed {
		if t, ok := domain.EventForStatus(status); ok {
			s.emit(ctx, t, updated)
		}
	}
	if updated.PaymentStatus == domain.PaymentStatusAuthorized && s.gateway != nil {
		if captured, err := s.capture(ctx, updated); err != nil {
			s.logger.WithError(err).WithField("booking_id", id).Warn("capture at check-in failed")
		} else {
			updated = captured
		}
	}
	return updated, nil
}

func partyRole(actor domain.Identity, b *domain.Booking) string {
	switch {
	case actor.UserID == b.GuestID:
		return string(domain.RoleGuest)
	case actor.UserID == b.HostID:
		return string(domain.RoleHost)
	default:
		return string(domain.RoleAdmin)
	}
}
