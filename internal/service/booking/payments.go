package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/repository"
	"github.com/sirupsen/logrus"
)

// AuthorizePayment asks the gateway to hold the booking total. An approved
// authorization confirms the booking; a declined one leaves it Pending until the hold expires.
func (s *BookingService) AuthorizePayment(ctx context.Context, actor domain.Identity, id string) (*domain.Booking, error) {
	if s.gateway == nil {
		return nil, fmt.Errorf("%w: no payment gateway configured", domain.ErrUnavailable)
	}
	b, err := s.store.Bookings().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && b.GuestID != actor.UserID {
		return nil, fmt.Errorf("%w: only the guest can pay for booking %s", domain.ErrUnauthorized, id)
	}
	if b.Status != domain.BookingStatusPending {
		return nil, &domain.TransitionError{From: b.Status, To: domain.BookingStatusConfirmed, Reason: "booking is not awaiting payment"}
	}
	if !b.ExpiresAt.After(s.now()) {
		return nil, &domain.TransitionError{From: b.Status, To: domain.BookingStatusConfirmed, Reason: "payment hold expired"}
	}

	auth, err := s.gateway.Authorize(ctx, b.ID, b.Price.Total, b.Price.Currency)
	if err != nil {
		return nil, fmt.Errorf("%w: authorize payment: %v", domain.ErrUnavailable, err)
	}
	switch auth.Status {
	case domain.AuthPending:
		return b, nil
	case domain.AuthApproved:
		return s.HandlePaymentResult(ctx, domain.PaymentResult{
			BookingID: b.ID,
			Operation: domain.PaymentAuthorize,
			Reference: auth.Reference,
			Approved:  true,
			Amount:    b.Price.Total,
		})
	default:
		declined, err := s.HandlePaymentResult(ctx, domain.PaymentResult{
			BookingID: b.ID,
			Operation: domain.PaymentAuthorize,
			Reference: auth.Reference,
			Message:   auth.Message,
		})
		if err != nil {
			return nil, err
		}
		return declined, fmt.Errorf("%w: %s", domain.ErrPaymentDeclined, auth.Message)
	}
}

// HandlePaymentResult applies a gateway answer to the booking it belongs to. Answers
// that no longer fit the booking (redeliveries, declines after confirmation, refunds
// of money never taken) leave it untouched. A capture that lands on a booking
// cancelled in the meantime is recorded and refunded.
func (s *BookingService) HandlePaymentResult(ctx context.Context, result domain.PaymentResult) (*domain.Booking, error) {
	var confirmed, refund bool
	updated, err := s.mutate(ctx, result.BookingID, func(_ repository.Store, b *domain.Booking) error {
		now := s.now()
		switch result.Operation {
		case domain.PaymentAuthorize:
			if !result.Approved {
				if b.Status != domain.BookingStatusPending ||
					(b.PaymentStatus != domain.PaymentStatusPending && b.PaymentStatus != domain.PaymentStatusFailed) {
					return errUnchanged
				}
				b.PaymentStatus = domain.PaymentStatusFailed
				b.UpdatedAt = now.UTC()
				return nil
			}
			if b.Status != domain.BookingStatusPending {
				if b.PaymentStatus == domain.PaymentStatusAuthorized && b.PaymentReference == result.Reference {
					return errUnchanged
				}
				return &domain.TransitionError{From: b.Status, To: domain.BookingStatusConfirmed, Reason: "authorization arrived after the booking left Pending"}
			}
			b.PaymentStatus = domain.PaymentStatusAuthorized
			b.PaymentReference = result.Reference
			if err := b.Transition(domain.BookingStatusConfirmed, now, "", ""); err != nil {
				return err
			}
			confirmed = true
		case domain.PaymentCapture:
			if !result.Approved || b.PaymentStatus.Captured() || b.PaymentStatus == domain.PaymentStatusRefunded {
				return errUnchanged
			}
			switch b.Status {
			case domain.BookingStatusConfirmed, domain.BookingStatusInProgress, domain.BookingStatusCompleted:
				if b.PaymentStatus != domain.PaymentStatusAuthorized {
					return errUnchanged
				}
			case domain.BookingStatusCancelled:
				refund = true
			default:
				return errUnchanged
			}
			b.PaymentStatus = domain.PaymentStatusPaid
			if result.Amount > 0 && result.Amount < b.Price.Total {
				b.PaymentStatus = domain.PaymentStatusPartiallyPaid
			}
			b.UpdatedAt = now.UTC()
		case domain.PaymentRefund:
			if !result.Approved || !b.PaymentStatus.Captured() {
				return errUnchanged
			}
			b.PaymentStatus = domain.PaymentStatusRefunded
			b.UpdatedAt = now.UTC()
		default:
			return fmt.Errorf("%w: unknown payment operation %q", domain.ErrInvalidInput, result.Operation)
		}
		return nil
	})
	if errors.Is(err, errUnchanged) {
		current, err := s.store.Bookings().GetByID(ctx, result.BookingID)
		if err != nil {
			return nil, err
		}
		s.logger.WithFields(logrus.Fields{
			"booking_id": current.ID,
			"operation":  result.Operation,
			"approved":   result.Approved,
			"status":     current.Status,
			"payment":    current.PaymentStatus,
		}).Info("payment result does not apply, booking left unchanged")
		return current, nil
	}
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": updated.ID,
		"operation":  result.Operation,
		"approved":   result.Approved,
		"payment":    updated.PaymentStatus,
	}).Info("payment result applied")
	if confirmed {
		s.emit(ctx, domain.EventBookingConfirmed, updated)
	}
	if refund {
		s.requestRefund(ctx, updated)
	}
	return updated, nil
}

// RecordRefund applies the gateway's answer to an earlier refund request.
func (s *BookingService) RecordRefund(ctx context.Context, result domain.PaymentResult) (*domain.Booking, error) {
	result.Operation = domain.PaymentRefund
	return s.HandlePaymentResult(ctx, result)
}

// CapturePayment collects an authorized payment. Capture also happens automatically at check-in.
func (s *BookingService) CapturePayment(ctx context.Context, actor domain.Identity, id string) (*domain.Booking, error) {
	if s.gateway == nil {
		return nil, fmt.Errorf("%w: no payment gateway configured", domain.ErrUnavailable)
	}
	b, err := s.store.Bookings().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeHost(actor, b); err != nil {
		return nil, err
	}
	if b.PaymentStatus != domain.PaymentStatusAuthorized {
		return nil, fmt.Errorf("%w: payment is %s, not authorized", domain.ErrInvalidInput, b.PaymentStatus)
	}
	if b.Status != domain.BookingStatusConfirmed && b.Status != domain.BookingStatusInProgress {
		return nil, fmt.Errorf("%w: booking is %s", domain.ErrInvalidInput, b.Status)
	}
	return s.capture(ctx, b)
}

func (s *BookingService) capture(ctx context.Context, b *domain.Booking) (*domain.Booking, error) {
	result, err := s.gateway.Capture(ctx, b.ID, b.PaymentReference, b.Price.Total, b.Price.Currency)
	if err != nil {
		return nil, fmt.Errorf("%w: capture payment: %v", domain.ErrUnavailable, err)
	}
	if result == nil {
		return b, nil
	}
	updated, err := s.HandlePaymentResult(ctx, *result)
	if err != nil {
		return nil, err
	}
	if !result.Approved {
		return updated, fmt.Errorf("%w: %s", domain.ErrPaymentDeclined, result.Message)
	}
	return updated, nil
}

// requestRefund announces and submits the refund of a captured payment. Failures are
// logged only; the cancellation has already committed.
func (s *BookingService) requestRefund(ctx context.Context, b *domain.Booking) {
	s.emit(ctx, domain.EventPaymentRefundRequested, b)
	if s.gateway == nil {
		return
	}
	result, err := s.gateway.Refund(ctx, b.ID, b.PaymentReference, b.Price.Total, b.Price.Currency)
	if err != nil {
		s.logger.WithError(err).WithField("booking_id", b.ID).Error("refund request failed")
		return
	}
	if result == nil {
		return
	}
	if _, err := s.HandlePaymentResult(ctx, *result); err != nil {
		s.logger.WithError(err).WithField("booking_id", b.ID).Error("failed to record refund")
	}
}
