package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRange         = errors.New("invalid date range")
	ErrBelowMinimumStay     = errors.New("stay is shorter than the listing minimum")
	ErrExceedsMaximumStay   = errors.New("stay is longer than the listing maximum")
	ErrInvalidOccupancy     = errors.New("invalid occupancy")
	ErrDateRangeUnavailable = errors.New("date range unavailable")
	ErrListingBusy          = errors.New("listing is busy, retry later")
	ErrInvalidTransition    = errors.New("invalid booking transition")
	ErrNotFound             = errors.New("not found")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrUnavailable          = errors.New("service unavailable")
	ErrInvalidInput         = errors.New("invalid input")
	ErrListingInactive      = errors.New("listing is not accepting bookings")
	ErrPaymentDeclined      = errors.New("payment declined")
	ErrAlreadyReviewed      = errors.New("booking already reviewed by this user")
	ErrNotReviewable        = errors.New("booking is not eligible for review")
)

// ConflictError is returned when a reservation or block overlaps an occupied window.
// BookingID is empty when the conflicting window is a host block.
type ConflictError struct {
	ListingID string
	Range     DateRange
	BookingID string
	WindowID  string
}

func (e *ConflictError) Error() string {
	if e.BookingID != "" {
		return fmt.Sprintf("date range %s of listing %s overlaps booking %s", e.Range, e.ListingID, e.BookingID)
	}
	return fmt.Sprintf("date range %s of listing %s overlaps blocked window %s", e.Range, e.ListingID, e.WindowID)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrDateRangeUnavailable
}

// TransitionError reports a state machine misuse.
type TransitionError struct {
	From   BookingStatus
	To     BookingStatus
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("booking cannot move from %s to %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("booking cannot move from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
