package domain

import "time"

// SystemActor is recorded as cancelledBy when the platform itself cancels a booking.
const SystemActor = "system"

// Transition moves the booking to status to at instant at. by and reason are only
// recorded for cancellations. Any move outside the transition table, or one whose
// guard does not hold, fails with a *TransitionError and leaves b untouched.
func (b *Booking) Transition(to BookingStatus, at time.Time, by, reason string) error {
	if !b.Status.CanTransitionTo(to) {
		why := ""
		if b.Status.IsTerminal() {
			why = "booking is in a terminal state"
		}
		return &TransitionError{From: b.Status, To: to, Reason: why}
	}
	if err := b.guard(to, at, by); err != nil {
		return err
	}

	ts := at.UTC()
	switch to {
	case BookingStatusConfirmed:
		b.ConfirmedAt = &ts
	case BookingStatusInProgress:
		b.StartedAt = &ts
	case BookingStatusCompleted:
		b.CompletedAt = &ts
	case BookingStatusCancelled:
		b.Cancellation = &Cancellation{By: by, At: ts, Reason: reason}
		if b.PaymentStatus == PaymentStatusAuthorized || b.PaymentStatus == PaymentStatusPending {
			b.PaymentStatus = PaymentStatusVoided
		}
	}
	b.Status = to
	b.UpdatedAt = ts
	return nil
}

func (b *Booking) guard(to BookingStatus, at time.Time, by string) error {
	day := StartOfDay(at)
	switch to {
	case BookingStatusConfirmed:
		if b.PaymentStatus != PaymentStatusAuthorized && !b.PaymentStatus.Captured() {
			return &TransitionError{From: b.Status, To: to, Reason: "payment is not authorized"}
		}
	case BookingStatusInProgress, BookingStatusNoShow:
		if day.Before(b.Stay.CheckIn) {
			return &TransitionError{From: b.Status, To: to, Reason: "check-in date has not been reached"}
		}
	case BookingStatusCompleted:
		if day.Before(b.Stay.CheckOut) {
			return &TransitionError{From: b.Status, To: to, Reason: "check-out date has not been reached"}
		}
	case BookingStatusCancelled:
		if by == "" {
			return &TransitionError{From: b.Status, To: to, Reason: "cancelling party is required"}
		}
	}
	return nil
}

// DueTransition returns the time-driven move that is owed at now, if any:
// Confirmed bookings start on check-in day, in-progress bookings complete on check-out day.
func (b *Booking) DueTransition(now time.Time) (BookingStatus, bool) {
	day := StartOfDay(now)
	switch b.Status {
	case BookingStatusConfirmed:
		if !day.Before(b.Stay.CheckIn) {
			return BookingStatusInProgress, true
		}
	case BookingStatusInProgress:
		if !day.Before(b.Stay.CheckOut) {
			return BookingStatusCompleted, true
		}
	}
	return "", false
}

// Advance applies every owed time-driven transition and returns the statuses passed through.
func (b *Booking) Advance(now time.Time) []BookingStatus {
	var passed []BookingStatus
	for {
		next, ok := b.DueTransition(now)
		if !ok {
			return passed
		}
		if err := b.Transition(next, now, "", ""); err != nil {
			return passed
		}
		passed = append(passed, next)
	}
}

// Reviewable reports whether the stay is over and the parties may review each other.
func (b *Booking) Reviewable() bool {
	return b.Status == BookingStatusCompleted
}
