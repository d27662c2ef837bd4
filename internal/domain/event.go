package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventBookingCreated         EventType = "booking_created"
	EventBookingConfirmed       EventType = "booking_confirmed"
	EventBookingCancelled       EventType = "booking_cancelled"
	EventBookingCompleted       EventType = "booking_completed"
	EventBookingStarted         EventType = "booking_started"
	EventBookingNoShow          EventType = "booking_no_show"
	EventBookingExpired         EventType = "booking_expired"
	EventPaymentRefundRequested EventType = "payment_refund_requested"
)

// EventForStatus maps a status change to the event announcing it.
func EventForStatus(status BookingStatus) (EventType, bool) {
	switch status {
	case BookingStatusConfirmed:
		return EventBookingConfirmed, true
	case BookingStatusInProgress:
		return EventBookingStarted, true
	case BookingStatusCompleted:
		return EventBookingCompleted, true
	case BookingStatusCancelled:
		return EventBookingCancelled, true
	case BookingStatusNoShow:
		return EventBookingNoShow, true
	}
	return "", false
}

// BookingEvent is the fire-and-forget message emitted after a booking change commits.
type BookingEvent struct {
	ID            string        `json:"id"`
	Type          EventType     `json:"type"`
	BookingID     string        `json:"booking_id"`
	Code          string        `json:"code"`
	ListingID     string        `json:"listing_id"`
	GuestID       string        `json:"guest_id"`
	HostID        string        `json:"host_id,omitempty"`
	GuestEmail    string        `json:"guest_email,omitempty"`
	Status        BookingStatus `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	CheckIn       string        `json:"check_in"`
	CheckOut      string        `json:"check_out"`
	Total         Amount        `json:"total"`
	Currency      string        `json:"currency"`
	Reason        string        `json:"reason,omitempty"`
	OccurredAt    time.Time     `json:"occurred_at"`
}

func NewBookingEvent(t EventType, b *Booking, at time.Time) BookingEvent {
	ev := BookingEvent{
		ID:            uuid.NewString(),
		Type:          t,
		BookingID:     b.ID,
		Code:          b.Code,
		ListingID:     b.ListingID,
		GuestID:       b.GuestID,
		HostID:        b.HostID,
		GuestEmail:    b.GuestEmail,
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		CheckIn:       b.Stay.CheckIn.Format(DateLayout),
		CheckOut:      b.Stay.CheckOut.Format(DateLayout),
		Total:         b.Price.Total,
		Currency:      b.Price.Currency,
		OccurredAt:    at.UTC(),
	}
	if b.Cancellation != nil {
		ev.Reason = b.Cancellation.Reason
	}
	return ev
}

// Recipients lists the parties that should hear about the event.
func (e BookingEvent) Recipients() []string {
	out := make([]string, 0, 2)
	if e.GuestID != "" {
		out = append(out, e.GuestID)
	}
	if e.HostID != "" && e.HostID != e.GuestID {
		out = append(out, e.HostID)
	}
	return out
}
