package domain

import (
	"fmt"
	"time"
)

// Notification is an inbox entry for one recipient.
type Notification struct {
	ID        string    `json:"id" bson:"_id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	BookingID string    `json:"booking_id" bson:"booking_id"`
	EventID   string    `json:"event_id" bson:"event_id"`
	Type      EventType `json:"type" bson:"type"`
	Title     string    `json:"title" bson:"title"`
	Body      string    `json:"body" bson:"body"`
	Read      bool      `json:"read" bson:"read"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

var notificationTitles = map[EventType]string{
	EventBookingCreated:         "Booking received",
	EventBookingConfirmed:       "Booking confirmed",
	EventBookingCancelled:       "Booking cancelled",
	EventBookingCompleted:       "Stay completed",
	EventBookingStarted:         "Stay started",
	EventBookingNoShow:          "Guest did not show up",
	EventBookingExpired:         "Booking hold expired",
	EventPaymentRefundRequested: "Refund requested",
}

// NotificationFor renders the inbox entry a recipient gets for an event.
func NotificationFor(ev BookingEvent, userID string) Notification {
	title, ok := notificationTitles[ev.Type]
	if !ok {
		title = "Booking update"
	}
	body := fmt.Sprintf("Booking %s for %s to %s is now %s.", ev.Code, ev.CheckIn, ev.CheckOut, ev.Status)
	if ev.Reason != "" {
		body += " Reason: " + ev.Reason + "."
	}
	return Notification{
		ID:        ev.ID + ":" + userID,
		UserID:    userID,
		BookingID: ev.BookingID,
		EventID:   ev.ID,
		Type:      ev.Type,
		Title:     title,
		Body:      body,
		CreatedAt: ev.OccurredAt,
	}
}
