package domain

import "time"

type WindowStatus string

const (
	WindowOpen    WindowStatus = "OPEN"
	WindowBooked  WindowStatus = "BOOKED"
	WindowBlocked WindowStatus = "BLOCKED"
)

// AvailabilityWindow is one contiguous range of a listing's calendar.
// BOOKED and BLOCKED windows of a listing never overlap. OPEN windows only carry
// host price or minimum-stay overrides and never occupy the calendar.
type AvailabilityWindow struct {
	ID                string       `json:"id"`
	ListingID         string       `json:"listing_id"`
	BookingID         string       `json:"booking_id,omitempty"`
	Status            WindowStatus `json:"status"`
	Range             DateRange    `json:"range"`
	Reason            string       `json:"reason,omitempty"`
	OverridePrice     *Amount      `json:"override_price,omitempty"`
	MinNightsOverride *int         `json:"min_nights_override,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
}

func (w AvailabilityWindow) Occupies() bool {
	return w.Status == WindowBooked || w.Status == WindowBlocked
}

// ReservationToken proves a successful reservation of a range for a booking.
type ReservationToken struct {
	WindowID   string    `json:"window_id"`
	ListingID  string    `json:"listing_id"`
	BookingID  string    `json:"booking_id"`
	Range      DateRange `json:"range"`
	ReservedAt time.Time `json:"reserved_at"`
}
