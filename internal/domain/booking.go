package domain

import (
	"fmt"
	"strings"
	"time"
)

type PaymentStatus string

const (
	PaymentStatusPending       PaymentStatus = "PENDING"
	PaymentStatusAuthorized    PaymentStatus = "AUTHORIZED"
	PaymentStatusPaid          PaymentStatus = "PAID"
	PaymentStatusPartiallyPaid PaymentStatus = "PARTIALLY_PAID"
	PaymentStatusRefunded      PaymentStatus = "REFUNDED"
	PaymentStatusFailed        PaymentStatus = "FAILED"
	PaymentStatusVoided        PaymentStatus = "VOIDED"
)

// Captured reports whether money actually moved and a refund would be needed.
func (s PaymentStatus) Captured() bool {
	return s == PaymentStatusPaid || s == PaymentStatusPartiallyPaid
}

type DiscountKind string

const (
	DiscountNone       DiscountKind = ""
	DiscountMonthly    DiscountKind = "MONTHLY"
	DiscountWeekly     DiscountKind = "WEEKLY"
	DiscountEarlyBird  DiscountKind = "EARLY_BIRD"
	DiscountLastMinute DiscountKind = "LAST_MINUTE"
)

type Occupancy struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Infants  int `json:"infants"`
	Pets     int `json:"pets"`
}

// Guests counts the occupants that take up a guest slot; infants and pets do not.
func (o Occupancy) Guests() int {
	return o.Adults + o.Children
}

func (o Occupancy) Validate(maxGuests int) error {
	if o.Adults < 1 {
		return fmt.Errorf("%w: at least one adult is required", ErrInvalidOccupancy)
	}
	if o.Children < 0 || o.Infants < 0 || o.Pets < 0 {
		return fmt.Errorf("%w: counts must not be negative", ErrInvalidOccupancy)
	}
	if maxGuests > 0 && o.Guests() > maxGuests {
		return fmt.Errorf("%w: %d guests exceed the listing maximum of %d", ErrInvalidOccupancy, o.Guests(), maxGuests)
	}
	return nil
}

// PriceBreakdown is the priced stay. Total = Subtotal + CleaningFee + ServiceFee + Taxes - Discount, never negative.
type PriceBreakdown struct {
	Currency        string       `json:"currency"`
	NightlyRate     Amount       `json:"nightly_rate"`
	TotalNights     int          `json:"total_nights"`
	Subtotal        Amount       `json:"subtotal"`
	CleaningFee     Amount       `json:"cleaning_fee"`
	ServiceFee      Amount       `json:"service_fee"`
	Taxes           Amount       `json:"taxes"`
	Discount        Amount       `json:"discount"`
	DiscountKind    DiscountKind `json:"discount_kind,omitempty"`
	Total           Amount       `json:"total"`
	SecurityDeposit Amount       `json:"security_deposit"`
	PricingAnomaly  bool         `json:"pricing_anomaly,omitempty"`
}

type Cancellation struct {
	By     string    `json:"by"`
	At     time.Time `json:"at"`
	Reason string    `json:"reason"`
}

type Booking struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	ListingID string `json:"listing_id"`
	GuestID   string `json:"guest_id"`
	HostID    string `json:"host_id,omitempty"`

	Stay      DateRange      `json:"stay"`
	Occupancy Occupancy      `json:"occupancy"`
	Price     PriceBreakdown `json:"price"`

	Status           BookingStatus `json:"status"`
	PaymentStatus    PaymentStatus `json:"payment_status"`
	PaymentReference string        `json:"payment_reference,omitempty"`
	Cancellation     *Cancellation `json:"cancellation,omitempty"`

	GuestMessage    string `json:"guest_message,omitempty"`
	SpecialRequests string `json:"special_requests,omitempty"`
	ArrivalTime     string `json:"arrival_time,omitempty"`
	GuestPhone      string `json:"guest_phone,omitempty"`
	GuestEmail      string `json:"guest_email,omitempty"`
	HostMessage     string `json:"host_message,omitempty"`
	HostNotes       string `json:"host_notes,omitempty"`

	// ExpiresAt bounds how long a Pending booking holds its dates without payment.
	ExpiresAt   time.Time  `json:"expires_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (b *Booking) IsParty(userID string) bool {
	return userID != "" && (b.GuestID == userID || b.HostID == userID)
}

// HoldsDates reports whether the booking should own a BOOKED window in the availability store.
func (b *Booking) HoldsDates() bool {
	switch b.Status {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusInProgress, BookingStatusCompleted:
		return true
	default:
		return false
	}
}

// BookingUpdateFields carries the free-text fields a party may patch on a booking.
type BookingUpdateFields struct {
	GuestMessage    Optional[string] `json:"guest_message"`
	SpecialRequests Optional[string] `json:"special_requests"`
	ArrivalTime     Optional[string] `json:"arrival_time"`
	GuestPhone      Optional[string] `json:"guest_phone"`
	GuestEmail      Optional[string] `json:"guest_email"`
	HostMessage     Optional[string] `json:"host_message"`
	HostNotes       Optional[string] `json:"host_notes"`
}

func (u BookingUpdateFields) touchesGuestFields() bool {
	return u.GuestMessage.Set || u.SpecialRequests.Set || u.ArrivalTime.Set || u.GuestPhone.Set || u.GuestEmail.Set
}

func (u BookingUpdateFields) touchesHostFields() bool {
	return u.HostMessage.Set || u.HostNotes.Set
}

func (u BookingUpdateFields) IsEmpty() bool {
	return !u.touchesGuestFields() && !u.touchesHostFields()
}

// Apply patches b on behalf of actor. Guests edit guest fields, hosts edit host fields, admins edit both.
// An explicit null clears a field.
func (u BookingUpdateFields) Apply(b *Booking, actor Identity) error {
	isGuest := b.GuestID == actor.UserID
	isHost := b.HostID != "" && b.HostID == actor.UserID
	admin := actor.IsAdmin()
	if u.touchesGuestFields() && !isGuest && !admin {
		return fmt.Errorf("%w: only the guest can change guest details", ErrUnauthorized)
	}
	if u.touchesHostFields() && !isHost && !admin {
		return fmt.Errorf("%w: only the host can change host notes", ErrUnauthorized)
	}
	if u.ArrivalTime.Set && !u.ArrivalTime.Null && len(u.ArrivalTime.Value) > 50 {
		return fmt.Errorf("%w: arrival time is too long", ErrInvalidInput)
	}
	if u.GuestEmail.Set && !u.GuestEmail.Null && u.GuestEmail.Value != "" && !strings.Contains(u.GuestEmail.Value, "@") {
		return fmt.Errorf("%w: guest email is malformed", ErrInvalidInput)
	}

	for _, f := range []struct {
		field Optional[string]
		dst   *string
	}{
		{u.GuestMessage, &b.GuestMessage},
		{u.SpecialRequests, &b.SpecialRequests},
		{u.ArrivalTime, &b.ArrivalTime},
		{u.GuestPhone, &b.GuestPhone},
		{u.GuestEmail, &b.GuestEmail},
		{u.HostMessage, &b.HostMessage},
		{u.HostNotes, &b.HostNotes},
	} {
		if !f.field.Set {
			continue
		}
		if f.field.Null {
			*f.dst = ""
			continue
		}
		*f.dst = strings.TrimSpace(f.field.Value)
	}
	return nil
}
