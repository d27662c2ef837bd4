package domain

import (
	"fmt"
	"strings"
	"time"
)

type ListingStatus string

const (
	ListingStatusActive   ListingStatus = "ACTIVE"
	ListingStatusInactive ListingStatus = "INACTIVE"
	ListingStatusDeleted  ListingStatus = "DELETED"
)

const (
	DefaultMinNights          = 28
	DefaultMaxNights          = 365
	DefaultMaxGuests          = 4
	DefaultCancellationPolicy = "moderate"
)

type FeeKind string

const (
	FeeFlat    FeeKind = "FLAT"
	FeePercent FeeKind = "PERCENT"
)

// Fee is either a flat Amount or a percentage of the stay subtotal in basis points (1000 = 10%).
type Fee struct {
	Kind  FeeKind `json:"kind"`
	Value int64   `json:"value"`
}

func FlatFee(a Amount) *Fee {
	return &Fee{Kind: FeeFlat, Value: int64(a)}
}

func PercentFee(bp int64) *Fee {
	return &Fee{Kind: FeePercent, Value: bp}
}

// Apply returns the fee for a given subtotal. A nil fee costs nothing.
func (f *Fee) Apply(subtotal Amount) Amount {
	if f == nil {
		return 0
	}
	switch f.Kind {
	case FeePercent:
		return subtotal.BasisPoints(f.Value)
	default:
		return Amount(f.Value)
	}
}

func (f *Fee) validate(name string) error {
	if f == nil {
		return nil
	}
	if f.Kind != FeeFlat && f.Kind != FeePercent {
		return fmt.Errorf("%w: %s kind %q", ErrInvalidInput, name, f.Kind)
	}
	if f.Value < 0 {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidInput, name)
	}
	return nil
}

type Listing struct {
	ID     string        `json:"id"`
	HostID string        `json:"host_id"`
	Title  string        `json:"title"`
	City   string        `json:"city"`
	Status ListingStatus `json:"status"`

	Currency        string  `json:"currency"`
	NightlyPrice    Amount  `json:"nightly_price"`
	WeeklyPrice     *Amount `json:"weekly_price,omitempty"`
	MonthlyPrice    *Amount `json:"monthly_price,omitempty"`
	CleaningFee     *Fee    `json:"cleaning_fee,omitempty"`
	ServiceFee      *Fee    `json:"service_fee,omitempty"`
	Taxes           *Fee    `json:"taxes,omitempty"`
	SecurityDeposit Amount  `json:"security_deposit"`

	WeeklyDiscountPct     *int `json:"weekly_discount_pct,omitempty"`
	MonthlyDiscountPct    *int `json:"monthly_discount_pct,omitempty"`
	EarlyBirdDiscountPct  *int `json:"early_bird_discount_pct,omitempty"`
	LastMinuteDiscountPct *int `json:"last_minute_discount_pct,omitempty"`

	MinNights          int    `json:"min_nights"`
	MaxNights          *int   `json:"max_nights,omitempty"`
	MaxGuests          int    `json:"max_guests"`
	CancellationPolicy string `json:"cancellation_policy"`
	InstantBook        bool   `json:"instant_book"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (l *Listing) Bookable() bool {
	return l.Status == ListingStatusActive
}

func (l *Listing) OwnedBy(userID string) bool {
	return userID != "" && l.HostID == userID
}

// Validate checks the pricing and policy fields a host can set.
func (l *Listing) Validate() error {
	if strings.TrimSpace(l.HostID) == "" {
		return fmt.Errorf("%w: host id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(l.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if !IsSupportedCurrency(l.Currency) {
		return fmt.Errorf("%w: unsupported currency %q", ErrInvalidInput, l.Currency)
	}
	if l.NightlyPrice <= 0 {
		return fmt.Errorf("%w: nightly price must be positive", ErrInvalidInput)
	}
	if l.WeeklyPrice != nil && *l.WeeklyPrice <= 0 {
		return fmt.Errorf("%w: weekly price must be positive", ErrInvalidInput)
	}
	if l.MonthlyPrice != nil && *l.MonthlyPrice <= 0 {
		return fmt.Errorf("%w: monthly price must be positive", ErrInvalidInput)
	}
	if l.SecurityDeposit < 0 {
		return fmt.Errorf("%w: security deposit must not be negative", ErrInvalidInput)
	}
	for name, fee := range map[string]*Fee{"cleaning fee": l.CleaningFee, "service fee": l.ServiceFee, "taxes": l.Taxes} {
		if err := fee.validate(name); err != nil {
			return err
		}
	}
	for name, pct := range map[string]*int{
		"weekly discount":      l.WeeklyDiscountPct,
		"monthly discount":     l.MonthlyDiscountPct,
		"early-bird discount":  l.EarlyBirdDiscountPct,
		"last-minute discount": l.LastMinuteDiscountPct,
	} {
		if pct != nil && (*pct < 0 || *pct > 100) {
			return fmt.Errorf("%w: %s must be between 0 and 100", ErrInvalidInput, name)
		}
	}
	if l.MinNights < 1 {
		return fmt.Errorf("%w: min nights must be at least 1", ErrInvalidInput)
	}
	if l.MaxNights != nil && *l.MaxNights < l.MinNights {
		return fmt.Errorf("%w: max nights must not be below min nights", ErrInvalidInput)
	}
	if l.MaxGuests < 1 {
		return fmt.Errorf("%w: max guests must be at least 1", ErrInvalidInput)
	}
	return nil
}

// ListingUpdateFields patches only the fields that were supplied.
// Nullable fields are cleared by an explicit null.
type ListingUpdateFields struct {
	Title                 Optional[string]        `json:"title"`
	City                  Optional[string]        `json:"city"`
	NightlyPrice          Optional[Amount]        `json:"nightly_price"`
	WeeklyPrice           Optional[Amount]        `json:"weekly_price"`
	MonthlyPrice          Optional[Amount]        `json:"monthly_price"`
	CleaningFee           Optional[Fee]           `json:"cleaning_fee"`
	ServiceFee            Optional[Fee]           `json:"service_fee"`
	Taxes                 Optional[Fee]           `json:"taxes"`
	SecurityDeposit       Optional[Amount]        `json:"security_deposit"`
	WeeklyDiscountPct     Optional[int]           `json:"weekly_discount_pct"`
	MonthlyDiscountPct    Optional[int]           `json:"monthly_discount_pct"`
	EarlyBirdDiscountPct  Optional[int]           `json:"early_bird_discount_pct"`
	LastMinuteDiscountPct Optional[int]           `json:"last_minute_discount_pct"`
	MinNights             Optional[int]           `json:"min_nights"`
	MaxNights             Optional[int]           `json:"max_nights"`
	MaxGuests             Optional[int]           `json:"max_guests"`
	CancellationPolicy    Optional[string]        `json:"cancellation_policy"`
	InstantBook           Optional[bool]          `json:"instant_book"`
	Status                Optional[ListingStatus] `json:"status"`
}

// Apply patches l and validates the result. l is left untouched on error.
func (u ListingUpdateFields) Apply(l *Listing) error {
	for name, null := range map[string]bool{
		"title":               u.Title.Null,
		"city":                u.City.Null,
		"nightly_price":       u.NightlyPrice.Null,
		"security_deposit":    u.SecurityDeposit.Null,
		"min_nights":          u.MinNights.Null,
		"max_guests":          u.MaxGuests.Null,
		"cancellation_policy": u.CancellationPolicy.Null,
		"instant_book":        u.InstantBook.Null,
		"status":              u.Status.Null,
	} {
		if null {
			return fmt.Errorf("%w: %s cannot be null", ErrInvalidInput, name)
		}
	}
	if u.Status.Set && u.Status.Value != ListingStatusActive && u.Status.Value != ListingStatusInactive {
		return fmt.Errorf("%w: status %q cannot be set directly", ErrInvalidInput, u.Status.Value)
	}

	next := *l
	u.Title.applyTo(&next.Title)
	u.City.applyTo(&next.City)
	u.NightlyPrice.applyTo(&next.NightlyPrice)
	u.WeeklyPrice.applyToPtr(&next.WeeklyPrice)
	u.MonthlyPrice.applyToPtr(&next.MonthlyPrice)
	u.CleaningFee.applyToPtr(&next.CleaningFee)
	u.ServiceFee.applyToPtr(&next.ServiceFee)
	u.Taxes.applyToPtr(&next.Taxes)
	u.SecurityDeposit.applyTo(&next.SecurityDeposit)
	u.WeeklyDiscountPct.applyToPtr(&next.WeeklyDiscountPct)
	u.MonthlyDiscountPct.applyToPtr(&next.MonthlyDiscountPct)
	u.EarlyBirdDiscountPct.applyToPtr(&next.EarlyBirdDiscountPct)
	u.LastMinuteDiscountPct.applyToPtr(&next.LastMinuteDiscountPct)
	u.MinNights.applyTo(&next.MinNights)
	u.MaxNights.applyToPtr(&next.MaxNights)
	u.MaxGuests.applyTo(&next.MaxGuests)
	u.CancellationPolicy.applyTo(&next.CancellationPolicy)
	u.InstantBook.applyTo(&next.InstantBook)
	u.Status.applyTo(&next.Status)

	if err := next.Validate(); err != nil {
		return err
	}
	*l = next
	return nil
}
