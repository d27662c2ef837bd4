package pricing

import (
	"fmt"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/sirupsen/logrus"
)

const (
	weeklyThresholdNights  = 7
	monthlyThresholdNights = 28
	weeklyDivisor          = 7
	monthlyDivisor         = 30

	defaultEarlyBirdDays  = 60
	defaultLastMinuteDays = 7
)

// Request is everything a quote depends on. Identical requests always price identically.
type Request struct {
	Listing   *domain.Listing
	Stay      domain.DateRange
	Occupancy domain.Occupancy
	// Overrides are the listing's OPEN calendar windows carrying host price or minimum-stay overrides.
	Overrides []domain.AvailabilityWindow
	// BookedAt is the booking instant used for early-bird and last-minute windows.
	BookedAt time.Time
	// AdminOverride skips the minimum-stay check.
	AdminOverride bool
}

type Calculator struct {
	earlyBirdDays  int
	lastMinuteDays int
	logger         *logrus.Logger
}

type Option func(*Calculator)

func WithEarlyBirdDays(days int) Option {
	return func(c *Calculator) {
		if days > 0 {
			c.earlyBirdDays = days
		}
	}
}

func WithLastMinuteDays(days int) Option {
	return func(c *Calculator) {
		if days > 0 {
			c.lastMinuteDays = days
		}
	}
}

func WithLogger(logger *logrus.Logger) Option {
	return func(c *Calculator) {
		c.logger = logger
	}
}

func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		earlyBirdDays:  defaultEarlyBirdDays,
		lastMinuteDays: defaultLastMinuteDays,
		logger:         logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Calculator) Quote(req Request) (domain.PriceBreakdown, error) {
	l := req.Listing
	if l == nil {
		return domain.PriceBreakdown{}, fmt.Errorf("%w: listing is required", domain.ErrInvalidInput)
	}
	if !req.Stay.CheckIn.Before(req.Stay.CheckOut) {
		return domain.PriceBreakdown{}, fmt.Errorf("%w: check-out must be after check-in", domain.ErrInvalidRange)
	}

	nights := req.Stay.Nights()
	minNights := minimumStay(l, req.Stay, req.Overrides)
	if nights < minNights && !req.AdminOverride {
		return domain.PriceBreakdown{}, fmt.Errorf("%w: %d nights requested, listing requires %d", domain.ErrBelowMinimumStay, nights, minNights)
	}
	if l.MaxNights != nil && nights > *l.MaxNights {
		return domain.PriceBreakdown{}, fmt.Errorf("%w: %d nights requested, listing allows %d", domain.ErrExceedsMaximumStay, nights, *l.MaxNights)
	}
	if err := req.Occupancy.Validate(l.MaxGuests); err != nil {
		return domain.PriceBreakdown{}, err
	}

	rate := nightlyRate(l, nights)
	subtotal := subtotalFor(rate, req.Stay, req.Overrides)

	breakdown := domain.PriceBreakdown{
		Currency:        l.Currency,
		NightlyRate:     rate,
		TotalNights:     nights,
		Subtotal:        subtotal,
		CleaningFee:     l.CleaningFee.Apply(subtotal),
		ServiceFee:      l.ServiceFee.Apply(subtotal),
		Taxes:           l.Taxes.Apply(subtotal),
		SecurityDeposit: l.SecurityDeposit,
	}
	breakdown.DiscountKind, breakdown.Discount = c.discount(l, nights, subtotal, req.Stay.CheckIn, req.BookedAt)

	total := breakdown.Subtotal + breakdown.CleaningFee + breakdown.ServiceFee + breakdown.Taxes - breakdown.Discount
	if total < 0 {
		c.logger.WithFields(logrus.Fields{
			"listing_id": l.ID,
			"stay":       req.Stay.String(),
			"total":      int64(total),
		}).Warn("negative booking total clamped to zero")
		total = 0
		breakdown.PricingAnomaly = true
	}
	breakdown.Total = total
	return breakdown, nil
}

// nightlyRate picks the lowest applicable of the nightly, prorated weekly and prorated monthly prices.
func nightlyRate(l *domain.Listing, nights int) domain.Amount {
	rate := l.NightlyPrice
	if nights >= weeklyThresholdNights && l.WeeklyPrice != nil {
		if weekly := l.WeeklyPrice.DivRound(weeklyDivisor); weekly < rate {
			rate = weekly
		}
	}
	if nights >= monthlyThresholdNights && l.MonthlyPrice != nil {
		if monthly := l.MonthlyPrice.DivRound(monthlyDivisor); monthly < rate {
			rate = monthly
		}
	}
	return rate
}

// subtotalFor sums the stay night by night so host price overrides replace the rate on the nights they cover.
func subtotalFor(rate domain.Amount, stay domain.DateRange, overrides []domain.AvailabilityWindow) domain.Amount {
	var subtotal domain.Amount
	for night := stay.CheckIn; night.Before(stay.CheckOut); night = night.AddDate(0, 0, 1) {
		price := rate
		if w := coveringOverride(overrides, night, func(w domain.AvailabilityWindow) bool { return w.OverridePrice != nil }); w != nil {
			price = *w.OverridePrice
		}
		subtotal += price
	}
	return subtotal
}

func minimumStay(l *domain.Listing, stay domain.DateRange, overrides []domain.AvailabilityWindow) int {
	if w := coveringOverride(overrides, stay.CheckIn, func(w domain.AvailabilityWindow) bool { return w.MinNightsOverride != nil }); w != nil {
		return *w.MinNightsOverride
	}
	return l.MinNights
}

// coveringOverride returns the most recently created OPEN window covering night that satisfies has.
func coveringOverride(windows []domain.AvailabilityWindow, night time.Time, has func(domain.AvailabilityWindow) bool) *domain.AvailabilityWindow {
	var found *domain.AvailabilityWindow
	for i := range windows {
		w := &windows[i]
		if w.Status != domain.WindowOpen || !has(*w) || !w.Range.ContainsNight(night) {
			continue
		}
		if found == nil || w.CreatedAt.After(found.CreatedAt) {
			found = w
		}
	}
	return found
}

// discount applies at most one discount, longest commitment first:
// monthly, weekly, early-bird, last-minute.
func (c *Calculator) discount(l *domain.Listing, nights int, subtotal domain.Amount, checkIn, bookedAt time.Time) (domain.DiscountKind, domain.Amount) {
	type candidate struct {
		kind     domain.DiscountKind
		pct      *int
		eligible bool
	}

	leadDays := -1
	if !bookedAt.IsZero() {
		leadDays = int(checkIn.Sub(domain.StartOfDay(bookedAt)) / (24 * time.Hour))
	}

	for _, cand := range []candidate{
		{domain.DiscountMonthly, l.MonthlyDiscountPct, nights >= monthlyThresholdNights},
		{domain.DiscountWeekly, l.WeeklyDiscountPct, nights >= weeklyThresholdNights},
		{domain.DiscountEarlyBird, l.EarlyBirdDiscountPct, leadDays >= c.earlyBirdDays},
		{domain.DiscountLastMinute, l.LastMinuteDiscountPct, leadDays >= 0 && leadDays <= c.lastMinuteDays},
	} {
		if !cand.eligible || cand.pct == nil || *cand.pct <= 0 {
			continue
		}
		return cand.kind, subtotal.Percent(*cand.pct)
	}
	return domain.DiscountNone, 0
}
