package pricing

import (
	"io"
	"testing"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func amountPtr(v domain.Amount) *domain.Amount { return &v }

func stay(t *testing.T, in, out string) domain.DateRange {
	t.Helper()
	r, err := domain.ParseDateRange(in, out)
	require.NoError(t, err)
	return r
}

func quietCalculator() *Calculator {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewCalculator(WithLogger(logger))
}

func baseListing() *domain.Listing {
	return &domain.Listing{
		ID:           "listing-1",
		HostID:       "host-1",
		Currency:     "QAR",
		NightlyPrice: domain.Major(500, "QAR"),
		MinNights:    1,
		MaxGuests:    4,
	}
}

var twoAdults = domain.Occupancy{Adults: 2}

func TestQuoteBelowMinimumStay(t *testing.T) {
	l := baseListing()
	l.MinNights = domain.DefaultMinNights
	l.CleaningFee = domain.FlatFee(domain.Major(200, "QAR"))
	l.ServiceFee = domain.PercentFee(1000)

	_, err := quietCalculator().Quote(Request{Listing: l, Stay: stay(t, "2024-06-01", "2024-06-04"), Occupancy: twoAdults})
	assert.ErrorIs(t, err, domain.ErrBelowMinimumStay)
}

func TestQuoteFlatFees(t *testing.T) {
	l := baseListing()
	l.CleaningFee = domain.FlatFee(domain.Major(200, "QAR"))
	l.ServiceFee = domain.FlatFee(domain.Major(50, "QAR"))

	got, err := quietCalculator().Quote(Request{Listing: l, Stay: stay(t, "2024-06-01", "2024-06-04"), Occupancy: twoAdults})
	require.NoError(t, err)

	assert.Equal(t, 3, got.TotalNights)
	assert.Equal(t, domain.Major(500, "QAR"), got.NightlyRate)
	assert.Equal(t, domain.Major(1500, "QAR"), got.Subtotal)
	assert.Equal(t, domain.Major(1750, "QAR"), got.Total)
	assert.Equal(t, "QAR", got.Currency)
	assert.False(t, got.PricingAnomaly)
}

func TestQuotePercentFees(t *testing.T) {
	l := baseListing()
	l.CleaningFee = domain.FlatFee(domain.Major(200, "QAR"))
	l.ServiceFee = domain.PercentFee(1000)
	l.Taxes = domain.PercentFee(500)

	got, err := quietCalculator().Quote(Request{Listing: l, Stay: stay(t, "2024-06-01", "2024-06-04"), Occupancy: twoAdults})
	require.NoError(t, err)

	assert.Equal(t, domain.Major(150, "QAR"), got.ServiceFee)
	assert.Equal(t, domain.Major(75, "QAR"), got.Taxes)
	assert.Equal(t, domain.Major(1925, "QAR"), got.Total)
}

func TestQuoteErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(l *domain.Listing)
		req     func(r *Request)
		wantErr error
	}{
		{
			name:    "check-out equals check-in",
			req:     func(r *Request) { r.Stay = domain.DateRange{CheckIn: r.Stay.CheckIn, CheckOut: r.Stay.CheckIn} },
			wantErr: domain.ErrInvalidRange,
		},
		{
			name:    "exceeds maximum stay",
			mutate:  func(l *domain.Listing) { l.MaxNights = intPtr(2) },
			wantErr: domain.ErrExceedsMaximumStay,
		},
		{
			name:    "too many guests",
			req:     func(r *Request) { r.Occupancy = domain.Occupancy{Adults: 4, Children: 1} },
			wantErr: domain.ErrInvalidOccupancy,
		},
		{
			name:    "no adults",
			req:     func(r *Request) { r.Occupancy = domain.Occupancy{Children: 2} },
			wantErr: domain.ErrInvalidOccupancy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := baseListing()
			if tt.mutate != nil {
				tt.mutate(l)
			}
			req := Request{Listing: l, Stay: stay(t, "2024-06-01", "2024-06-04"), Occupancy: twoAdults}
			if tt.req != nil {
				tt.req(&req)
			}
			_, err := quietCalculator().Quote(req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestQuoteAdminOverrideSkipsMinimumStay(t *testing.T) {
	l := baseListing()
	l.MinNights = 28

	got, err := quietCalculator().Quote(Request{Listing: l, Stay: stay(t, "2024-06-01", "2024-06-04"), Occupancy: twoAdults, AdminOverride: true})
	require.NoError(t, err)
	assert.Equal(t, domain.Major(1500, "QAR"), got.Total)
}

func TestQuoteLongStayRates(t *testing.T) {
	l := baseListing()
	l.WeeklyPrice = amountPtr(domain.Major(2800, "QAR"))
	l.MonthlyPrice = amountPtr(domain.Major(9000, "QAR"))

	calc := quietCalculator()

	short, err := calc.Quote(Request{Listing: l, Stay: stay(t, "2024-06-01", "2024-06-07"), Occupancy: twoAdults})
	require.NoError(t, err)
	assert.Equal(t, domain.Major(500, "QAR"), short.NightlyRate)

	week, err := calc.Quote(Request{Listing: l, Stay: stay(t, "2024-06-01", "2024-06-08"), Occupancy: twoAdults})
	require.NoError(t, err)
	assert.Equal(t, domain.Major(400, "QAR"), week.NightlyRate)
	assert.Equal(t, domain.Major(2800, "QAR"), week.Subtotal)

	month, err := calc.Quote(Request{Listing: l, Stay: stay(t, "2024-06-01", "2024-06-29"), Occupancy: twoAdults})
	require.NoError(t, err)
	assert.Equal(t, domain.Major(300, "QAR"), month.NightlyRate)
	assert.Equal(t, domain.Major(8400, "QAR"), month.Subtotal)
}

func TestQuoteWeeklyRateOnlyWhenLower(t *testing.T) {
	l := baseListing()
	l.WeeklyPrice = amountPtr(domain.Major(4200, "QAR"))

	got, err := quietCalculator().Quote(Request{Listing: l, Stay: stay(t, "2024-06-01", "2024-06-08"), Occupancy: twoAdults})
	require.NoError(t, err)
	assert.Equal(t, domain.Major(500, "QAR"), got.NightlyRate)
}

func TestQuoteDiscountPriority(t *testing.T) {
	booked := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		in, out  string
		bookedAt time.Time
		wantKind domain.DiscountKind
		wantPct  int
	}{
		{"monthly beats everything", "2024-06-01", "2024-06-29", booked, domain.DiscountMonthly, 20},
		{"weekly beats early bird", "2024-06-01", "2024-06-08", booked, domain.DiscountWeekly, 10},
		{"early bird for short stay booked far ahead", "2024-06-01", "2024-06-03", booked, domain.DiscountEarlyBird, 5},
		{"last minute", "2024-03-05", "2024-03-07", booked, domain.DiscountLastMinute, 3},
		{"no discount in between", "2024-04-01", "2024-04-03", booked, domain.DiscountNone, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := baseListing()
			l.MonthlyDiscountPct = intPtr(20)
			l.WeeklyDiscountPct = intPtr(10)
			l.EarlyBirdDiscountPct = intPtr(5)
			l.LastMinuteDiscountPct = intPtr(3)

			got, err := quietCalculator().Quote(Request{Listing: l, Stay: stay(t, tt.in, tt.out), Occupancy: twoAdults, BookedAt: tt.bookedAt})
			require.NoError(t, err)

			assert.Equal(t, tt.wantKind, got.DiscountKind)
			assert.Equal(t, got.Subtotal.Percent(tt.wantPct), got.Discount)
			assert.Equal(t, got.Subtotal-got.Discount, got.Total)
		})
	}
}

func TestQuoteSkipsUnsetDiscount(t *testing.T) {
	l := baseListing()
	l.WeeklyDiscountPct = intPtr(0)
	l.EarlyBirdDiscountPct = intPtr(5)

	booked := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	got, err := quietCalculator().Quote(Request{Listing: l, Stay: stay(t, "2024-06-01", "2024-06-08"), Occupancy: twoAdults, BookedAt: booked})
	require.NoError(t, err)
	assert.Equal(t, domain.DiscountEarlyBird, got.DiscountKind)
}

func TestQuoteOverrides(t *testing.T) {
	l := baseListing()
	l.MinNights = 5
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	overrides := []domain.AvailabilityWindow{
		{Status: domain.WindowOpen, Range: stay(t, "2024-06-02", "2024-06-04"), OverridePrice: amountPtr(domain.Major(800, "QAR")), CreatedAt: created},
		{Status: domain.WindowOpen, Range: stay(t, "2024-06-01", "2024-06-02"), MinNightsOverride: intPtr(2), CreatedAt: created},
		{Status: domain.WindowBlocked, Range: stay(t, "2024-06-01", "2024-06-10"), OverridePrice: amountPtr(1), CreatedAt: created},
	}

	got, err := quietCalculator().Quote(Request{Listing: l, Stay: stay(t, "2024-06-01", "2024-06-04"), Occupancy: twoAdults, Overrides: overrides})
	require.NoError(t, err)

	assert.Equal(t, domain.Major(500, "QAR"), got.NightlyRate)
	assert.Equal(t, domain.Major(500+800+800, "QAR"), got.Subtotal)
}

func TestQuoteLatestOverrideWins(t *testing.T) {
	l := baseListing()
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	overrides := []domain.AvailabilityWindow{
		{Status: domain.WindowOpen, Range: stay(t, "2024-06-01", "2024-06-03"), OverridePrice: amountPtr(domain.Major(900, "QAR")), CreatedAt: older.Add(time.Hour)},
		{Status: domain.WindowOpen, Range: stay(t, "2024-06-01", "2024-06-03"), OverridePrice: amountPtr(domain.Major(700, "QAR")), CreatedAt: older},
	}

	got, err := quietCalculator().Quote(Request{Listing: l, Stay: stay(t, "2024-06-01", "2024-06-02"), Occupancy: twoAdults, Overrides: overrides})
	require.NoError(t, err)
	assert.Equal(t, domain.Major(900, "QAR"), got.Subtotal)
}

func TestQuoteClampsNegativeTotal(t *testing.T) {
	l := baseListing()
	l.CleaningFee = &domain.Fee{Kind: domain.FeeFlat, Value: -int64(domain.Major(5000, "QAR"))}

	got, err := quietCalculator().Quote(Request{Listing: l, Stay: stay(t, "2024-06-01", "2024-06-04"), Occupancy: twoAdults})
	require.NoError(t, err)
	assert.Equal(t, domain.Amount(0), got.Total)
	assert.True(t, got.PricingAnomaly)
}

func TestQuoteIsDeterministic(t *testing.T) {
	l := baseListing()
	l.ServiceFee = domain.PercentFee(1250)
	l.WeeklyPrice = amountPtr(domain.Major(3000, "QAR"))
	l.WeeklyDiscountPct = intPtr(7)

	req := Request{Listing: l, Stay: stay(t, "2024-06-01", "2024-06-11"), Occupancy: twoAdults, BookedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	calc := quietCalculator()

	first, err := calc.Quote(req)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := calc.Quote(req)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.GreaterOrEqual(t, int64(first.Total), int64(0))
}
