package invoice

import (
	"bytes"
	"testing"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	stay, err := domain.ParseDateRange("2024-06-01", "2024-06-04")
	require.NoError(t, err)
	b := &domain.Booking{
		ID:            "booking-1",
		Code:          "HB-ABCDEFGH",
		Stay:          stay,
		Occupancy:     domain.Occupancy{Adults: 2},
		Status:        domain.BookingStatusConfirmed,
		PaymentStatus: domain.PaymentStatusAuthorized,
		Price: domain.PriceBreakdown{
			Currency:     "QAR",
			NightlyRate:  50000,
			TotalNights:  3,
			Subtotal:     150000,
			CleaningFee:  20000,
			ServiceFee:   5000,
			Discount:     7500,
			DiscountKind: domain.DiscountEarlyBird,
			Total:        167500,
		},
	}

	doc, err := Render(b, &domain.Listing{Title: "Pearl loft", City: "Doha"}, time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))

	_, err = Render(nil, nil, time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestQRPayload(t *testing.T) {
	stay, err := domain.ParseDateRange("2024-06-01", "2024-06-04")
	require.NoError(t, err)
	got := QRPayload(&domain.Booking{ID: "b1", Code: "HB-ABCDEFGH", Stay: stay})
	assert.Equal(t, "HB-ABCDEFGH|b1|2024-06-01|2024-06-04", got)
}
