package bootstrap

import (
	"context"
	"io"
	"testing"

	"github.com/Domenick1991/staybooking/config"
	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/lock"
	"github.com/Domenick1991/staybooking/internal/notify"
	"github.com/Domenick1991/staybooking/internal/payment"
	"github.com/Domenick1991/staybooking/internal/service/booking"
	"github.com/Domenick1991/staybooking/internal/service/listings"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{Driver: config.DriverMemory},
		Booking: config.BookingConfig{
			HoldTTLMinutes:     30,
			LockWaitMillis:     200,
			PersistenceRetries: 3,
			EarlyBirdDays:      60,
			LastMinuteDays:     7,
		},
		Payment: config.PaymentConfig{Mode: config.PaymentModeSandbox},
	}
}

func TestOpenMemoryDeps(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	d, err := Open(context.Background(), memoryConfig(), logger)
	require.NoError(t, err)
	defer d.Close()

	assert.Nil(t, d.Cache)
	assert.Nil(t, d.Producer)
	assert.IsType(t, &lock.KeyedMutex{}, d.Locker)
	assert.IsType(t, &notify.MemoryInbox{}, d.Inbox)
	assert.IsType(t, &payment.SandboxGateway{}, d.Gateway())
}

func TestMemoryDepsServeABookingEndToEnd(t *testing.T) {
	ctx := context.Background()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	d, err := Open(ctx, memoryConfig(), logger)
	require.NoError(t, err)
	defer d.Close()

	host := domain.Identity{UserID: "host-1", Roles: []domain.Role{domain.RoleHost}}
	guest := domain.Identity{UserID: "guest-1", Roles: []domain.Role{domain.RoleGuest}}
	minNights := 1
	listing, err := d.ListingService().CreateListing(ctx, host, listings.CreateListingInput{
		Title:        "Pearl loft",
		NightlyPrice: 50000,
		MinNights:    &minNights,
	})
	require.NoError(t, err)

	stay, err := domain.ParseDateRange("2030-06-01", "2030-06-04")
	require.NoError(t, err)
	svc := d.BookingService()
	b, err := svc.CreateBooking(ctx, guest, booking.CreateBookingInput{
		ListingID: listing.ID,
		Stay:      stay,
		Occupancy: domain.Occupancy{Adults: 2},
	})
	require.NoError(t, err)

	confirmed, err := svc.AuthorizePayment(ctx, guest, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, confirmed.Status)

	inbox, err := d.Inbox.ListByUser(ctx, "guest-1", 10)
	require.NoError(t, err)
	assert.Len(t, inbox, 2)
}
