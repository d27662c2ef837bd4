package listings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/lock"
	"github.com/Domenick1991/staybooking/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetListing(ctx context.Context, id string) (*domain.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Listing), args.Error(1)
}

func (m *MockCache) SetListing(ctx context.Context, listing *domain.Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}

func (m *MockCache) InvalidateListing(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var (
	host      = domain.Identity{UserID: "host-1", Roles: []domain.Role{domain.RoleHost}}
	otherHost = domain.Identity{UserID: "host-2", Roles: []domain.Role{domain.RoleHost}}
	guest     = domain.Identity{UserID: "guest-1", Roles: []domain.Role{domain.RoleGuest}}
	admin     = domain.Identity{UserID: "admin-1", Roles: []domain.Role{domain.RoleAdmin}}
)

func dates(t *testing.T, in, out string) domain.DateRange {
	t.Helper()
	r, err := domain.ParseDateRange(in, out)
	require.NoError(t, err)
	return r
}

func publish(t *testing.T, s *ListingService) *domain.Listing {
	t.Helper()
	l, err := s.CreateListing(context.Background(), host, CreateListingInput{
		Title:        "Marina loft",
		City:         "Lusail",
		NightlyPrice: domain.Major(500, "QAR"),
	})
	require.NoError(t, err)
	return l
}

func TestCreateListingDefaults(t *testing.T) {
	s := NewListingService(repository.NewMemoryStore())

	l := publish(t, s)

	assert.NotEmpty(t, l.ID)
	assert.Equal(t, host.UserID, l.HostID)
	assert.Equal(t, domain.ListingStatusActive, l.Status)
	assert.Equal(t, "QAR", l.Currency)
	assert.Equal(t, domain.DefaultMinNights, l.MinNights)
	require.NotNil(t, l.MaxNights)
	assert.Equal(t, domain.DefaultMaxNights, *l.MaxNights)
	assert.Equal(t, domain.FlatFee(domain.Major(200, "QAR")), l.CleaningFee)
	assert.Equal(t, domain.Major(1000, "QAR"), l.SecurityDeposit)
	assert.Equal(t, domain.DefaultCancellationPolicy, l.CancellationPolicy)
}

func TestCreateListingRules(t *testing.T) {
	s := NewListingService(repository.NewMemoryStore())
	zero := domain.Amount(0)

	tests := []struct {
		name    string
		actor   domain.Identity
		input   CreateListingInput
		wantErr error
	}{
		{"guests cannot publish", guest, CreateListingInput{Title: "x", NightlyPrice: 100}, domain.ErrUnauthorized},
		{"title required", host, CreateListingInput{NightlyPrice: 100}, domain.ErrInvalidInput},
		{"price required", host, CreateListingInput{Title: "x"}, domain.ErrInvalidInput},
		{"unknown currency", host, CreateListingInput{Title: "x", NightlyPrice: 100, Currency: "XXX"}, domain.ErrInvalidInput},
		{"explicit zero deposit", host, CreateListingInput{Title: "x", NightlyPrice: 100, SecurityDeposit: &zero}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateListing(context.Background(), tt.actor, tt.input)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	l, err := s.CreateListing(context.Background(), admin, CreateListingInput{HostID: "host-9", Title: "x", NightlyPrice: 100})
	require.NoError(t, err)
	assert.Equal(t, "host-9", l.HostID)
}

func TestGetListingCacheAside(t *testing.T) {
	store := repository.NewMemoryStore()
	cache := &MockCache{}
	s := NewListingService(store, WithCache(cache))
	l := publish(t, NewListingService(store))

	cache.On("GetListing", mock.Anything, l.ID).Return(nil, nil).Once()
	cache.On("SetListing", mock.Anything, mock.MatchedBy(func(got *domain.Listing) bool { return got.ID == l.ID })).Return(nil).Once()

	got, err := s.GetListing(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, l.Title, got.Title)

	cached := *l
	cached.Title = "from cache"
	cache.On("GetListing", mock.Anything, l.ID).Return(&cached, nil).Once()

	got, err = s.GetListing(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, "from cache", got.Title)
	cache.AssertExpectations(t)
}

func TestGetListingSurvivesCacheOutage(t *testing.T) {
	store := repository.NewMemoryStore()
	cache := &MockCache{}
	s := NewListingService(store, WithCache(cache))
	l := publish(t, NewListingService(store))

	cache.On("GetListing", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))
	cache.On("SetListing", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	got, err := s.GetListing(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, l.ID, got.ID)

	_, err = s.GetListing(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	cache.AssertCalled(t, "GetListing", mock.Anything, "missing")
}

func TestUpdateListing(t *testing.T) {
	store := repository.NewMemoryStore()
	cache := &MockCache{}
	s := NewListingService(store, WithCache(cache))
	l := publish(t, s)

	cache.On("InvalidateListing", mock.Anything, l.ID).Return(nil)

	updated, err := s.UpdateListing(context.Background(), host, l.ID, domain.ListingUpdateFields{
		MinNights:   domain.Some(2),
		InstantBook: domain.Some(true),
		WeeklyPrice: domain.Some(domain.Major(3000, "QAR")),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.MinNights)
	assert.True(t, updated.InstantBook)
	assert.Equal(t, "Marina loft", updated.Title)
	cache.AssertCalled(t, "InvalidateListing", mock.Anything, l.ID)

	_, err = s.UpdateListing(context.Background(), otherHost, l.ID, domain.ListingUpdateFields{Title: domain.Some("mine now")})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = s.UpdateListing(context.Background(), host, l.ID, domain.ListingUpdateFields{NightlyPrice: domain.Some(domain.Amount(-1))})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	stored, err := store.Listings().GetByID(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Major(500, "QAR"), stored.NightlyPrice)
}

func TestRetireListing(t *testing.T) {
	s := NewListingService(repository.NewMemoryStore())
	l := publish(t, s)

	retired, err := s.RetireListing(context.Background(), admin, l.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingStatusDeleted, retired.Status)
	assert.False(t, retired.Bookable())

	_, err = s.UpdateListing(context.Background(), host, l.ID, domain.ListingUpdateFields{Title: domain.Some("back")})
	assert.ErrorIs(t, err, domain.ErrListingInactive)
}

func TestCalendarBlocks(t *testing.T) {
	store := repository.NewMemoryStore()
	s := NewListingService(store, WithLocker(lock.NewKeyedMutex(time.Second)))
	l := publish(t, s)
	ctx := context.Background()

	_, err := store.Availability().Reserve(ctx, l.ID, dates(t, "2024-06-01", "2024-06-05"), "booking-1")
	require.NoError(t, err)

	_, err = s.BlockDates(ctx, host, l.ID, dates(t, "2024-06-04", "2024-06-08"), "repairs")
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "booking-1", conflict.BookingID)

	_, err = s.BlockDates(ctx, guest, l.ID, dates(t, "2024-06-10", "2024-06-12"), "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	w, err := s.BlockDates(ctx, host, l.ID, dates(t, "2024-06-10", "2024-06-12"), "  repairs ")
	require.NoError(t, err)
	assert.Equal(t, domain.WindowBlocked, w.Status)
	assert.Equal(t, "repairs", w.Reason)

	windows, err := s.Calendar(ctx, l.ID, dates(t, "2024-06-01", "2024-07-01"))
	require.NoError(t, err)
	assert.Len(t, windows, 2)

	removed, err := s.UnblockDates(ctx, host, l.ID, dates(t, "2024-06-01", "2024-07-01"))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = s.BlockDates(ctx, host, l.ID, domain.DateRange{}, "")
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}

func TestSetNightlyOverride(t *testing.T) {
	store := repository.NewMemoryStore()
	s := NewListingService(store)
	l := publish(t, s)
	ctx := context.Background()
	price := domain.Major(800, "QAR")
	two := 2

	w, err := s.SetNightlyOverride(ctx, host, l.ID, OverrideInput{
		Stay:      dates(t, "2024-12-20", "2025-01-02"),
		Price:     &price,
		MinNights: &two,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.WindowOpen, w.Status)

	free, err := store.Availability().QueryFree(ctx, l.ID, dates(t, "2024-12-24", "2024-12-26"))
	require.NoError(t, err)
	assert.True(t, free)

	_, err = s.SetNightlyOverride(ctx, host, l.ID, OverrideInput{Stay: dates(t, "2024-12-20", "2025-01-02")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	negative := domain.Amount(-5)
	_, err = s.SetNightlyOverride(ctx, host, l.ID, OverrideInput{Stay: dates(t, "2024-12-20", "2025-01-02"), Price: &negative})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = s.SetNightlyOverride(ctx, otherHost, l.ID, OverrideInput{Stay: dates(t, "2024-12-20", "2025-01-02"), Price: &price})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestListHostListings(t *testing.T) {
	s := NewListingService(repository.NewMemoryStore())
	publish(t, s)
	publish(t, s)

	listings, err := s.ListHostListings(context.Background(), host.UserID)
	require.NoError(t, err)
	assert.Len(t, listings, 2)

	_, err = s.ListHostListings(context.Background(), " ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestListListingsPagesActiveOnly(t *testing.T) {
	s := NewListingService(repository.NewMemoryStore())
	ctx := context.Background()
	kept := publish(t, s)
	retired := publish(t, s)
	paused := publish(t, s)
	alsoKept := publish(t, s)

	_, err := s.RetireListing(ctx, admin, retired.ID)
	require.NoError(t, err)
	_, err = s.UpdateListing(ctx, host, paused.ID, domain.ListingUpdateFields{Status: domain.Some(domain.ListingStatusInactive)})
	require.NoError(t, err)

	first, total, err := s.ListListings(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, first, 1)

	second, total, err := s.ListListings(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, second, 1)

	assert.ElementsMatch(t, []string{kept.ID, alsoKept.ID}, []string{first[0].ID, second[0].ID})
	for _, l := range append(first, second...) {
		assert.Equal(t, domain.ListingStatusActive, l.Status)
	}

	past, total, err := s.ListListings(ctx, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Empty(t, past)

	all, _, err := s.ListListings(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCheckAvailability(t *testing.T) {
	store := repository.NewMemoryStore()
	s := NewListingService(store)
	l := publish(t, s)
	ctx := context.Background()

	_, err := store.Availability().Reserve(ctx, l.ID, dates(t, "2024-06-01", "2024-06-05"), "booking-1")
	require.NoError(t, err)

	free, err := s.CheckAvailability(ctx, l.ID, dates(t, "2024-06-04", "2024-06-06"))
	require.NoError(t, err)
	assert.False(t, free)

	free, err = s.CheckAvailability(ctx, l.ID, dates(t, "2024-06-05", "2024-06-08"))
	require.NoError(t, err)
	assert.True(t, free)

	_, err = s.CheckAvailability(ctx, "missing", dates(t, "2024-06-05", "2024-06-08"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.CheckAvailability(ctx, l.ID, domain.DateRange{})
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}
