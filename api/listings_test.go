package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/service/booking"
	"github.com/Domenick1991/staybooking/internal/service/listings"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockListingUseCase is a mock implementation of listings.ListingUseCase
type MockListingUseCase struct {
	mock.Mock
}

func (m *MockListingUseCase) listing(args mock.Arguments) (*domain.Listing, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Listing), args.Error(1)
}

func (m *MockListingUseCase) window(args mock.Arguments) (*domain.AvailabilityWindow, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AvailabilityWindow), args.Error(1)
}

func (m *MockListingUseCase) CreateListing(ctx context.Context, actor domain.Identity, input listings.CreateListingInput) (*domain.Listing, error) {
	return m.listing(m.Called(ctx, actor, input))
}

func (m *MockListingUseCase) GetListing(ctx context.Context, id string) (*domain.Listing, error) {
	return m.listing(m.Called(ctx, id))
}

func (m *MockListingUseCase) ListHostListings(ctx context.Context, hostID string) ([]domain.Listing, error) {
	args := m.Called(ctx, hostID)
	return args.Get(0).([]domain.Listing), args.Error(1)
}

func (m *MockListingUseCase) UpdateListing(ctx context.Context, actor domain.Identity, id string, fields domain.ListingUpdateFields) (*domain.Listing, error) {
	return m.listing(m.Called(ctx, actor, id, fields))
}

func (m *MockListingUseCase) RetireListing(ctx context.Context, actor domain.Identity, id string) (*domain.Listing, error) {
	return m.listing(m.Called(ctx, actor, id))
}

func (m *MockListingUseCase) BlockDates(ctx context.Context, actor domain.Identity, id string, stay domain.DateRange, reason string) (*domain.AvailabilityWindow, error) {
	return m.window(m.Called(ctx, actor, id, stay, reason))
}

func (m *MockListingUseCase) UnblockDates(ctx context.Context, actor domain.Identity, id string, stay domain.DateRange) (int, error) {
	args := m.Called(ctx, actor, id, stay)
	return args.Int(0), args.Error(1)
}

func (m *MockListingUseCase) SetNightlyOverride(ctx context.Context, actor domain.Identity, id string, input listings.OverrideInput) (*domain.AvailabilityWindow, error) {
	return m.window(m.Called(ctx, actor, id, input))
}

func (m *MockListingUseCase) Calendar(ctx context.Context, id string, stay domain.DateRange) ([]domain.AvailabilityWindow, error) {
	args := m.Called(ctx, id, stay)
	return args.Get(0).([]domain.AvailabilityWindow), args.Error(1)
}

func (m *MockListingUseCase) ListListings(ctx context.Context, page, pageSize int) ([]domain.Listing, int, error) {
	args := m.Called(ctx, page, pageSize)
	return args.Get(0).([]domain.Listing), args.Int(1), args.Error(2)
}

func (m *MockListingUseCase) CheckAvailability(ctx context.Context, id string, stay domain.DateRange) (bool, error) {
	args := m.Called(ctx, id, stay)
	return args.Bool(0), args.Error(1)
}

var hostIdentity = domain.Identity{UserID: "host-1", Roles: []domain.Role{domain.RoleHost}}

func TestListingHandler_get(t *testing.T) {
	mockService := &MockListingUseCase{}
	handler := NewListingHandler(mockService, nil, nil)
	c, w := newTestContext("GET", "/api/v1/listings/listing-1", nil, guestIdentity)
	c.Params = gin.Params{{Key: "id", Value: "listing-1"}}

	mockService.On("GetListing", c.Request.Context(), "listing-1").Return(&domain.Listing{ID: "listing-1", Title: "Pearl loft"}, nil)

	handler.get(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response domain.Listing
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Pearl loft", response.Title)
	mockService.AssertExpectations(t)
}

func TestListingHandler_create(t *testing.T) {
	mockService := &MockListingUseCase{}
	handler := NewListingHandler(mockService, nil, nil)
	c, w := newTestContext("POST", "/api/v1/listings", []byte(`{"title":"Pearl loft","nightly_price":50000,"min_nights":2}`), hostIdentity)

	minNights := 2
	input := listings.CreateListingInput{Title: "Pearl loft", NightlyPrice: 50000, MinNights: &minNights}
	mockService.On("CreateListing", c.Request.Context(), hostIdentity, input).Return(&domain.Listing{ID: "listing-1", HostID: "host-1"}, nil)

	handler.create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockService.AssertExpectations(t)
}

func TestListingHandler_createForbidden(t *testing.T) {
	mockService := &MockListingUseCase{}
	handler := NewListingHandler(mockService, nil, nil)
	c, w := newTestContext("POST", "/api/v1/listings", []byte(`{"title":"x","nightly_price":100}`), guestIdentity)

	mockService.On("CreateListing", mock.Anything, guestIdentity, mock.Anything).Return(nil, domain.ErrUnauthorized)

	handler.create(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListingHandler_block(t *testing.T) {
	mockService := &MockListingUseCase{}
	handler := NewListingHandler(mockService, nil, nil)
	c, w := newTestContext("POST", "/api/v1/listings/listing-1/blocks", []byte(`{"check_in":"2024-06-01","check_out":"2024-06-04","reason":"repairs"}`), hostIdentity)
	c.Params = gin.Params{{Key: "id", Value: "listing-1"}}

	stay, _ := domain.ParseDateRange("2024-06-01", "2024-06-04")
	mockService.On("BlockDates", mock.Anything, hostIdentity, "listing-1", stay, "repairs").
		Return(nil, &domain.ConflictError{ListingID: "listing-1", Range: stay, BookingID: "booking-7"})

	handler.block(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "booking-7")
}

func TestListingHandler_calendarNeedsRange(t *testing.T) {
	mockService := &MockListingUseCase{}
	handler := NewListingHandler(mockService, nil, nil)
	c, w := newTestContext("GET", "/api/v1/listings/listing-1/calendar?from=2024-06-04&to=2024-06-01", nil, guestIdentity)
	c.Params = gin.Params{{Key: "id", Value: "listing-1"}}

	handler.calendar(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "Calendar", mock.Anything, mock.Anything, mock.Anything)
}

func TestListingHandler_quote(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		want   int
	}{
		{"priced", "/q?check_in=2024-06-01&check_out=2024-06-04&adults=2", nil, http.StatusOK},
		{"below minimum", "/q?check_in=2024-06-01&check_out=2024-06-02", domain.ErrBelowMinimumStay, http.StatusUnprocessableEntity},
		{"too many guests", "/q?check_in=2024-06-01&check_out=2024-06-04&adults=9", domain.ErrInvalidOccupancy, http.StatusUnprocessableEntity},
		{"bad number", "/q?check_in=2024-06-01&check_out=2024-06-04&adults=two", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quoter := &MockBookingUseCase{}
			handler := NewListingHandler(&MockListingUseCase{}, quoter, nil)
			c, w := newTestContext("GET", tt.target, nil, guestIdentity)
			c.Params = gin.Params{{Key: "id", Value: "listing-1"}}

			quoter.On("Quote", mock.Anything, mock.MatchedBy(func(in booking.QuoteInput) bool {
				return in.ListingID == "listing-1" && in.Occupancy.Adults >= 1
			})).Return(domain.PriceBreakdown{Currency: "QAR", TotalNights: 3, Total: 175000}, tt.err)

			handler.quote(c)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				var response quoteResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
				assert.Equal(t, domain.Amount(175000), response.Price.Total)
				assert.Equal(t, "2024-06-01", response.CheckIn)
			}
		})
	}
}

func TestListingHandler_listBrowsesActiveListings(t *testing.T) {
	mockService := &MockListingUseCase{}
	handler := NewListingHandler(mockService, nil, nil)
	c, w := newTestContext("GET", "/api/v1/listings?page=2&page_size=1", nil, guestIdentity)

	mockService.On("ListListings", mock.Anything, 2, 1).
		Return([]domain.Listing{{ID: "listing-2", Status: domain.ListingStatusActive}}, 3, nil)

	handler.list(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response listListingsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Items, 1)
	assert.Equal(t, "listing-2", response.Items[0].ID)
	assert.Equal(t, 3, response.Total)
	assert.Equal(t, 2, response.Page)
	assert.Equal(t, 1, response.PageSize)
	mockService.AssertNotCalled(t, "ListHostListings", mock.Anything, mock.Anything)
	mockService.AssertExpectations(t)
}

func TestListingHandler_listByHost(t *testing.T) {
	mockService := &MockListingUseCase{}
	handler := NewListingHandler(mockService, nil, nil)
	c, w := newTestContext("GET", "/api/v1/listings?host_id=host-1", nil, guestIdentity)

	mockService.On("ListHostListings", mock.Anything, "host-1").Return([]domain.Listing{{ID: "listing-1"}}, nil)

	handler.list(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "listing-1")
	mockService.AssertNotCalled(t, "ListListings", mock.Anything, mock.Anything, mock.Anything)
}

func TestListingHandler_listBadPage(t *testing.T) {
	mockService := &MockListingUseCase{}
	handler := NewListingHandler(mockService, nil, nil)
	c, w := newTestContext("GET", "/api/v1/listings?page=first", nil, guestIdentity)

	handler.list(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "ListListings", mock.Anything, mock.Anything, mock.Anything)
}

func TestListingHandler_availability(t *testing.T) {
	tests := []struct {
		name   string
		target string
		free   bool
		err    error
		want   int
	}{
		{"free", "/a?check_in=2024-06-01&check_out=2024-06-04", true, nil, http.StatusOK},
		{"taken", "/a?check_in=2024-06-01&check_out=2024-06-04", false, nil, http.StatusOK},
		{"unknown listing", "/a?check_in=2024-06-01&check_out=2024-06-04", false, domain.ErrNotFound, http.StatusNotFound},
		{"reversed range", "/a?check_in=2024-06-04&check_out=2024-06-01", false, nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockListingUseCase{}
			handler := NewListingHandler(mockService, nil, nil)
			c, w := newTestContext("GET", tt.target, nil, guestIdentity)
			c.Params = gin.Params{{Key: "id", Value: "listing-1"}}

			stay, _ := domain.ParseDateRange("2024-06-01", "2024-06-04")
			mockService.On("CheckAvailability", mock.Anything, "listing-1", stay).Return(tt.free, tt.err)

			handler.availability(c)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				var response availabilityResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
				assert.Equal(t, tt.free, response.Available)
				assert.Equal(t, "2024-06-04", response.CheckOut)
			}
		})
	}
}
