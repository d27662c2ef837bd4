package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/notify"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", domain.ErrUnauthorized), http.StatusForbidden},
		{&domain.ConflictError{BookingID: "b"}, http.StatusConflict},
		{domain.ErrListingBusy, http.StatusConflict},
		{&domain.TransitionError{From: domain.BookingStatusCompleted, To: domain.BookingStatusCancelled}, http.StatusConflict},
		{domain.ErrInvalidRange, http.StatusBadRequest},
		{domain.ErrBelowMinimumStay, http.StatusUnprocessableEntity},
		{domain.ErrExceedsMaximumStay, http.StatusUnprocessableEntity},
		{domain.ErrPaymentDeclined, http.StatusPaymentRequired},
		{domain.ErrUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestAuthenticator(t *testing.T) {
	auth := NewAuthenticator("secret", "staybooking")
	identity := domain.Identity{UserID: "guest-1", Roles: []domain.Role{domain.RoleGuest}}

	token, err := auth.Issue(identity, time.Minute)
	require.NoError(t, err)
	got, err := auth.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, identity, got)

	expired, err := auth.Issue(identity, -time.Minute)
	require.NoError(t, err)
	_, err = auth.Verify(expired)
	assert.Error(t, err)

	other, err := NewAuthenticator("other", "staybooking").Issue(identity, time.Minute)
	require.NoError(t, err)
	_, err = auth.Verify(other)
	assert.Error(t, err)

	system, err := auth.Issue(domain.SystemIdentity(), time.Minute)
	require.NoError(t, err)
	_, err = auth.Verify(system)
	assert.Error(t, err)
}

func TestRouterRequiresToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := NewAuthenticator("secret", "staybooking")
	inbox := notify.NewMemoryInbox()
	require.NoError(t, inbox.Save(t.Context(), domain.Notification{ID: "n1", UserID: "guest-1", Title: "Booking confirmed"}))

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	r := NewRouter(RouterOptions{Auth: auth, Logger: logger}, Handlers{Notifications: NewNotificationHandler(inbox)})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/notifications", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := auth.Issue(domain.Identity{UserID: "guest-1"}, time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest("GET", "/api/v1/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Booking confirmed")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	r := NewRouter(RouterOptions{Limiter: NewRateLimiter(1, 2), Logger: logger}, Handlers{})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/health", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPaymentHandlerRequiresAdmin(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewPaymentHandler(mockService)

	c, w := newTestContext("POST", "/api/v1/payments/results", []byte(`{"booking_id":"b1","operation":"CAPTURE","approved":true}`), guestIdentity)
	handler.result(c)
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin := domain.Identity{UserID: "ops", Roles: []domain.Role{domain.RoleAdmin}}
	c, w = newTestContext("POST", "/api/v1/payments/results", []byte(`{"booking_id":"b1","operation":"REFUND","approved":true,"amount":100}`), admin)
	mockService.On("RecordRefund", mock.Anything, domain.PaymentResult{
		BookingID: "b1", Operation: domain.PaymentRefund, Approved: true, Amount: 100,
	}).Return(testBooking(domain.BookingStatusCancelled), nil)
	handler.result(c)
	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}
