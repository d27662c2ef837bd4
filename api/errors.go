package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error string `json:"error"`
	// ConflictingBookingID is set when the requested dates overlap another booking.
	ConflictingBookingID string `json:"conflicting_booking_id,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrDateRangeUnavailable),
		errors.Is(err, domain.ErrListingBusy),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrAlreadyReviewed):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidRange),
		errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrBelowMinimumStay),
		errors.Is(err, domain.ErrExceedsMaximumStay),
		errors.Is(err, domain.ErrInvalidOccupancy),
		errors.Is(err, domain.ErrListingInactive),
		errors.Is(err, domain.ErrNotReviewable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrPaymentDeclined):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		resp.Error = "internal error"
	}
	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		resp.ConflictingBookingID = conflict.BookingID
	}
	if status == http.StatusConflict && errors.Is(err, domain.ErrListingBusy) {
		c.Header("Retry-After", "1")
	}
	c.JSON(status, resp)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
