package api

import (
	"net/http"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/service/booking"
	"github.com/gin-gonic/gin"
)

// PaymentHandler accepts gateway callbacks. Only admin tokens, which the
// payment processor integration holds, may post results.
type PaymentHandler struct {
	service booking.BookingUseCase
}

func NewPaymentHandler(service booking.BookingUseCase) *PaymentHandler {
	return &PaymentHandler{service: service}
}

func (h *PaymentHandler) Register(router *gin.RouterGroup) {
	router.POST("/results", h.result)
}

func (h *PaymentHandler) result(c *gin.Context) {
	if !identityFrom(c).IsAdmin() {
		writeError(c, domain.ErrUnauthorized)
		return
	}
	var result domain.PaymentResult
	if err := c.ShouldBindJSON(&result); err != nil {
		badRequest(c, err)
		return
	}
	if result.BookingID == "" {
		writeError(c, domain.ErrInvalidInput)
		return
	}

	var (
		b   *domain.Booking
		err error
	)
	switch result.Operation {
	case domain.PaymentRefund:
		b, err = h.service.RecordRefund(c.Request.Context(), result)
	case domain.PaymentAuthorize, domain.PaymentCapture:
		b, err = h.service.HandlePaymentResult(c.Request.Context(), result)
	default:
		writeError(c, domain.ErrInvalidInput)
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
