package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/invoice"
	"github.com/Domenick1991/staybooking/internal/service/booking"
	"github.com/gin-gonic/gin"
)

// ListingReader resolves the listing printed on an invoice.
type ListingReader interface {
	GetListing(ctx context.Context, id string) (*domain.Listing, error)
}

type BookingHandler struct {
	service  booking.BookingUseCase
	listings ListingReader
}

type occupancyRequest struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Infants  int `json:"infants"`
	Pets     int `json:"pets"`
}

func (o occupancyRequest) toDomain() domain.Occupancy {
	return domain.Occupancy{Adults: o.Adults, Children: o.Children, Infants: o.Infants, Pets: o.Pets}
}

type createBookingRequest struct {
	ListingID       string           `json:"listing_id" binding:"required"`
	CheckIn         string           `json:"check_in" binding:"required"`
	CheckOut        string           `json:"check_out" binding:"required"`
	Occupancy       occupancyRequest `json:"occupancy"`
	GuestMessage    string           `json:"guest_message"`
	SpecialRequests string           `json:"special_requests"`
	ArrivalTime     string           `json:"arrival_time"`
	GuestPhone      string           `json:"guest_phone"`
	GuestEmail      string           `json:"guest_email"`
	AdminOverride   bool             `json:"admin_override"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

type listBookingsResponse struct {
	Items    []domain.Booking `json:"items"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

func NewBookingHandler(service booking.BookingUseCase, listings ListingReader) *BookingHandler {
	return &BookingHandler{service: service, listings: listings}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("", h.list)
	router.GET("/code/:code", h.getByCode)
	router.GET("/:id", h.get)
	router.PATCH("/:id", h.update)
	router.POST("/:id/authorize", h.authorize)
	router.POST("/:id/capture", h.capture)
	router.POST("/:id/cancel", h.cancel)
	router.POST("/:id/no-show", h.noShow)
	router.GET("/:id/invoice", h.invoice)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	stay, err := domain.ParseDateRange(req.CheckIn, req.CheckOut)
	if err != nil {
		writeError(c, err)
		return
	}

	b, err := h.service.CreateBooking(c.Request.Context(), identityFrom(c), booking.CreateBookingInput{
		ListingID:       req.ListingID,
		Stay:            stay,
		Occupancy:       req.Occupancy.toDomain(),
		GuestMessage:    req.GuestMessage,
		SpecialRequests: req.SpecialRequests,
		ArrivalTime:     req.ArrivalTime,
		GuestPhone:      req.GuestPhone,
		GuestEmail:      req.GuestEmail,
		AdminOverride:   req.AdminOverride,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, b)
}

func (h *BookingHandler) list(c *gin.Context) {
	query := booking.ListQuery{
		As:        domain.Role(c.DefaultQuery("as", string(domain.RoleGuest))),
		ListingID: c.Query("listing_id"),
		Status:    domain.BookingStatus(c.Query("status")),
	}
	var err error
	if query.Page, err = intQuery(c, "page", 1); err != nil {
		badRequest(c, err)
		return
	}
	if query.PageSize, err = intQuery(c, "page_size", 20); err != nil {
		badRequest(c, err)
		return
	}

	items, total, err := h.service.ListBookings(c.Request.Context(), identityFrom(c), query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listBookingsResponse{Items: items, Total: total, Page: query.Page, PageSize: query.PageSize})
}

func (h *BookingHandler) get(c *gin.Context) {
	b, err := h.service.GetBooking(c.Request.Context(), identityFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) getByCode(c *gin.Context) {
	b, err := h.service.GetByCode(c.Request.Context(), identityFrom(c), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) update(c *gin.Context) {
	var fields domain.BookingUpdateFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		badRequest(c, err)
		return
	}
	b, err := h.service.UpdateBooking(c.Request.Context(), identityFrom(c), c.Param("id"), fields)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) authorize(c *gin.Context) {
	b, err := h.service.AuthorizePayment(c.Request.Context(), identityFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusOK
	if b.PaymentStatus == domain.PaymentStatusPending {
		status = http.StatusAccepted
	}
	c.JSON(status, b)
}

func (h *BookingHandler) capture(c *gin.Context) {
	b, err := h.service.CapturePayment(c.Request.Context(), identityFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	var req cancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	b, err := h.service.CancelBooking(c.Request.Context(), identityFrom(c), c.Param("id"), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) noShow(c *gin.Context) {
	b, err := h.service.MarkNoShow(c.Request.Context(), identityFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) invoice(c *gin.Context) {
	ctx := c.Request.Context()
	b, err := h.service.GetBooking(ctx, identityFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	var listing *domain.Listing
	if h.listings != nil {
		if listing, err = h.listings.GetListing(ctx, b.ListingID); err != nil {
			writeError(c, err)
			return
		}
	}

	doc, err := invoice.Render(b, listing, time.Now())
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=booking-"+b.Code+".pdf")
	c.Data(http.StatusOK, "application/pdf", doc)
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
