package api

import (
	"net/http"

	"github.com/Domenick1991/staybooking/internal/service/reviews"
	"github.com/gin-gonic/gin"
)

type ReviewHandler struct {
	service reviews.ReviewUseCase
}

type createReviewRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

func NewReviewHandler(service reviews.ReviewUseCase) *ReviewHandler {
	return &ReviewHandler{service: service}
}

// Register mounts booking scoped routes on bookings and listing scoped routes on listings.
func (h *ReviewHandler) Register(bookings, listings *gin.RouterGroup) {
	bookings.POST("/:id/reviews", h.create)
	bookings.GET("/:id/reviews", h.byBooking)
	listings.GET("/:id/reviews", h.byListing)
}

func (h *ReviewHandler) create(c *gin.Context) {
	var req createReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	review, err := h.service.CreateReview(c.Request.Context(), identityFrom(c), reviews.CreateReviewInput{
		BookingID: c.Param("id"),
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (h *ReviewHandler) byBooking(c *gin.Context) {
	items, err := h.service.BookingReviews(c.Request.Context(), identityFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *ReviewHandler) byListing(c *gin.Context) {
	items, err := h.service.ListingReviews(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
