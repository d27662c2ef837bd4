package api

import (
	"context"
	"net/http"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/service/booking"
	"github.com/Domenick1991/staybooking/internal/service/listings"
	"github.com/gin-gonic/gin"
)

type Quoter interface {
	Quote(ctx context.Context, input booking.QuoteInput) (domain.PriceBreakdown, error)
}

// FeedServer streams live calendar changes for one listing.
type FeedServer interface {
	Serve(w http.ResponseWriter, r *http.Request, listingID string)
}

type ListingHandler struct {
	service listings.ListingUseCase
	quoter  Quoter
	feed    FeedServer
}

type blockRequest struct {
	CheckIn  string `json:"check_in" binding:"required"`
	CheckOut string `json:"check_out" binding:"required"`
	Reason   string `json:"reason"`
}

type overrideRequest struct {
	CheckIn   string         `json:"check_in" binding:"required"`
	CheckOut  string         `json:"check_out" binding:"required"`
	Price     *domain.Amount `json:"price"`
	MinNights *int           `json:"min_nights"`
}

type quoteResponse struct {
	ListingID string                `json:"listing_id"`
	CheckIn   string                `json:"check_in"`
	CheckOut  string                `json:"check_out"`
	Price     domain.PriceBreakdown `json:"price"`
}

type listListingsResponse struct {
	Items    []domain.Listing `json:"items"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

type availabilityResponse struct {
	ListingID string `json:"listing_id"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
	Available bool   `json:"available"`
}

func NewListingHandler(service listings.ListingUseCase, quoter Quoter, feed FeedServer) *ListingHandler {
	return &ListingHandler{service: service, quoter: quoter, feed: feed}
}

func (h *ListingHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("", h.list)
	router.GET("/:id", h.get)
	router.PATCH("/:id", h.update)
	router.DELETE("/:id", h.retire)
	router.GET("/:id/calendar", h.calendar)
	router.POST("/:id/blocks", h.block)
	router.DELETE("/:id/blocks", h.unblock)
	router.POST("/:id/overrides", h.override)
	router.GET("/:id/quote", h.quote)
	router.GET("/:id/availability", h.availability)
	if h.feed != nil {
		router.GET("/:id/feed", h.liveFeed)
	}
}

func (h *ListingHandler) create(c *gin.Context) {
	var req listings.CreateListingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	listing, err := h.service.CreateListing(c.Request.Context(), identityFrom(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

// list browses active listings page by page, or returns one host's listings when host_id is set.
func (h *ListingHandler) list(c *gin.Context) {
	if hostID := c.Query("host_id"); hostID != "" {
		items, err := h.service.ListHostListings(c.Request.Context(), hostID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
		return
	}

	page, err := intQuery(c, "page", 1)
	if err != nil {
		badRequest(c, err)
		return
	}
	pageSize, err := intQuery(c, "page_size", 20)
	if err != nil {
		badRequest(c, err)
		return
	}
	items, total, err := h.service.ListListings(c.Request.Context(), page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listListingsResponse{Items: items, Total: total, Page: page, PageSize: pageSize})
}

func (h *ListingHandler) get(c *gin.Context) {
	listing, err := h.service.GetListing(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *ListingHandler) update(c *gin.Context) {
	var fields domain.ListingUpdateFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		badRequest(c, err)
		return
	}
	listing, err := h.service.UpdateListing(c.Request.Context(), identityFrom(c), c.Param("id"), fields)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *ListingHandler) retire(c *gin.Context) {
	listing, err := h.service.RetireListing(c.Request.Context(), identityFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *ListingHandler) calendar(c *gin.Context) {
	stay, err := domain.ParseDateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		writeError(c, err)
		return
	}
	windows, err := h.service.Calendar(c.Request.Context(), c.Param("id"), stay)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing_id": c.Param("id"), "windows": windows})
}

func (h *ListingHandler) block(c *gin.Context) {
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	stay, err := domain.ParseDateRange(req.CheckIn, req.CheckOut)
	if err != nil {
		writeError(c, err)
		return
	}
	window, err := h.service.BlockDates(c.Request.Context(), identityFrom(c), c.Param("id"), stay, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, window)
}

func (h *ListingHandler) unblock(c *gin.Context) {
	stay, err := domain.ParseDateRange(c.Query("check_in"), c.Query("check_out"))
	if err != nil {
		writeError(c, err)
		return
	}
	removed, err := h.service.UnblockDates(c.Request.Context(), identityFrom(c), c.Param("id"), stay)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (h *ListingHandler) override(c *gin.Context) {
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	stay, err := domain.ParseDateRange(req.CheckIn, req.CheckOut)
	if err != nil {
		writeError(c, err)
		return
	}
	window, err := h.service.SetNightlyOverride(c.Request.Context(), identityFrom(c), c.Param("id"), listings.OverrideInput{
		Stay:      stay,
		Price:     req.Price,
		MinNights: req.MinNights,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, window)
}

func (h *ListingHandler) quote(c *gin.Context) {
	stay, err := domain.ParseDateRange(c.Query("check_in"), c.Query("check_out"))
	if err != nil {
		writeError(c, err)
		return
	}
	var occupancy domain.Occupancy
	for key, dst := range map[string]*int{
		"adults":   &occupancy.Adults,
		"children": &occupancy.Children,
		"infants":  &occupancy.Infants,
		"pets":     &occupancy.Pets,
	} {
		def := 0
		if key == "adults" {
			def = 1
		}
		if *dst, err = intQuery(c, key, def); err != nil {
			badRequest(c, err)
			return
		}
	}

	price, err := h.quoter.Quote(c.Request.Context(), booking.QuoteInput{
		ListingID: c.Param("id"),
		Stay:      stay,
		Occupancy: occupancy,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quoteResponse{
		ListingID: c.Param("id"),
		CheckIn:   stay.CheckIn.Format(domain.DateLayout),
		CheckOut:  stay.CheckOut.Format(domain.DateLayout),
		Price:     price,
	})
}

func (h *ListingHandler) availability(c *gin.Context) {
	stay, err := domain.ParseDateRange(c.Query("check_in"), c.Query("check_out"))
	if err != nil {
		writeError(c, err)
		return
	}
	free, err := h.service.CheckAvailability(c.Request.Context(), c.Param("id"), stay)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, availabilityResponse{
		ListingID: c.Param("id"),
		CheckIn:   stay.CheckIn.Format(domain.DateLayout),
		CheckOut:  stay.CheckOut.Format(domain.DateLayout),
		Available: free,
	})
}

func (h *ListingHandler) liveFeed(c *gin.Context) {
	h.feed.Serve(c.Writer, c.Request, c.Param("id"))
}
