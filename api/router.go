package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type RouterOptions struct {
	Auth           *Authenticator
	Limiter        *RateLimiter
	Logger         *logrus.Logger
	AllowedOrigins []string
}

type Handlers struct {
	Bookings      *BookingHandler
	Listings      *ListingHandler
	Reviews       *ReviewHandler
	Notifications *NotificationHandler
	Payments      *PaymentHandler
}

// NewRouter builds the gin engine serving /api/v1. Nil handlers are skipped.
func NewRouter(opts RouterOptions, h Handlers) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(logger))
	r.Use(cors.New(corsConfig(opts.AllowedOrigins)))
	if opts.Limiter != nil {
		r.Use(opts.Limiter.Middleware())
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	if opts.Auth != nil {
		v1.Use(opts.Auth.Middleware())
	}

	bookings := v1.Group("/bookings")
	listings := v1.Group("/listings")
	if h.Bookings != nil {
		h.Bookings.Register(bookings)
	}
	if h.Listings != nil {
		h.Listings.Register(listings)
	}
	if h.Reviews != nil {
		h.Reviews.Register(bookings, listings)
	}
	if h.Notifications != nil {
		h.Notifications.Register(v1.Group("/notifications"))
	}
	if h.Payments != nil {
		h.Payments.Register(v1.Group("/payments"))
	}
	return r
}

func corsConfig(origins []string) cors.Config {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	allowCredentials := true
	for _, origin := range origins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}
	return cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "Retry-After"},
		AllowCredentials: allowCredentials,
		MaxAge:           12 * time.Hour,
	}
}
