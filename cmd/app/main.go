package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/staybooking/api"
	"github.com/Domenick1991/staybooking/config"
	"github.com/Domenick1991/staybooking/internal/bootstrap"
	"github.com/Domenick1991/staybooking/internal/live"
	"github.com/Domenick1991/staybooking/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.LoadConfig(config.PathFromEnv())
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("open dependencies")
	}
	defer deps.Close()

	hub := live.NewHub(logger)
	bookingService := deps.BookingService(hub)
	listingService := deps.ListingService()

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(api.RouterOptions{
		Auth:           api.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Limiter:        api.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
		Logger:         logger,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	}, api.Handlers{
		Bookings:      api.NewBookingHandler(bookingService, listingService),
		Listings:      api.NewListingHandler(listingService, bookingService, hub),
		Reviews:       api.NewReviewHandler(deps.ReviewService()),
		Notifications: api.NewNotificationHandler(deps.Inbox),
		Payments:      api.NewPaymentHandler(bookingService),
	})

	if err := bootstrap.Run(ctx, cfg, router, logger); err != nil {
		logger.WithError(err).Fatal("server error")
	}
}
