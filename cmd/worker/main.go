package main

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Domenick1991/staybooking/config"
	"github.com/Domenick1991/staybooking/internal/bootstrap"
	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/kafka"
	"github.com/Domenick1991/staybooking/internal/logging"
	"github.com/Domenick1991/staybooking/internal/payment"
	"github.com/Domenick1991/staybooking/internal/service/booking"
	kafkaGo "github.com/segmentio/kafka-go"
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

	bookingService := deps.BookingService()
	var wg sync.WaitGroup

	if cfg.Kafka.Enabled() {
		dispatcher := deps.Dispatcher()
		notifications := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID+"-notifications", cfg.Kafka.NotificationsTopic, logger)
		defer notifications.Close()
		runConsumer(ctx, &wg, logger, "notifications", notifications, dispatcher.HandleMessage)

		if cfg.Payment.Mode == config.PaymentModeKafka {
			results := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID+"-payments", cfg.Kafka.PaymentResultsTopic, logger)
			defer results.Close()
			runConsumer(ctx, &wg, logger, "payment results", results, paymentResultHandler(bookingService, deps, logger))
		}
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		sweep(ctx, logger, "expire pending bookings", time.Duration(cfg.Worker.ExpirationSweepMinutes)*time.Minute, func(ctx context.Context) (int, error) {
			expired, err := bookingService.ExpirePendingBookings(ctx)
			return len(expired), err
		})
	}()
	go func() {
		defer wg.Done()
		sweep(ctx, logger, "advance lifecycles", time.Duration(cfg.Worker.LifecycleSweepMinutes)*time.Minute, bookingService.AdvanceLifecycles)
	}()

	logger.Info("worker started")
	<-ctx.Done()
	logger.Info("received signal, shutting down")
	wg.Wait()
}

func runConsumer(ctx context.Context, wg *sync.WaitGroup, logger *logrus.Logger, name string, consumer *kafka.Consumer, handler kafka.Handler) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := consumer.Consume(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).WithField("consumer", name).Error("consumer stopped")
		}
	}()
}

func paymentResultHandler(svc booking.BookingUseCase, deps *bootstrap.Deps, logger *logrus.Logger) kafka.Handler {
	return func(ctx context.Context, msg kafkaGo.Message) error {
		result, err := payment.DecodeResult(msg.Value)
		if err != nil {
			return err
		}

		var b *domain.Booking
		if result.Operation == domain.PaymentRefund {
			b, err = svc.RecordRefund(ctx, result)
		} else {
			b, err = svc.HandlePaymentResult(ctx, result)
		}
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidTransition) {
			logger.WithError(err).WithField("booking_id", result.BookingID).Warn("payment result ignored")
			return nil
		}
		if err != nil {
			return err
		}
		payment.RecordResult(ctx, deps.Ledger, logger, result, b.Price.Currency)
		return nil
	}
}

func sweep(ctx context.Context, logger *logrus.Logger, name string, every time.Duration, run func(context.Context) (int, error)) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := run(ctx)
			if err != nil {
				logger.WithError(err).WithField("job", name).Error("sweep failed")
				continue
			}
			if n > 0 {
				logger.WithFields(logrus.Fields{"job": name, "count": n}).Info("sweep done")
			}
		}
	}
}
