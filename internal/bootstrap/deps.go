package bootstrap

import (
	"context"
	"fmt"

	"github.com/Domenick1991/staybooking/config"
	"github.com/Domenick1991/staybooking/internal/cache"
	"github.com/Domenick1991/staybooking/internal/email"
	"github.com/Domenick1991/staybooking/internal/kafka"
	"github.com/Domenick1991/staybooking/internal/lock"
	"github.com/Domenick1991/staybooking/internal/notify"
	"github.com/Domenick1991/staybooking/internal/payment"
	"github.com/Domenick1991/staybooking/internal/repository"
	"github.com/Domenick1991/staybooking/internal/service/booking"
	"github.com/Domenick1991/staybooking/internal/service/listings"
	"github.com/Domenick1991/staybooking/internal/service/pricing"
	"github.com/Domenick1991/staybooking/internal/service/reviews"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// Deps holds the infrastructure shared by the API and the worker. Optional
// backends (redis, kafka, mongo) are nil when not configured.
type Deps struct {
	cfg      *config.Config
	logger   *logrus.Logger
	Store    repository.Store
	Reviews  repository.ReviewRepository
	Ledger   repository.PaymentLedger
	Cache    *cache.RedisCache
	Locker   lock.Locker
	Producer *kafka.Producer
	Inbox    notify.Inbox
	closers  []func()
}

func Open(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Deps, error) {
	d := &Deps{cfg: cfg, logger: logger}
	if err := d.open(ctx); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *Deps) open(ctx context.Context) error {
	cfg := d.cfg
	switch cfg.Database.Driver {
	case config.DriverMemory:
		d.logger.Warn("using the in-memory store, data is lost on restart")
		d.Store = repository.NewMemoryStore()
		d.Reviews = repository.NewMemoryReviewRepository()
		d.Ledger = repository.NewMemoryPaymentLedger()
	default:
		poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("parse postgres dsn: %w", err)
		}
		poolCfg.MaxConns = cfg.Database.MaxConns
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		d.closers = append(d.closers, pool.Close)
		if cfg.Database.MigrateOnStart {
			if err := repository.Migrate(ctx, pool); err != nil {
				return err
			}
		}
		d.Store = repository.NewPGStore(pool)

		gdb, err := repository.OpenGorm(cfg.Database.DSN())
		if err != nil {
			return err
		}
		if sqlDB, err := gdb.DB(); err == nil {
			d.closers = append(d.closers, func() { _ = sqlDB.Close() })
		}
		d.Reviews = repository.NewReviewRepository(gdb)
		d.Ledger = repository.NewPaymentLedger(gdb)
	}

	local := lock.NewKeyedMutex(cfg.Booking.LockWait())
	d.Locker = local
	if cfg.Redis.Enabled() {
		d.Cache = cache.NewRedisCache(cfg.Redis, cfg.Booking)
		d.closers = append(d.closers, func() { _ = d.Cache.Close() })
		if err := d.Cache.Ping(ctx); err != nil {
			d.logger.WithError(err).Warn("redis is unreachable, listing locks and cache will fail until it recovers")
		}
		d.Locker = lock.Chain{local, d.Cache}
	}

	if cfg.Kafka.Enabled() {
		d.Producer = kafka.NewProducer(cfg.Kafka.Brokers, d.logger)
		d.closers = append(d.closers, func() { _ = d.Producer.Close() })
		if err := d.Producer.CheckConnection(ctx); err != nil {
			d.logger.WithError(err).Warn("kafka is unreachable, events will be dropped until it recovers")
		}
	}

	if cfg.Mongo.Enabled() {
		inbox, err := notify.ConnectMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
		if err != nil {
			return err
		}
		d.closers = append(d.closers, func() { _ = inbox.Close(context.Background()) })
		d.Inbox = inbox
	} else {
		d.Inbox = notify.NewMemoryInbox()
	}
	return nil
}

// Close releases resources in reverse order of acquisition.
func (d *Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}

// Dispatcher writes inbox entries and mails guests.
func (d *Deps) Dispatcher() *notify.Dispatcher {
	return notify.NewDispatcher(d.Inbox, email.NewSender("", d.logger), d.logger)
}

// Gateway picks the payment gateway for the configured mode.
func (d *Deps) Gateway() booking.PaymentGateway {
	if d.cfg.Payment.Mode == config.PaymentModeKafka && d.Producer != nil {
		return payment.NewKafkaGateway(d.Producer, d.cfg.Kafka.PaymentCommandsTopic, d.Ledger, d.logger)
	}
	return payment.NewSandboxGateway(d.cfg.Payment.DeclineAbove, d.Ledger, d.logger)
}

// BookingService wires the coordinator. Events go to kafka when it is enabled and
// straight to the notification dispatcher otherwise.
func (d *Deps) BookingService(extra ...booking.EventPublisher) *booking.BookingService {
	cfg := d.cfg
	calculator := pricing.NewCalculator(
		pricing.WithEarlyBirdDays(cfg.Booking.EarlyBirdDays),
		pricing.WithLastMinuteDays(cfg.Booking.LastMinuteDays),
		pricing.WithLogger(d.logger),
	)

	opts := []booking.BookingServiceOption{
		booking.WithLogger(d.logger),
		booking.WithLocker(d.Locker),
		booking.WithPaymentGateway(d.Gateway()),
		booking.WithHoldTTL(cfg.Booking.HoldTTL()),
		booking.WithPersistenceRetries(cfg.Booking.PersistenceRetries),
	}
	if d.Producer != nil {
		opts = append(opts, booking.WithPublisher(kafka.NewEventPublisher(d.Producer, cfg.Kafka.BookingEventsTopic,
			kafka.WithNotificationsTopic(cfg.Kafka.NotificationsTopic))))
	} else {
		opts = append(opts, booking.WithPublisher(d.Dispatcher()))
	}
	for _, p := range extra {
		opts = append(opts, booking.WithPublisher(p))
	}
	return booking.NewBookingService(d.Store, calculator, opts...)
}

func (d *Deps) ListingService() *listings.ListingService {
	opts := []listings.Option{
		listings.WithLocker(d.Locker),
		listings.WithLogger(d.logger),
	}
	if d.Cache != nil {
		opts = append(opts, listings.WithCache(d.Cache))
	}
	return listings.NewListingService(d.Store, opts...)
}

func (d *Deps) ReviewService() *reviews.ReviewService {
	return reviews.NewReviewService(d.Store.Bookings(), d.Reviews, d.logger)
}
