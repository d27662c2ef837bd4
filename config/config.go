package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	GRPC      GRPCConfig      `yaml:"grpc"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Auth      AuthConfig      `yaml:"auth"`
	Booking   BookingConfig   `yaml:"booking"`
	Payment   PaymentConfig   `yaml:"payment"`
	Worker    WorkerConfig    `yaml:"worker"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
}

type HTTPConfig struct {
	Address        string   `yaml:"address"`
	SwaggerDir     string   `yaml:"swagger_dir"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type DatabaseConfig struct {
	Driver         string `yaml:"driver"`
	URL            string `yaml:"url"`
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	Name           string `yaml:"name"`
	SSLMode        string `yaml:"ssl_mode"`
	MaxConns       int32  `yaml:"max_conns"`
	MigrateOnStart bool   `yaml:"migrate_on_start"`
}

// DSN prefers an explicit URL over the individual connection fields.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type KafkaConfig struct {
	Brokers              []string `yaml:"brokers"`
	BookingEventsTopic   string   `yaml:"booking_events_topic"`
	NotificationsTopic   string   `yaml:"notifications_topic"`
	PaymentCommandsTopic string   `yaml:"payment_commands_topic"`
	PaymentResultsTopic  string   `yaml:"payment_results_topic"`
	GroupID              string   `yaml:"group_id"`
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

func (m MongoConfig) Enabled() bool {
	return m.URI != ""
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

type BookingConfig struct {
	HoldTTLMinutes         int `yaml:"hold_ttl_minutes"`
	LockTTLSeconds         int `yaml:"lock_ttl_seconds"`
	LockWaitMillis         int `yaml:"lock_wait_millis"`
	PersistenceRetries     int `yaml:"persistence_retries"`
	ListingCacheTTLSeconds int `yaml:"listing_cache_ttl_seconds"`
	EarlyBirdDays          int `yaml:"early_bird_days"`
	LastMinuteDays         int `yaml:"last_minute_days"`
}

func (b BookingConfig) HoldTTL() time.Duration {
	return time.Duration(b.HoldTTLMinutes) * time.Minute
}

func (b BookingConfig) LockTTL() time.Duration {
	return time.Duration(b.LockTTLSeconds) * time.Second
}

func (b BookingConfig) LockWait() time.Duration {
	return time.Duration(b.LockWaitMillis) * time.Millisecond
}

func (b BookingConfig) ListingCacheTTL() time.Duration {
	return time.Duration(b.ListingCacheTTLSeconds) * time.Second
}

const (
	PaymentModeSandbox = "sandbox"
	PaymentModeKafka   = "kafka"
)

type PaymentConfig struct {
	Mode string `yaml:"mode"`
	// DeclineAbove makes the sandbox gateway decline totals above this many minor units. Zero approves everything.
	DeclineAbove int64 `yaml:"decline_above"`
}

type WorkerConfig struct {
	ExpirationSweepMinutes int `yaml:"expiration_sweep_minutes"`
	LifecycleSweepMinutes  int `yaml:"lifecycle_sweep_minutes"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadConfig reads the YAML file at path. Variables from an optional .env file and the
// process environment override the file.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// PathFromEnv returns CONFIG_PATH or config.yaml.
func PathFromEnv() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.yaml"
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		c.Mongo.URI = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.GRPC.Address == "" {
		c.GRPC.Address = ":9090"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = 10
	}
	if c.Kafka.BookingEventsTopic == "" {
		c.Kafka.BookingEventsTopic = "booking-events"
	}
	if c.Kafka.NotificationsTopic == "" {
		c.Kafka.NotificationsTopic = "booking-notifications"
	}
	if c.Kafka.PaymentCommandsTopic == "" {
		c.Kafka.PaymentCommandsTopic = "payment-commands"
	}
	if c.Kafka.PaymentResultsTopic == "" {
		c.Kafka.PaymentResultsTopic = "payment-results"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "staybooking-worker"
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "staybooking"
	}
	if c.Mongo.Collection == "" {
		c.Mongo.Collection = "notifications"
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "staybooking"
	}
	if c.Booking.HoldTTLMinutes == 0 {
		c.Booking.HoldTTLMinutes = 30
	}
	if c.Booking.LockTTLSeconds == 0 {
		c.Booking.LockTTLSeconds = 10
	}
	if c.Booking.LockWaitMillis == 0 {
		c.Booking.LockWaitMillis = 500
	}
	if c.Booking.PersistenceRetries == 0 {
		c.Booking.PersistenceRetries = 3
	}
	if c.Booking.ListingCacheTTLSeconds == 0 {
		c.Booking.ListingCacheTTLSeconds = 60
	}
	if c.Booking.EarlyBirdDays == 0 {
		c.Booking.EarlyBirdDays = 60
	}
	if c.Booking.LastMinuteDays == 0 {
		c.Booking.LastMinuteDays = 7
	}
	if c.Payment.Mode == "" {
		c.Payment.Mode = PaymentModeSandbox
	}
	if c.Worker.ExpirationSweepMinutes == 0 {
		c.Worker.ExpirationSweepMinutes = 1
	}
	if c.Worker.LifecycleSweepMinutes == 0 {
		c.Worker.LifecycleSweepMinutes = 15
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 20
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 40
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" && c.Database.Host == "" {
			errs = append(errs, errors.New("database: url or host is required for the postgres driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("database: unknown driver %q", c.Database.Driver))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth: jwt_secret is required"))
	}
	switch c.Payment.Mode {
	case PaymentModeSandbox:
	case PaymentModeKafka:
		if !c.Kafka.Enabled() {
			errs = append(errs, errors.New("payment: kafka mode needs kafka brokers"))
		}
	default:
		errs = append(errs, fmt.Errorf("payment: unknown mode %q", c.Payment.Mode))
	}
	if c.Booking.PersistenceRetries < 1 {
		errs = append(errs, errors.New("booking: persistence_retries must be at least 1"))
	}
	if c.Booking.LastMinuteDays >= c.Booking.EarlyBirdDays {
		errs = append(errs, errors.New("booking: last_minute_days must be below early_bird_days"))
	}
	return errors.Join(errs...)
}
