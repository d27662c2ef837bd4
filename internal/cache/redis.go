package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/staybooking/config"
	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/lock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still carries our token,
// so a holder whose lease already expired cannot drop somebody else's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisCache struct {
	client     *redis.Client
	listingTTL time.Duration
	lockTTL    time.Duration
	lockWait   time.Duration
	retryEvery time.Duration
}

func NewRedisCache(cfg config.RedisConfig, booking config.BookingConfig) *RedisCache {
	return NewRedisCacheWithClient(
		redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		booking,
	)
}

func NewRedisCacheWithClient(client *redis.Client, booking config.BookingConfig) *RedisCache {
	return &RedisCache{
		client:     client,
		listingTTL: booking.ListingCacheTTL(),
		lockTTL:    booking.LockTTL(),
		lockWait:   booking.LockWait(),
		retryEvery: 25 * time.Millisecond,
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetListing returns (nil, nil) on a cache miss.
func (c *RedisCache) GetListing(ctx context.Context, id string) (*domain.Listing, error) {
	data, err := c.client.Get(ctx, listingKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var listing domain.Listing
	if err := json.Unmarshal(data, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

func (c *RedisCache) SetListing(ctx context.Context, listing *domain.Listing) error {
	payload, err := json.Marshal(listing)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, listingKey(listing.ID), payload, c.listingTTL).Err()
}

func (c *RedisCache) InvalidateListing(ctx context.Context, id string) error {
	return c.client.Del(ctx, listingKey(id)).Err()
}

// Acquire takes the cross-instance lock for a listing. It polls SET NX until
// the wait budget runs out and then reports domain.ErrListingBusy.
func (c *RedisCache) Acquire(ctx context.Context, listingID string) (lock.Release, error) {
	key := listingLockKey(listingID)
	token := uuid.NewString()
	deadline := time.Now().Add(c.lockWait)

	for {
		ok, err := c.client.SetNX(ctx, key, token, c.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire listing lock: %w", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", domain.ErrListingBusy, listingID)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", domain.ErrListingBusy, listingID)
		case <-time.After(c.retryEvery):
		}
	}

	return func() {
		// The caller's context may already be cancelled; releasing must still happen.
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, c.client, []string{key}, token).Err()
	}, nil
}

func listingKey(id string) string {
	return "cache:listing:" + id
}

func listingLockKey(id string) string {
	return fmt.Sprintf("lock:listing:%s", id)
}

var _ lock.Locker = (*RedisCache)(nil)
