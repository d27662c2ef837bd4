package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
)

// Release gives the lock back. Calling it more than once is harmless.
type Release func()

// Locker grants exclusive access to a key, typically a listing id.
// Acquire fails with domain.ErrListingBusy when the key stays held past the wait budget.
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// KeyedMutex serializes work per key inside one process. Keys are independent.
type KeyedMutex struct {
	mu    sync.Mutex
	slots map[string]*slot
	wait  time.Duration
}

type slot struct {
	sem  chan struct{}
	refs int
}

func NewKeyedMutex(wait time.Duration) *KeyedMutex {
	return &KeyedMutex{slots: make(map[string]*slot), wait: wait}
}

func (k *KeyedMutex) Acquire(ctx context.Context, key string) (Release, error) {
	s := k.ref(key)

	if k.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.wait)
		defer cancel()
	}

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		k.unref(key)
		return nil, fmt.Errorf("%w: %s", domain.ErrListingBusy, key)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.sem
			k.unref(key)
		})
	}, nil
}

func (k *KeyedMutex) ref(key string) *slot {
	k.mu.Lock()
	defer k.mu.Unlock()
	s, ok := k.slots[key]
	if !ok {
		s = &slot{sem: make(chan struct{}, 1)}
		k.slots[key] = s
	}
	s.refs++
	return s
}

func (k *KeyedMutex) unref(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s := k.slots[key]
	s.refs--
	if s.refs == 0 {
		delete(k.slots, key)
	}
}

// Chain acquires every locker in order and releases them in reverse.
type Chain []Locker

func (c Chain) Acquire(ctx context.Context, key string) (Release, error) {
	releases := make([]Release, 0, len(c))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, l := range c {
		if l == nil {
			continue
		}
		r, err := l.Acquire(ctx, key)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, r)
	}
	var once sync.Once
	return func() { once.Do(releaseAll) }, nil
}

var (
	_ Locker = (*KeyedMutex)(nil)
	_ Locker = Chain(nil)
)
