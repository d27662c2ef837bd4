package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/google/uuid"
)

type memState struct {
	listings map[string]domain.Listing
	windows  map[string]domain.AvailabilityWindow
	bookings map[string]domain.Booking
	codes    map[string]string
}

func newMemState() *memState {
	return &memState{
		listings: make(map[string]domain.Listing),
		windows:  make(map[string]domain.AvailabilityWindow),
		bookings: make(map[string]domain.Booking),
		codes:    make(map[string]string),
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.listings {
		c.listings[k] = v
	}
	for k, v := range s.windows {
		c.windows[k] = v
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	for k, v := range s.codes {
		c.codes[k] = v
	}
	return c
}

// MemoryStore keeps everything in process. Transactions work on a copy of the state and
// swap it in on success, holding the store lock for their whole duration, so they are
// serializable and a failed transaction leaves nothing behind.
type MemoryStore struct {
	mu    *sync.Mutex
	state *memState
	inTx  bool
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{mu: &sync.Mutex{}, state: newMemState(), now: time.Now}
}

func (m *MemoryStore) Listings() ListingRepository {
	return &memListings{m: m}
}

func (m *MemoryStore) Availability() AvailabilityRepository {
	return &memAvailability{m: m}
}

func (m *MemoryStore) Bookings() BookingRepository {
	return &memBookings{m: m}
}

func (m *MemoryStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if m.inTx {
		return fn(m)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	if err := fn(&MemoryStore{mu: m.mu, state: work, inTx: true, now: m.now}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *MemoryStore) view(fn func(s *memState) error) error {
	if !m.inTx {
		m.mu.Lock()
		defer m.mu.Unlock()
	}
	return fn(m.state)
}

type memListings struct{ m *MemoryStore }

func (r *memListings) Create(_ context.Context, l *domain.Listing) error {
	return r.m.view(func(s *memState) error {
		if _, ok := s.listings[l.ID]; ok {
			return fmt.Errorf("%w: listing %s already exists", domain.ErrInvalidInput, l.ID)
		}
		now := r.m.now().UTC()
		l.CreatedAt, l.UpdatedAt = now, now
		s.listings[l.ID] = *l
		return nil
	})
}

func (r *memListings) GetByID(_ context.Context, id string) (*domain.Listing, error) {
	var out *domain.Listing
	err := r.m.view(func(s *memState) error {
		l, ok := s.listings[id]
		if !ok {
			return fmt.Errorf("listing %s: %w", id, domain.ErrNotFound)
		}
		out = &l
		return nil
	})
	return out, err
}

func (r *memListings) GetForUpdate(ctx context.Context, id string) (*domain.Listing, error) {
	return r.GetByID(ctx, id)
}

func (r *memListings) ListByHost(_ context.Context, hostID string) ([]domain.Listing, error) {
	out := make([]domain.Listing, 0)
	err := r.m.view(func(s *memState) error {
		for _, l := range s.listings {
			if l.HostID == hostID && l.Status != domain.ListingStatusDeleted {
				out = append(out, l)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

func (r *memListings) ListActive(_ context.Context, page, pageSize int) ([]domain.Listing, int, error) {
	active := make([]domain.Listing, 0)
	err := r.m.view(func(s *memState) error {
		for _, l := range s.listings {
			if l.Status == domain.ListingStatusActive {
				active = append(active, l)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(active, func(i, j int) bool {
		if !active[i].CreatedAt.Equal(active[j].CreatedAt) {
			return active[i].CreatedAt.Before(active[j].CreatedAt)
		}
		return active[i].ID < active[j].ID
	})

	total := len(active)
	start := (page - 1) * pageSize
	if start >= total {
		return []domain.Listing{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return active[start:end], total, nil
}

func (r *memListings) Update(_ context.Context, l *domain.Listing) error {
	return r.m.view(func(s *memState) error {
		if _, ok := s.listings[l.ID]; !ok {
			return fmt.Errorf("listing %s: %w", l.ID, domain.ErrNotFound)
		}
		l.UpdatedAt = r.m.now().UTC()
		s.listings[l.ID] = *l
		return nil
	})
}

type memAvailability struct{ m *MemoryStore }

func (r *memAvailability) QueryFree(ctx context.Context, listingID string, stay domain.DateRange) (bool, error) {
	w, err := r.FirstConflict(ctx, listingID, stay)
	return w == nil, err
}

func (r *memAvailability) FirstConflict(_ context.Context, listingID string, stay domain.DateRange) (*domain.AvailabilityWindow, error) {
	var out *domain.AvailabilityWindow
	err := r.m.view(func(s *memState) error {
		out = firstConflict(s, listingID, stay)
		return nil
	})
	return out, err
}

func firstConflict(s *memState, listingID string, stay domain.DateRange) *domain.AvailabilityWindow {
	var found *domain.AvailabilityWindow
	for _, w := range s.windows {
		if w.ListingID != listingID || !w.Occupies() || !w.Range.Overlaps(stay) {
			continue
		}
		if found == nil || w.Range.CheckIn.Before(found.Range.CheckIn) {
			w := w
			found = &w
		}
	}
	return found
}

func (r *memAvailability) Reserve(_ context.Context, listingID string, stay domain.DateRange, bookingID string) (*domain.ReservationToken, error) {
	var token *domain.ReservationToken
	err := r.m.view(func(s *memState) error {
		if w := firstConflict(s, listingID, stay); w != nil {
			return conflictFrom(listingID, stay, w)
		}
		now := r.m.now().UTC()
		w := domain.AvailabilityWindow{
			ID:        uuid.NewString(),
			ListingID: listingID,
			BookingID: bookingID,
			Status:    domain.WindowBooked,
			Range:     stay,
			CreatedAt: now,
		}
		s.windows[w.ID] = w
		token = &domain.ReservationToken{WindowID: w.ID, ListingID: listingID, BookingID: bookingID, Range: stay, ReservedAt: now}
		return nil
	})
	return token, err
}

func (r *memAvailability) Release(_ context.Context, listingID string, _ domain.DateRange, bookingID string) error {
	return r.m.view(func(s *memState) error {
		for id, w := range s.windows {
			if w.ListingID == listingID && w.BookingID == bookingID {
				delete(s.windows, id)
			}
		}
		return nil
	})
}

func (r *memAvailability) Block(_ context.Context, listingID string, stay domain.DateRange, reason string) (*domain.AvailabilityWindow, error) {
	var out *domain.AvailabilityWindow
	err := r.m.view(func(s *memState) error {
		if w := firstConflict(s, listingID, stay); w != nil {
			return conflictFrom(listingID, stay, w)
		}
		w := domain.AvailabilityWindow{
			ID:        uuid.NewString(),
			ListingID: listingID,
			Status:    domain.WindowBlocked,
			Range:     stay,
			Reason:    reason,
			CreatedAt: r.m.now().UTC(),
		}
		s.windows[w.ID] = w
		out = &w
		return nil
	})
	return out, err
}

func (r *memAvailability) Unblock(_ context.Context, listingID string, stay domain.DateRange) (int, error) {
	removed := 0
	err := r.m.view(func(s *memState) error {
		for id, w := range s.windows {
			if w.ListingID != listingID || w.Status != domain.WindowBlocked {
				continue
			}
			if !w.Range.CheckIn.Before(stay.CheckIn) && !w.Range.CheckOut.After(stay.CheckOut) {
				delete(s.windows, id)
				removed++
			}
		}
		return nil
	})
	return removed, err
}

func (r *memAvailability) SetOverride(_ context.Context, w *domain.AvailabilityWindow) error {
	return r.m.view(func(s *memState) error {
		if w.ID == "" {
			w.ID = uuid.NewString()
		}
		w.Status = domain.WindowOpen
		w.CreatedAt = r.m.now().UTC()
		s.windows[w.ID] = *w
		return nil
	})
}

func (r *memAvailability) Windows(_ context.Context, listingID string, stay domain.DateRange) ([]domain.AvailabilityWindow, error) {
	out := make([]domain.AvailabilityWindow, 0)
	err := r.m.view(func(s *memState) error {
		for _, w := range s.windows {
			if w.ListingID == listingID && w.Range.Overlaps(stay) {
				out = append(out, w)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Range.CheckIn.Equal(out[j].Range.CheckIn) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Range.CheckIn.Before(out[j].Range.CheckIn)
	})
	return out, err
}

type memBookings struct{ m *MemoryStore }

func (r *memBookings) Create(_ context.Context, b *domain.Booking) error {
	return r.m.view(func(s *memState) error {
		if _, ok := s.bookings[b.ID]; ok {
			return fmt.Errorf("%w: booking %s already exists", domain.ErrInvalidInput, b.ID)
		}
		if _, ok := s.codes[b.Code]; ok {
			return fmt.Errorf("booking code %s: %w", b.Code, ErrDuplicateCode)
		}
		if _, ok := s.listings[b.ListingID]; !ok {
			return fmt.Errorf("listing %s: %w", b.ListingID, domain.ErrNotFound)
		}
		now := r.m.now().UTC()
		b.CreatedAt, b.UpdatedAt = now, now
		s.bookings[b.ID] = *b
		s.codes[b.Code] = b.ID
		return nil
	})
}

func (r *memBookings) GetByID(_ context.Context, id string) (*domain.Booking, error) {
	var out *domain.Booking
	err := r.m.view(func(s *memState) error {
		b, ok := s.bookings[id]
		if !ok {
			return fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
		}
		out = &b
		return nil
	})
	return out, err
}

// GetForUpdate needs no row lock here: WithinTx already serialises writers.
func (r *memBookings) GetForUpdate(ctx context.Context, id string) (*domain.Booking, error) {
	return r.GetByID(ctx, id)
}

func (r *memBookings) GetByCode(ctx context.Context, code string) (*domain.Booking, error) {
	var id string
	err := r.m.view(func(s *memState) error {
		var ok bool
		if id, ok = s.codes[code]; !ok {
			return fmt.Errorf("booking %s: %w", code, domain.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *memBookings) List(_ context.Context, filter BookingFilter) ([]domain.Booking, int, error) {
	filter = filter.normalized()
	matched := make([]domain.Booking, 0)
	err := r.m.view(func(s *memState) error {
		for _, b := range s.bookings {
			if filter.GuestID != "" && b.GuestID != filter.GuestID {
				continue
			}
			if filter.HostID != "" && b.HostID != filter.HostID {
				continue
			}
			if filter.ListingID != "" && b.ListingID != filter.ListingID {
				continue
			}
			if filter.Status != "" && b.Status != filter.Status {
				continue
			}
			matched = append(matched, b)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	start := filter.offset()
	if start >= total {
		return []domain.Booking{}, total, nil
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *memBookings) Update(_ context.Context, b *domain.Booking) error {
	return r.m.view(func(s *memState) error {
		if _, ok := s.bookings[b.ID]; !ok {
			return fmt.Errorf("booking %s: %w", b.ID, domain.ErrNotFound)
		}
		b.UpdatedAt = r.m.now().UTC()
		s.bookings[b.ID] = *b
		return nil
	})
}

func (r *memBookings) ListPendingExpired(_ context.Context, now time.Time, limit int) ([]domain.Booking, error) {
	return r.collect(limit, func(b domain.Booking) bool {
		return b.Status == domain.BookingStatusPending && !b.ExpiresAt.After(now)
	}, func(a, b domain.Booking) bool { return a.ExpiresAt.Before(b.ExpiresAt) })
}

func (r *memBookings) ListDueForLifecycle(_ context.Context, now time.Time, limit int) ([]domain.Booking, error) {
	return r.collect(limit, func(b domain.Booking) bool {
		_, due := b.DueTransition(now)
		return due
	}, func(a, b domain.Booking) bool { return a.Stay.CheckIn.Before(b.Stay.CheckIn) })
}

func (r *memBookings) collect(limit int, match func(domain.Booking) bool, less func(a, b domain.Booking) bool) ([]domain.Booking, error) {
	out := make([]domain.Booking, 0)
	err := r.m.view(func(s *memState) error {
		for _, b := range s.bookings {
			if match(b) {
				out = append(out, b)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

var (
	_ Store                  = (*MemoryStore)(nil)
	_ ListingRepository      = (*memListings)(nil)
	_ AvailabilityRepository = (*memAvailability)(nil)
	_ BookingRepository      = (*memBookings)(nil)
)
