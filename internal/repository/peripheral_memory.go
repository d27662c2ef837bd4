package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/google/uuid"
)

type MemoryReviewRepository struct {
	mu      sync.RWMutex
	reviews []domain.Review
}

func NewMemoryReviewRepository() *MemoryReviewRepository {
	return &MemoryReviewRepository{}
}

func (r *MemoryReviewRepository) Create(_ context.Context, review *domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.reviews {
		if existing.BookingID == review.BookingID && existing.ReviewerID == review.ReviewerID {
			return domain.ErrAlreadyReviewed
		}
	}
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	review.CreatedAt = time.Now().UTC()
	r.reviews = append(r.reviews, *review)
	return nil
}

func (r *MemoryReviewRepository) ListByListing(_ context.Context, listingID string) ([]domain.Review, error) {
	return r.filter(func(rv domain.Review) bool { return rv.ListingID == listingID }), nil
}

func (r *MemoryReviewRepository) ListByBooking(_ context.Context, bookingID string) ([]domain.Review, error) {
	return r.filter(func(rv domain.Review) bool { return rv.BookingID == bookingID }), nil
}

func (r *MemoryReviewRepository) filter(keep func(domain.Review) bool) []domain.Review {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Review, 0)
	for _, rv := range r.reviews {
		if keep(rv) {
			out = append(out, rv)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

type MemoryPaymentLedger struct {
	mu      sync.RWMutex
	records []domain.PaymentRecord
}

func NewMemoryPaymentLedger() *MemoryPaymentLedger {
	return &MemoryPaymentLedger{}
}

func (l *MemoryPaymentLedger) Record(_ context.Context, rec *domain.PaymentRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = time.Now().UTC()
	l.records = append(l.records, *rec)
	return nil
}

func (l *MemoryPaymentLedger) ListByBooking(_ context.Context, bookingID string) ([]domain.PaymentRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.PaymentRecord, 0)
	for _, rec := range l.records {
		if rec.BookingID == bookingID {
			out = append(out, rec)
		}
	}
	return out, nil
}

var (
	_ ReviewRepository = (*MemoryReviewRepository)(nil)
	_ PaymentLedger    = (*MemoryPaymentLedger)(nil)
)
