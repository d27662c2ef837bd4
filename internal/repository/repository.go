package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
)

type ListingRepository interface {
	Create(ctx context.Context, listing *domain.Listing) error
	GetByID(ctx context.Context, id string) (*domain.Listing, error)
	// GetForUpdate reads the listing and, inside a transaction, holds its row lock until commit.
	GetForUpdate(ctx context.Context, id string) (*domain.Listing, error)
	ListByHost(ctx context.Context, hostID string) ([]domain.Listing, error)
	// ListActive pages through bookable listings, oldest first, and reports the total count.
	ListActive(ctx context.Context, page, pageSize int) ([]domain.Listing, int, error)
	Update(ctx context.Context, listing *domain.Listing) error
}

// AvailabilityRepository is the authoritative calendar. BOOKED and BLOCKED windows of a
// listing never overlap; the storage layer rejects the second of two racing writes.
type AvailabilityRepository interface {
	QueryFree(ctx context.Context, listingID string, stay domain.DateRange) (bool, error)
	// FirstConflict returns the earliest occupied window overlapping stay, or nil.
	FirstConflict(ctx context.Context, listingID string, stay domain.DateRange) (*domain.AvailabilityWindow, error)
	// Reserve inserts a BOOKED window for bookingID or fails with *domain.ConflictError.
	Reserve(ctx context.Context, listingID string, stay domain.DateRange, bookingID string) (*domain.ReservationToken, error)
	// Release removes the booking's window. Releasing twice is a no-op.
	Release(ctx context.Context, listingID string, stay domain.DateRange, bookingID string) error
	Block(ctx context.Context, listingID string, stay domain.DateRange, reason string) (*domain.AvailabilityWindow, error)
	// Unblock removes the BLOCKED windows lying inside stay and reports how many were removed.
	Unblock(ctx context.Context, listingID string, stay domain.DateRange) (int, error)
	// SetOverride stores an OPEN window carrying a price or minimum-stay override.
	SetOverride(ctx context.Context, window *domain.AvailabilityWindow) error
	Windows(ctx context.Context, listingID string, stay domain.DateRange) ([]domain.AvailabilityWindow, error)
}

type BookingFilter struct {
	GuestID   string
	HostID    string
	ListingID string
	Status    domain.BookingStatus
	Page      int
	PageSize  int
}

func (f BookingFilter) normalized() BookingFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 20
	}
	return f
}

func (f BookingFilter) offset() int {
	return (f.Page - 1) * f.PageSize
}

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	// GetForUpdate reads the booking and locks its row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*domain.Booking, error)
	GetByCode(ctx context.Context, code string) (*domain.Booking, error)
	List(ctx context.Context, filter BookingFilter) ([]domain.Booking, int, error)
	Update(ctx context.Context, booking *domain.Booking) error
	// ListPendingExpired returns Pending bookings whose hold ended at or before now.
	ListPendingExpired(ctx context.Context, now time.Time, limit int) ([]domain.Booking, error)
	// ListDueForLifecycle returns Confirmed bookings past check-in and in-progress bookings past check-out.
	ListDueForLifecycle(ctx context.Context, now time.Time, limit int) ([]domain.Booking, error)
}

// Store groups the repositories that must change together. Repositories obtained from
// the Store passed to fn share one transaction.
type Store interface {
	Listings() ListingRepository
	Availability() AvailabilityRepository
	Bookings() BookingRepository
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	ListByListing(ctx context.Context, listingID string) ([]domain.Review, error)
	ListByBooking(ctx context.Context, bookingID string) ([]domain.Review, error)
}

type PaymentLedger interface {
	Record(ctx context.Context, record *domain.PaymentRecord) error
	ListByBooking(ctx context.Context, bookingID string) ([]domain.PaymentRecord, error)
}

// ErrTransient marks storage failures worth retrying.
var ErrTransient = errors.New("transient storage failure")

// ErrDuplicateCode reports that a new booking drew a code another booking already holds.
var ErrDuplicateCode = errors.New("booking code already taken")
