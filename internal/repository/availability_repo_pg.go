package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const windowColumns = `id, listing_id, COALESCE(booking_id, ''), status, lower(stay), upper(stay), reason,
	override_price, min_nights_override, created_at`

type PGAvailabilityRepository struct {
	db querier
}

func (r *PGAvailabilityRepository) QueryFree(ctx context.Context, listingID string, stay domain.DateRange) (bool, error) {
	w, err := r.FirstConflict(ctx, listingID, stay)
	if err != nil {
		return false, err
	}
	return w == nil, nil
}

func (r *PGAvailabilityRepository) FirstConflict(ctx context.Context, listingID string, stay domain.DateRange) (*domain.AvailabilityWindow, error) {
	w, err := scanWindow(r.db.QueryRow(ctx, `SELECT `+windowColumns+` FROM availability_windows
		WHERE listing_id=$1 AND status <> 'OPEN' AND stay && daterange($2::date, $3::date, '[)')
		ORDER BY lower(stay) LIMIT 1`, listingID, stay.CheckIn, stay.CheckOut))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Reserve checks for an overlap and inserts in the caller's transaction. When two
// transactions pass the check together the exclusion constraint rejects the later insert.
func (r *PGAvailabilityRepository) Reserve(ctx context.Context, listingID string, stay domain.DateRange, bookingID string) (*domain.ReservationToken, error) {
	conflict, err := r.FirstConflict(ctx, listingID, stay)
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		return nil, conflictFrom(listingID, stay, conflict)
	}

	token := &domain.ReservationToken{
		WindowID:  uuid.NewString(),
		ListingID: listingID,
		BookingID: bookingID,
		Range:     stay,
	}
	err = r.db.QueryRow(ctx, `INSERT INTO availability_windows (id, listing_id, booking_id, status, stay)
		VALUES ($1, $2, $3, 'BOOKED', daterange($4::date, $5::date, '[)'))
		RETURNING created_at`, token.WindowID, listingID, bookingID, stay.CheckIn, stay.CheckOut).Scan(&token.ReservedAt)
	if isExclusionViolation(err) {
		// The winner is not visible from this aborted transaction; the caller resolves it after rollback.
		return nil, &domain.ConflictError{ListingID: listingID, Range: stay}
	}
	if err != nil {
		return nil, fmt.Errorf("reserve window: %w", err)
	}
	return token, nil
}

func (r *PGAvailabilityRepository) Release(ctx context.Context, listingID string, _ domain.DateRange, bookingID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM availability_windows WHERE listing_id=$1 AND booking_id=$2`, listingID, bookingID)
	return err
}

func (r *PGAvailabilityRepository) Block(ctx context.Context, listingID string, stay domain.DateRange, reason string) (*domain.AvailabilityWindow, error) {
	conflict, err := r.FirstConflict(ctx, listingID, stay)
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		return nil, conflictFrom(listingID, stay, conflict)
	}

	w := &domain.AvailabilityWindow{
		ID:        uuid.NewString(),
		ListingID: listingID,
		Status:    domain.WindowBlocked,
		Range:     stay,
		Reason:    reason,
	}
	err = r.db.QueryRow(ctx, `INSERT INTO availability_windows (id, listing_id, status, stay, reason)
		VALUES ($1, $2, 'BLOCKED', daterange($3::date, $4::date, '[)'), $5)
		RETURNING created_at`, w.ID, listingID, stay.CheckIn, stay.CheckOut, reason).Scan(&w.CreatedAt)
	if isExclusionViolation(err) {
		return nil, &domain.ConflictError{ListingID: listingID, Range: stay}
	}
	if err != nil {
		return nil, fmt.Errorf("block window: %w", err)
	}
	return w, nil
}

func (r *PGAvailabilityRepository) Unblock(ctx context.Context, listingID string, stay domain.DateRange) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM availability_windows
		WHERE listing_id=$1 AND status='BLOCKED' AND stay <@ daterange($2::date, $3::date, '[)')`,
		listingID, stay.CheckIn, stay.CheckOut)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *PGAvailabilityRepository) SetOverride(ctx context.Context, w *domain.AvailabilityWindow) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	w.Status = domain.WindowOpen
	return r.db.QueryRow(ctx, `INSERT INTO availability_windows (id, listing_id, status, stay, reason, override_price, min_nights_override)
		VALUES ($1, $2, 'OPEN', daterange($3::date, $4::date, '[)'), $5, $6, $7)
		RETURNING created_at`, w.ID, w.ListingID, w.Range.CheckIn, w.Range.CheckOut, w.Reason, w.OverridePrice, w.MinNightsOverride).
		Scan(&w.CreatedAt)
}

func (r *PGAvailabilityRepository) Windows(ctx context.Context, listingID string, stay domain.DateRange) ([]domain.AvailabilityWindow, error) {
	rows, err := r.db.Query(ctx, `SELECT `+windowColumns+` FROM availability_windows
		WHERE listing_id=$1 AND stay && daterange($2::date, $3::date, '[)')
		ORDER BY lower(stay), created_at`, listingID, stay.CheckIn, stay.CheckOut)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	windows := make([]domain.AvailabilityWindow, 0)
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		windows = append(windows, *w)
	}
	return windows, rows.Err()
}

func scanWindow(row pgx.Row) (*domain.AvailabilityWindow, error) {
	var w domain.AvailabilityWindow
	if err := row.Scan(&w.ID, &w.ListingID, &w.BookingID, &w.Status, &w.Range.CheckIn, &w.Range.CheckOut,
		&w.Reason, &w.OverridePrice, &w.MinNightsOverride, &w.CreatedAt); err != nil {
		return nil, err
	}
	w.Range.CheckIn = domain.StartOfDay(w.Range.CheckIn)
	w.Range.CheckOut = domain.StartOfDay(w.Range.CheckOut)
	return &w, nil
}

func conflictFrom(listingID string, stay domain.DateRange, w *domain.AvailabilityWindow) *domain.ConflictError {
	return &domain.ConflictError{ListingID: listingID, Range: stay, BookingID: w.BookingID, WindowID: w.ID}
}

var _ AvailabilityRepository = (*PGAvailabilityRepository)(nil)
