package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/jackc/pgx/v5"
)

const bookingColumns = `id, code, listing_id, guest_id, host_id, check_in, check_out, adults, children, infants, pets,
	price, status, payment_status, payment_reference, cancelled_by, cancelled_at, cancellation_reason,
	guest_message, special_requests, arrival_time, guest_phone, guest_email, host_message, host_notes,
	expires_at, confirmed_at, started_at, completed_at, created_at, updated_at`

const bookingForUpdateQuery = `SELECT ` + bookingColumns + ` FROM bookings WHERE id=$1 FOR UPDATE`

type PGBookingRepository struct {
	db querier
}

func (r *PGBookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	by, at, reason := cancellationColumns(b)
	err := r.db.QueryRow(ctx, `INSERT INTO bookings (id, code, listing_id, guest_id, host_id, check_in, check_out,
		adults, children, infants, pets, price, status, payment_status, payment_reference, cancelled_by, cancelled_at,
		cancellation_reason, guest_message, special_requests, arrival_time, guest_phone, guest_email, host_message,
		host_notes, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
		RETURNING created_at, updated_at`,
		b.ID, b.Code, b.ListingID, b.GuestID, b.HostID, b.Stay.CheckIn, b.Stay.CheckOut,
		b.Occupancy.Adults, b.Occupancy.Children, b.Occupancy.Infants, b.Occupancy.Pets, b.Price,
		b.Status, b.PaymentStatus, b.PaymentReference, by, at, reason,
		b.GuestMessage, b.SpecialRequests, b.ArrivalTime, b.GuestPhone, b.GuestEmail, b.HostMessage, b.HostNotes,
		b.ExpiresAt,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if isBookingCodeViolation(err) {
		return fmt.Errorf("booking code %s: %w", b.Code, ErrDuplicateCode)
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: booking %s already exists", domain.ErrInvalidInput, b.ID)
	}
	return err
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id))
	if err != nil {
		return nil, notFound(err, "booking "+id)
	}
	return b, nil
}

func (r *PGBookingRepository) GetForUpdate(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, bookingForUpdateQuery, id))
	if err != nil {
		return nil, notFound(err, "booking "+id)
	}
	return b, nil
}

func (r *PGBookingRepository) GetByCode(ctx context.Context, code string) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE code=$1`, code))
	if err != nil {
		return nil, notFound(err, "booking "+code)
	}
	return b, nil
}

func (r *PGBookingRepository) List(ctx context.Context, filter BookingFilter) ([]domain.Booking, int, error) {
	filter = filter.normalized()

	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.GuestID != "" {
		add("guest_id=$%d", filter.GuestID)
	}
	if filter.HostID != "" {
		add("host_id=$%d", filter.HostID)
	}
	if filter.ListingID != "" {
		add("listing_id=$%d", filter.ListingID)
	}
	if filter.Status != "" {
		add("status=$%d", filter.Status)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM bookings`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.PageSize, filter.offset())
	query := fmt.Sprintf(`SELECT %s FROM bookings%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, bookingColumns, where, len(args)-1, len(args))
	bookings, err := r.queryBookings(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// Update persists every mutable column. Identity, stay and price are fixed at creation.
func (r *PGBookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	by, at, reason := cancellationColumns(b)
	err := r.db.QueryRow(ctx, `UPDATE bookings SET status=$2, payment_status=$3, payment_reference=$4,
		cancelled_by=$5, cancelled_at=$6, cancellation_reason=$7, guest_message=$8, special_requests=$9,
		arrival_time=$10, guest_phone=$11, guest_email=$12, host_message=$13, host_notes=$14,
		confirmed_at=$15, started_at=$16, completed_at=$17, updated_at=now()
		WHERE id=$1 RETURNING updated_at`,
		b.ID, b.Status, b.PaymentStatus, b.PaymentReference, by, at, reason,
		b.GuestMessage, b.SpecialRequests, b.ArrivalTime, b.GuestPhone, b.GuestEmail, b.HostMessage, b.HostNotes,
		b.ConfirmedAt, b.StartedAt, b.CompletedAt,
	).Scan(&b.UpdatedAt)
	return notFound(err, "booking "+b.ID)
}

func (r *PGBookingRepository) ListPendingExpired(ctx context.Context, now time.Time, limit int) ([]domain.Booking, error) {
	return r.queryBookings(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE status=$1 AND expires_at <= $2 ORDER BY expires_at LIMIT $3`,
		domain.BookingStatusPending, now, limit)
}

func (r *PGBookingRepository) ListDueForLifecycle(ctx context.Context, now time.Time, limit int) ([]domain.Booking, error) {
	return r.queryBookings(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE (status=$1 AND check_in <= $3::date) OR (status=$2 AND check_out <= $3::date)
		ORDER BY check_in LIMIT $4`,
		domain.BookingStatusConfirmed, domain.BookingStatusInProgress, domain.StartOfDay(now), limit)
}

func (r *PGBookingRepository) queryBookings(ctx context.Context, query string, args ...any) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b      domain.Booking
		byWho  *string
		at     *time.Time
		reason *string
	)
	if err := row.Scan(&b.ID, &b.Code, &b.ListingID, &b.GuestID, &b.HostID, &b.Stay.CheckIn, &b.Stay.CheckOut,
		&b.Occupancy.Adults, &b.Occupancy.Children, &b.Occupancy.Infants, &b.Occupancy.Pets,
		&b.Price, &b.Status, &b.PaymentStatus, &b.PaymentReference, &byWho, &at, &reason,
		&b.GuestMessage, &b.SpecialRequests, &b.ArrivalTime, &b.GuestPhone, &b.GuestEmail, &b.HostMessage, &b.HostNotes,
		&b.ExpiresAt, &b.ConfirmedAt, &b.StartedAt, &b.CompletedAt, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Stay.CheckIn = domain.StartOfDay(b.Stay.CheckIn)
	b.Stay.CheckOut = domain.StartOfDay(b.Stay.CheckOut)
	if byWho != nil && at != nil {
		c := domain.Cancellation{By: *byWho, At: *at}
		if reason != nil {
			c.Reason = *reason
		}
		b.Cancellation = &c
	}
	return &b, nil
}

func cancellationColumns(b *domain.Booking) (*string, *time.Time, *string) {
	if b.Cancellation == nil {
		return nil, nil, nil
	}
	c := b.Cancellation
	return &c.By, &c.At, &c.Reason
}

var _ BookingRepository = (*PGBookingRepository)(nil)
