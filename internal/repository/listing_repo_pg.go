package repository

import (
	"context"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/jackc/pgx/v5"
)

const listingColumns = `id, host_id, title, city, status, currency, nightly_price, weekly_price, monthly_price,
	cleaning_fee, service_fee, taxes, security_deposit, weekly_discount_pct, monthly_discount_pct,
	early_bird_discount_pct, last_minute_discount_pct, min_nights, max_nights, max_guests,
	cancellation_policy, instant_book, created_at, updated_at`

type PGListingRepository struct {
	db querier
}

func (r *PGListingRepository) Create(ctx context.Context, l *domain.Listing) error {
	return r.db.QueryRow(ctx, `INSERT INTO listings (id, host_id, title, city, status, currency, nightly_price,
		weekly_price, monthly_price, cleaning_fee, service_fee, taxes, security_deposit, weekly_discount_pct,
		monthly_discount_pct, early_bird_discount_pct, last_minute_discount_pct, min_nights, max_nights, max_guests,
		cancellation_policy, instant_book)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		RETURNING created_at, updated_at`,
		l.ID, l.HostID, l.Title, l.City, l.Status, l.Currency, l.NightlyPrice, l.WeeklyPrice, l.MonthlyPrice,
		l.CleaningFee, l.ServiceFee, l.Taxes, l.SecurityDeposit, l.WeeklyDiscountPct, l.MonthlyDiscountPct,
		l.EarlyBirdDiscountPct, l.LastMinuteDiscountPct, l.MinNights, l.MaxNights, l.MaxGuests,
		l.CancellationPolicy, l.InstantBook,
	).Scan(&l.CreatedAt, &l.UpdatedAt)
}

func (r *PGListingRepository) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	l, err := scanListing(r.db.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id=$1`, id))
	if err != nil {
		return nil, notFound(err, "listing "+id)
	}
	return l, nil
}

func (r *PGListingRepository) GetForUpdate(ctx context.Context, id string) (*domain.Listing, error) {
	l, err := scanListing(r.db.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "listing "+id)
	}
	return l, nil
}

func (r *PGListingRepository) ListByHost(ctx context.Context, hostID string) ([]domain.Listing, error) {
	rows, err := r.db.Query(ctx, `SELECT `+listingColumns+` FROM listings WHERE host_id=$1 AND status <> 'DELETED' ORDER BY created_at`, hostID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listings := make([]domain.Listing, 0)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, *l)
	}
	return listings, rows.Err()
}

func (r *PGListingRepository) ListActive(ctx context.Context, page, pageSize int) ([]domain.Listing, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM listings WHERE status=$1`, string(domain.ListingStatusActive)).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `SELECT `+listingColumns+` FROM listings WHERE status=$1
		ORDER BY created_at, id LIMIT $2 OFFSET $3`,
		string(domain.ListingStatusActive), pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	listings := make([]domain.Listing, 0, pageSize)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, 0, err
		}
		listings = append(listings, *l)
	}
	return listings, total, rows.Err()
}

func (r *PGListingRepository) Update(ctx context.Context, l *domain.Listing) error {
	err := r.db.QueryRow(ctx, `UPDATE listings SET title=$2, city=$3, status=$4, currency=$5, nightly_price=$6,
		weekly_price=$7, monthly_price=$8, cleaning_fee=$9, service_fee=$10, taxes=$11, security_deposit=$12,
		weekly_discount_pct=$13, monthly_discount_pct=$14, early_bird_discount_pct=$15, last_minute_discount_pct=$16,
		min_nights=$17, max_nights=$18, max_guests=$19, cancellation_policy=$20, instant_book=$21, updated_at=now()
		WHERE id=$1 RETURNING updated_at`,
		l.ID, l.Title, l.City, l.Status, l.Currency, l.NightlyPrice, l.WeeklyPrice, l.MonthlyPrice,
		l.CleaningFee, l.ServiceFee, l.Taxes, l.SecurityDeposit, l.WeeklyDiscountPct, l.MonthlyDiscountPct,
		l.EarlyBirdDiscountPct, l.LastMinuteDiscountPct, l.MinNights, l.MaxNights, l.MaxGuests,
		l.CancellationPolicy, l.InstantBook,
	).Scan(&l.UpdatedAt)
	return notFound(err, "listing "+l.ID)
}

func scanListing(row pgx.Row) (*domain.Listing, error) {
	var l domain.Listing
	if err := row.Scan(&l.ID, &l.HostID, &l.Title, &l.City, &l.Status, &l.Currency, &l.NightlyPrice,
		&l.WeeklyPrice, &l.MonthlyPrice, &l.CleaningFee, &l.ServiceFee, &l.Taxes, &l.SecurityDeposit,
		&l.WeeklyDiscountPct, &l.MonthlyDiscountPct, &l.EarlyBirdDiscountPct, &l.LastMinuteDiscountPct,
		&l.MinNights, &l.MaxNights, &l.MaxGuests, &l.CancellationPolicy, &l.InstantBook,
		&l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

var _ ListingRepository = (*PGListingRepository)(nil)
