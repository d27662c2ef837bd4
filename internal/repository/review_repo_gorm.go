package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenGorm connects gorm to the same Postgres database and migrates the peripheral tables.
func OpenGorm(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	if err := db.AutoMigrate(&reviewModel{}, &paymentRecordModel{}); err != nil {
		return nil, fmt.Errorf("migrate peripheral tables: %w", err)
	}
	return db, nil
}

type reviewModel struct {
	ID         string `gorm:"primaryKey"`
	BookingID  string `gorm:"not null;uniqueIndex:idx_reviews_booking_reviewer"`
	ReviewerID string `gorm:"not null;uniqueIndex:idx_reviews_booking_reviewer"`
	ListingID  string `gorm:"not null;index"`
	RevieweeID string
	Rating     int    `gorm:"not null"`
	Comment    string `gorm:"type:text"`
	CreatedAt  time.Time
}

func (reviewModel) TableName() string { return "reviews" }

func (m reviewModel) toDomain() domain.Review {
	return domain.Review{
		ID:         m.ID,
		BookingID:  m.BookingID,
		ListingID:  m.ListingID,
		ReviewerID: m.ReviewerID,
		RevieweeID: m.RevieweeID,
		Rating:     m.Rating,
		Comment:    m.Comment,
		CreatedAt:  m.CreatedAt,
	}
}

type GormReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &GormReviewRepository{db: db}
}

// Create enforces one review per booking and reviewer through the unique index.
func (r *GormReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	m := reviewModel{
		ID:         review.ID,
		BookingID:  review.BookingID,
		ReviewerID: review.ReviewerID,
		ListingID:  review.ListingID,
		RevieweeID: review.RevieweeID,
		Rating:     review.Rating,
		Comment:    review.Comment,
	}
	err := r.db.WithContext(ctx).Create(&m).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
		return domain.ErrAlreadyReviewed
	}
	if err != nil {
		return err
	}
	review.CreatedAt = m.CreatedAt
	return nil
}

func (r *GormReviewRepository) ListByListing(ctx context.Context, listingID string) ([]domain.Review, error) {
	return r.find(ctx, "listing_id = ?", listingID)
}

func (r *GormReviewRepository) ListByBooking(ctx context.Context, bookingID string) ([]domain.Review, error) {
	return r.find(ctx, "booking_id = ?", bookingID)
}

func (r *GormReviewRepository) find(ctx context.Context, cond string, arg any) ([]domain.Review, error) {
	var models []reviewModel
	if err := r.db.WithContext(ctx).Where(cond, arg).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	reviews := make([]domain.Review, 0, len(models))
	for _, m := range models {
		reviews = append(reviews, m.toDomain())
	}
	return reviews, nil
}

var _ ReviewRepository = (*GormReviewRepository)(nil)
