package reviews

import (
	"context"
	"fmt"
	"strings"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/repository"
	"github.com/sirupsen/logrus"
)

type ReviewUseCase interface {
	CreateReview(ctx context.Context, actor domain.Identity, input CreateReviewInput) (*domain.Review, error)
	ListingReviews(ctx context.Context, listingID string) ([]domain.Review, error)
	BookingReviews(ctx context.Context, actor domain.Identity, bookingID string) ([]domain.Review, error)
}

type CreateReviewInput struct {
	BookingID string `json:"booking_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

type ReviewService struct {
	bookings repository.BookingRepository
	reviews  repository.ReviewRepository
	logger   *logrus.Logger
}

func NewReviewService(bookings repository.BookingRepository, reviews repository.ReviewRepository, logger *logrus.Logger) *ReviewService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ReviewService{bookings: bookings, reviews: reviews, logger: logger}
}

// CreateReview lets the guest or the host of a completed stay review the other party, once.
func (s *ReviewService) CreateReview(ctx context.Context, actor domain.Identity, input CreateReviewInput) (*domain.Review, error) {
	b, err := s.bookings.GetByID(ctx, input.BookingID)
	if err != nil {
		return nil, err
	}
	if !b.IsParty(actor.UserID) {
		return nil, fmt.Errorf("%w: only the guest or host can review booking %s", domain.ErrUnauthorized, b.ID)
	}
	if !b.Reviewable() {
		return nil, fmt.Errorf("%w: booking is %s", domain.ErrNotReviewable, b.Status)
	}

	review := &domain.Review{
		BookingID:  b.ID,
		ListingID:  b.ListingID,
		ReviewerID: actor.UserID,
		RevieweeID: b.HostID,
		Rating:     input.Rating,
		Comment:    strings.TrimSpace(input.Comment),
	}
	if actor.UserID == b.HostID {
		review.RevieweeID = b.GuestID
	}
	if err := review.Validate(); err != nil {
		return nil, err
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"booking_id": b.ID, "reviewer": actor.UserID, "rating": review.Rating}).Info("review stored")
	return review, nil
}

func (s *ReviewService) ListingReviews(ctx context.Context, listingID string) ([]domain.Review, error) {
	return s.reviews.ListByListing(ctx, listingID)
}

func (s *ReviewService) BookingReviews(ctx context.Context, actor domain.Identity, bookingID string) ([]domain.Review, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !b.IsParty(actor.UserID) {
		return nil, domain.ErrUnauthorized
	}
	return s.reviews.ListByBooking(ctx, bookingID)
}

var _ ReviewUseCase = (*ReviewService)(nil)
