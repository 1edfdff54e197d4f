package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"marketBack/internal/booking/fsm"
	"marketBack/internal/models"
)

type ReviewStore interface {
	CreateReview(ctx context.Context, rev models.Review) (models.Review, models.RatingSummary, error)
	ExistsForBooking(ctx context.Context, bookingID int64) (bool, error)
	GetReviewsByServiceID(ctx context.Context, serviceID int64) ([]models.Review, error)
}

// BookingLookup loads a single booking.
type BookingLookup interface {
	GetBookingByID(ctx context.Context, id int64) (models.Booking, error)
}

type ReviewService struct {
	ReviewRepo ReviewStore
	Bookings   BookingLookup
	Log        *zap.SugaredLogger
}

// Submit rates a confirmed booking and completes it. The new aggregate
// rating of the service is returned alongside the review.
func (s *ReviewService) Submit(ctx context.Context, session models.Session, in models.CreateReviewInput) (models.Review, models.RatingSummary, error) {
	if !session.Authenticated() {
		return models.Review{}, models.RatingSummary{}, models.ErrUnauthorized
	}
	if in.Rating < 1 || in.Rating > 5 {
		return models.Review{}, models.RatingSummary{}, models.Invalid("rating must be between 1 and 5")
	}

	b, err := s.Bookings.GetBookingByID(ctx, in.BookingID)
	if err != nil {
		return models.Review{}, models.RatingSummary{}, err
	}
	if b.CustomerID != session.UserID {
		return models.Review{}, models.RatingSummary{}, models.ErrForbidden
	}

	switch b.Status {
	case fsm.StatusConfirmed:
	case fsm.StatusCompleted:
		reviewed, err := s.ReviewRepo.ExistsForBooking(ctx, b.ID)
		if err != nil {
			return models.Review{}, models.RatingSummary{}, err
		}
		if reviewed {
			return models.Review{}, models.RatingSummary{}, models.ErrAlreadyReviewed
		}
		fallthrough
	default:
		return models.Review{}, models.RatingSummary{}, fmt.Errorf("%w: only confirmed bookings can be reviewed", models.ErrInvalidTransition)
	}

	rev := models.Review{
		BookingID:  b.ID,
		ServiceID:  b.ServiceID,
		CustomerID: b.CustomerID,
		ProviderID: b.ProviderID,
		Rating:     in.Rating,
	}
	if comment := strings.TrimSpace(in.Comment); comment != "" {
		rev.Comment = &comment
	}

	created, summary, err := s.ReviewRepo.CreateReview(ctx, rev)
	if err != nil {
		return models.Review{}, models.RatingSummary{}, err
	}
	created.CustomerName = b.CustomerName
	s.Log.Infof("booking %d reviewed (%d stars), service %d now %.2f over %d", b.ID, in.Rating, b.ServiceID, summary.Average, summary.Count)
	return created, summary, nil
}

func (s *ReviewService) ListForService(ctx context.Context, serviceID int64) ([]models.Review, error) {
	return s.ReviewRepo.GetReviewsByServiceID(ctx, serviceID)
}
