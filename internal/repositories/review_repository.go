package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"marketBack/internal/booking/fsm"
	"marketBack/internal/models"
)

type ReviewRepository struct {
	DB *sql.DB
}

// CreateReview inserts the review, recomputes the service aggregate from
// every rating of that service and completes the booking, all in one
// transaction. Any failure leaves nothing behind.
func (r *ReviewRepository) CreateReview(ctx context.Context, rev models.Review) (models.Review, models.RatingSummary, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.Review{}, models.RatingSummary{}, err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO reviews (booking_id, service_id, customer_id, provider_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err = tx.QueryRowContext(ctx, query,
		rev.BookingID, rev.ServiceID, rev.CustomerID, rev.ProviderID, rev.Rating, rev.Comment,
	).Scan(&rev.ID, &rev.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "") {
			return models.Review{}, models.RatingSummary{}, models.ErrAlreadyReviewed
		}
		return models.Review{}, models.RatingSummary{}, fmt.Errorf("insert review: %w", err)
	}

	ratings, err := serviceRatings(ctx, tx, rev.ServiceID)
	if err != nil {
		return models.Review{}, models.RatingSummary{}, err
	}
	summary := summarizeRatings(ratings)

	if _, err := tx.ExecContext(ctx,
		`UPDATE services SET average_rating = $1, total_reviews = $2, updated_at = NOW() WHERE id = $3`,
		summary.Average, summary.Count, rev.ServiceID); err != nil {
		return models.Review{}, models.RatingSummary{}, fmt.Errorf("update service rating: %w", err)
	}

	if err := fsm.Apply(ctx, tx, rev.BookingID, fsm.StatusConfirmed, fsm.StatusCompleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Review{}, models.RatingSummary{}, models.ErrStatusConflict
		}
		return models.Review{}, models.RatingSummary{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Review{}, models.RatingSummary{}, err
	}
	return rev, summary, nil
}

func serviceRatings(ctx context.Context, tx *sql.Tx, serviceID int64) ([]int, error) {
	rows, err := tx.QueryContext(ctx, `SELECT rating FROM reviews WHERE service_id = $1`, serviceID)
	if err != nil {
		return nil, fmt.Errorf("load ratings: %w", err)
	}
	defer rows.Close()

	var ratings []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		ratings = append(ratings, v)
	}
	return ratings, rows.Err()
}

func (r *ReviewRepository) ExistsForBooking(ctx context.Context, bookingID int64) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM reviews WHERE booking_id = $1)`, bookingID).Scan(&exists)
	return exists, err
}

func (r *ReviewRepository) GetReviewsByServiceID(ctx context.Context, serviceID int64) ([]models.Review, error) {
	query := `
		SELECT r.id, r.booking_id, r.service_id, r.customer_id, r.provider_id, r.rating, r.comment,
		       COALESCE(p.full_name, ''), r.created_at
		FROM reviews r
		LEFT JOIN profiles p ON p.id = r.customer_id
		WHERE r.service_id = $1
		ORDER BY r.created_at DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var rev models.Review
		if err := rows.Scan(&rev.ID, &rev.BookingID, &rev.ServiceID, &rev.CustomerID, &rev.ProviderID,
			&rev.Rating, &rev.Comment, &rev.CustomerName, &rev.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rev)
	}
	return reviews, rows.Err()
}
