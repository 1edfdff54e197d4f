package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"marketBack/internal/booking/fsm"
	"marketBack/internal/models"
)

func newReviewRepo(t *testing.T) (*ReviewRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &ReviewRepository{DB: db}, mock
}

func TestCreateReviewRecomputesAggregate(t *testing.T) {
	repo, mock := newReviewRepo(t)
	comment := "Quick and tidy"

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO reviews`).
		WithArgs(int64(11), int64(3), int64(20), int64(30), 3, comment).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(99), time.Now()))
	mock.ExpectQuery(`SELECT rating FROM reviews WHERE service_id`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"rating"}).AddRow(4).AddRow(5).AddRow(3))
	mock.ExpectExec(`UPDATE services SET average_rating`).
		WithArgs(4.0, 3, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE bookings SET status`).
		WithArgs(fsm.StatusCompleted, int64(11), fsm.StatusConfirmed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rev, summary, err := repo.CreateReview(context.Background(), models.Review{
		BookingID: 11, ServiceID: 3, CustomerID: 20, ProviderID: 30, Rating: 3, Comment: &comment,
	})
	if err != nil {
		t.Fatalf("CreateReview: %v", err)
	}
	if rev.ID != 99 {
		t.Fatalf("expected id 99, got %d", rev.ID)
	}
	if summary.Average != 4.0 || summary.Count != 3 {
		t.Fatalf("expected 4.0 over 3 reviews, got %+v", summary)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateReviewRollsBackWhenBookingMoved(t *testing.T) {
	repo, mock := newReviewRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO reviews`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now()))
	mock.ExpectQuery(`SELECT rating FROM reviews`).
		WillReturnRows(sqlmock.NewRows([]string{"rating"}).AddRow(5))
	mock.ExpectExec(`UPDATE services SET average_rating`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE bookings SET status`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, _, err := repo.CreateReview(context.Background(), models.Review{BookingID: 1, ServiceID: 2, Rating: 5})
	if !errors.Is(err, models.ErrStatusConflict) {
		t.Fatalf("expected status conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateReviewDuplicate(t *testing.T) {
	repo, mock := newReviewRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO reviews`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "reviews_booking_id_key"})
	mock.ExpectRollback()

	_, _, err := repo.CreateReview(context.Background(), models.Review{BookingID: 1, ServiceID: 2, Rating: 4})
	if !errors.Is(err, models.ErrAlreadyReviewed) {
		t.Fatalf("expected ErrAlreadyReviewed, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSummarizeRatings(t *testing.T) {
	if got := summarizeRatings(nil); got.Average != 0 || got.Count != 0 {
		t.Fatalf("expected empty summary, got %+v", got)
	}
	got := summarizeRatings([]int{5, 4, 4})
	if got.Count != 3 || got.Average < 4.333 || got.Average > 4.334 {
		t.Fatalf("unexpected summary %+v", got)
	}
}
