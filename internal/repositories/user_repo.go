package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"marketBack/internal/models"
)

type UserRepository struct {
	DB *sql.DB
}

const userColumns = `id, email, password_hash, full_name, phone, city, user_type, latitude, longitude, fcm_token, created_at, updated_at`

func scanUser(row rowScanner) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Phone, &u.City, &u.UserType,
		&u.Latitude, &u.Longitude, &u.FCMToken, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *UserRepository) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	query := `
        INSERT INTO profiles (email, password_hash, full_name, phone, city, user_type, latitude, longitude)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at, updated_at
    `
	err := r.DB.QueryRowContext(ctx, query,
		user.Email, user.PasswordHash, user.FullName, user.Phone, user.City, user.UserType,
		user.Latitude, user.Longitude,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "") {
			return models.User{}, models.ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM profiles WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, models.ErrUserNotFound
	}
	return u, err
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM profiles WHERE LOWER(email) = LOWER($1)`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, models.ErrUserNotFound
	}
	return u, err
}

func (r *UserRepository) UpdateProfile(ctx context.Context, user models.User) error {
	query := `
		UPDATE profiles
		SET full_name = $1, phone = $2, city = $3, latitude = $4, longitude = $5, updated_at = NOW()
		WHERE id = $6
	`
	res, err := r.DB.ExecContext(ctx, query, user.FullName, user.Phone, user.City, user.Latitude, user.Longitude, user.ID)
	if err != nil {
		return err
	}
	return expectOneRow(res, models.ErrUserNotFound)
}

func (r *UserRepository) UpdateDeviceToken(ctx context.Context, userID int64, token string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE profiles SET fcm_token = $1, updated_at = NOW() WHERE id = $2`, token, userID)
	if err != nil {
		return err
	}
	return expectOneRow(res, models.ErrUserNotFound)
}

func (r *UserRepository) CreateSession(ctx context.Context, s models.RefreshSession) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO sessions (user_id, refresh_token, expires_at) VALUES ($1, $2, $3)`,
		s.UserID, s.RefreshToken, s.ExpiresAt)
	return err
}

// GetSessionByToken returns a live (not revoked) session with the user's current role.
func (r *UserRepository) GetSessionByToken(ctx context.Context, token string) (models.RefreshSession, error) {
	query := `
		SELECT s.id, s.user_id, p.user_type, s.refresh_token, s.expires_at, s.revoked_at
		FROM sessions s
		JOIN profiles p ON p.id = s.user_id
		WHERE s.refresh_token = $1 AND s.revoked_at IS NULL
	`
	var s models.RefreshSession
	err := r.DB.QueryRowContext(ctx, query, token).Scan(&s.ID, &s.UserID, &s.Role, &s.RefreshToken, &s.ExpiresAt, &s.RevokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RefreshSession{}, models.ErrInvalidRefreshToken
	}
	return s, err
}

func (r *UserRepository) RevokeSession(ctx context.Context, userID int64, token string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = NOW() WHERE user_id = $1 AND refresh_token = $2 AND revoked_at IS NULL`,
		userID, token)
	if err != nil {
		return err
	}
	return expectOneRow(res, models.ErrInvalidRefreshToken)
}

// DeleteStaleSessions removes expired and revoked sessions.
func (r *UserRepository) DeleteStaleSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1 OR revoked_at IS NOT NULL`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func expectOneRow(res sql.Result, notFound error) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
