package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"marketBack/internal/models"
)

type ServiceRepository struct {
	DB *sql.DB
}

const serviceSelect = `
	SELECT s.id, s.provider_id, COALESCE(p.full_name, ''), s.title, s.description, s.category,
	       s.price_per_hour, s.location, s.city, s.latitude, s.longitude,
	       s.availability_days, s.availability_hours, s.images, s.is_active,
	       s.average_rating, s.total_reviews, s.created_at, s.updated_at
	FROM services s
	LEFT JOIN profiles p ON p.id = s.provider_id
`

func scanService(row rowScanner) (models.Service, error) {
	var (
		s          models.Service
		days, imgs []byte
	)
	err := row.Scan(&s.ID, &s.ProviderID, &s.ProviderName, &s.Title, &s.Description, &s.Category,
		&s.PricePerHour, &s.Location, &s.City, &s.Latitude, &s.Longitude,
		&days, &s.AvailabilityHours, &imgs, &s.IsActive,
		&s.AverageRating, &s.TotalReviews, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return models.Service{}, err
	}
	if err := decodeList(days, &s.AvailabilityDays); err != nil {
		return models.Service{}, fmt.Errorf("service %d availability_days: %w", s.ID, err)
	}
	if err := decodeList(imgs, &s.Images); err != nil {
		return models.Service{}, fmt.Errorf("service %d images: %w", s.ID, err)
	}
	return s, nil
}

func decodeList(raw []byte, dst *[]string) error {
	*dst = []string{}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	return string(b), err
}

func (r *ServiceRepository) CreateService(ctx context.Context, s models.Service) (models.Service, error) {
	days, err := encodeList(s.AvailabilityDays)
	if err != nil {
		return models.Service{}, err
	}
	images, err := encodeList(s.Images)
	if err != nil {
		return models.Service{}, err
	}

	query := `
		INSERT INTO services (provider_id, title, description, category, price_per_hour, location, city,
		                      latitude, longitude, availability_days, availability_hours, images, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11, $12::jsonb, TRUE)
		RETURNING id, is_active, average_rating, total_reviews, created_at, updated_at
	`
	err = r.DB.QueryRowContext(ctx, query,
		s.ProviderID, s.Title, s.Description, s.Category, s.PricePerHour, s.Location, s.City,
		s.Latitude, s.Longitude, days, s.AvailabilityHours, images,
	).Scan(&s.ID, &s.IsActive, &s.AverageRating, &s.TotalReviews, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return models.Service{}, err
	}
	return s, nil
}

// UpdateService rewrites the editable fields of a listing owned by s.ProviderID.
func (r *ServiceRepository) UpdateService(ctx context.Context, s models.Service) error {
	days, err := encodeList(s.AvailabilityDays)
	if err != nil {
		return err
	}
	images, err := encodeList(s.Images)
	if err != nil {
		return err
	}
	query := `
		UPDATE services
		SET title = $1, description = $2, category = $3, price_per_hour = $4, location = $5, city = $6,
		    latitude = $7, longitude = $8, availability_days = $9::jsonb, availability_hours = $10,
		    images = $11::jsonb, updated_at = NOW()
		WHERE id = $12 AND provider_id = $13
	`
	res, err := r.DB.ExecContext(ctx, query,
		s.Title, s.Description, s.Category, s.PricePerHour, s.Location, s.City,
		s.Latitude, s.Longitude, days, s.AvailabilityHours, images, s.ID, s.ProviderID)
	if err != nil {
		return err
	}
	return expectOneRow(res, models.ErrServiceNotFound)
}

// SetActive soft-deactivates (or reactivates) a listing.
func (r *ServiceRepository) SetActive(ctx context.Context, id, providerID int64, active bool) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE services SET is_active = $1, updated_at = NOW() WHERE id = $2 AND provider_id = $3`,
		active, id, providerID)
	if err != nil {
		return err
	}
	return expectOneRow(res, models.ErrServiceNotFound)
}

func (r *ServiceRepository) AppendImage(ctx context.Context, id, providerID int64, url string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE services SET images = images || jsonb_build_array($1::text), updated_at = NOW()
		 WHERE id = $2 AND provider_id = $3`,
		url, id, providerID)
	if err != nil {
		return err
	}
	return expectOneRow(res, models.ErrServiceNotFound)
}

func (r *ServiceRepository) GetServiceByID(ctx context.Context, id int64) (models.Service, error) {
	s, err := scanService(r.DB.QueryRowContext(ctx, serviceSelect+` WHERE s.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Service{}, models.ErrServiceNotFound
	}
	return s, err
}

// ListActive returns every active listing, newest first. Filtering and
// ranking happen in the catalog package.
func (r *ServiceRepository) ListActive(ctx context.Context) ([]models.Service, error) {
	return r.list(ctx, serviceSelect+` WHERE s.is_active = TRUE ORDER BY s.created_at DESC`)
}

func (r *ServiceRepository) ListByProvider(ctx context.Context, providerID int64) ([]models.Service, error) {
	return r.list(ctx, serviceSelect+` WHERE s.provider_id = $1 ORDER BY s.created_at DESC`, providerID)
}

func (r *ServiceRepository) CountActiveByProvider(ctx context.Context, providerID int64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM services WHERE provider_id = $1 AND is_active = TRUE`, providerID).Scan(&n)
	return n, err
}

func (r *ServiceRepository) list(ctx context.Context, query string, args ...any) ([]models.Service, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	services := []models.Service{}
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, s)
	}
	return services, rows.Err()
}
