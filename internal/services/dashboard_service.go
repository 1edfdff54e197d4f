package services

import (
	"context"

	"marketBack/internal/models"
)

const recentBookingsLimit = 5

type StatsStore interface {
	ProviderStats(ctx context.Context, providerID int64) (models.ProviderStats, error)
	ListByProvider(ctx context.Context, providerID int64, status string, limit int) ([]models.Booking, error)
}

type ActiveServiceCounter interface {
	CountActiveByProvider(ctx context.Context, providerID int64) (int, error)
}

type DashboardService struct {
	Bookings StatsStore
	Services ActiveServiceCounter
}

func (s *DashboardService) ProviderStats(ctx context.Context, session models.Session) (models.ProviderStats, error) {
	if !session.Is(models.RoleProvider) {
		return models.ProviderStats{}, models.ErrForbidden
	}
	stats, err := s.Bookings.ProviderStats(ctx, session.UserID)
	if err != nil {
		return models.ProviderStats{}, err
	}
	if stats.ActiveServices, err = s.Services.CountActiveByProvider(ctx, session.UserID); err != nil {
		return models.ProviderStats{}, err
	}
	if stats.RecentBookings, err = s.Bookings.ListByProvider(ctx, session.UserID, "", recentBookingsLimit); err != nil {
		return models.ProviderStats{}, err
	}
	return stats, nil
}
