package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"marketBack/internal/catalog"
	"marketBack/internal/models"
)

// ServiceStore is the persistence behind listings.
type ServiceStore interface {
	CreateService(ctx context.Context, s models.Service) (models.Service, error)
	UpdateService(ctx context.Context, s models.Service) error
	SetActive(ctx context.Context, id, providerID int64, active bool) error
	AppendImage(ctx context.Context, id, providerID int64, url string) error
	GetServiceByID(ctx context.Context, id int64) (models.Service, error)
	ListActive(ctx context.Context) ([]models.Service, error)
	ListByProvider(ctx context.Context, providerID int64) ([]models.Service, error)
}

// ImageStore uploads listing images and returns their public URL.
type ImageStore interface {
	Upload(ctx context.Context, file []byte, fileName, folder, contentType string) (string, error)
}

type ServiceService struct {
	ServiceRepo ServiceStore
	Storage     ImageStore
	Log         *zap.SugaredLogger
}

func (s *ServiceService) Create(ctx context.Context, session models.Session, in models.ServiceInput) (models.Service, error) {
	if !session.Authenticated() {
		return models.Service{}, models.ErrUnauthorized
	}
	if !session.Is(models.RoleProvider) {
		return models.Service{}, models.ErrForbidden
	}
	svc, err := serviceFromInput(in)
	if err != nil {
		return models.Service{}, err
	}
	svc.ProviderID = session.UserID

	created, err := s.ServiceRepo.CreateService(ctx, svc)
	if err != nil {
		return models.Service{}, fmt.Errorf("create service: %w", err)
	}
	s.Log.Infof("service %d created by provider %d", created.ID, session.UserID)
	return created, nil
}

func (s *ServiceService) Update(ctx context.Context, session models.Session, id int64, in models.ServiceInput) (models.Service, error) {
	current, err := s.owned(ctx, session, id)
	if err != nil {
		return models.Service{}, err
	}
	svc, err := serviceFromInput(in)
	if err != nil {
		return models.Service{}, err
	}
	svc.ID = current.ID
	svc.ProviderID = current.ProviderID
	if in.Images == nil {
		svc.Images = current.Images
	}

	if err := s.ServiceRepo.UpdateService(ctx, svc); err != nil {
		return models.Service{}, err
	}
	return s.ServiceRepo.GetServiceByID(ctx, id)
}

// Deactivate hides a listing from the catalog. Existing bookings are untouched.
func (s *ServiceService) Deactivate(ctx context.Context, session models.Session, id int64) error {
	current, err := s.owned(ctx, session, id)
	if err != nil {
		return err
	}
	return s.ServiceRepo.SetActive(ctx, id, current.ProviderID, false)
}

func (s *ServiceService) UploadImage(ctx context.Context, session models.Session, id int64, file []byte, fileName, contentType string) (models.Service, error) {
	current, err := s.owned(ctx, session, id)
	if err != nil {
		return models.Service{}, err
	}
	if s.Storage == nil {
		return models.Service{}, fmt.Errorf("image storage is not configured")
	}
	if !strings.HasPrefix(contentType, "image/") {
		return models.Service{}, models.Invalid("only image uploads are allowed")
	}

	url, err := s.Storage.Upload(ctx, file, fileName, fmt.Sprintf("services/%d", id), contentType)
	if err != nil {
		return models.Service{}, err
	}
	if err := s.ServiceRepo.AppendImage(ctx, id, current.ProviderID, url); err != nil {
		return models.Service{}, err
	}
	current.Images = append(current.Images, url)
	return current, nil
}

func (s *ServiceService) Get(ctx context.Context, id int64) (models.Service, error) {
	return s.ServiceRepo.GetServiceByID(ctx, id)
}

// Browse returns the active catalog filtered and ranked for q.
func (s *ServiceService) Browse(ctx context.Context, q catalog.Query) ([]models.Service, error) {
	listings, err := s.ServiceRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Apply(listings, q), nil
}

func (s *ServiceService) ListMine(ctx context.Context, session models.Session) ([]models.Service, error) {
	if !session.Is(models.RoleProvider) {
		return nil, models.ErrForbidden
	}
	return s.ServiceRepo.ListByProvider(ctx, session.UserID)
}

func (s *ServiceService) owned(ctx context.Context, session models.Session, id int64) (models.Service, error) {
	if !session.Authenticated() {
		return models.Service{}, models.ErrUnauthorized
	}
	svc, err := s.ServiceRepo.GetServiceByID(ctx, id)
	if err != nil {
		return models.Service{}, err
	}
	if svc.ProviderID != session.UserID && session.Role != models.RoleAdmin {
		return models.Service{}, models.ErrForbidden
	}
	return svc, nil
}

func serviceFromInput(in models.ServiceInput) (models.Service, error) {
	svc := models.Service{
		Title:             strings.TrimSpace(in.Title),
		Description:       strings.TrimSpace(in.Description),
		Category:          strings.ToLower(strings.TrimSpace(in.Category)),
		PricePerHour:      in.PricePerHour,
		Location:          strings.TrimSpace(in.Location),
		City:              strings.TrimSpace(in.City),
		Latitude:          in.Latitude,
		Longitude:         in.Longitude,
		AvailabilityDays:  in.AvailabilityDays,
		AvailabilityHours: strings.TrimSpace(in.AvailabilityHours),
		Images:            in.Images,
	}
	switch {
	case svc.Title == "" || svc.Description == "" || svc.Category == "":
		return models.Service{}, models.Invalid("title, description and category are required")
	case svc.PricePerHour <= 0:
		return models.Service{}, models.Invalid("price per hour must be greater than zero")
	case svc.Location == "":
		return models.Service{}, models.Invalid("location is required")
	case (svc.Latitude == nil) != (svc.Longitude == nil):
		return models.Service{}, models.Invalid("latitude and longitude must be set together")
	}
	if svc.Latitude != nil && !svc.Point().Known {
		return models.Service{}, models.Invalid("coordinates are out of range")
	}
	if svc.AvailabilityDays == nil {
		svc.AvailabilityDays = []string{}
	}
	if svc.Images == nil {
		svc.Images = []string{}
	}
	return svc, nil
}
