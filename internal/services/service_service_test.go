package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketBack/internal/catalog"
	"marketBack/internal/geo"
	"marketBack/internal/models"
)

type fakeImages struct {
	folder string
}

func (f *fakeImages) Upload(ctx context.Context, file []byte, fileName, folder, contentType string) (string, error) {
	f.folder = folder
	return fmt.Sprintf("https://cdn.example.com/%s/%s", folder, fileName), nil
}

func validInput() models.ServiceInput {
	return models.ServiceInput{
		Title:        "Home wiring",
		Description:  "Fault finding and rewiring",
		Category:     "Electrician",
		PricePerHour: 350,
		Location:     "Koramangala",
		Latitude:     ptr(12.93),
		Longitude:    ptr(77.62),
	}
}

func TestServiceCreate(t *testing.T) {
	store := newFakeServices()
	svc := &ServiceService{ServiceRepo: store, Log: testLog()}

	created, err := svc.Create(context.Background(), provider, validInput())
	require.NoError(t, err)
	assert.Equal(t, provider.UserID, created.ProviderID)
	assert.Equal(t, "electrician", created.Category)
	assert.True(t, created.IsActive)
	assert.Equal(t, []string{}, created.Images)

	_, err = svc.Create(context.Background(), customer, validInput())
	assert.ErrorIs(t, err, models.ErrForbidden)

	bad := []func(*models.ServiceInput){
		func(in *models.ServiceInput) { in.Title = " " },
		func(in *models.ServiceInput) { in.PricePerHour = 0 },
		func(in *models.ServiceInput) { in.Location = "" },
		func(in *models.ServiceInput) { in.Longitude = nil },
		func(in *models.ServiceInput) { in.Latitude = ptr(123) },
	}
	for i, mutate := range bad {
		in := validInput()
		mutate(&in)
		_, err := svc.Create(context.Background(), provider, in)
		assert.ErrorIs(t, err, models.ErrValidation, "case %d", i)
	}
}

func TestServiceOwnership(t *testing.T) {
	store := newFakeServices(plumbing())
	images := &fakeImages{}
	svc := &ServiceService{ServiceRepo: store, Storage: images, Log: testLog()}
	stranger := models.Session{UserID: 8, Role: models.RoleProvider}

	_, err := svc.Update(context.Background(), stranger, 1, validInput())
	assert.ErrorIs(t, err, models.ErrForbidden)
	assert.ErrorIs(t, svc.Deactivate(context.Background(), stranger, 1), models.ErrForbidden)

	updated, err := svc.Update(context.Background(), provider, 1, validInput())
	require.NoError(t, err)
	assert.Equal(t, "Home wiring", updated.Title)

	got, err := svc.UploadImage(context.Background(), provider, 1, []byte("img"), "a.jpg", "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "services/1", images.folder)
	assert.Contains(t, got.Images, "https://cdn.example.com/services/1/a.jpg")

	_, err = svc.UploadImage(context.Background(), provider, 1, []byte("x"), "a.pdf", "application/pdf")
	assert.ErrorIs(t, err, models.ErrValidation)

	require.NoError(t, svc.Deactivate(context.Background(), provider, 1))
	active, err := svc.Browse(context.Background(), catalog.Query{})
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestServiceBrowse(t *testing.T) {
	near := plumbing()
	far := plumbing()
	far.ID, far.Title, far.Latitude, far.Longitude, far.AverageRating = 2, "Pipe fitting", ptr(19.07), ptr(72.87), 4.9
	tutor := plumbing()
	tutor.ID, tutor.Category, tutor.Title = 3, "tutor", "Maths tuition"
	svc := &ServiceService{ServiceRepo: newFakeServices(near, far, tutor), Log: testLog()}

	list, err := svc.Browse(context.Background(), catalog.Query{
		Search: "pipe",
		Sort:   catalog.SortDistance,
		Viewer: geo.At(12.97, 77.59),
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(2), list[0].ID)
	require.NotNil(t, list[0].DistanceKm)

	list, err = svc.Browse(context.Background(), catalog.Query{Category: "Tutor"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(3), list[0].ID)
}
