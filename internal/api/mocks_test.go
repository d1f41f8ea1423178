package api

import (
	"context"
	"io"
	"testing"

	"github.com/OdenLounge/Oden-Lounge/internal/config"
	"github.com/OdenLounge/Oden-Lounge/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
)

type mockReservations struct {
	mock.Mock
}

func (m *mockReservations) Create(ctx context.Context, r *models.Reservation) (*models.Reservation, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}
func (m *mockReservations) List(ctx context.Context) ([]*models.Reservation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Reservation), args.Error(1)
}
func (m *mockReservations) FindByReference(ctx context.Context, ref string) (*models.Reservation, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}
func (m *mockReservations) UpdateStatus(ctx context.Context, id, raw string) (*models.Reservation, error) {
	args := m.Called(ctx, id, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}

type mockGallery struct {
	mock.Mock
}

func (m *mockGallery) Upload(ctx context.Context, file io.Reader) (*models.GalleryItem, error) {
	data, _ := io.ReadAll(file)
	args := m.Called(ctx, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GalleryItem), args.Error(1)
}
func (m *mockGallery) List(ctx context.Context) ([]*models.GalleryItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.GalleryItem), args.Error(1)
}
func (m *mockGallery) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockGallery) DeleteComment(ctx context.Context, id string, index *int) error {
	return m.Called(ctx, id, index).Error(0)
}
func (m *mockGallery) Like(ctx context.Context, id string) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}
func (m *mockGallery) AddComment(ctx context.Context, id, comment string) (*models.GalleryItem, error) {
	args := m.Called(ctx, id, comment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GalleryItem), args.Error(1)
}

type mockContact struct {
	mock.Mock
}

func (m *mockContact) Submit(ctx context.Context, msg *models.ContactMessage) error {
	return m.Called(ctx, msg).Error(0)
}

type mockPinger struct {
	mock.Mock
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type testDeps struct {
	reservations *mockReservations
	gallery      *mockGallery
	contact      *mockContact
	store        *mockPinger
}

func newTestServer(t *testing.T, cfg config.HTTPConfig) (*HTTPServer, *testDeps) {
	t.Helper()
	deps := &testDeps{
		reservations: new(mockReservations),
		gallery:      new(mockGallery),
		contact:      new(mockContact),
		store:        new(mockPinger),
	}
	logger := zerolog.New(io.Discard)
	srv := NewHTTPServer(cfg, Services{
		Reservations: deps.reservations,
		Gallery:      deps.gallery,
		Contact:      deps.contact,
		Store:        deps.store,
	}, &logger)
	return srv, deps
}
