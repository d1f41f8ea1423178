package service

import (
	"context"
	"io"
	"time"

	"github.com/OdenLounge/Oden-Lounge/internal/mail"
	"github.com/OdenLounge/Oden-Lounge/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

type mockReservationRepo struct {
	mock.Mock
}

func (m *mockReservationRepo) CreateReservation(ctx context.Context, r *models.Reservation) error {
	args := m.Called(ctx, r)
	if args.Error(0) == nil && r.ID == "" {
		r.ID = "res-" + r.ReferenceNumber
	}
	return args.Error(0)
}
func (m *mockReservationRepo) ListReservations(ctx context.Context) ([]*models.Reservation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Reservation), args.Error(1)
}
func (m *mockReservationRepo) GetReservationByID(ctx context.Context, id string) (*models.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}
func (m *mockReservationRepo) GetReservationByReference(ctx context.Context, ref string) (*models.Reservation, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}
func (m *mockReservationRepo) UpdateReservationStatus(ctx context.Context, id string, s models.Status) error {
	return m.Called(ctx, id, s).Error(0)
}

type mockGalleryRepo struct {
	mock.Mock
}

func (m *mockGalleryRepo) CreateGalleryItem(ctx context.Context, item *models.GalleryItem) error {
	args := m.Called(ctx, item)
	if args.Error(0) == nil && item.ID == "" {
		item.ID = "img-1"
	}
	return args.Error(0)
}
func (m *mockGalleryRepo) GetGalleryItem(ctx context.Context, id string) (*models.GalleryItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GalleryItem), args.Error(1)
}
func (m *mockGalleryRepo) ListGalleryItems(ctx context.Context) ([]*models.GalleryItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.GalleryItem), args.Error(1)
}
func (m *mockGalleryRepo) RemoveGalleryComment(ctx context.Context, id string, index int) error {
	return m.Called(ctx, id, index).Error(0)
}
func (m *mockGalleryRepo) AppendGalleryComment(ctx context.Context, id, comment string) error {
	return m.Called(ctx, id, comment).Error(0)
}
func (m *mockGalleryRepo) IncrementGalleryLikes(ctx context.Context, id string) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}
func (m *mockGalleryRepo) MarkGalleryItemDeleting(ctx context.Context, id string, at, next time.Time) error {
	return m.Called(ctx, id, at, next).Error(0)
}
func (m *mockGalleryRepo) RecordGalleryDeleteFailure(ctx context.Context, id string, attempts int, next time.Time, lastErr string) error {
	return m.Called(ctx, id, attempts, next, lastErr).Error(0)
}
func (m *mockGalleryRepo) ListPendingGalleryDeletes(ctx context.Context, now time.Time) ([]*models.GalleryItem, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.GalleryItem), args.Error(1)
}
func (m *mockGalleryRepo) DeleteGalleryItem(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, msg *mail.Message) error {
	return m.Called(ctx, msg).Error(0)
}

type mockThrottle struct {
	mock.Mock
}

func (m *mockThrottle) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(eventType string, payload interface{}) error {
	return m.Called(eventType, payload).Error(0)
}

type mockMediaHost struct {
	mock.Mock
}

func (m *mockMediaHost) Upload(ctx context.Context, file io.Reader) (string, error) {
	args := m.Called(ctx, file)
	return args.String(0), args.Error(1)
}
func (m *mockMediaHost) Destroy(ctx context.Context, publicID string) error {
	return m.Called(ctx, publicID).Error(0)
}
func (m *mockMediaHost) PublicIDFromURL(url string) string {
	return m.Called(url).String(0)
}

type mockPurger struct {
	mock.Mock
}

func (m *mockPurger) Purge(ctx context.Context, item *models.GalleryItem) error {
	return m.Called(ctx, item).Error(0)
}

const purgeGrace = time.Minute

func (m *mockPurger) FirstAttemptAt(at time.Time) time.Time {
	return at.Add(purgeGrace)
}

type mockTelegram struct {
	mock.Mock
}

func (m *mockTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

type mockSyncWorker struct {
	mock.Mock
}

func (m *mockSyncWorker) EnqueueTask(ctx context.Context, taskType string, r *models.Reservation) error {
	return m.Called(ctx, taskType, r).Error(0)
}

func kind(k mail.Kind) interface{} {
	return mock.MatchedBy(func(msg *mail.Message) bool { return msg.Kind == k })
}
