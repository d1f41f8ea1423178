package domain

import (
	"context"
	"io"
	"time"

	"github.com/OdenLounge/Oden-Lounge/internal/mail"
	"github.com/OdenLounge/Oden-Lounge/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ReservationRepository persists reservations. Implementations must reject a
// second record with the same reference number with models.ErrDuplicateReference.
type ReservationRepository interface {
	CreateReservation(ctx context.Context, r *models.Reservation) error
	ListReservations(ctx context.Context) ([]*models.Reservation, error)
	GetReservationByID(ctx context.Context, id string) (*models.Reservation, error)
	GetReservationByReference(ctx context.Context, ref string) (*models.Reservation, error)
	UpdateReservationStatus(ctx context.Context, id string, status models.Status) error
}

type GalleryRepository interface {
	CreateGalleryItem(ctx context.Context, item *models.GalleryItem) error
	GetGalleryItem(ctx context.Context, id string) (*models.GalleryItem, error)
	ListGalleryItems(ctx context.Context) ([]*models.GalleryItem, error)
	RemoveGalleryComment(ctx context.Context, id string, index int) error
	AppendGalleryComment(ctx context.Context, id string, comment string) error
	IncrementGalleryLikes(ctx context.Context, id string) (int64, error)
	MarkGalleryItemDeleting(ctx context.Context, id string, at, next time.Time) error
	RecordGalleryDeleteFailure(ctx context.Context, id string, attempts int, next time.Time, lastErr string) error
	ListPendingGalleryDeletes(ctx context.Context, now time.Time) ([]*models.GalleryItem, error)
	DeleteGalleryItem(ctx context.Context, id string) error
}

// Store is everything the API needs from persistence.
type Store interface {
	ReservationRepository
	GalleryRepository
	Ping(ctx context.Context) error
	Close() error
}

type Mailer interface {
	Send(ctx context.Context, msg *mail.Message) error
}

// MediaHost stores image bytes remotely and addresses them by public id.
type MediaHost interface {
	Upload(ctx context.Context, file io.Reader) (url string, err error)
	Destroy(ctx context.Context, publicID string) error
	PublicIDFromURL(url string) string
}

// MediaPurger finishes the deletion of a tombstoned gallery item.
type MediaPurger interface {
	Purge(ctx context.Context, item *models.GalleryItem) error
	// FirstAttemptAt is when a tombstone created at `at` is first due for
	// the background retry.
	FirstAttemptAt(at time.Time) time.Time
}

type BookingThrottle interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type SheetsWriter interface {
	UpsertReservation(ctx context.Context, r *models.Reservation) error
	UpdateReservationStatus(ctx context.Context, ref string, status models.Status) error
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, r *models.Reservation) error
}

type ReservationService interface {
	Create(ctx context.Context, r *models.Reservation) (*models.Reservation, error)
	List(ctx context.Context) ([]*models.Reservation, error)
	FindByReference(ctx context.Context, ref string) (*models.Reservation, error)
	UpdateStatus(ctx context.Context, id string, rawStatus string) (*models.Reservation, error)
}

type GalleryService interface {
	Upload(ctx context.Context, file io.Reader) (*models.GalleryItem, error)
	List(ctx context.Context) ([]*models.GalleryItem, error)
	Delete(ctx context.Context, id string) error
	DeleteComment(ctx context.Context, id string, index *int) error
	Like(ctx context.Context, id string) (int64, error)
	AddComment(ctx context.Context, id string, comment string) (*models.GalleryItem, error)
}

type ContactService interface {
	Submit(ctx context.Context, msg *models.ContactMessage) error
}
