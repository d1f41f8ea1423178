package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/OdenLounge/Oden-Lounge/internal/domain"
	"github.com/OdenLounge/Oden-Lounge/internal/events"
	"github.com/OdenLounge/Oden-Lounge/internal/metrics"
	"github.com/OdenLounge/Oden-Lounge/internal/models"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

// ErrDeletePending is returned by Delete when the item is hidden but the
// media host could not be reached; the reconciler finishes the job.
var ErrDeletePending = errors.New("deletion scheduled for retry")

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/gif"}

type GalleryService struct {
	repo     domain.GalleryRepository
	media    domain.MediaHost
	purger   domain.MediaPurger
	eventBus domain.EventPublisher
	maxBytes int64
	now      func() time.Time
	logger   *zerolog.Logger
}

func NewGalleryService(
	repo domain.GalleryRepository,
	media domain.MediaHost,
	purger domain.MediaPurger,
	eventBus domain.EventPublisher,
	maxBytes int64,
	logger *zerolog.Logger,
) *GalleryService {
	if maxBytes <= 0 {
		maxBytes = models.MaxUploadBytes
	}
	return &GalleryService{
		repo:     repo,
		media:    media,
		purger:   purger,
		eventBus: eventBus,
		maxBytes: maxBytes,
		now:      time.Now,
		logger:   logger,
	}
}

// Upload checks the image type, stores the bytes on the media host and saves
// a metadata record with no likes and no comments. If the record cannot be
// saved the uploaded object is destroyed again.
func (s *GalleryService) Upload(ctx context.Context, file io.Reader) (*models.GalleryItem, error) {
	data, err := io.ReadAll(io.LimitReader(file, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", models.ErrUnsupportedImage, s.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no file uploaded", models.ErrMissingField)
	}
	if mt := mimetype.Detect(data); !mimetype.EqualsAny(mt.String(), allowedImageTypes...) {
		return nil, fmt.Errorf("%w: got %s", models.ErrUnsupportedImage, mt.String())
	}

	url, err := s.media.Upload(ctx, bytes.NewReader(data))
	if err != nil {
		metrics.IncGallery("upload", err)
		return nil, fmt.Errorf("upload image: %w", err)
	}

	item := &models.GalleryItem{
		Image:     url,
		Likes:     0,
		Comments:  []string{},
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateGalleryItem(ctx, item); err != nil {
		metrics.IncGallery("upload", err)
		publicID := s.media.PublicIDFromURL(url)
		if derr := s.media.Destroy(ctx, publicID); derr != nil {
			s.logger.Error().Err(derr).Str("public_id", publicID).Msg("Failed to remove orphaned upload")
		}
		return nil, fmt.Errorf("save gallery item: %w", err)
	}

	metrics.IncGallery("upload", nil)
	s.logger.Info().Str("id", item.ID).Str("image", url).Msg("Gallery item uploaded")
	if s.eventBus != nil {
		if err := s.eventBus.PublishJSON(events.EventGalleryItemUploaded, events.GalleryPayload{
			ID:       item.ID,
			Image:    item.Image,
			PublicID: s.media.PublicIDFromURL(url),
		}); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to publish upload event")
		}
	}
	return item, nil
}

func (s *GalleryService) List(ctx context.Context) ([]*models.GalleryItem, error) {
	return s.repo.ListGalleryItems(ctx)
}

// Delete tombstones the item so it disappears from listings, then purges the
// media object and the record. A second call for the same id returns
// ErrNotFound.
func (s *GalleryService) Delete(ctx context.Context, id string) error {
	item, err := s.visibleItem(ctx, id)
	if err != nil {
		return err
	}

	at := s.now().UTC()
	next := s.purger.FirstAttemptAt(at)
	if err := s.repo.MarkGalleryItemDeleting(ctx, id, at, next); err != nil {
		return err
	}
	item.DeletingAt = &at
	item.NextAttemptAt = &next

	if err := s.purger.Purge(ctx, item); err != nil {
		s.logger.Warn().Err(err).Str("id", id).Msg("Media purge failed, left for reconciler")
		return fmt.Errorf("%w: %w", ErrDeletePending, err)
	}
	s.logger.Info().Str("id", id).Msg("Gallery item deleted")
	return nil
}

// DeleteComment removes the comment at index. A missing or out-of-range index
// is rejected.
func (s *GalleryService) DeleteComment(ctx context.Context, id string, index *int) error {
	if index == nil {
		return fmt.Errorf("%w: commentIndex is required", models.ErrCommentIndexOutOfRange)
	}
	return s.repo.RemoveGalleryComment(ctx, id, *index)
}

func (s *GalleryService) Like(ctx context.Context, id string) (int64, error) {
	likes, err := s.repo.IncrementGalleryLikes(ctx, id)
	metrics.IncGallery("like", err)
	return likes, err
}

func (s *GalleryService) AddComment(ctx context.Context, id string, comment string) (*models.GalleryItem, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, models.ErrEmptyComment
	}
	if err := s.repo.AppendGalleryComment(ctx, id, comment); err != nil {
		metrics.IncGallery("comment", err)
		return nil, err
	}
	metrics.IncGallery("comment", nil)
	return s.repo.GetGalleryItem(ctx, id)
}

func (s *GalleryService) visibleItem(ctx context.Context, id string) (*models.GalleryItem, error) {
	item, err := s.repo.GetGalleryItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Deleting() {
		return nil, models.ErrNotFound
	}
	return item, nil
}
