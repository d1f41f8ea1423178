package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OdenLounge/Oden-Lounge/internal/domain"
	"github.com/OdenLounge/Oden-Lounge/internal/events"
	"github.com/OdenLounge/Oden-Lounge/internal/metrics"
	"github.com/OdenLounge/Oden-Lounge/internal/models"

	"github.com/rs/zerolog"
)

// MediaReconciler finishes gallery deletions. An item is tombstoned first;
// Purge then destroys the remote image and drops the record. When the media
// host fails, the tombstone keeps the attempt count and the next attempt time
// and the background loop retries it.
type MediaReconciler struct {
	repo      domain.GalleryRepository
	media     domain.MediaHost
	events    domain.EventPublisher
	policy    RetryPolicy
	interval  time.Duration
	batchSize int
	now       func() time.Time
	logger    *zerolog.Logger
}

func NewMediaReconciler(
	repo domain.GalleryRepository,
	media domain.MediaHost,
	eventBus domain.EventPublisher,
	policy RetryPolicy,
	interval time.Duration,
	batchSize int,
	logger *zerolog.Logger,
) *MediaReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if batchSize <= 0 {
		batchSize = 20
	}
	return &MediaReconciler{
		repo:      repo,
		media:     media,
		events:    eventBus,
		policy:    policy,
		interval:  interval,
		batchSize: batchSize,
		now:       time.Now,
		logger:    logger,
	}
}

// Purge destroys the remote object of a tombstoned item and hard-deletes it.
// On a media host failure the failure is recorded and the error returned.
func (r *MediaReconciler) Purge(ctx context.Context, item *models.GalleryItem) error {
	publicID := r.media.PublicIDFromURL(item.Image)

	if err := r.media.Destroy(ctx, publicID); err != nil {
		r.recordFailure(ctx, item, err)
		metrics.IncGallery("delete", err)
		return fmt.Errorf("destroy media %s: %w", publicID, err)
	}

	if err := r.repo.DeleteGalleryItem(ctx, item.ID); err != nil && !errors.Is(err, models.ErrNotFound) {
		// media is gone; the tombstone is retried and Destroy will report not found
		r.recordFailure(ctx, item, err)
		metrics.IncGallery("delete", err)
		return fmt.Errorf("delete gallery record: %w", err)
	}

	metrics.IncGallery("delete", nil)
	if r.events != nil {
		_ = r.events.PublishJSON(events.EventGalleryItemDeleted, events.GalleryPayload{
			ID:       item.ID,
			Image:    item.Image,
			PublicID: publicID,
		})
	}
	r.logger.Info().Str("id", item.ID).Str("public_id", publicID).Msg("Gallery item deleted")
	return nil
}

// FirstAttemptAt keeps a fresh tombstone out of RunOnce while the request
// that created it is still purging.
func (r *MediaReconciler) FirstAttemptAt(at time.Time) time.Time {
	return at.Add(r.policy.NextDelay(1))
}

func (r *MediaReconciler) recordFailure(ctx context.Context, item *models.GalleryItem, cause error) {
	attempt := item.DeleteAttempts + 1
	next := r.now().Add(r.policy.NextDelay(attempt))

	if err := r.repo.RecordGalleryDeleteFailure(ctx, item.ID, attempt, next, cause.Error()); err != nil {
		r.logger.Error().Err(err).Str("id", item.ID).Msg("Could not record delete failure")
		return
	}
	item.DeleteAttempts = attempt
	item.NextAttemptAt = &next
	item.LastError = cause.Error()

	if r.policy.Exhausted(attempt) {
		r.logger.Error().Err(cause).Str("id", item.ID).Str("image", item.Image).Int("attempts", attempt).
			Msg("Gallery media could not be destroyed, manual cleanup required")
		return
	}
	r.logger.Warn().Err(cause).Str("id", item.ID).Int("attempt", attempt).Time("next_attempt", next).Msg("Gallery delete deferred")
}

// RunOnce retries every due tombstone and returns how many were purged.
func (r *MediaReconciler) RunOnce(ctx context.Context) (int, error) {
	items, err := r.repo.ListPendingGalleryDeletes(ctx, r.now())
	if err != nil {
		return 0, fmt.Errorf("list pending deletes: %w", err)
	}

	due := 0
	purged := 0
	for _, item := range items {
		if r.policy.Exhausted(item.DeleteAttempts) {
			continue
		}
		due++
		if due > r.batchSize {
			break
		}
		if err := r.Purge(ctx, item); err == nil {
			purged++
		}
	}

	metrics.SetPendingMediaDeletes(len(items) - purged)
	return purged, nil
}

// Start runs RunOnce every interval until ctx is done.
func (r *MediaReconciler) Start(ctx context.Context) {
	r.logger.Info().Dur("interval", r.interval).Msg("Media reconciler started")
	defer r.logger.Info().Msg("Media reconciler stopped")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if n, err := r.RunOnce(ctx); err != nil {
			r.logger.Error().Err(err).Msg("Reconcile pass failed")
		} else if n > 0 {
			r.logger.Info().Int("purged", n).Msg("Reconcile pass finished")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
