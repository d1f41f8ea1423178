package surreal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OdenLounge/Oden-Lounge/internal/models"
	"github.com/google/uuid"
	surrealdb "github.com/surrealdb/surrealdb.go"
	sdbmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

type galleryDoc struct {
	ID             *sdbmodels.RecordID       `json:"id,omitempty"`
	Image          string                    `json:"image"`
	Likes          int64                     `json:"likes"`
	Comments       []string                  `json:"comments"`
	CreatedAt      sdbmodels.CustomDateTime  `json:"created_at"`
	DeletingAt     *sdbmodels.CustomDateTime `json:"deleting_at,omitempty"`
	DeleteAttempts int                       `json:"delete_attempts"`
	NextAttemptAt  *sdbmodels.CustomDateTime `json:"next_attempt_at,omitempty"`
	LastError      string                    `json:"last_error"`
}

func (d galleryDoc) toModel() *models.GalleryItem {
	item := &models.GalleryItem{
		ID:             recordKey(d.ID),
		Image:          d.Image,
		Likes:          d.Likes,
		Comments:       d.Comments,
		CreatedAt:      d.CreatedAt.Time,
		DeleteAttempts: d.DeleteAttempts,
		LastError:      d.LastError,
	}
	if item.Comments == nil {
		item.Comments = []string{}
	}
	if d.DeletingAt != nil {
		t := d.DeletingAt.Time
		item.DeletingAt = &t
	}
	if d.NextAttemptAt != nil {
		t := d.NextAttemptAt.Time
		item.NextAttemptAt = &t
	}
	return item
}

func (s *Store) galleryVars(id string, extra map[string]any) map[string]any {
	vars := map[string]any{"tb": galleryTable, "id": id}
	for k, v := range extra {
		vars[k] = v
	}
	return vars
}

func (s *Store) CreateGalleryItem(ctx context.Context, item *models.GalleryItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if item.Comments == nil {
		item.Comments = []string{}
	}

	_, err := surrealdb.Query[any](ctx, s.db, `CREATE type::thing($tb, $id) CONTENT $content`, s.galleryVars(item.ID, map[string]any{
		"content": galleryDoc{
			Image:     item.Image,
			Likes:     item.Likes,
			Comments:  item.Comments,
			CreatedAt: sdbmodels.CustomDateTime{Time: item.CreatedAt.UTC()},
		},
	}))
	if err != nil {
		return fmt.Errorf("failed to create gallery item: %w", err)
	}
	return nil
}

func (s *Store) GetGalleryItem(ctx context.Context, id string) (*models.GalleryItem, error) {
	docs, err := query[galleryDoc](ctx, s.db, `SELECT * FROM type::thing($tb, $id)`, s.galleryVars(id, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to get gallery item: %w", err)
	}
	if len(docs) == 0 {
		return nil, models.ErrNotFound
	}
	return docs[0].toModel(), nil
}

func (s *Store) ListGalleryItems(ctx context.Context) ([]*models.GalleryItem, error) {
	return s.listGallery(ctx, `SELECT * FROM gallery_item WHERE deleting_at IS NONE ORDER BY created_at DESC`, nil)
}

func (s *Store) ListPendingGalleryDeletes(ctx context.Context, now time.Time) ([]*models.GalleryItem, error) {
	return s.listGallery(ctx,
		`SELECT * FROM gallery_item WHERE deleting_at IS NOT NONE AND (next_attempt_at IS NONE OR next_attempt_at <= $now) ORDER BY deleting_at`,
		map[string]any{"now": sdbmodels.CustomDateTime{Time: now.UTC()}})
}

func (s *Store) listGallery(ctx context.Context, sql string, vars map[string]any) ([]*models.GalleryItem, error) {
	docs, err := query[galleryDoc](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list gallery items: %w", err)
	}
	out := make([]*models.GalleryItem, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

func (s *Store) RemoveGalleryComment(ctx context.Context, id string, index int) error {
	if index < 0 {
		return models.ErrCommentIndexOutOfRange
	}
	err := s.updateGallery(ctx,
		`UPDATE type::thing($tb, $id) SET comments = array::remove(comments, $idx)
         WHERE deleting_at IS NONE AND array::len(comments) > $idx RETURN AFTER`,
		s.galleryVars(id, map[string]any{"idx": index}))
	if !errors.Is(err, models.ErrNotFound) {
		return err
	}

	item, gerr := s.GetGalleryItem(ctx, id)
	if gerr != nil {
		return gerr
	}
	if item.Deleting() {
		return models.ErrNotFound
	}
	return models.ErrCommentIndexOutOfRange
}

func (s *Store) AppendGalleryComment(ctx context.Context, id string, comment string) error {
	return s.updateGallery(ctx,
		`UPDATE type::thing($tb, $id) SET comments += $comment WHERE deleting_at IS NONE RETURN AFTER`,
		s.galleryVars(id, map[string]any{"comment": comment}))
}

func (s *Store) IncrementGalleryLikes(ctx context.Context, id string) (int64, error) {
	docs, err := query[galleryDoc](ctx, s.db,
		`UPDATE type::thing($tb, $id) SET likes += 1 WHERE deleting_at IS NONE RETURN AFTER`, s.galleryVars(id, nil))
	if err != nil {
		return 0, fmt.Errorf("failed to increment likes: %w", err)
	}
	if len(docs) == 0 {
		return 0, models.ErrNotFound
	}
	return docs[0].Likes, nil
}

func (s *Store) MarkGalleryItemDeleting(ctx context.Context, id string, at, next time.Time) error {
	return s.updateGallery(ctx,
		`UPDATE type::thing($tb, $id) SET deleting_at = $at, next_attempt_at = $next WHERE deleting_at IS NONE RETURN AFTER`,
		s.galleryVars(id, map[string]any{
			"at":   sdbmodels.CustomDateTime{Time: at.UTC()},
			"next": sdbmodels.CustomDateTime{Time: next.UTC()},
		}))
}

func (s *Store) RecordGalleryDeleteFailure(ctx context.Context, id string, attempts int, next time.Time, lastErr string) error {
	return s.updateGallery(ctx,
		`UPDATE type::thing($tb, $id) SET delete_attempts = $attempts, next_attempt_at = $next, last_error = $err RETURN AFTER`,
		s.galleryVars(id, map[string]any{
			"attempts": attempts,
			"next":     sdbmodels.CustomDateTime{Time: next.UTC()},
			"err":      lastErr,
		}))
}

func (s *Store) DeleteGalleryItem(ctx context.Context, id string) error {
	return s.updateGallery(ctx, `DELETE type::thing($tb, $id) RETURN BEFORE`, s.galleryVars(id, nil))
}

func (s *Store) updateGallery(ctx context.Context, sql string, vars map[string]any) error {
	docs, err := query[galleryDoc](ctx, s.db, sql, vars)
	if err != nil {
		return fmt.Errorf("failed to update gallery item: %w", err)
	}
	if len(docs) == 0 {
		return models.ErrNotFound
	}
	return nil
}
