package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/OdenLounge/Oden-Lounge/internal/models"
	"github.com/google/uuid"
)

const galleryColumns = `id, image, likes, comments, created_at, deleting_at, delete_attempts, next_attempt_at, last_error`

func (db *DB) CreateGalleryItem(ctx context.Context, item *models.GalleryItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if item.Comments == nil {
		item.Comments = []string{}
	}

	comments, err := json.Marshal(item.Comments)
	if err != nil {
		return fmt.Errorf("failed to encode comments: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO gallery_items (id, image, likes, comments, created_at) VALUES (?, ?, ?, ?, ?)`,
		item.ID, item.Image, item.Likes, string(comments), item.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create gallery item: %w", err)
	}
	return nil
}

// GetGalleryItem returns the item even when it is tombstoned; callers decide
// whether a deleting item counts as present.
func (db *DB) GetGalleryItem(ctx context.Context, id string) (*models.GalleryItem, error) {
	row := db.QueryRowContext(ctx, `SELECT `+galleryColumns+` FROM gallery_items WHERE id = ?`, id)
	item, err := scanGalleryItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gallery item: %w", err)
	}
	return item, nil
}

func (db *DB) ListGalleryItems(ctx context.Context) ([]*models.GalleryItem, error) {
	return db.queryGalleryItems(ctx,
		`SELECT `+galleryColumns+` FROM gallery_items WHERE deleting_at IS NULL ORDER BY created_at DESC`)
}

func (db *DB) ListPendingGalleryDeletes(ctx context.Context, now time.Time) ([]*models.GalleryItem, error) {
	return db.queryGalleryItems(ctx,
		`SELECT `+galleryColumns+` FROM gallery_items
         WHERE deleting_at IS NOT NULL AND (next_attempt_at IS NULL OR next_attempt_at <= ?)
         ORDER BY deleting_at`, now.UTC())
}

// RemoveGalleryComment drops the comment at index in a single statement so a
// concurrent append is never overwritten.
func (db *DB) RemoveGalleryComment(ctx context.Context, id string, index int) error {
	if index < 0 {
		return models.ErrCommentIndexOutOfRange
	}
	err := db.execGalleryUpdate(ctx, "remove comment",
		`UPDATE gallery_items SET comments = json_remove(comments, ?)
         WHERE id = ? AND deleting_at IS NULL AND json_array_length(comments) > ?`,
		fmt.Sprintf("$[%d]", index), id, index)
	if !errors.Is(err, models.ErrNotFound) {
		return err
	}

	item, gerr := db.GetGalleryItem(ctx, id)
	if gerr != nil {
		return gerr
	}
	if item.Deleting() {
		return models.ErrNotFound
	}
	return models.ErrCommentIndexOutOfRange
}

func (db *DB) AppendGalleryComment(ctx context.Context, id string, comment string) error {
	return db.execGalleryUpdate(ctx, "append comment",
		`UPDATE gallery_items SET comments = json_insert(comments, '$[#]', ?) WHERE id = ? AND deleting_at IS NULL`,
		comment, id)
}

func (db *DB) IncrementGalleryLikes(ctx context.Context, id string) (int64, error) {
	var likes int64
	err := db.QueryRowContext(ctx,
		`UPDATE gallery_items SET likes = likes + 1 WHERE id = ? AND deleting_at IS NULL RETURNING likes`, id,
	).Scan(&likes)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, models.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment likes: %w", err)
	}
	return likes, nil
}

// MarkGalleryItemDeleting tombstones the item; the reconciler leaves it alone
// until next.
func (db *DB) MarkGalleryItemDeleting(ctx context.Context, id string, at, next time.Time) error {
	return db.execGalleryUpdate(ctx, "mark deleting",
		`UPDATE gallery_items SET deleting_at = ?, next_attempt_at = ? WHERE id = ? AND deleting_at IS NULL`,
		at.UTC(), next.UTC(), id)
}

func (db *DB) RecordGalleryDeleteFailure(ctx context.Context, id string, attempts int, next time.Time, lastErr string) error {
	return db.execGalleryUpdate(ctx, "record delete failure",
		`UPDATE gallery_items SET delete_attempts = ?, next_attempt_at = ?, last_error = ? WHERE id = ?`,
		attempts, next.UTC(), lastErr, id)
}

func (db *DB) DeleteGalleryItem(ctx context.Context, id string) error {
	return db.execGalleryUpdate(ctx, "delete", `DELETE FROM gallery_items WHERE id = ?`, id)
}

func (db *DB) execGalleryUpdate(ctx context.Context, op, query string, args ...any) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s gallery item: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (db *DB) queryGalleryItems(ctx context.Context, query string, args ...any) ([]*models.GalleryItem, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list gallery items: %w", err)
	}
	defer rows.Close()

	items := make([]*models.GalleryItem, 0)
	for rows.Next() {
		item, err := scanGalleryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanGalleryItem(s scanner) (*models.GalleryItem, error) {
	var (
		item       models.GalleryItem
		comments   string
		deletingAt sql.NullTime
		nextAt     sql.NullTime
	)
	err := s.Scan(
		&item.ID,
		&item.Image,
		&item.Likes,
		&comments,
		&item.CreatedAt,
		&deletingAt,
		&item.DeleteAttempts,
		&nextAt,
		&item.LastError,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(comments), &item.Comments); err != nil {
		return nil, fmt.Errorf("failed to decode comments: %w", err)
	}
	if deletingAt.Valid {
		t := deletingAt.Time
		item.DeletingAt = &t
	}
	if nextAt.Valid {
		t := nextAt.Time
		item.NextAttemptAt = &t
	}
	return &item, nil
}
