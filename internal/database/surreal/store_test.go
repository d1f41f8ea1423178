package surreal

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/OdenLounge/Oden-Lounge/internal/config"
	"github.com/OdenLounge/Oden-Lounge/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdbmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// newTestStore connects to the instance named by SURREALDB_URL and skips
// otherwise. Each test gets its own database.
func newTestStore(t *testing.T) *Store {
	url := os.Getenv("SURREALDB_URL")
	if url == "" {
		t.Skip("SURREALDB_URL not set")
	}
	logger := zerolog.New(io.Discard)
	s, err := New(context.Background(), config.SurrealConfig{
		URL:       url,
		Namespace: "oden_test",
		Database:  "t_" + uuid.NewString()[:8],
		Username:  "root",
		Password:  "root",
	}, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDocConversion(t *testing.T) {
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	r := &models.Reservation{
		FirstName:       "Ann",
		Guests:          "2",
		Status:          models.StatusConfirmed,
		ReferenceNumber: "ABCDEF1234",
		CreatedAt:       created,
	}
	doc := toReservationDoc(r)
	id := sdbmodels.NewRecordID(reservationTable, "r1")
	doc.ID = &id

	back := doc.toModel()
	assert.Equal(t, "r1", back.ID)
	assert.Equal(t, models.StatusConfirmed, back.Status)
	assert.Equal(t, "ABCDEF1234", back.ReferenceNumber)
	assert.True(t, created.Equal(back.CreatedAt))

	g := galleryDoc{Image: "x"}.toModel()
	assert.NotNil(t, g.Comments)
	assert.False(t, g.Deleting())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(assert.AnError))
	assert.True(t, isUniqueViolation(errString("Database index `reservation_reference` already contains 'ABC'")))
	assert.False(t, isUniqueViolation(nil))
}

type errString string

func (e errString) Error() string { return string(e) }

func TestStore_Reservations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := &models.Reservation{FirstName: "Ann", Status: models.StatusPending, ReferenceNumber: "SURREAL001"}
	require.NoError(t, s.CreateReservation(ctx, r))

	dup := &models.Reservation{FirstName: "Bob", Status: models.StatusPending, ReferenceNumber: "SURREAL001"}
	assert.ErrorIs(t, s.CreateReservation(ctx, dup), models.ErrDuplicateReference)

	got, err := s.GetReservationByReference(ctx, "SURREAL001")
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	require.NoError(t, s.UpdateReservationStatus(ctx, r.ID, models.StatusCancelled))
	got, err = s.GetReservationByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)

	assert.ErrorIs(t, s.UpdateReservationStatus(ctx, "missing", models.StatusConfirmed), models.ErrNotFound)
}

func TestStore_Gallery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item := &models.GalleryItem{Image: "https://example.com/a.jpg"}
	require.NoError(t, s.CreateGalleryItem(ctx, item))
	require.NoError(t, s.AppendGalleryComment(ctx, item.ID, "nice"))

	require.NoError(t, s.AppendGalleryComment(ctx, item.ID, "spam"))

	assert.ErrorIs(t, s.RemoveGalleryComment(ctx, item.ID, 2), models.ErrCommentIndexOutOfRange)
	require.NoError(t, s.RemoveGalleryComment(ctx, item.ID, 1))

	likes, err := s.IncrementGalleryLikes(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), likes)

	now := time.Now().UTC()
	require.NoError(t, s.MarkGalleryItemDeleting(ctx, item.ID, now, now))
	assert.ErrorIs(t, s.RemoveGalleryComment(ctx, item.ID, 0), models.ErrNotFound)
	list, err := s.ListGalleryItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	pending, err := s.ListPendingGalleryDeletes(ctx, now.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, []string{"nice"}, pending[0].Comments)

	require.NoError(t, s.DeleteGalleryItem(ctx, item.ID))
	_, err = s.GetGalleryItem(ctx, item.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
