package surreal

import (
	"context"
	"fmt"
	"time"

	"github.com/OdenLounge/Oden-Lounge/internal/models"
	"github.com/google/uuid"
	surrealdb "github.com/surrealdb/surrealdb.go"
	sdbmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

type reservationDoc struct {
	ID              *sdbmodels.RecordID      `json:"id,omitempty"`
	FirstName       string                   `json:"first_name"`
	LastName        string                   `json:"last_name"`
	Email           string                   `json:"email"`
	Phone           string                   `json:"phone"`
	Guests          string                   `json:"guests"`
	Date            string                   `json:"date"`
	Time            string                   `json:"time"`
	Status          string                   `json:"status"`
	ReferenceNumber string                   `json:"reference_number"`
	CreatedAt       sdbmodels.CustomDateTime `json:"created_at"`
}

func toReservationDoc(r *models.Reservation) reservationDoc {
	return reservationDoc{
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		Email:           r.Email,
		Phone:           r.Phone,
		Guests:          r.Guests,
		Date:            r.Date,
		Time:            r.Time,
		Status:          string(r.Status),
		ReferenceNumber: r.ReferenceNumber,
		CreatedAt:       sdbmodels.CustomDateTime{Time: r.CreatedAt.UTC()},
	}
}

func (d reservationDoc) toModel() *models.Reservation {
	return &models.Reservation{
		ID:              recordKey(d.ID),
		FirstName:       d.FirstName,
		LastName:        d.LastName,
		Email:           d.Email,
		Phone:           d.Phone,
		Guests:          d.Guests,
		Date:            d.Date,
		Time:            d.Time,
		Status:          models.Status(d.Status),
		ReferenceNumber: d.ReferenceNumber,
		CreatedAt:       d.CreatedAt.Time,
	}
}

func (s *Store) CreateReservation(ctx context.Context, r *models.Reservation) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	_, err := surrealdb.Query[any](ctx, s.db, `CREATE type::thing($tb, $id) CONTENT $content`, map[string]any{
		"tb":      reservationTable,
		"id":      r.ID,
		"content": toReservationDoc(r),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrDuplicateReference
		}
		return fmt.Errorf("failed to create reservation: %w", err)
	}
	return nil
}

func (s *Store) ListReservations(ctx context.Context) ([]*models.Reservation, error) {
	docs, err := query[reservationDoc](ctx, s.db, `SELECT * FROM reservation ORDER BY created_at DESC`, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	out := make([]*models.Reservation, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

func (s *Store) GetReservationByID(ctx context.Context, id string) (*models.Reservation, error) {
	return s.getReservation(ctx, `SELECT * FROM type::thing($tb, $id)`, map[string]any{"tb": reservationTable, "id": id})
}

func (s *Store) GetReservationByReference(ctx context.Context, ref string) (*models.Reservation, error) {
	return s.getReservation(ctx, `SELECT * FROM reservation WHERE reference_number = $ref LIMIT 1`, map[string]any{"ref": ref})
}

func (s *Store) getReservation(ctx context.Context, sql string, vars map[string]any) (*models.Reservation, error) {
	docs, err := query[reservationDoc](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	if len(docs) == 0 {
		return nil, models.ErrNotFound
	}
	return docs[0].toModel(), nil
}

func (s *Store) UpdateReservationStatus(ctx context.Context, id string, status models.Status) error {
	docs, err := query[reservationDoc](ctx, s.db,
		`UPDATE type::thing($tb, $id) SET status = $status RETURN AFTER`,
		map[string]any{"tb": reservationTable, "id": id, "status": string(status)})
	if err != nil {
		return fmt.Errorf("failed to update reservation status: %w", err)
	}
	if len(docs) == 0 {
		return models.ErrNotFound
	}
	return nil
}
