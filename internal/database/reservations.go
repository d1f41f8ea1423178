package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/OdenLounge/Oden-Lounge/internal/models"
	"github.com/google/uuid"
)

const reservationColumns = `id, reference_number, first_name, last_name, email, phone, guests, date, time, status, created_at`

func (db *DB) CreateReservation(ctx context.Context, r *models.Reservation) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO reservations (` + reservationColumns + `)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		r.ID,
		r.ReferenceNumber,
		r.FirstName,
		r.LastName,
		r.Email,
		r.Phone,
		r.Guests,
		r.Date,
		r.Time,
		string(r.Status),
		r.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrDuplicateReference
		}
		return fmt.Errorf("failed to create reservation: %w", err)
	}
	return nil
}

func (db *DB) ListReservations(ctx context.Context) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations ORDER BY created_at DESC`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	reservations := make([]*models.Reservation, 0)
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, r)
	}
	return reservations, rows.Err()
}

func (db *DB) GetReservationByID(ctx context.Context, id string) (*models.Reservation, error) {
	row := db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	return scanReservationRow(row)
}

func (db *DB) GetReservationByReference(ctx context.Context, ref string) (*models.Reservation, error) {
	row := db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE reference_number = ?`, ref)
	return scanReservationRow(row)
}

// UpdateReservationStatus touches the status column only.
func (db *DB) UpdateReservationStatus(ctx context.Context, id string, status models.Status) error {
	res, err := db.ExecContext(ctx, `UPDATE reservations SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update reservation status: %w", err)
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

type scanner interface {
	Scan(dest ...any) error
}

func scanReservation(s scanner) (*models.Reservation, error) {
	var (
		r      models.Reservation
		status string
	)
	err := s.Scan(
		&r.ID,
		&r.ReferenceNumber,
		&r.FirstName,
		&r.LastName,
		&r.Email,
		&r.Phone,
		&r.Guests,
		&r.Date,
		&r.Time,
		&status,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Status = models.Status(status)
	return &r, nil
}

func scanReservationRow(row *sql.Row) (*models.Reservation, error) {
	r, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return r, nil
}
