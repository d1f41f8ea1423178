// Package surreal stores reservations and gallery items in SurrealDB.
package surreal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/OdenLounge/Oden-Lounge/internal/config"
	"github.com/rs/zerolog"
	surrealdb "github.com/surrealdb/surrealdb.go"
	sdbmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

const (
	reservationTable = "reservation"
	galleryTable     = "gallery_item"
)

type Store struct {
	db     *surrealdb.DB
	logger *zerolog.Logger
}

func New(ctx context.Context, cfg config.SurrealConfig, logger *zerolog.Logger) (*Store, error) {
	db, err := surrealdb.FromEndpointURLString(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to surrealdb: %w", err)
	}

	if cfg.Username != "" {
		if _, err := db.SignIn(ctx, surrealdb.Auth{Username: cfg.Username, Password: cfg.Password}); err != nil {
			_ = db.Close(ctx)
			return nil, fmt.Errorf("surrealdb signin: %w", err)
		}
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("surrealdb use %s/%s: %w", cfg.Namespace, cfg.Database, err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close(ctx)
		return nil, err
	}

	logger.Info().Str("url", cfg.URL).Str("ns", cfg.Namespace).Str("db", cfg.Database).Msg("SurrealDB store ready")
	return s, nil
}

// Migrate defines the tables and the unique reference index. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		`DEFINE TABLE IF NOT EXISTS reservation SCHEMALESS`,
		`DEFINE INDEX IF NOT EXISTS reservation_reference ON TABLE reservation FIELDS reference_number UNIQUE`,
		`DEFINE TABLE IF NOT EXISTS gallery_item SCHEMALESS`,
	}
	for _, stmt := range statements {
		if _, err := surrealdb.Query[any](ctx, s.db, stmt, nil); err != nil {
			return fmt.Errorf("migrate %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := surrealdb.Query[any](ctx, s.db, `RETURN true`, nil)
	return err
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.db.Close(ctx)
}

// query runs a single statement and returns the rows of its result.
func query[T any](ctx context.Context, db *surrealdb.DB, sql string, vars map[string]any) ([]T, error) {
	res, err := surrealdb.Query[[]T](ctx, db, sql, vars)
	if err != nil {
		return nil, err
	}
	if res == nil || len(*res) == 0 {
		return nil, nil
	}
	return (*res)[0].Result, nil
}

func recordKey(id *sdbmodels.RecordID) string {
	if id == nil {
		return ""
	}
	return fmt.Sprint(id.ID)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "already contains")
}
