package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/OdenLounge/Oden-Lounge/internal/config"
	"github.com/rs/zerolog"
)

// Snapshotter takes periodic online copies of the SQLite store. It is only
// started when the sqlite driver is selected.
type Snapshotter struct {
	db     *DB
	config config.BackupConfig
	logger *zerolog.Logger
}

func NewSnapshotter(db *DB, cfg config.BackupConfig, logger *zerolog.Logger) *Snapshotter {
	return &Snapshotter{db: db, config: cfg, logger: logger}
}

func (s *Snapshotter) Start(ctx context.Context) {
	if !s.config.Enabled {
		s.logger.Info().Msg("Database snapshots disabled")
		return
	}

	interval := s.config.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	s.logger.Info().Dur("interval", interval).Str("dir", s.config.Dir).Msg("Database snapshots started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Snapshot(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Snapshot failed")
				continue
			}
			s.Prune(time.Now())
		}
	}
}

// Snapshot writes a consistent copy of the database with VACUUM INTO and
// returns its path.
func (s *Snapshotter) Snapshot(ctx context.Context) (string, error) {
	if err := os.MkdirAll(s.config.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	name := fmt.Sprintf("oden_%s.db", time.Now().UTC().Format("20060102_150405.000"))
	path := filepath.Join(s.config.Dir, name)

	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return "", fmt.Errorf("vacuum into %s: %w", path, err)
	}

	s.logger.Info().Str("path", path).Msg("Snapshot written")
	return path, nil
}

// Prune removes snapshots older than the retention window.
func (s *Snapshotter) Prune(now time.Time) int {
	if s.config.RetentionDays <= 0 {
		return 0
	}

	entries, err := os.ReadDir(s.config.Dir)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read snapshot directory")
		return 0
	}

	cutoff := now.AddDate(0, 0, -s.config.RetentionDays)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "oden_") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.config.Dir, entry.Name())); err != nil {
			s.logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to remove old snapshot")
			continue
		}
		removed++
	}
	return removed
}
