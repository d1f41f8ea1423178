package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/OdenLounge/Oden-Lounge/internal/config"
	"github.com/OdenLounge/Oden-Lounge/internal/database"
	"github.com/OdenLounge/Oden-Lounge/internal/database/surreal"

	"github.com/rs/zerolog"
)

// Copies an embedded SQLite store into the SurrealDB configured in
// config.yaml. Safe to re-run.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		configPath = flag.String("config", "configs/config.yaml", "path to config.yaml")
		dbPath     = flag.String("db", "./data/oden.db", "path to sqlite db")
		timeout    = flag.Duration("timeout", 5*time.Minute, "overall timeout")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	src, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer src.Close()

	dst, err := surreal.New(ctx, cfg.Database.Surreal, &logger)
	if err != nil {
		return fmt.Errorf("open surrealdb: %w", err)
	}
	defer dst.Close()

	stats, err := database.CopyStore(ctx, src, dst)
	if err != nil {
		return err
	}

	logger.Info().
		Int("reservations", stats.Reservations).
		Int("reservations_skipped", stats.ReservationsSkipped).
		Int("gallery_items", stats.GalleryItems).
		Int("gallery_items_skipped", stats.GalleryItemsSkipped).
		Msg("Store copy finished")
	return nil
}
