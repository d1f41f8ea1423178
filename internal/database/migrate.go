package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/OdenLounge/Oden-Lounge/internal/domain"
	"github.com/OdenLounge/Oden-Lounge/internal/models"
)

type CopyStats struct {
	Reservations        int
	ReservationsSkipped int
	GalleryItems        int
	GalleryItemsSkipped int
}

// CopyStore copies every reservation and every visible gallery item from src
// into dst, keeping ids and reference numbers. Records already present in dst
// are skipped, so the copy can be re-run. Tombstoned gallery items are left
// for the source's reconciler.
func CopyStore(ctx context.Context, src, dst domain.Store) (CopyStats, error) {
	var stats CopyStats

	reservations, err := src.ListReservations(ctx)
	if err != nil {
		return stats, fmt.Errorf("list source reservations: %w", err)
	}
	for _, r := range reservations {
		if _, err := dst.GetReservationByID(ctx, r.ID); err == nil {
			stats.ReservationsSkipped++
			continue
		} else if !errors.Is(err, models.ErrNotFound) {
			return stats, fmt.Errorf("check reservation %s: %w", r.ID, err)
		}

		if err := dst.CreateReservation(ctx, r); err != nil {
			if errors.Is(err, models.ErrDuplicateReference) {
				stats.ReservationsSkipped++
				continue
			}
			return stats, fmt.Errorf("copy reservation %s: %w", r.ReferenceNumber, err)
		}
		stats.Reservations++
	}

	items, err := src.ListGalleryItems(ctx)
	if err != nil {
		return stats, fmt.Errorf("list source gallery items: %w", err)
	}
	for _, item := range items {
		if _, err := dst.GetGalleryItem(ctx, item.ID); err == nil {
			stats.GalleryItemsSkipped++
			continue
		} else if !errors.Is(err, models.ErrNotFound) {
			return stats, fmt.Errorf("check gallery item %s: %w", item.ID, err)
		}

		if err := dst.CreateGalleryItem(ctx, item); err != nil {
			return stats, fmt.Errorf("copy gallery item %s: %w", item.ID, err)
		}
		stats.GalleryItems++
	}

	return stats, nil
}
