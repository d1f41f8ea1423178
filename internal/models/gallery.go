package models

import "time"

// GalleryItem is the metadata record of a photo stored on the media host.
type GalleryItem struct {
	ID        string    `json:"_id"`
	Image     string    `json:"image"`
	Likes     int64     `json:"likes"`
	Comments  []string  `json:"comments"`
	CreatedAt time.Time `json:"createdAt"`

	// Deletion bookkeeping. A non-nil DeletingAt marks a tombstone: the item
	// is hidden from listings until the media object and record are removed.
	DeletingAt     *time.Time `json:"deletingAt,omitempty"`
	DeleteAttempts int        `json:"deleteAttempts,omitempty"`
	NextAttemptAt  *time.Time `json:"nextAttemptAt,omitempty"`
	LastError      string     `json:"lastError,omitempty"`
}

// Deleting reports whether the item is tombstoned.
func (g *GalleryItem) Deleting() bool {
	return g.DeletingAt != nil
}
