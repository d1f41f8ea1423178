package models

import "strings"

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus normalizes operator input to the canonical lower-case enum.
// "Confirmed", "CANCELLED" and the US spelling "canceled" are all accepted.
func ParseStatus(raw string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending":
		return StatusPending, nil
	case "confirmed":
		return StatusConfirmed, nil
	case "cancelled", "canceled":
		return StatusCancelled, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Label is the capitalized form used in emails and exports.
func (s Status) Label() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

const (
	// ReferenceLength is the number of base-36 characters in a reference number.
	ReferenceLength = 10

	// MaxReferenceAttempts bounds regeneration after a uniqueness conflict.
	MaxReferenceAttempts = 5

	// MaxUploadBytes matches the limit the web client was built against.
	MaxUploadBytes = 5 << 20
)
