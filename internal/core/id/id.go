// Package id provides identifier generation for dictionary records.
package id

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// New generates a new UUIDv7 (time-ordered UUID).
// Time-ordered ids keep offline-created records naturally sorted by creation time.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to V4 if V7 fails (should never happen)
		return uuid.New().String()
	}
	return id.String()
}

// NewOffline generates an identifier for a record created while offline.
// The "offline-" prefix marks records that have not been assigned a backend id yet.
func NewOffline(now time.Time) string {
	return fmt.Sprintf("offline-%d-%s", now.UnixMilli(), uuid.New().String()[:9])
}

// IsOffline reports whether the identifier was generated offline.
func IsOffline(id string) bool {
	return len(id) > 8 && id[:8] == "offline-"
}

// Parse validates a UUID string.
func Parse(s string) (string, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
