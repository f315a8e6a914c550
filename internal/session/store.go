// Package session persists staged editing sessions between CLI
// invocations. The persisted form is local draft storage only; the
// server never sees it and a commit or discard destroys it.
package session

import (
	"errors"

	"github.com/TheMichaelB/schoolctl/internal/staging"
)

// Store manages staged-session persistence, keyed by record ID.
type Store interface {
	// Load retrieves the staged session for a record.
	Load(recordID string) (*staging.Memento, error)

	// Save persists the staged session for a record.
	Save(recordID string, m *staging.Memento) error

	// Delete removes the staged session for a record.
	Delete(recordID string) error

	// List returns record IDs with a staged session.
	List() ([]string, error)

	// Close releases resources.
	Close() error
}

// Errors
var (
	ErrSessionNotFound = errors.New("staged session not found")
	ErrSessionCorrupt  = errors.New("staged session is corrupt")
)

// CurrentSchemaVersion for stored sessions.
const CurrentSchemaVersion = 1
