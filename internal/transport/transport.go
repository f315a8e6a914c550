package transport

import (
	"context"

	"github.com/TheMichaelB/schoolctl/internal/config"
	"github.com/TheMichaelB/schoolctl/internal/events"
	"github.com/TheMichaelB/schoolctl/internal/models"
	"github.com/TheMichaelB/schoolctl/internal/payload"
)

// Transport is the engine's view of the persistence API: it accepts a
// diff payload and returns a canonical snapshot or an error. Nothing
// else about the server is assumed.
type Transport interface {
	// FetchRecord retrieves the canonical attachment snapshot for a
	// parent record.
	FetchRecord(ctx context.Context, recordID string) (*models.RecordSnapshot, error)

	// SubmitAttachments posts a multipart diff payload. On success the
	// server returns the new canonical snapshot with fresh identity
	// keys for everything that changed.
	SubmitAttachments(ctx context.Context, recordID string, p *payload.Payload) (*models.RecordSnapshot, error)

	// Authentication
	SetToken(token string)
	GetToken() string

	// Lifecycle
	Close() error
}

// New creates the default HTTP transport.
func New(cfg *config.APIConfig, logger *events.Logger) Transport {
	return NewHTTPClient(cfg, logger)
}
