// Package records is a thin pass-through over the persistence API's
// record snapshot endpoint. Generic record CRUD lives server-side; this
// client only needs the canonical attachment snapshot.
package records

import (
	"context"
	"fmt"

	"github.com/TheMichaelB/schoolctl/internal/events"
	"github.com/TheMichaelB/schoolctl/internal/models"
	"github.com/TheMichaelB/schoolctl/internal/transport"
)

// Service fetches parent-record attachment snapshots.
type Service struct {
	transport transport.Transport
	logger    *events.Logger

	// Cache of the last snapshot seen per record.
	snapshots map[string]*models.RecordSnapshot
}

// NewService creates a records service.
func NewService(transport transport.Transport, logger *events.Logger) *Service {
	return &Service{
		transport: transport,
		logger:    logger.WithField("service", "records"),
		snapshots: make(map[string]*models.RecordSnapshot),
	}
}

// Get returns the attachment snapshot for a record, fetching it if not
// cached.
func (s *Service) Get(ctx context.Context, recordID string) (*models.RecordSnapshot, error) {
	if snap, ok := s.snapshots[recordID]; ok {
		return snap, nil
	}
	return s.Refresh(ctx, recordID)
}

// Refresh fetches the snapshot unconditionally and updates the cache.
func (s *Service) Refresh(ctx context.Context, recordID string) (*models.RecordSnapshot, error) {
	s.logger.WithField("record_id", recordID).Debug("Fetching record snapshot")

	snap, err := s.transport.FetchRecord(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("fetch record %s: %w", recordID, err)
	}

	s.snapshots[recordID] = snap

	s.logger.WithFields(map[string]interface{}{
		"record_id": recordID,
		"slots":     len(snap.Slots),
		"items":     len(snap.Collection),
	}).Info("Fetched record snapshot")

	return snap, nil
}

// ClearCache drops cached snapshots.
func (s *Service) ClearCache() {
	s.snapshots = make(map[string]*models.RecordSnapshot)
}
