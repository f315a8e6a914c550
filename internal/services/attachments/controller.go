// Package attachments orchestrates the staged attachment lifecycle for
// one parent record: stage edits in memory, then validate, compile,
// serialize, submit, and reconcile on an explicit commit.
package attachments

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/TheMichaelB/schoolctl/internal/diff"
	"github.com/TheMichaelB/schoolctl/internal/events"
	"github.com/TheMichaelB/schoolctl/internal/models"
	"github.com/TheMichaelB/schoolctl/internal/payload"
	"github.com/TheMichaelB/schoolctl/internal/session"
	"github.com/TheMichaelB/schoolctl/internal/staging"
	"github.com/TheMichaelB/schoolctl/internal/transport"
)

// Phase is the controller's commit state.
type Phase int

const (
	// PhaseClean means the store matches its baseline.
	PhaseClean Phase = iota

	// PhaseDirty means staged edits await commit.
	PhaseDirty

	// PhaseCommitting means a submit is outstanding; the store is
	// frozen and every mutating operation is rejected.
	PhaseCommitting
)

func (p Phase) String() string {
	switch p {
	case PhaseDirty:
		return "dirty"
	case PhaseCommitting:
		return "committing"
	default:
		return "clean"
	}
}

// Controller owns the staging store for one record and runs the
// commit pipeline. At most one commit may be in flight; a second
// attempt is rejected, not queued.
type Controller struct {
	transport transport.Transport
	sessions  session.Store
	logger    *events.Logger

	mu         sync.Mutex
	store      *staging.Store
	committing bool
}

// Open starts or resumes an editing session for a record. A persisted
// staged session takes precedence over a fresh server snapshot.
func Open(ctx context.Context, recordID string, tr transport.Transport, sessions session.Store, logger *events.Logger) (*Controller, error) {
	logger = logger.WithField("service", "attachments")

	c := &Controller{
		transport: tr,
		sessions:  sessions,
		logger:    logger,
	}

	m, err := sessions.Load(recordID)
	switch {
	case err == nil:
		store, err := staging.Restore(m)
		if err != nil {
			return nil, fmt.Errorf("restore staged session: %w", err)
		}
		c.store = store
		logger.WithField("record_id", recordID).Info("Resumed staged session")
		return c, nil

	case errors.Is(err, session.ErrSessionNotFound):
		snap, err := tr.FetchRecord(ctx, recordID)
		if err != nil {
			return nil, fmt.Errorf("fetch record %s: %w", recordID, err)
		}
		c.store = staging.New(snap)
		return c, nil

	default:
		return nil, fmt.Errorf("load staged session: %w", err)
	}
}

// Store exposes the staging store for read access.
func (c *Controller) Store() *staging.Store {
	return c.store
}

// Phase returns the current commit state.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.committing {
		return PhaseCommitting
	}
	if c.store.IsDirty() {
		return PhaseDirty
	}
	return PhaseClean
}

// Slot operations. Each persists the session after a successful
// transition so edits survive across CLI invocations.

// StageSlotUpload stages a file into a slot, marking an unchanged
// existing file for replacement first when needed.
func (c *Controller) StageSlotUpload(name string, file *models.FileBlob) error {
	return c.mutate(func() error {
		slot, err := c.store.Slot(name)
		if err != nil {
			return err
		}
		if slot.Phase() == staging.SlotUnchanged {
			if err := c.store.MarkSlotForReplacement(name); err != nil {
				return err
			}
		}
		return c.store.AttachSlotFile(name, file)
	})
}

// RemoveSlot marks a slot's existing file for removal.
func (c *Controller) RemoveSlot(name string) error {
	return c.mutate(func() error { return c.store.MarkSlotForRemoval(name) })
}

// RestoreSlot reverts a slot's removal or replacement mark.
func (c *Controller) RestoreSlot(name string) error {
	return c.mutate(func() error { return c.store.CancelSlotEdits(name) })
}

// DetachSlotFile drops a slot's staged upload.
func (c *Controller) DetachSlotFile(name string) error {
	return c.mutate(func() error { return c.store.DetachSlotFile(name) })
}

// Collection operations.

// AddItem stages a new collection item.
func (c *Controller) AddItem(file *models.FileBlob, meta models.ItemMetadata) (*staging.Item, error) {
	var item *staging.Item
	err := c.mutate(func() error {
		var err error
		item, err = c.store.AddItem(file, meta)
		return err
	})
	return item, err
}

// RemoveItem removes an item by the rule matching its origin: existing
// items are marked for removal, session-local items are deleted
// outright and leave no trace in the diff.
func (c *Controller) RemoveItem(itemID string) error {
	return c.mutate(func() error {
		item, ok := c.store.FindItem(itemID)
		if !ok {
			return models.ErrItemNotFound
		}
		if item.Origin == staging.OriginNew {
			return c.store.RemoveNewItem(itemID)
		}
		return c.store.MarkItemRemoved(itemID)
	})
}

// RestoreItem reverses an existing item's removal mark.
func (c *Controller) RestoreItem(itemID string) error {
	return c.mutate(func() error { return c.store.RestoreItem(itemID) })
}

// ReplaceItem supersedes an existing item with a new file.
func (c *Controller) ReplaceItem(itemID string, file *models.FileBlob) (*staging.Item, error) {
	var item *staging.Item
	err := c.mutate(func() error {
		var err error
		item, err = c.store.ReplaceItem(itemID, file)
		return err
	})
	return item, err
}

// UpdateItemMetadata merges year/description edits into an item.
func (c *Controller) UpdateItemMetadata(itemID string, meta models.ItemMetadata) error {
	return c.mutate(func() error { return c.store.UpdateItemMetadata(itemID, meta) })
}

// PreviewDiff compiles the current staged state without submitting.
func (c *Controller) PreviewDiff() *diff.Diff {
	return diff.Compile(c.store)
}

// Commit validates, compiles, serializes, and submits the staged diff,
// then reinitializes the store from the server's canonical snapshot.
// On any failure the staged state is preserved untouched, so retry
// without data loss is always possible. A clean store commits as a
// no-op without any network call.
func (c *Controller) Commit(ctx context.Context) error {
	c.mu.Lock()
	if c.committing {
		c.mu.Unlock()
		return models.ErrCommitInFlight
	}
	if !c.store.IsDirty() {
		c.mu.Unlock()
		c.logger.Debug("Nothing staged; commit is a no-op")
		return nil
	}
	if violations := c.store.Validate(); len(violations) > 0 {
		c.mu.Unlock()
		return &models.ValidationError{Violations: violations}
	}

	c.committing = true
	c.store.Freeze()
	c.mu.Unlock()

	recordID := c.store.RecordID()
	d := diff.Compile(c.store)
	p, err := payload.Serialize(d)
	if err != nil {
		c.finish(false, nil)
		return fmt.Errorf("serialize diff: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"record_id":  recordID,
		"slot_ops":   len(d.Slots),
		"collection": d.Collection != nil,
	}).Info("Submitting attachment diff")

	snap, err := c.transport.SubmitAttachments(ctx, recordID, p)
	if err != nil {
		// Server/network failures are opaque here; the staged edits
		// are retained verbatim.
		c.finish(false, nil)
		return err
	}

	c.finish(true, snap)

	if err := c.sessions.Delete(recordID); err != nil {
		c.logger.WithError(err).Warn("Failed to drop persisted session after commit")
	}

	c.logger.WithField("record_id", recordID).Info("Commit reconciled")
	return nil
}

// Discard drops every staged edit and the persisted session.
func (c *Controller) Discard() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.committing {
		return models.ErrCommitInFlight
	}
	if err := c.store.DiscardAll(); err != nil {
		return err
	}
	if err := c.sessions.Delete(c.store.RecordID()); err != nil {
		return fmt.Errorf("drop persisted session: %w", err)
	}
	return nil
}

// mutate runs a staged transition and persists the session on success.
func (c *Controller) mutate(op func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.committing {
		return models.ErrStoreFrozen
	}
	if err := op(); err != nil {
		return err
	}
	if err := c.sessions.Save(c.store.RecordID(), c.store.Memento()); err != nil {
		return fmt.Errorf("persist staged session: %w", err)
	}
	return nil
}

// finish closes the commit window, reconciling on success.
func (c *Controller) finish(ok bool, snap *models.RecordSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.committing = false
	if ok {
		c.store.Reset(snap)
	} else {
		c.store.Unfreeze()
	}
}
