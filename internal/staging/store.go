package staging

import (
	"fmt"

	"github.com/TheMichaelB/schoolctl/internal/models"
)

// Store aggregates every slot and the collection for one parent
// record. It is the single source of truth for staged edits: UI or CLI
// layers request transitions here and never hold parallel state.
//
// The store is single-threaded by design. The only cross-cutting
// concern is the commit window, during which the controller freezes
// the store so the submitted diff matches exactly one snapshot.
type Store struct {
	recordID string
	slots    map[string]*Slot
	coll     *Collection
	baseline *models.RecordSnapshot
	frozen   bool
}

// New initializes a store from a server snapshot. Every known slot is
// materialized even when empty; collection items get fresh session IDs.
func New(snapshot *models.RecordSnapshot) *Store {
	s := &Store{
		recordID: snapshot.RecordID,
		slots:    make(map[string]*Slot, len(models.SlotNames)),
		coll:     newCollection(snapshot.Collection),
		baseline: snapshot.Clone(),
	}
	for _, name := range models.SlotNames {
		s.slots[name] = newSlot(name, snapshot.Slot(name))
	}
	return s
}

// RecordID returns the parent record's ID.
func (s *Store) RecordID() string { return s.recordID }

// Baseline returns the snapshot captured at load or last commit.
func (s *Store) Baseline() *models.RecordSnapshot { return s.baseline }

// Slot returns a read-only view of one slot.
func (s *Store) Slot(name string) (*Slot, error) {
	slot, ok := s.slots[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownSlot, name)
	}
	return slot, nil
}

// Slots returns every slot in canonical order.
func (s *Store) Slots() []*Slot {
	out := make([]*Slot, 0, len(models.SlotNames))
	for _, name := range models.SlotNames {
		out = append(out, s.slots[name])
	}
	return out
}

// Items returns the collection items in display order.
func (s *Store) Items() []*Item {
	return s.coll.Items()
}

// FindItem returns the collection item with the given session ID.
func (s *Store) FindItem(itemID string) (*Item, bool) {
	return s.coll.Find(itemID)
}

// Frozen reports whether the store is in its commit window.
func (s *Store) Frozen() bool { return s.frozen }

// Freeze makes the store read-only for the duration of a commit.
func (s *Store) Freeze() { s.frozen = true }

// Unfreeze restores mutability after a failed commit.
func (s *Store) Unfreeze() { s.frozen = false }

// Slot transitions. Each checks the freeze and delegates to the slot
// state machine.

func (s *Store) MarkSlotForRemoval(name string) error {
	return s.mutateSlot(name, (*Slot).MarkForRemoval)
}

func (s *Store) MarkSlotForReplacement(name string) error {
	return s.mutateSlot(name, (*Slot).MarkForReplacement)
}

func (s *Store) AttachSlotFile(name string, file *models.FileBlob) error {
	return s.mutateSlot(name, func(slot *Slot) error {
		return slot.AttachNewFile(file)
	})
}

func (s *Store) DetachSlotFile(name string) error {
	return s.mutateSlot(name, (*Slot).DetachNewFile)
}

func (s *Store) CancelSlotEdits(name string) error {
	return s.mutateSlot(name, (*Slot).CancelPendingEdits)
}

func (s *Store) mutateSlot(name string, op func(*Slot) error) error {
	if s.frozen {
		return models.ErrStoreFrozen
	}
	slot, err := s.Slot(name)
	if err != nil {
		return err
	}
	return op(slot)
}

// Collection transitions.

func (s *Store) AddItem(file *models.FileBlob, meta models.ItemMetadata) (*Item, error) {
	if s.frozen {
		return nil, models.ErrStoreFrozen
	}
	return s.coll.AddNew(file, meta), nil
}

func (s *Store) UpdateItemMetadata(itemID string, meta models.ItemMetadata) error {
	if s.frozen {
		return models.ErrStoreFrozen
	}
	return s.coll.UpdateMetadata(itemID, meta)
}

func (s *Store) MarkItemRemoved(itemID string) error {
	if s.frozen {
		return models.ErrStoreFrozen
	}
	return s.coll.MarkRemoveExisting(itemID)
}

func (s *Store) RestoreItem(itemID string) error {
	if s.frozen {
		return models.ErrStoreFrozen
	}
	return s.coll.RestoreExisting(itemID)
}

func (s *Store) ReplaceItem(itemID string, file *models.FileBlob) (*Item, error) {
	if s.frozen {
		return nil, models.ErrStoreFrozen
	}
	return s.coll.ReplaceExisting(itemID, file)
}

func (s *Store) RemoveNewItem(itemID string) error {
	if s.frozen {
		return models.ErrStoreFrozen
	}
	return s.coll.RemoveNew(itemID)
}

// IsDirty reports whether any slot or collection item differs from the
// baseline. Metadata-only edits to existing items count.
func (s *Store) IsDirty() bool {
	for _, slot := range s.slots {
		if slot.Staged() {
			return true
		}
	}
	for _, it := range s.coll.Items() {
		switch it.Origin {
		case OriginNew:
			return true
		case OriginExisting:
			if it.Status != StatusActive {
				return true
			}
			entry, ok := s.baseline.Entry(it.Ref.IdentityKey)
			if !ok || entry.Year != it.Year || entry.Description != it.Description {
				return true
			}
		}
	}
	return false
}

// Validate re-checks every invariant. An empty result means the store
// is safe to compile and submit.
func (s *Store) Validate() []models.Violation {
	var out []models.Violation
	for _, name := range models.SlotNames {
		out = append(out, s.slots[name].invariants()...)
	}
	out = append(out, s.coll.invariants()...)
	return out
}

// DiscardAll drops every staged edit and resets to the baseline. The
// reset is wholesale, never partial.
func (s *Store) DiscardAll() error {
	if s.frozen {
		return models.ErrStoreFrozen
	}
	fresh := New(s.baseline)
	s.slots = fresh.slots
	s.coll = fresh.coll
	return nil
}

// Reset replaces the entire store content from a new canonical
// snapshot, typically the server's response to a successful commit.
func (s *Store) Reset(snapshot *models.RecordSnapshot) {
	fresh := New(snapshot)
	s.recordID = fresh.recordID
	s.slots = fresh.slots
	s.coll = fresh.coll
	s.baseline = fresh.baseline
	s.frozen = false
}
