package staging

import (
	"github.com/TheMichaelB/schoolctl/internal/models"
)

// SlotPhase is the tagged state of a single-file attachment slot.
type SlotPhase int

const (
	// SlotEmpty means no persisted file and no staged upload.
	SlotEmpty SlotPhase = iota

	// SlotUnchanged means an existing file with no staged edit.
	SlotUnchanged

	// SlotMarkedForRemoval means the existing file will be deleted on
	// commit. A slot in this phase never carries a pending upload.
	SlotMarkedForRemoval

	// SlotMarkedForReplacement means the existing file will be
	// superseded. The original ref is retained until commit; the
	// replacement file may not have been chosen yet.
	SlotMarkedForReplacement

	// SlotPendingUpload means a new file is staged for a slot that had
	// no persisted file.
	SlotPendingUpload
)

func (p SlotPhase) String() string {
	switch p {
	case SlotEmpty:
		return "empty"
	case SlotUnchanged:
		return "unchanged"
	case SlotMarkedForRemoval:
		return "marked-for-removal"
	case SlotMarkedForReplacement:
		return "marked-for-replacement"
	case SlotPendingUpload:
		return "pending-upload"
	default:
		return "unknown"
	}
}

// Slot is the state machine for one named attachment slot. All edits
// are staged in memory; nothing touches the server until commit.
type Slot struct {
	name    string
	phase   SlotPhase
	ref     *models.AttachmentRef // existing file, nil when none
	pending *models.FileBlob      // staged upload, nil when none
}

// newSlot builds a slot from the baseline snapshot.
func newSlot(name string, ref *models.AttachmentRef) *Slot {
	s := &Slot{name: name, phase: SlotEmpty}
	if ref != nil {
		s.phase = SlotUnchanged
		s.ref = ref.Clone()
	}
	return s
}

// Name returns the slot name.
func (s *Slot) Name() string { return s.name }

// Phase returns the current phase.
func (s *Slot) Phase() SlotPhase { return s.phase }

// Ref returns the existing file ref, or nil.
func (s *Slot) Ref() *models.AttachmentRef { return s.ref }

// Pending returns the staged upload, or nil.
func (s *Slot) Pending() *models.FileBlob { return s.pending }

// Staged reports whether the slot differs from its baseline.
func (s *Slot) Staged() bool {
	return s.phase != SlotEmpty && s.phase != SlotUnchanged
}

// MarkForReplacement stages the existing file for replacement. The
// original ref is retained so an aborted replace reverts cleanly.
func (s *Slot) MarkForReplacement() error {
	if s.phase != SlotUnchanged {
		return s.transitionError("mark for replacement")
	}
	s.phase = SlotMarkedForReplacement
	return nil
}

// MarkForRemoval stages the existing file for deletion.
func (s *Slot) MarkForRemoval() error {
	if s.phase != SlotUnchanged {
		return s.transitionError("mark for removal")
	}
	s.phase = SlotMarkedForRemoval
	return nil
}

// AttachNewFile stages a new upload. A slot with an existing ref must
// be marked for replacement first. Attaching twice without detaching
// replaces the earlier pending file; last write wins.
func (s *Slot) AttachNewFile(file *models.FileBlob) error {
	switch s.phase {
	case SlotEmpty, SlotPendingUpload:
		s.phase = SlotPendingUpload
		s.pending = file.Clone()
		return nil
	case SlotMarkedForReplacement:
		s.pending = file.Clone()
		return nil
	default:
		return s.transitionError("attach file")
	}
}

// DetachNewFile drops the staged upload. A replacement slot keeps its
// mark and original ref; a pending-upload slot becomes empty again.
func (s *Slot) DetachNewFile() error {
	switch s.phase {
	case SlotPendingUpload:
		s.phase = SlotEmpty
		s.pending = nil
		return nil
	case SlotMarkedForReplacement:
		if s.pending == nil {
			return s.transitionError("detach file")
		}
		s.pending = nil
		return nil
	default:
		return s.transitionError("detach file")
	}
}

// CancelPendingEdits reverts a removal or replacement mark, restoring
// the slot to its unchanged baseline. Removal is always revocable
// until commit.
func (s *Slot) CancelPendingEdits() error {
	switch s.phase {
	case SlotMarkedForRemoval, SlotMarkedForReplacement:
		s.phase = SlotUnchanged
		s.pending = nil
		return nil
	default:
		return s.transitionError("cancel edits")
	}
}

// invariants checks the mutual-exclusion rules for the slot.
func (s *Slot) invariants() []models.Violation {
	var out []models.Violation
	add := func(detail string) {
		out = append(out, models.Violation{Subject: s.name, Detail: detail})
	}

	switch s.phase {
	case SlotEmpty:
		if s.ref != nil {
			add("empty slot carries an existing ref")
		}
		if s.pending != nil {
			add("empty slot carries a pending file")
		}
	case SlotUnchanged:
		if s.ref == nil {
			add("unchanged slot has no existing ref")
		}
		if s.pending != nil {
			add("unchanged slot carries a pending file")
		}
	case SlotMarkedForRemoval:
		if s.ref == nil {
			add("removal mark without an existing ref")
		}
		if s.pending != nil {
			add("removal mark combined with a pending file")
		}
	case SlotMarkedForReplacement:
		if s.ref == nil {
			add("replacement mark lost its original ref")
		}
	case SlotPendingUpload:
		if s.pending == nil {
			add("pending upload without a file")
		}
		if s.ref != nil {
			add("pending upload on a slot with an existing ref")
		}
	}
	return out
}

// Clone returns a deep copy of the slot.
func (s *Slot) Clone() *Slot {
	return &Slot{
		name:    s.name,
		phase:   s.phase,
		ref:     s.ref.Clone(),
		pending: s.pending.Clone(),
	}
}

func (s *Slot) transitionError(op string) error {
	return &models.TransitionError{Slot: s.name, From: s.phase.String(), Op: op}
}
