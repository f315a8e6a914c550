// Package diff reduces a staging store into the minimal, classified
// set of operations to submit. Classification is a pure function of
// staged state; it performs no I/O.
package diff

import (
	"github.com/TheMichaelB/schoolctl/internal/models"
	"github.com/TheMichaelB/schoolctl/internal/staging"
)

// SlotOp classifies the staged change of one slot.
type SlotOp int

const (
	// OpNone means the slot needs no server action. NoOp slots are not
	// included in a compiled diff.
	OpNone SlotOp = iota

	// OpAdd uploads a new file into an empty slot.
	OpAdd

	// OpRemove deletes the existing file with no replacement.
	OpRemove

	// OpReplace deletes the existing file and uploads its replacement
	// as one operation, never as a separate remove plus add.
	OpReplace
)

func (op SlotOp) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpRemove:
		return "remove"
	case OpReplace:
		return "replace"
	default:
		return "none"
	}
}

// SlotChange is one compiled slot operation.
type SlotChange struct {
	Slot string
	Op   SlotOp
	Ref  *models.AttachmentRef // target of Remove/Replace
	File *models.FileBlob      // payload of Add/Replace
}

// NewItem is a collection item to be uploaded: either a plain addition
// or the new half of a replaced pair.
type NewItem struct {
	File        *models.FileBlob
	Year        string
	Description string

	// ReplacesIdentity is the identity key of the superseded original,
	// empty for plain additions.
	ReplacesIdentity string
}

// MetadataUpdate is a metadata-only edit to an untouched existing item.
type MetadataUpdate struct {
	IdentityKey string `json:"identity_key"`
	Year        string `json:"year"`
	Description string `json:"description"`
}

// CollectionDiff is the compiled change set for the collection.
// Removals and replaced pairs come before additions: the server's
// storage layer may reuse a freed path, so removals must be visible
// before new paths are assigned.
type CollectionDiff struct {
	Removed         []models.AttachmentRef
	NewItems        []NewItem // replacements first, then plain additions
	MetadataUpdates []MetadataUpdate
}

// Empty reports whether the collection diff carries no change.
func (cd *CollectionDiff) Empty() bool {
	return cd == nil ||
		(len(cd.Removed) == 0 && len(cd.NewItems) == 0 && len(cd.MetadataUpdates) == 0)
}

// Diff is a compiled change set for one record.
type Diff struct {
	RecordID string

	// Slots holds only real operations, removals and replacements
	// before additions, canonical slot order within each group.
	Slots []SlotChange

	// Collection is nil when the collection is untouched; the payload
	// then omits every collection field.
	Collection *CollectionDiff
}

// Empty reports whether the diff carries no change at all.
func (d *Diff) Empty() bool {
	return len(d.Slots) == 0 && d.Collection.Empty()
}

// Compile classifies every slot and partitions the collection. A
// replacement mark without a chosen file compiles to nothing: no
// destructive action may occur without a concrete new file.
func Compile(store *staging.Store) *Diff {
	d := &Diff{RecordID: store.RecordID()}

	var adds []SlotChange
	for _, slot := range store.Slots() {
		switch slot.Phase() {
		case staging.SlotMarkedForRemoval:
			d.Slots = append(d.Slots, SlotChange{
				Slot: slot.Name(),
				Op:   OpRemove,
				Ref:  slot.Ref(),
			})
		case staging.SlotMarkedForReplacement:
			if slot.Pending() == nil {
				continue // marked but no file chosen; treated as unchanged
			}
			d.Slots = append(d.Slots, SlotChange{
				Slot: slot.Name(),
				Op:   OpReplace,
				Ref:  slot.Ref(),
				File: slot.Pending(),
			})
		case staging.SlotPendingUpload:
			adds = append(adds, SlotChange{
				Slot: slot.Name(),
				Op:   OpAdd,
				File: slot.Pending(),
			})
		}
	}
	d.Slots = append(d.Slots, adds...)

	if cd := compileCollection(store); !cd.Empty() {
		d.Collection = cd
	}
	return d
}

func compileCollection(store *staging.Store) *CollectionDiff {
	cd := &CollectionDiff{}
	baseline := store.Baseline()

	// Session ID -> identity key of superseded originals, so the new
	// half of each pair can reference its target.
	superseded := make(map[string]string)
	for _, it := range store.Items() {
		if it.Origin == staging.OriginExisting && it.Status == staging.StatusSuperseded {
			superseded[it.ID] = it.Ref.IdentityKey
		}
	}

	var additions []NewItem
	for _, it := range store.Items() {
		switch it.Origin {
		case staging.OriginExisting:
			switch it.Status {
			case staging.StatusMarkedForRemoval:
				cd.Removed = append(cd.Removed, *it.Ref)
			case staging.StatusActive:
				entry, ok := baseline.Entry(it.Ref.IdentityKey)
				if ok && (entry.Year != it.Year || entry.Description != it.Description) {
					cd.MetadataUpdates = append(cd.MetadataUpdates, MetadataUpdate{
						IdentityKey: it.Ref.IdentityKey,
						Year:        it.Year,
						Description: it.Description,
					})
				}
			}
		case staging.OriginNew:
			ni := NewItem{
				File:        it.File,
				Year:        it.Year,
				Description: it.Description,
			}
			if it.ReplacesID != "" {
				ni.ReplacesIdentity = superseded[it.ReplacesID]
				cd.NewItems = append(cd.NewItems, ni)
			} else {
				additions = append(additions, ni)
			}
		}
	}
	cd.NewItems = append(cd.NewItems, additions...)
	return cd
}
