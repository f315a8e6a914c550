package staging

import (
	"github.com/google/uuid"

	"github.com/TheMichaelB/schoolctl/internal/models"
)

// ItemOrigin distinguishes persisted items from session-local ones.
type ItemOrigin int

const (
	// OriginExisting items were loaded from the server snapshot and
	// carry an identity key.
	OriginExisting ItemOrigin = iota

	// OriginNew items exist only in memory until commit.
	OriginNew
)

func (o ItemOrigin) String() string {
	if o == OriginNew {
		return "new"
	}
	return "existing"
}

// ItemStatus is the staged fate of a collection item.
type ItemStatus int

const (
	// StatusActive items survive commit as-is (modulo metadata edits).
	StatusActive ItemStatus = iota

	// StatusMarkedForRemoval items are deleted on commit.
	StatusMarkedForRemoval

	// StatusSuperseded items are existing originals displaced by a new
	// replacement item. The original is retained so the diff can emit
	// an explicit remove-old/add-new pair.
	StatusSuperseded
)

func (s ItemStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusMarkedForRemoval:
		return "marked-for-removal"
	case StatusSuperseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// Item is one entry of the attachment collection. The ID is
// client-local and stable for the session; identity across commits is
// carried by the ref's identity key.
type Item struct {
	ID     string
	Origin ItemOrigin
	Status ItemStatus

	// ReplacesID links a new replacement item back to the superseded
	// original's session ID.
	ReplacesID string

	Ref  *models.AttachmentRef // existing items only
	File *models.FileBlob      // new items only

	Year        string
	Description string
}

// Clone returns a deep copy of the item.
func (it *Item) Clone() *Item {
	c := *it
	c.Ref = it.Ref.Clone()
	c.File = it.File.Clone()
	return &c
}

// Collection is the state machine for the multi-item attachment
// collection. Order is for display only.
type Collection struct {
	items []*Item
}

// newCollection builds the collection from baseline entries.
func newCollection(entries []models.CollectionEntry) *Collection {
	c := &Collection{}
	for _, e := range entries {
		ref := e.Ref
		c.items = append(c.items, &Item{
			ID:          uuid.NewString(),
			Origin:      OriginExisting,
			Status:      StatusActive,
			Ref:         &ref,
			Year:        e.Year,
			Description: e.Description,
		})
	}
	return c
}

// Items returns the items in display order. Callers must not mutate
// the returned items.
func (c *Collection) Items() []*Item {
	return c.items
}

// Find returns the item with the given session ID.
func (c *Collection) Find(itemID string) (*Item, bool) {
	for _, it := range c.items {
		if it.ID == itemID {
			return it, true
		}
	}
	return nil, false
}

// AddNew appends a session-local item holding an in-memory file.
func (c *Collection) AddNew(file *models.FileBlob, meta models.ItemMetadata) *Item {
	it := &Item{
		ID:     uuid.NewString(),
		Origin: OriginNew,
		Status: StatusActive,
		File:   file.Clone(),
	}
	if meta.Year != nil {
		it.Year = *meta.Year
	}
	if meta.Description != nil {
		it.Description = *meta.Description
	}
	c.items = append(c.items, it)
	return it
}

// UpdateMetadata merges year/description into an item.
func (c *Collection) UpdateMetadata(itemID string, meta models.ItemMetadata) error {
	it, ok := c.Find(itemID)
	if !ok {
		return models.ErrItemNotFound
	}
	if meta.Year != nil {
		it.Year = *meta.Year
	}
	if meta.Description != nil {
		it.Description = *meta.Description
	}
	return nil
}

// MarkRemoveExisting stages an existing item for deletion.
func (c *Collection) MarkRemoveExisting(itemID string) error {
	it, ok := c.Find(itemID)
	if !ok {
		return models.ErrItemNotFound
	}
	if it.Origin != OriginExisting {
		return &models.OperationError{ItemID: itemID, Op: "mark remove", Reason: "item is not persisted"}
	}
	if it.Status != StatusActive {
		return &models.OperationError{ItemID: itemID, Op: "mark remove", Reason: "item is " + it.Status.String()}
	}
	it.Status = StatusMarkedForRemoval
	return nil
}

// RestoreExisting reverses a removal mark. No residual marker remains.
func (c *Collection) RestoreExisting(itemID string) error {
	it, ok := c.Find(itemID)
	if !ok {
		return models.ErrItemNotFound
	}
	if it.Origin != OriginExisting {
		return &models.OperationError{ItemID: itemID, Op: "restore", Reason: "item is not persisted"}
	}
	if it.Status != StatusMarkedForRemoval {
		return &models.OperationError{ItemID: itemID, Op: "restore", Reason: "item is " + it.Status.String()}
	}
	it.Status = StatusActive
	return nil
}

// ReplaceExisting supersedes an existing item with a new file. The
// original is retained (not deleted) and the new item links back to it,
// so the compiled diff emits an explicit remove-old/add-new pair. The
// new item inherits the original's metadata.
func (c *Collection) ReplaceExisting(itemID string, file *models.FileBlob) (*Item, error) {
	it, ok := c.Find(itemID)
	if !ok {
		return nil, models.ErrItemNotFound
	}
	if it.Origin != OriginExisting {
		return nil, &models.OperationError{ItemID: itemID, Op: "replace", Reason: "item is not persisted"}
	}
	if it.Status != StatusActive {
		return nil, &models.OperationError{ItemID: itemID, Op: "replace", Reason: "item is " + it.Status.String()}
	}

	it.Status = StatusSuperseded
	repl := &Item{
		ID:          uuid.NewString(),
		Origin:      OriginNew,
		Status:      StatusActive,
		ReplacesID:  it.ID,
		File:        file.Clone(),
		Year:        it.Year,
		Description: it.Description,
	}
	c.items = append(c.items, repl)
	return repl, nil
}

// RemoveNew deletes a session-local item outright; it never reaches
// the server. If the item was a replacement, the superseded original
// reverts to active.
func (c *Collection) RemoveNew(itemID string) error {
	it, ok := c.Find(itemID)
	if !ok {
		return models.ErrItemNotFound
	}
	if it.Origin != OriginNew {
		return &models.OperationError{ItemID: itemID, Op: "remove new", Reason: "item is persisted"}
	}

	if it.ReplacesID != "" {
		if orig, ok := c.Find(it.ReplacesID); ok && orig.Status == StatusSuperseded {
			orig.Status = StatusActive
		}
	}

	for i, cand := range c.items {
		if cand.ID == itemID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			break
		}
	}
	return nil
}

// invariants checks the collection-level rules: one active fate per
// identity key, replacement links pointing at non-active originals,
// and origin/payload consistency per item.
func (c *Collection) invariants() []models.Violation {
	var out []models.Violation
	add := func(subject, detail string) {
		out = append(out, models.Violation{Subject: subject, Detail: detail})
	}

	fates := make(map[string]int) // identity key -> non-active count
	active := make(map[string]int)

	for _, it := range c.items {
		switch it.Origin {
		case OriginExisting:
			if it.Ref == nil {
				add(it.ID, "existing item has no ref")
				continue
			}
			if it.File != nil {
				add(it.ID, "existing item carries an in-memory file")
			}
			if it.Status == StatusActive {
				active[it.Ref.IdentityKey]++
			} else {
				fates[it.Ref.IdentityKey]++
			}
		case OriginNew:
			if it.File == nil {
				add(it.ID, "new item has no file")
			}
			if it.Ref != nil {
				add(it.ID, "new item carries a server ref")
			}
			if it.Status != StatusActive {
				add(it.ID, "new item is "+it.Status.String())
			}
			if it.ReplacesID != "" {
				orig, ok := c.Find(it.ReplacesID)
				if !ok {
					add(it.ID, "replacement target missing from collection")
				} else if orig.Status == StatusActive {
					add(it.ID, "replacement target is still active")
				}
			}
		}
	}

	for key, n := range fates {
		if active[key] > 0 {
			add(key, "identity key is both active and marked for removal/replacement")
		}
		if n > 1 {
			add(key, "identity key has more than one staged fate")
		}
	}
	return out
}

// Clone returns a deep copy of the collection.
func (c *Collection) Clone() *Collection {
	clone := &Collection{items: make([]*Item, len(c.items))}
	for i, it := range c.items {
		clone.items[i] = it.Clone()
	}
	return clone
}
