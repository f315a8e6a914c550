package models

// RecordSnapshot is the canonical attachment state of one school
// profile record as reported by the persistence API. It is captured as
// the staging baseline on load and replaces the baseline wholesale
// after a successful commit.
type RecordSnapshot struct {
	RecordID string `json:"record_id"`

	// Slots maps slot name to its current file. Absent or nil means
	// the slot is empty.
	Slots map[string]*AttachmentRef `json:"slots"`

	// Collection lists the additional-result entries. Order is for
	// display only; identity keys carry identity.
	Collection []CollectionEntry `json:"collection"`
}

// CollectionEntry is one persisted item of the attachment collection.
type CollectionEntry struct {
	Ref         AttachmentRef `json:"ref"`
	Year        string        `json:"year,omitempty"`
	Description string        `json:"description,omitempty"`
}

// NewRecordSnapshot creates an empty snapshot for a record.
func NewRecordSnapshot(recordID string) *RecordSnapshot {
	return &RecordSnapshot{
		RecordID: recordID,
		Slots:    make(map[string]*AttachmentRef),
	}
}

// Slot returns the ref for a slot name, or nil if empty.
func (s *RecordSnapshot) Slot(name string) *AttachmentRef {
	if s.Slots == nil {
		return nil
	}
	return s.Slots[name]
}

// Entry returns the collection entry with the given identity key.
func (s *RecordSnapshot) Entry(identityKey string) (CollectionEntry, bool) {
	for _, e := range s.Collection {
		if e.Ref.IdentityKey == identityKey {
			return e, true
		}
	}
	return CollectionEntry{}, false
}

// Clone creates a deep copy of the snapshot.
func (s *RecordSnapshot) Clone() *RecordSnapshot {
	if s == nil {
		return nil
	}
	clone := &RecordSnapshot{
		RecordID: s.RecordID,
		Slots:    make(map[string]*AttachmentRef, len(s.Slots)),
	}
	for name, ref := range s.Slots {
		clone.Slots[name] = ref.Clone()
	}
	if s.Collection != nil {
		clone.Collection = make([]CollectionEntry, len(s.Collection))
		copy(clone.Collection, s.Collection)
	}
	return clone
}
