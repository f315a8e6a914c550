package staging

import (
	"fmt"

	"github.com/TheMichaelB/schoolctl/internal/models"
)

// Memento is the serializable form of a Store, used to persist a
// staging session between CLI invocations. File bytes are carried
// inline; JSON encoding base64s them.
type Memento struct {
	RecordID string                 `json:"record_id"`
	Baseline *models.RecordSnapshot `json:"baseline"`
	Slots    []SlotMemento          `json:"slots"`
	Items    []ItemMemento          `json:"items"`
}

// SlotMemento captures one slot's staged state.
type SlotMemento struct {
	Name    string                `json:"name"`
	Phase   SlotPhase             `json:"phase"`
	Ref     *models.AttachmentRef `json:"ref,omitempty"`
	Pending *models.FileBlob      `json:"pending,omitempty"`
}

// ItemMemento captures one collection item.
type ItemMemento struct {
	ID          string                `json:"id"`
	Origin      ItemOrigin            `json:"origin"`
	Status      ItemStatus            `json:"status"`
	ReplacesID  string                `json:"replaces_id,omitempty"`
	Ref         *models.AttachmentRef `json:"ref,omitempty"`
	File        *models.FileBlob      `json:"file,omitempty"`
	Year        string                `json:"year,omitempty"`
	Description string                `json:"description,omitempty"`
}

// Memento captures the store for persistence.
func (s *Store) Memento() *Memento {
	m := &Memento{
		RecordID: s.recordID,
		Baseline: s.baseline.Clone(),
	}
	for _, slot := range s.Slots() {
		m.Slots = append(m.Slots, SlotMemento{
			Name:    slot.name,
			Phase:   slot.phase,
			Ref:     slot.ref.Clone(),
			Pending: slot.pending.Clone(),
		})
	}
	for _, it := range s.coll.Items() {
		m.Items = append(m.Items, ItemMemento{
			ID:          it.ID,
			Origin:      it.Origin,
			Status:      it.Status,
			ReplacesID:  it.ReplacesID,
			Ref:         it.Ref.Clone(),
			File:        it.File.Clone(),
			Year:        it.Year,
			Description: it.Description,
		})
	}
	return m
}

// Restore rebuilds a store from a memento. Unknown slot names are
// rejected rather than silently dropped.
func Restore(m *Memento) (*Store, error) {
	if m.Baseline == nil {
		return nil, fmt.Errorf("memento for %s has no baseline", m.RecordID)
	}

	s := New(m.Baseline)
	s.recordID = m.RecordID

	for _, sm := range m.Slots {
		slot, ok := s.slots[sm.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", models.ErrUnknownSlot, sm.Name)
		}
		slot.phase = sm.Phase
		slot.ref = sm.Ref.Clone()
		slot.pending = sm.Pending.Clone()
	}

	s.coll = &Collection{}
	for _, im := range m.Items {
		s.coll.items = append(s.coll.items, &Item{
			ID:          im.ID,
			Origin:      im.Origin,
			Status:      im.Status,
			ReplacesID:  im.ReplacesID,
			Ref:         im.Ref.Clone(),
			File:        im.File.Clone(),
			Year:        im.Year,
			Description: im.Description,
		})
	}
	return s, nil
}
