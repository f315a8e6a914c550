package models

import "fmt"

// Slot names recognized by the persistence API. The order of SlotNames
// is the canonical order used for diff compilation and serialization.
const (
	SlotVideoTour    = "video_tour"
	SlotCurriculum   = "curriculum_pdf"
	SlotTermOne      = "term1_results_pdf"
	SlotTermTwo      = "term2_results_pdf"
	SlotTermThree    = "term3_results_pdf"
	SlotFeeBreakdown = "fee_breakdown_pdf"
)

// SlotNames lists every attachment slot in canonical order.
var SlotNames = []string{
	SlotVideoTour,
	SlotCurriculum,
	SlotTermOne,
	SlotTermTwo,
	SlotTermThree,
	SlotFeeBreakdown,
}

// KnownSlot reports whether name is a recognized slot.
func KnownSlot(name string) bool {
	for _, n := range SlotNames {
		if n == name {
			return true
		}
	}
	return false
}

// AttachmentRef identifies a file already persisted server-side. The
// identity key is the server-assigned storage path and is the only
// stable way to target a removal or replacement.
type AttachmentRef struct {
	IdentityKey string `json:"identity_key"`
	DisplayName string `json:"display_name"`
	Size        int64  `json:"size,omitempty"`
}

// Clone returns a copy of the ref.
func (r *AttachmentRef) Clone() *AttachmentRef {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// Equal compares two refs by value.
func (r *AttachmentRef) Equal(other *AttachmentRef) bool {
	if r == nil || other == nil {
		return r == other
	}
	return *r == *other
}

func (r *AttachmentRef) String() string {
	return fmt.Sprintf("%s (%s)", r.DisplayName, r.IdentityKey)
}

// FileBlob holds a file staged in memory. It never carries an identity
// key; the server assigns one on commit.
type FileBlob struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// Clone returns a deep copy of the blob.
func (f *FileBlob) Clone() *FileBlob {
	if f == nil {
		return nil
	}
	c := &FileBlob{Name: f.Name, Data: make([]byte, len(f.Data))}
	copy(c.Data, f.Data)
	return c
}

// ItemMetadata carries the per-item fields of a collection entry.
// Nil pointers mean "leave unchanged" when merging.
type ItemMetadata struct {
	Year        *string
	Description *string
}
