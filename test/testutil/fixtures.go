package testutil

import (
	"fmt"

	"github.com/TheMichaelB/schoolctl/internal/models"
)

// SchoolSnapshot builds a representative record snapshot: three filled
// slots and a two-entry collection.
func SchoolSnapshot(recordID string) *models.RecordSnapshot {
	snap := models.NewRecordSnapshot(recordID)
	for _, name := range []string{models.SlotVideoTour, models.SlotCurriculum, models.SlotTermOne} {
		snap.Slots[name] = ServerRef(recordID, name+".bin")
	}
	snap.Collection = []models.CollectionEntry{
		{Ref: *ServerRef(recordID, "results-2023.pdf"), Year: "2023", Description: "Final exams"},
		{Ref: *ServerRef(recordID, "results-2024.pdf"), Year: "2024", Description: "Mock exams"},
	}
	return snap
}

// ServerRef builds a ref the way the persistence API assigns them.
func ServerRef(recordID, filename string) *models.AttachmentRef {
	return &models.AttachmentRef{
		IdentityKey: fmt.Sprintf("uploads/%s/%s", recordID, filename),
		DisplayName: filename,
		Size:        int64(len(filename)) * 100,
	}
}

// Blob builds an in-memory file with deterministic content.
func Blob(name string) *models.FileBlob {
	return &models.FileBlob{Name: name, Data: []byte("content of " + name)}
}

// Strptr returns a pointer to s, for ItemMetadata literals.
func Strptr(s string) *string { return &s }
