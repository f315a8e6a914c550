package models_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/schoolctl/internal/models"
)

func TestKnownSlot(t *testing.T) {
	for _, name := range models.SlotNames {
		assert.True(t, models.KnownSlot(name), name)
	}
	assert.False(t, models.KnownSlot("prospectus_pdf"))
	assert.False(t, models.KnownSlot(""))
}

func TestAttachmentRefEqual(t *testing.T) {
	a := &models.AttachmentRef{IdentityKey: "uploads/a.pdf", DisplayName: "a.pdf", Size: 10}
	b := &models.AttachmentRef{IdentityKey: "uploads/a.pdf", DisplayName: "a.pdf", Size: 10}
	c := &models.AttachmentRef{IdentityKey: "uploads/c.pdf", DisplayName: "c.pdf", Size: 10}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))

	var nilRef *models.AttachmentRef
	assert.True(t, nilRef.Equal(nil))
}

func TestFileBlobCloneIsDeep(t *testing.T) {
	orig := &models.FileBlob{Name: "a.pdf", Data: []byte{1, 2, 3}}
	clone := orig.Clone()

	clone.Data[0] = 9
	assert.Equal(t, byte(1), orig.Data[0])

	var nilBlob *models.FileBlob
	assert.Nil(t, nilBlob.Clone())
}

func TestSnapshotCloneIsDeep(t *testing.T) {
	snap := models.NewRecordSnapshot("rec-1")
	snap.Slots[models.SlotCurriculum] = &models.AttachmentRef{
		IdentityKey: "uploads/curriculum.pdf", DisplayName: "curriculum.pdf",
	}
	snap.Collection = []models.CollectionEntry{
		{Ref: models.AttachmentRef{IdentityKey: "uploads/a.pdf", DisplayName: "a.pdf"}, Year: "2024"},
	}

	clone := snap.Clone()
	clone.Slots[models.SlotCurriculum].DisplayName = "mutated.pdf"
	clone.Collection[0].Year = "1999"

	assert.Equal(t, "curriculum.pdf", snap.Slot(models.SlotCurriculum).DisplayName)
	assert.Equal(t, "2024", snap.Collection[0].Year)
}

func TestSnapshotEntry(t *testing.T) {
	snap := models.NewRecordSnapshot("rec-1")
	snap.Collection = []models.CollectionEntry{
		{Ref: models.AttachmentRef{IdentityKey: "uploads/a.pdf"}, Year: "2024"},
	}

	e, ok := snap.Entry("uploads/a.pdf")
	require.True(t, ok)
	assert.Equal(t, "2024", e.Year)

	_, ok = snap.Entry("uploads/missing.pdf")
	assert.False(t, ok)
}

func TestErrorWrapping(t *testing.T) {
	terr := &models.TransitionError{Slot: "curriculum_pdf", From: "empty", Op: "mark for removal"}
	assert.ErrorIs(t, terr, models.ErrInvalidTransition)
	assert.Contains(t, terr.Error(), "curriculum_pdf")

	oerr := &models.OperationError{ItemID: "item-1", Op: "replace", Reason: "item is superseded"}
	assert.ErrorIs(t, oerr, models.ErrInvalidOperation)

	verr := &models.ValidationError{Violations: []models.Violation{
		{Subject: "curriculum_pdf", Detail: "replacement mark lost its original ref"},
	}}
	assert.Contains(t, verr.Error(), "curriculum_pdf")

	var target *models.ValidationError
	assert.True(t, errors.As(error(verr), &target))
}
