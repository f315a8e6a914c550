package staging_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/schoolctl/internal/models"
	"github.com/TheMichaelB/schoolctl/internal/staging"
)

func snapshotWithSlot(name string, ref *models.AttachmentRef) *models.RecordSnapshot {
	snap := models.NewRecordSnapshot("rec-1")
	if ref != nil {
		snap.Slots[name] = ref
	}
	return snap
}

func existingRef() *models.AttachmentRef {
	return &models.AttachmentRef{
		IdentityKey: "uploads/rec-1/curriculum.pdf",
		DisplayName: "curriculum.pdf",
		Size:        1024,
	}
}

func testFile(name string) *models.FileBlob {
	return &models.FileBlob{Name: name, Data: []byte("pdf-bytes-" + name)}
}

func TestSlotInitialPhase(t *testing.T) {
	tests := []struct {
		name string
		ref  *models.AttachmentRef
		want staging.SlotPhase
	}{
		{name: "no file is empty", ref: nil, want: staging.SlotEmpty},
		{name: "existing file is unchanged", ref: existingRef(), want: staging.SlotUnchanged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := staging.New(snapshotWithSlot(models.SlotCurriculum, tt.ref))
			slot, err := store.Slot(models.SlotCurriculum)
			require.NoError(t, err)
			assert.Equal(t, tt.want, slot.Phase())
			assert.False(t, slot.Staged())
		})
	}
}

func TestSlotTransitionTable(t *testing.T) {
	file := testFile("new.pdf")

	tests := []struct {
		name      string
		ref       *models.AttachmentRef
		setup     func(s *staging.Store) error
		op        func(s *staging.Store) error
		wantPhase staging.SlotPhase
		wantErr   error
	}{
		{
			name:      "mark unchanged for replacement",
			ref:       existingRef(),
			op:        func(s *staging.Store) error { return s.MarkSlotForReplacement(models.SlotCurriculum) },
			wantPhase: staging.SlotMarkedForReplacement,
		},
		{
			name:      "mark unchanged for removal",
			ref:       existingRef(),
			op:        func(s *staging.Store) error { return s.MarkSlotForRemoval(models.SlotCurriculum) },
			wantPhase: staging.SlotMarkedForRemoval,
		},
		{
			name:    "mark empty for removal fails",
			ref:     nil,
			op:      func(s *staging.Store) error { return s.MarkSlotForRemoval(models.SlotCurriculum) },
			wantErr: models.ErrInvalidTransition,
		},
		{
			name:    "mark empty for replacement fails",
			ref:     nil,
			op:      func(s *staging.Store) error { return s.MarkSlotForReplacement(models.SlotCurriculum) },
			wantErr: models.ErrInvalidTransition,
		},
		{
			name:      "attach on empty becomes pending upload",
			ref:       nil,
			op:        func(s *staging.Store) error { return s.AttachSlotFile(models.SlotCurriculum, file) },
			wantPhase: staging.SlotPendingUpload,
		},
		{
			name:    "attach on unchanged without mark fails",
			ref:     existingRef(),
			op:      func(s *staging.Store) error { return s.AttachSlotFile(models.SlotCurriculum, file) },
			wantErr: models.ErrInvalidTransition,
		},
		{
			name:      "attach after replacement mark keeps the mark",
			ref:       existingRef(),
			setup:     func(s *staging.Store) error { return s.MarkSlotForReplacement(models.SlotCurriculum) },
			op:        func(s *staging.Store) error { return s.AttachSlotFile(models.SlotCurriculum, file) },
			wantPhase: staging.SlotMarkedForReplacement,
		},
		{
			name:    "attach on removal mark fails",
			ref:     existingRef(),
			setup:   func(s *staging.Store) error { return s.MarkSlotForRemoval(models.SlotCurriculum) },
			op:      func(s *staging.Store) error { return s.AttachSlotFile(models.SlotCurriculum, file) },
			wantErr: models.ErrInvalidTransition,
		},
		{
			name:      "cancel removal mark restores unchanged",
			ref:       existingRef(),
			setup:     func(s *staging.Store) error { return s.MarkSlotForRemoval(models.SlotCurriculum) },
			op:        func(s *staging.Store) error { return s.CancelSlotEdits(models.SlotCurriculum) },
			wantPhase: staging.SlotUnchanged,
		},
		{
			name:    "cancel on unchanged fails",
			ref:     existingRef(),
			op:      func(s *staging.Store) error { return s.CancelSlotEdits(models.SlotCurriculum) },
			wantErr: models.ErrInvalidTransition,
		},
		{
			name:    "detach with nothing staged fails",
			ref:     nil,
			op:      func(s *staging.Store) error { return s.DetachSlotFile(models.SlotCurriculum) },
			wantErr: models.ErrInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := staging.New(snapshotWithSlot(models.SlotCurriculum, tt.ref))
			if tt.setup != nil {
				require.NoError(t, tt.setup(store))
			}

			err := tt.op(store)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			slot, err := store.Slot(models.SlotCurriculum)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPhase, slot.Phase())
			assert.Empty(t, store.Validate())
		})
	}
}

func TestSlotAttachDetachRoundTrip(t *testing.T) {
	t.Run("empty slot", func(t *testing.T) {
		store := staging.New(snapshotWithSlot(models.SlotVideoTour, nil))

		require.NoError(t, store.AttachSlotFile(models.SlotVideoTour, testFile("tour.mp4")))
		require.NoError(t, store.DetachSlotFile(models.SlotVideoTour))

		slot, err := store.Slot(models.SlotVideoTour)
		require.NoError(t, err)
		assert.Equal(t, staging.SlotEmpty, slot.Phase())
		assert.Nil(t, slot.Pending())
		assert.False(t, store.IsDirty())
	})

	t.Run("replacement slot keeps mark and ref", func(t *testing.T) {
		ref := existingRef()
		store := staging.New(snapshotWithSlot(models.SlotCurriculum, ref))

		require.NoError(t, store.MarkSlotForReplacement(models.SlotCurriculum))
		require.NoError(t, store.AttachSlotFile(models.SlotCurriculum, testFile("new.pdf")))
		require.NoError(t, store.DetachSlotFile(models.SlotCurriculum))

		slot, err := store.Slot(models.SlotCurriculum)
		require.NoError(t, err)
		assert.Equal(t, staging.SlotMarkedForReplacement, slot.Phase())
		assert.Nil(t, slot.Pending())
		assert.True(t, slot.Ref().Equal(ref))
	})
}

func TestSlotAttachLastWriteWins(t *testing.T) {
	store := staging.New(snapshotWithSlot(models.SlotVideoTour, nil))

	require.NoError(t, store.AttachSlotFile(models.SlotVideoTour, testFile("first.mp4")))
	require.NoError(t, store.AttachSlotFile(models.SlotVideoTour, testFile("second.mp4")))

	slot, err := store.Slot(models.SlotVideoTour)
	require.NoError(t, err)
	require.NotNil(t, slot.Pending())
	assert.Equal(t, "second.mp4", slot.Pending().Name)
}

func TestSlotReplacementAbortRevertsCleanly(t *testing.T) {
	ref := existingRef()
	store := staging.New(snapshotWithSlot(models.SlotCurriculum, ref))

	require.NoError(t, store.MarkSlotForReplacement(models.SlotCurriculum))
	require.NoError(t, store.AttachSlotFile(models.SlotCurriculum, testFile("new.pdf")))
	require.NoError(t, store.CancelSlotEdits(models.SlotCurriculum))

	slot, err := store.Slot(models.SlotCurriculum)
	require.NoError(t, err)
	assert.Equal(t, staging.SlotUnchanged, slot.Phase())
	assert.True(t, slot.Ref().Equal(ref))
	assert.Nil(t, slot.Pending())
	assert.False(t, store.IsDirty())
}

func TestUnknownSlotRejected(t *testing.T) {
	store := staging.New(models.NewRecordSnapshot("rec-1"))

	err := store.AttachSlotFile("prospectus_pdf", testFile("x.pdf"))
	assert.ErrorIs(t, err, models.ErrUnknownSlot)
}
