package session_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/schoolctl/internal/events"
	"github.com/TheMichaelB/schoolctl/internal/models"
	"github.com/TheMichaelB/schoolctl/internal/session"
	"github.com/TheMichaelB/schoolctl/internal/staging"
)

func strptr(s string) *string { return &s }

// stagedMemento builds a memento with file bytes in a slot and a new
// collection item.
func stagedMemento(t *testing.T, recordID string) *staging.Memento {
	t.Helper()

	snap := models.NewRecordSnapshot(recordID)
	snap.Slots[models.SlotCurriculum] = &models.AttachmentRef{
		IdentityKey: "uploads/curriculum.pdf", DisplayName: "curriculum.pdf", Size: 2048,
	}
	snap.Collection = []models.CollectionEntry{
		{Ref: models.AttachmentRef{IdentityKey: "uploads/a.pdf", DisplayName: "a.pdf"}, Year: "2024"},
	}

	store := staging.New(snap)
	require.NoError(t, store.AttachSlotFile(models.SlotVideoTour, &models.FileBlob{
		Name: "tour.mp4", Data: []byte("mp4-bytes"),
	}))
	_, err := store.AddItem(&models.FileBlob{Name: "extra.pdf", Data: []byte("pdf-bytes")},
		models.ItemMetadata{Year: strptr("2026")})
	require.NoError(t, err)

	return store.Memento()
}

// backends returns each Store implementation under test.
func backends(t *testing.T) map[string]session.Store {
	t.Helper()

	jsonStore, err := session.NewJSONStore(t.TempDir(), events.Discard())
	require.NoError(t, err)

	sqliteStore, err := session.NewSQLiteStore(
		filepath.Join(t.TempDir(), "sessions.db"), events.Discard())
	require.NoError(t, err)

	stores := map[string]session.Store{
		"json":   jsonStore,
		"sqlite": sqliteStore,
	}
	for _, s := range stores {
		s := s
		t.Cleanup(func() { s.Close() })
	}
	return stores
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			want := stagedMemento(t, "rec-1")
			require.NoError(t, store.Save("rec-1", want))

			got, err := store.Load("rec-1")
			require.NoError(t, err)

			assert.Equal(t, want.RecordID, got.RecordID)
			require.NotNil(t, got.Baseline)
			assert.Equal(t, want.Baseline.RecordID, got.Baseline.RecordID)

			// Restore must succeed and keep the staged state intact,
			// file bytes included.
			restored, err := staging.Restore(got)
			require.NoError(t, err)
			assert.True(t, restored.IsDirty())

			slot, err := restored.Slot(models.SlotVideoTour)
			require.NoError(t, err)
			require.NotNil(t, slot.Pending())
			assert.Equal(t, []byte("mp4-bytes"), slot.Pending().Data)

			var newItem *staging.Item
			for _, it := range restored.Items() {
				if it.Origin == staging.OriginNew {
					newItem = it
				}
			}
			require.NotNil(t, newItem)
			assert.Equal(t, []byte("pdf-bytes"), newItem.File.Data)
		})
	}
}

func TestStoreSaveOverwrites(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			first := stagedMemento(t, "rec-1")
			require.NoError(t, store.Save("rec-1", first))

			second := staging.New(models.NewRecordSnapshot("rec-1")).Memento()
			require.NoError(t, store.Save("rec-1", second))

			got, err := store.Load("rec-1")
			require.NoError(t, err)

			restored, err := staging.Restore(got)
			require.NoError(t, err)
			assert.False(t, restored.IsDirty(), "latest save wins")
		})
	}
}

func TestStoreLoadMissing(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Load("rec-missing")
			assert.ErrorIs(t, err, session.ErrSessionNotFound)
		})
	}
}

func TestStoreDelete(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Save("rec-1", stagedMemento(t, "rec-1")))
			require.NoError(t, store.Delete("rec-1"))

			_, err := store.Load("rec-1")
			assert.ErrorIs(t, err, session.ErrSessionNotFound)

			// Deleting twice is not an error.
			assert.NoError(t, store.Delete("rec-1"))
		})
	}
}

func TestStoreList(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ids, err := store.List()
			require.NoError(t, err)
			assert.Empty(t, ids)

			require.NoError(t, store.Save("rec-b", stagedMemento(t, "rec-b")))
			require.NoError(t, store.Save("rec-a", stagedMemento(t, "rec-a")))

			ids, err = store.List()
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"rec-a", "rec-b"}, ids)
		})
	}
}

func TestJSONStoreDetectsTampering(t *testing.T) {
	dir := t.TempDir()
	store, err := session.NewJSONStore(dir, events.Discard())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save("rec-1", stagedMemento(t, "rec-1")))

	path := filepath.Join(dir, "rec-1.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &env))
	env["memento"] = json.RawMessage(`{"record_id":"rec-evil"}`)
	tampered, err := json.Marshal(env)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, tampered, 0600))

	_, err = store.Load("rec-1")
	assert.ErrorIs(t, err, session.ErrSessionCorrupt)
}

func TestJSONStoreRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	store, err := session.NewJSONStore(dir, events.Discard())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "rec-1.json"), []byte("not json"), 0600))

	_, err = store.Load("rec-1")
	assert.ErrorIs(t, err, session.ErrSessionCorrupt)
}

func TestSQLiteStoreStripsBlobsFromMementoRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	store, err := session.NewSQLiteStore(path, events.Discard())
	require.NoError(t, err)
	defer store.Close()

	m := stagedMemento(t, "rec-1")
	require.NoError(t, store.Save("rec-1", m))

	// The caller's memento keeps its bytes.
	for _, sm := range m.Slots {
		if sm.Pending != nil {
			assert.NotEmpty(t, sm.Pending.Data)
		}
	}

	got, err := store.Load("rec-1")
	require.NoError(t, err)

	restored, err := staging.Restore(got)
	require.NoError(t, err)
	slot, err := restored.Slot(models.SlotVideoTour)
	require.NoError(t, err)
	assert.Equal(t, []byte("mp4-bytes"), slot.Pending().Data)
}
