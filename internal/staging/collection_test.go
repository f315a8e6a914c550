package staging_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/schoolctl/internal/models"
	"github.com/TheMichaelB/schoolctl/internal/staging"
)

func strptr(s string) *string { return &s }

func snapshotWithItems(entries ...models.CollectionEntry) *models.RecordSnapshot {
	snap := models.NewRecordSnapshot("rec-1")
	snap.Collection = entries
	return snap
}

func entry(key, name, year, desc string) models.CollectionEntry {
	return models.CollectionEntry{
		Ref:         models.AttachmentRef{IdentityKey: key, DisplayName: name, Size: 512},
		Year:        year,
		Description: desc,
	}
}

func TestCollectionBaselineLoad(t *testing.T) {
	store := staging.New(snapshotWithItems(
		entry("uploads/a.pdf", "a.pdf", "2024", "Finals"),
		entry("uploads/b.pdf", "b.pdf", "2025", "Mocks"),
	))

	items := store.Items()
	require.Len(t, items, 2)
	for _, it := range items {
		assert.Equal(t, staging.OriginExisting, it.Origin)
		assert.Equal(t, staging.StatusActive, it.Status)
		assert.NotEmpty(t, it.ID)
		assert.NotNil(t, it.Ref)
		assert.Nil(t, it.File)
	}
	assert.Equal(t, "2024", items[0].Year)
	assert.Equal(t, "Mocks", items[1].Description)
	assert.False(t, store.IsDirty())
}

func TestCollectionAddNewItem(t *testing.T) {
	store := staging.New(snapshotWithItems())

	item, err := store.AddItem(testFile("results.pdf"), models.ItemMetadata{
		Year:        strptr("2026"),
		Description: strptr("Entrance exams"),
	})
	require.NoError(t, err)

	assert.Equal(t, staging.OriginNew, item.Origin)
	assert.Equal(t, staging.StatusActive, item.Status)
	assert.Equal(t, "2026", item.Year)
	assert.Equal(t, "Entrance exams", item.Description)
	require.NotNil(t, item.File)
	assert.Equal(t, "results.pdf", item.File.Name)
	assert.True(t, store.IsDirty())
	assert.Empty(t, store.Validate())
}

func TestCollectionRemoveRestoreExisting(t *testing.T) {
	store := staging.New(snapshotWithItems(entry("uploads/a.pdf", "a.pdf", "2024", "")))
	id := store.Items()[0].ID

	require.NoError(t, store.MarkItemRemoved(id))
	assert.Equal(t, staging.StatusMarkedForRemoval, store.Items()[0].Status)
	assert.True(t, store.IsDirty())

	// Removal is revocable right up to commit.
	require.NoError(t, store.RestoreItem(id))
	assert.Equal(t, staging.StatusActive, store.Items()[0].Status)
	assert.False(t, store.IsDirty())
}

func TestCollectionRemoveNewDeletesOutright(t *testing.T) {
	store := staging.New(snapshotWithItems())

	item, err := store.AddItem(testFile("draft.pdf"), models.ItemMetadata{})
	require.NoError(t, err)

	require.NoError(t, store.RemoveNewItem(item.ID))
	assert.Empty(t, store.Items())
	assert.False(t, store.IsDirty())

	_, found := store.FindItem(item.ID)
	assert.False(t, found)
}

func TestCollectionReplaceExisting(t *testing.T) {
	store := staging.New(snapshotWithItems(entry("uploads/a.pdf", "a.pdf", "2024", "Finals")))
	origID := store.Items()[0].ID

	repl, err := store.ReplaceItem(origID, testFile("a-v2.pdf"))
	require.NoError(t, err)

	orig, ok := store.FindItem(origID)
	require.True(t, ok)
	assert.Equal(t, staging.StatusSuperseded, orig.Status)

	assert.Equal(t, staging.OriginNew, repl.Origin)
	assert.Equal(t, origID, repl.ReplacesID)
	assert.Equal(t, "2024", repl.Year, "replacement inherits metadata")
	assert.Equal(t, "Finals", repl.Description)
	assert.Empty(t, store.Validate())

	// Replacing an already-superseded item is rejected.
	_, err = store.ReplaceItem(origID, testFile("a-v3.pdf"))
	assert.ErrorIs(t, err, models.ErrInvalidOperation)
}

func TestCollectionRemoveReplacementRevertsOriginal(t *testing.T) {
	store := staging.New(snapshotWithItems(entry("uploads/a.pdf", "a.pdf", "2024", "")))
	origID := store.Items()[0].ID

	repl, err := store.ReplaceItem(origID, testFile("a-v2.pdf"))
	require.NoError(t, err)

	require.NoError(t, store.RemoveNewItem(repl.ID))

	orig, ok := store.FindItem(origID)
	require.True(t, ok)
	assert.Equal(t, staging.StatusActive, orig.Status)
	assert.False(t, store.IsDirty())
}

func TestCollectionMetadataUpdate(t *testing.T) {
	store := staging.New(snapshotWithItems(entry("uploads/a.pdf", "a.pdf", "2024", "Finals")))
	id := store.Items()[0].ID

	t.Run("partial merge keeps unset fields", func(t *testing.T) {
		require.NoError(t, store.UpdateItemMetadata(id, models.ItemMetadata{Year: strptr("2025")}))

		it, _ := store.FindItem(id)
		assert.Equal(t, "2025", it.Year)
		assert.Equal(t, "Finals", it.Description)
		assert.True(t, store.IsDirty())
	})

	t.Run("reverting to baseline clears dirtiness", func(t *testing.T) {
		require.NoError(t, store.UpdateItemMetadata(id, models.ItemMetadata{Year: strptr("2024")}))
		assert.False(t, store.IsDirty())
	})

	t.Run("unknown item", func(t *testing.T) {
		err := store.UpdateItemMetadata("nope", models.ItemMetadata{Year: strptr("2025")})
		assert.ErrorIs(t, err, models.ErrItemNotFound)
	})
}

func TestCollectionInvalidOperations(t *testing.T) {
	store := staging.New(snapshotWithItems(entry("uploads/a.pdf", "a.pdf", "2024", "")))
	existingID := store.Items()[0].ID

	newItem, err := store.AddItem(testFile("new.pdf"), models.ItemMetadata{})
	require.NoError(t, err)

	tests := []struct {
		name string
		op   func() error
	}{
		{"mark new item removed", func() error { return store.MarkItemRemoved(newItem.ID) }},
		{"restore active item", func() error { return store.RestoreItem(existingID) }},
		{"remove-new on existing item", func() error { return store.RemoveNewItem(existingID) }},
		{"replace new item", func() error {
			_, err := store.ReplaceItem(newItem.ID, testFile("x.pdf"))
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.op(), models.ErrInvalidOperation)
		})
	}
}
