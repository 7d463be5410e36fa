package baseline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/catview/blobstore"
	"github.com/hupe1980/catview/model"
)

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New([]Entry{
		{Partition: "expense", ItemID: "food", Order: 100},
		{Partition: "expense", ItemID: "food", Order: 200},
	})
	require.Error(t, err)
}

func TestNewRejectsNonPositiveKeys(t *testing.T) {
	_, err := New([]Entry{{Partition: "expense", ItemID: "food", Order: 0}})
	require.Error(t, err)
}

func TestSeedSpacing(t *testing.T) {
	tbl := Seed("expense", []model.ItemID{"food", "transport", "housing"})

	k, ok := tbl.Lookup("expense", "food")
	require.True(t, ok)
	assert.Equal(t, model.OrderKey(100), k)

	k, ok = tbl.Lookup("expense", "housing")
	require.True(t, ok)
	assert.Equal(t, model.OrderKey(300), k)

	// Same item in another partition is a separate entry space.
	_, ok = tbl.Lookup("income", "food")
	assert.False(t, ok)
}

func TestEntriesSorted(t *testing.T) {
	tbl, err := New([]Entry{
		{Partition: "income", ItemID: "salary", Order: 100},
		{Partition: "expense", ItemID: "transport", Order: 200},
		{Partition: "expense", ItemID: "food", Order: 100},
	})
	require.NoError(t, err)

	entries := tbl.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, model.ItemID("food"), entries[0].ItemID)
	assert.Equal(t, model.ItemID("transport"), entries[1].ItemID)
	assert.Equal(t, model.Partition("income"), entries[2].Partition)
}

func TestSaveLoadRoundtrip(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	tbl := Seed("expense", []model.ItemID{"food", "transport"})
	require.NoError(t, Save(ctx, store, "baseline/expense", tbl))

	loaded, err := Load(ctx, store, "baseline/expense")
	require.NoError(t, err)
	assert.Equal(t, tbl.Entries(), loaded.Entries())
}

func TestLoadUnknownCodec(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(ctx, "bad", []byte(`{"codec":"msgpack","entries":[]}`)))

	_, err := Load(ctx, store, "bad")
	require.Error(t, err)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(context.Background(), blobstore.NewMemoryStore(), "missing")
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}
