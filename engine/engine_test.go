package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/catview/baseline"
	"github.com/hupe1980/catview/cache"
	"github.com/hupe1980/catview/catalog"
	"github.com/hupe1980/catview/model"
	"github.com/hupe1980/catview/override"
	"github.com/hupe1980/catview/testutil"
)

const testPartition = model.Partition("expense")

const (
	ownerAlice = model.OwnerID("alice")
	ownerBob   = model.OwnerID("bob")
)

var errInjected = errors.New("injected write failure")

// countingOverrides wraps the in-memory override store so tests can assert
// on exact write volume and inject per-row failures.
type countingOverrides struct {
	*override.MemoryStore

	singleWrites atomic.Int64
	bulkRows     atomic.Int64

	failID model.ItemID
}

func newCountingOverrides() *countingOverrides {
	return &countingOverrides{MemoryStore: override.NewMemoryStore()}
}

func (c *countingOverrides) Upsert(ctx context.Context, owner model.OwnerID, itemID model.ItemID, patch override.Patch) error {
	c.singleWrites.Add(1)
	return c.MemoryStore.Upsert(ctx, owner, itemID, patch)
}

func (c *countingOverrides) BulkUpsert(ctx context.Context, owner model.OwnerID, patches []override.ItemPatch) ([]override.BulkResult, error) {
	results := make([]override.BulkResult, len(patches))
	for i, p := range patches {
		results[i] = override.BulkResult{ItemID: p.ItemID}
		if p.ItemID == c.failID {
			results[i].Err = errInjected
			continue
		}
		c.bulkRows.Add(1)
		if err := c.MemoryStore.Upsert(ctx, owner, p.ItemID, p.Patch); err != nil {
			results[i].Err = err
		}
	}
	return results, nil
}

func (c *countingOverrides) writes() int64 {
	return c.singleWrites.Load() + c.bulkRows.Load()
}

func defaultItem(id model.ItemID) model.Item {
	return model.Item{ID: id, Partition: testPartition, Kind: model.KindDefault}
}

func customItem(id model.ItemID, owner model.OwnerID) model.Item {
	return model.Item{ID: id, Partition: testPartition, Kind: model.KindCustom, Owner: owner}
}

// newTestEngine builds an engine over in-memory stores. entries seed the
// baseline order table; items seed the catalog.
func newTestEngine(t *testing.T, entries []baseline.Entry, items []model.Item, optFns ...Option) (*Engine, *catalog.MemoryStore, *countingOverrides) {
	t.Helper()

	tbl, err := baseline.New(entries)
	require.NoError(t, err)

	cat := catalog.NewMemoryStore()
	for _, it := range items {
		cat.Put(it)
	}

	ovr := newCountingOverrides()
	c := cache.New(cat, cache.StaticBaseline(tbl))

	return New(cat, ovr, c, optFns...), cat, ovr
}

func abcFixture(t *testing.T, optFns ...Option) (*Engine, *catalog.MemoryStore, *countingOverrides) {
	t.Helper()
	return newTestEngine(t,
		[]baseline.Entry{
			{Partition: testPartition, ItemID: "A", Order: 100},
			{Partition: testPartition, ItemID: "B", Order: 200},
			{Partition: testPartition, ItemID: "C", Order: 300},
		},
		[]model.Item{defaultItem("A"), defaultItem("B"), defaultItem("C")},
		optFns...,
	)
}

func viewIDs(t *testing.T, e *Engine, owner model.OwnerID, includeHidden bool) []model.ItemID {
	t.Helper()
	entries, err := e.View(context.Background(), owner, testPartition, includeHidden)
	require.NoError(t, err)
	ids := make([]model.ItemID, len(entries))
	for i, entry := range entries {
		ids[i] = entry.Item.ID
	}
	return ids
}

func TestViewDefaultsOnly(t *testing.T) {
	e, _, ovr := abcFixture(t)

	ids := viewIDs(t, e, ownerAlice, false)
	assert.Equal(t, []model.ItemID{"A", "B", "C"}, ids)

	// Reading a view must never create override rows.
	assert.Equal(t, int64(0), ovr.writes())
	assert.Equal(t, 0, ovr.Len())
}

func TestViewCustomsAppendAfterDefaults(t *testing.T) {
	e, cat, _ := abcFixture(t)
	cat.Put(customItem("groceries", ownerAlice))
	cat.Put(customItem("bus", ownerAlice))
	cat.Put(customItem("other", ownerBob))

	// Customs land after all defaults; items sharing the append key break
	// the tie by id, deterministically.
	assert.Equal(t, []model.ItemID{"A", "B", "C", "bus", "groceries"}, viewIDs(t, e, ownerAlice, false))

	// Another owner's customs never leak.
	assert.Equal(t, []model.ItemID{"A", "B", "C", "other"}, viewIDs(t, e, ownerBob, false))
}

func TestViewMissingBaselineEntrySortsLast(t *testing.T) {
	e, cat, _ := abcFixture(t)

	// A default item the baseline table does not know about.
	cat.Put(defaultItem("Z"))

	assert.Equal(t, []model.ItemID{"A", "B", "C", "Z"}, viewIDs(t, e, ownerAlice, false))
}

func TestSetHidden(t *testing.T) {
	t.Run("filters from views", func(t *testing.T) {
		e, _, _ := abcFixture(t)

		require.NoError(t, e.SetHidden(context.Background(), ownerAlice, "B", true))

		assert.Equal(t, []model.ItemID{"A", "C"}, viewIDs(t, e, ownerAlice, false))
		assert.Equal(t, []model.ItemID{"A", "B", "C"}, viewIDs(t, e, ownerAlice, true))

		// Visibility is per owner.
		assert.Equal(t, []model.ItemID{"A", "B", "C"}, viewIDs(t, e, ownerBob, false))
	})

	t.Run("flag visible when hidden included", func(t *testing.T) {
		e, _, _ := abcFixture(t)
		require.NoError(t, e.SetHidden(context.Background(), ownerAlice, "B", true))

		entries, err := e.View(context.Background(), ownerAlice, testPartition, true)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.False(t, entries[0].Hidden)
		assert.True(t, entries[1].Hidden)
	})

	t.Run("unhide restores", func(t *testing.T) {
		e, _, _ := abcFixture(t)
		require.NoError(t, e.SetHidden(context.Background(), ownerAlice, "B", true))
		require.NoError(t, e.SetHidden(context.Background(), ownerAlice, "B", false))
		assert.Equal(t, []model.ItemID{"A", "B", "C"}, viewIDs(t, e, ownerAlice, false))
	})

	t.Run("unknown item", func(t *testing.T) {
		e, _, ovr := abcFixture(t)
		err := e.SetHidden(context.Background(), ownerAlice, "nope", true)
		assert.ErrorIs(t, err, ErrUnknownItem)
		assert.Equal(t, int64(0), ovr.writes())
	})

	t.Run("foreign custom item", func(t *testing.T) {
		e, cat, _ := abcFixture(t)
		cat.Put(customItem("bobs", ownerBob))
		err := e.SetHidden(context.Background(), ownerAlice, "bobs", true)
		assert.ErrorIs(t, err, ErrUnknownItem)
	})

	t.Run("preserves custom order", func(t *testing.T) {
		e, _, _ := abcFixture(t)
		require.NoError(t, e.Reorder(context.Background(), ownerAlice, testPartition, []model.ItemID{"B", "A", "C"}))
		require.NoError(t, e.SetHidden(context.Background(), ownerAlice, "B", true))
		require.NoError(t, e.SetHidden(context.Background(), ownerAlice, "B", false))
		assert.Equal(t, []model.ItemID{"B", "A", "C"}, viewIDs(t, e, ownerAlice, false))
	})
}

func TestReorderValidation(t *testing.T) {
	tests := []struct {
		name     string
		sequence []model.ItemID
		want     error
	}{
		{
			name:     "unknown id",
			sequence: []model.ItemID{"A", "B", "nope"},
			want:     ErrUnknownItem,
		},
		{
			name:     "duplicate id",
			sequence: []model.ItemID{"A", "B", "B"},
			want:     ErrStaleSequence,
		},
		{
			name:     "dropped id",
			sequence: []model.ItemID{"A", "B"},
			want:     ErrStaleSequence,
		},
		{
			name:     "wrong partition",
			sequence: []model.ItemID{"A", "B", "C", "income-only"},
			want:     ErrUnknownItem,
		},
		{
			name:     "foreign custom item",
			sequence: []model.ItemID{"A", "B", "C", "bobs"},
			want:     ErrUnknownItem,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, cat, ovr := abcFixture(t)
			cat.Put(model.Item{ID: "income-only", Partition: "income", Kind: model.KindDefault})
			cat.Put(customItem("bobs", ownerBob))

			err := e.Reorder(context.Background(), ownerAlice, testPartition, tt.sequence)
			assert.ErrorIs(t, err, tt.want)

			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)

			// Validation failures must abort before any write.
			assert.Equal(t, int64(0), ovr.writes())
		})
	}
}

func TestReorderIdempotent(t *testing.T) {
	e, _, ovr := abcFixture(t)

	require.NoError(t, e.Reorder(context.Background(), ownerAlice, testPartition, []model.ItemID{"A", "B", "C"}))
	assert.Equal(t, int64(0), ovr.writes())

	// A second identical reorder after a real one is also free.
	require.NoError(t, e.Reorder(context.Background(), ownerAlice, testPartition, []model.ItemID{"B", "A", "C"}))
	before := ovr.writes()
	require.NoError(t, e.Reorder(context.Background(), ownerAlice, testPartition, []model.ItemID{"B", "A", "C"}))
	assert.Equal(t, before, ovr.writes())
}

func TestReorderSingleMove(t *testing.T) {
	e, _, ovr := abcFixture(t)

	// Swapping the first two items displaces exactly one of them.
	require.NoError(t, e.Reorder(context.Background(), ownerAlice, testPartition, []model.ItemID{"B", "A", "C"}))

	assert.Equal(t, int64(1), ovr.writes())
	assert.Equal(t, []model.ItemID{"B", "A", "C"}, viewIDs(t, e, ownerAlice, true))

	// The other owner's view is untouched.
	assert.Equal(t, []model.ItemID{"A", "B", "C"}, viewIDs(t, e, ownerBob, true))
}

func TestReorderMinimalWrites(t *testing.T) {
	entries := make([]baseline.Entry, 0, 6)
	items := make([]model.Item, 0, 6)
	ids := []model.ItemID{"a", "b", "c", "d", "e", "f"}
	for i, id := range ids {
		entries = append(entries, baseline.Entry{Partition: testPartition, ItemID: id, Order: model.OrderKey(100 * (i + 1))})
		items = append(items, defaultItem(id))
	}
	e, _, ovr := newTestEngine(t, entries, items)

	// Move "e" to the second slot: one displaced item, one write.
	require.NoError(t, e.Reorder(context.Background(), ownerAlice, testPartition, []model.ItemID{"a", "e", "b", "c", "d", "f"}))
	assert.Equal(t, int64(1), ovr.writes())
	assert.Equal(t, []model.ItemID{"a", "e", "b", "c", "d", "f"}, viewIDs(t, e, ownerAlice, true))
}

func TestReorderFullReversal(t *testing.T) {
	e, _, ovr := abcFixture(t)

	require.NoError(t, e.Reorder(context.Background(), ownerAlice, testPartition, []model.ItemID{"C", "B", "A"}))
	assert.Equal(t, []model.ItemID{"C", "B", "A"}, viewIDs(t, e, ownerAlice, true))
	assert.LessOrEqual(t, ovr.writes(), int64(3))
}

func TestReorderPreservesHiddenFlag(t *testing.T) {
	e, _, _ := abcFixture(t)
	ctx := context.Background()

	require.NoError(t, e.SetHidden(ctx, ownerAlice, "B", true))

	// Hidden items still occupy order slots, so the sequence includes B.
	require.NoError(t, e.Reorder(ctx, ownerAlice, testPartition, []model.ItemID{"C", "B", "A"}))

	assert.Equal(t, []model.ItemID{"C", "B", "A"}, viewIDs(t, e, ownerAlice, true))
	assert.Equal(t, []model.ItemID{"C", "A"}, viewIDs(t, e, ownerAlice, false))
}

func TestReorderArbitraryPermutations(t *testing.T) {
	sequences := [][]model.ItemID{
		{"C", "A", "B"},
		{"B", "C", "A"},
		{"A", "C", "B"},
		{"C", "B", "A"},
		{"A", "B", "C"},
	}

	e, _, _ := abcFixture(t)
	ctx := context.Background()

	// Order-preserving merge: after every successful reorder the view
	// equals the requested sequence exactly.
	for _, seq := range sequences {
		require.NoError(t, e.Reorder(ctx, ownerAlice, testPartition, seq))
		assert.Equal(t, seq, viewIDs(t, e, ownerAlice, true))
	}
}

func TestReorderWithCustomItems(t *testing.T) {
	e, cat, _ := abcFixture(t)
	cat.Put(customItem("x", ownerAlice))
	ctx := context.Background()

	seq := []model.ItemID{"x", "A", "B", "C"}
	require.NoError(t, e.Reorder(ctx, ownerAlice, testPartition, seq))
	assert.Equal(t, seq, viewIDs(t, e, ownerAlice, true))
}

func TestReorderExpectedOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("matching precondition", func(t *testing.T) {
		e, _, _ := abcFixture(t)
		err := e.Reorder(ctx, ownerAlice, testPartition, []model.ItemID{"B", "A", "C"},
			WithExpectedOrder([]model.ItemID{"A", "B", "C"}))
		require.NoError(t, err)
		assert.Equal(t, []model.ItemID{"B", "A", "C"}, viewIDs(t, e, ownerAlice, true))
	})

	t.Run("stale precondition", func(t *testing.T) {
		e, _, ovr := abcFixture(t)

		// Another session reordered in between.
		require.NoError(t, e.Reorder(ctx, ownerAlice, testPartition, []model.ItemID{"C", "A", "B"}))
		before := ovr.writes()

		err := e.Reorder(ctx, ownerAlice, testPartition, []model.ItemID{"B", "A", "C"},
			WithExpectedOrder([]model.ItemID{"A", "B", "C"}))
		assert.ErrorIs(t, err, ErrConcurrentModification)
		assert.Equal(t, before, ovr.writes())
	})
}

func TestReorderPartialWrite(t *testing.T) {
	e, _, ovr := abcFixture(t)
	ovr.failID = "C"

	err := e.Reorder(context.Background(), ownerAlice, testPartition, []model.ItemID{"C", "B", "A"})
	require.Error(t, err)

	var pwe *PartialWriteError
	require.ErrorAs(t, err, &pwe)
	assert.Contains(t, pwe.Failed, model.ItemID("C"))
	assert.NotEmpty(t, pwe.Succeeded)
	assert.ErrorIs(t, err, errInjected)

	// Already-written rows are durable; a retry against a fixed store
	// touches only what is still misplaced and converges.
	ovr.failID = ""
	require.NoError(t, e.Reorder(context.Background(), ownerAlice, testPartition, []model.ItemID{"C", "B", "A"}))
	assert.Equal(t, []model.ItemID{"C", "B", "A"}, viewIDs(t, e, ownerAlice, true))
}

func TestReorderCollisionTriggersRebalance(t *testing.T) {
	// Baseline leaves only three integer slots between A and B. Repeatedly
	// moving one more item in between exhausts the gap and must trigger
	// exactly one rebalance, without corrupting the order.
	entries := []baseline.Entry{
		{Partition: testPartition, ItemID: "A", Order: 100},
		{Partition: testPartition, ItemID: "B", Order: 104},
		{Partition: testPartition, ItemID: "c1", Order: 200},
		{Partition: testPartition, ItemID: "c2", Order: 300},
		{Partition: testPartition, ItemID: "c3", Order: 400},
		{Partition: testPartition, ItemID: "c4", Order: 500},
	}
	items := []model.Item{
		defaultItem("A"), defaultItem("B"),
		defaultItem("c1"), defaultItem("c2"), defaultItem("c3"), defaultItem("c4"),
	}

	metrics := &BasicMetricsCollector{}
	e, _, _ := newTestEngine(t, entries, items, WithMetricsCollector(metrics))
	ctx := context.Background()

	want := []model.ItemID{"A", "B", "c1", "c2", "c3", "c4"}
	require.Equal(t, want, viewIDs(t, e, ownerAlice, true))

	// Insert c1..c4 one at a time just before B. The first three fit in
	// the 101..103 gap; the fourth collides.
	inserted := []model.ItemID{"A"}
	remaining := []model.ItemID{"c1", "c2", "c3", "c4"}
	for len(remaining) > 0 {
		next := remaining[0]
		remaining = remaining[1:]

		seq := append(append([]model.ItemID{}, inserted...), next, "B")
		seq = append(seq, remaining...)

		require.NoError(t, e.Reorder(ctx, ownerAlice, testPartition, seq))
		assert.Equal(t, seq, viewIDs(t, e, ownerAlice, true))

		inserted = append(inserted, next)
	}

	assert.Equal(t, int64(1), metrics.RebalanceCount.Load())
	assert.Equal(t, []model.ItemID{"A", "c1", "c2", "c3", "c4", "B"}, viewIDs(t, e, ownerAlice, true))
}

func TestReorderRandomized(t *testing.T) {
	ids := testutil.ItemIDs("item", 20)
	entries := make([]baseline.Entry, len(ids))
	items := make([]model.Item, len(ids))
	for i, id := range ids {
		entries[i] = baseline.Entry{Partition: testPartition, ItemID: id, Order: model.OrderKey(100 * (i + 1))}
		items[i] = defaultItem(id)
	}

	e, _, ovr := newTestEngine(t, entries, items)
	ctx := context.Background()
	rng := testutil.NewRNG(1)

	t.Run("shuffles converge", func(t *testing.T) {
		for range 10 {
			seq := testutil.Shuffle(rng, viewIDs(t, e, ownerAlice, true))

			before := ovr.writes()
			require.NoError(t, e.Reorder(ctx, ownerAlice, testPartition, seq))
			assert.Equal(t, seq, viewIDs(t, e, ownerAlice, true))

			// Never more writes than items.
			assert.LessOrEqual(t, ovr.writes()-before, int64(len(ids)))
		}
	})

	t.Run("single moves cost one write", func(t *testing.T) {
		metrics := &BasicMetricsCollector{}
		e2, _, ovr2 := newTestEngine(t, entries, items, WithMetricsCollector(metrics))

		for range 10 {
			current := viewIDs(t, e2, ownerBob, true)
			from := rng.Intn(len(current))
			to := rng.Intn(len(current))
			seq := testutil.MoveOne(current, from, to)

			writesBefore := ovr2.writes()
			rebalancesBefore := metrics.RebalanceCount.Load()
			require.NoError(t, e2.Reorder(ctx, ownerBob, testPartition, seq))
			assert.Equal(t, seq, viewIDs(t, e2, ownerBob, true))

			if metrics.RebalanceCount.Load() == rebalancesBefore {
				assert.LessOrEqual(t, ovr2.writes()-writesBefore, int64(1))
			}
		}
	})
}

func TestReorderOwnersIndependent(t *testing.T) {
	e, _, _ := abcFixture(t)
	ctx := context.Background()

	require.NoError(t, e.Reorder(ctx, ownerAlice, testPartition, []model.ItemID{"C", "B", "A"}))
	require.NoError(t, e.Reorder(ctx, ownerBob, testPartition, []model.ItemID{"B", "C", "A"}))

	assert.Equal(t, []model.ItemID{"C", "B", "A"}, viewIDs(t, e, ownerAlice, true))
	assert.Equal(t, []model.ItemID{"B", "C", "A"}, viewIDs(t, e, ownerBob, true))
}

func TestDisplacedPositions(t *testing.T) {
	tests := []struct {
		name     string
		current  []model.ItemID
		sequence []model.ItemID
		want     []bool
	}{
		{
			name:     "identity",
			current:  []model.ItemID{"a", "b", "c"},
			sequence: []model.ItemID{"a", "b", "c"},
			want:     []bool{false, false, false},
		},
		{
			name:     "swap displaces one",
			current:  []model.ItemID{"a", "b", "c"},
			sequence: []model.ItemID{"b", "a", "c"},
			want:     []bool{true, false, false},
		},
		{
			name:     "single long move",
			current:  []model.ItemID{"a", "b", "c", "d", "e"},
			sequence: []model.ItemID{"a", "e", "b", "c", "d"},
			want:     []bool{false, true, false, false, false},
		},
		{
			name:     "reversal keeps one",
			current:  []model.ItemID{"a", "b", "c"},
			sequence: []model.ItemID{"c", "b", "a"},
			want:     []bool{true, false, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := displacedPositions(tt.current, tt.sequence)
			// The LIS may pick a different kept set of the same size;
			// assert the displacement count and that kept items are truly
			// in relative order.
			assert.Equal(t, countTrue(tt.want), countTrue(got))
			assertKeptInOrder(t, tt.current, tt.sequence, got)
		})
	}
}

func countTrue(bs []bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}

func assertKeptInOrder(t *testing.T, current, sequence []model.ItemID, displaced []bool) {
	t.Helper()

	pos := make(map[model.ItemID]int, len(current))
	for i, id := range current {
		pos[id] = i
	}

	last := -1
	for i, id := range sequence {
		if displaced[i] {
			continue
		}
		require.Greater(t, pos[id], last, "kept items must preserve relative order")
		last = pos[id]
	}
}
