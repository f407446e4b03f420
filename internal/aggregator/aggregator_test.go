package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dreamware/catalogd/internal/catalog"
	"github.com/dreamware/catalogd/internal/coordinator"
	"github.com/dreamware/catalogd/internal/shard"
)

func testRegistry(t *testing.T, ids ...string) *coordinator.ShardRegistry {
	t.Helper()

	shards := make([]*shard.Shard, 0, len(ids))
	for _, id := range ids {
		shards = append(shards, shard.NewMemory(id))
	}
	registry, err := coordinator.NewShardRegistry(shards)
	require.NoError(t, err)
	t.Cleanup(func() { _ = registry.Close() })
	return registry
}

// waitForView drains the view stream until a view satisfies the
// condition, or fails the test after a timeout.
func waitForView(t *testing.T, a *Aggregator, cond func(View) bool) View {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case v := <-a.Views():
			if cond(v) {
				return v
			}
		case <-deadline:
			t.Fatal("Timed out waiting for expected view")
			return View{}
		}
	}
}

func ids(products []catalog.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

// TestAggregatorMerge verifies that per-shard snapshots merge into one
// flattened view in shard order then document order.
func TestAggregatorMerge(t *testing.T) {
	ctx := context.Background()
	registry := testRegistry(t, "A", "B", "C")

	shA, err := registry.ShardFor("A")
	require.NoError(t, err)
	shB, err := registry.ShardFor("B")
	require.NoError(t, err)

	require.NoError(t, shB.Put(ctx, catalog.Product{ID: "p1", Name: "Widget", Code: 10, Price: 1}))
	require.NoError(t, shA.Put(ctx, catalog.Product{ID: "p2", Name: "Gadget", Code: 21, Price: 2}))

	a := New(zap.NewNop(), registry)
	a.Start()
	defer a.Stop()

	v := waitForView(t, a, func(v View) bool { return len(v.Products) == 2 })

	// Shard A's record precedes shard B's regardless of insert order.
	assert.Equal(t, []string{"p2", "p1"}, ids(v.Products))
	assert.Equal(t, "A", v.Products[0].ShardID)
	assert.Equal(t, "B", v.Products[1].ShardID)

	// No term set: filtered mirrors the full collection.
	assert.Equal(t, ids(v.Products), ids(v.Filtered))
}

// TestAggregatorLiveUpdates verifies that a commit on any shard
// republishes the whole view.
func TestAggregatorLiveUpdates(t *testing.T) {
	ctx := context.Background()
	registry := testRegistry(t, "A", "B")

	a := New(zap.NewNop(), registry)
	a.Start()
	defer a.Stop()

	waitForView(t, a, func(v View) bool { return len(v.Products) == 0 })

	shA, err := registry.ShardFor("A")
	require.NoError(t, err)
	require.NoError(t, shA.Put(ctx, catalog.Product{ID: "p1", Name: "Widget", Code: 2, Price: 1}))

	waitForView(t, a, func(v View) bool { return len(v.Products) == 1 })

	shB, err := registry.ShardFor("B")
	require.NoError(t, err)
	require.NoError(t, shB.Put(ctx, catalog.Product{ID: "p2", Name: "Gadget", Code: 1, Price: 2}))

	v := waitForView(t, a, func(v View) bool { return len(v.Products) == 2 })
	assert.Equal(t, []string{"p1", "p2"}, ids(v.Products))

	// Deletes propagate the same way.
	require.NoError(t, shA.Delete(ctx, "p1"))
	v = waitForView(t, a, func(v View) bool { return len(v.Products) == 1 })
	assert.Equal(t, "p2", v.Products[0].ID)
}

// TestAggregatorSnapshotReplacement verifies snapshots replace a
// shard's contribution wholesale rather than accumulating.
func TestAggregatorSnapshotReplacement(t *testing.T) {
	ctx := context.Background()
	registry := testRegistry(t, "A")

	shA, err := registry.ShardFor("A")
	require.NoError(t, err)
	require.NoError(t, shA.Put(ctx, catalog.Product{ID: "p1", Name: "Widget", Code: 1, Price: 1}))

	a := New(zap.NewNop(), registry)
	a.Start()
	defer a.Stop()

	waitForView(t, a, func(v View) bool { return len(v.Products) == 1 })

	require.NoError(t, shA.Put(ctx, catalog.Product{ID: "p1", Name: "Renamed", Code: 1, Price: 1}))

	v := waitForView(t, a, func(v View) bool {
		return len(v.Products) == 1 && v.Products[0].Name == "Renamed"
	})
	assert.Equal(t, "p1", v.Products[0].ID)
}

// TestAggregatorSetTerm verifies a term change refilters without new
// shard traffic, and that clearing it restores the full view.
func TestAggregatorSetTerm(t *testing.T) {
	ctx := context.Background()
	registry := testRegistry(t, "A")

	shA, err := registry.ShardFor("A")
	require.NoError(t, err)
	require.NoError(t, shA.Put(ctx, catalog.Product{ID: "p1", Name: "Red Widget", Code: 1, Price: 1}))
	require.NoError(t, shA.Put(ctx, catalog.Product{ID: "p2", Name: "Blue Gadget", Code: 2, Price: 2}))

	a := New(zap.NewNop(), registry)
	a.Start()
	defer a.Stop()

	waitForView(t, a, func(v View) bool { return len(v.Products) == 2 })

	a.SetTerm("widget")
	assert.Equal(t, "widget", a.Term())

	v := waitForView(t, a, func(v View) bool { return len(v.Filtered) == 1 })
	assert.Equal(t, "p1", v.Filtered[0].ID)
	assert.Len(t, v.Products, 2, "Full collection is not narrowed by the term")

	a.SetTerm("")
	waitForView(t, a, func(v View) bool { return len(v.Filtered) == 2 })
}

// TestAggregatorFaultedShard verifies a faulted shard is skipped at
// subscribe time and excluded once its feed dies mid-session.
func TestAggregatorFaultedShard(t *testing.T) {
	ctx := context.Background()

	t.Run("faulted at start is skipped", func(t *testing.T) {
		registry := testRegistry(t, "A", "B")

		shB, err := registry.ShardFor("B")
		require.NoError(t, err)
		require.NoError(t, shB.Put(ctx, catalog.Product{ID: "p1", Name: "Widget", Code: 1, Price: 1}))
		shB.SetState(shard.StateFaulted)

		a := New(zap.NewNop(), registry)
		a.Start()
		defer a.Stop()

		assert.Equal(t, StateFaulted, a.States()["B"])
		assert.Equal(t, StateActive, a.States()["A"])

		shA, err := registry.ShardFor("A")
		require.NoError(t, err)
		require.NoError(t, shA.Put(ctx, catalog.Product{ID: "p2", Name: "Gadget", Code: 2, Price: 2}))

		v := waitForView(t, a, func(v View) bool { return len(v.Products) == 1 })
		assert.Equal(t, "p2", v.Products[0].ID)
	})

	t.Run("feed death mid-session excludes the shard", func(t *testing.T) {
		registry := testRegistry(t, "A", "B")

		shA, err := registry.ShardFor("A")
		require.NoError(t, err)
		shB, err := registry.ShardFor("B")
		require.NoError(t, err)
		require.NoError(t, shA.Put(ctx, catalog.Product{ID: "p1", Name: "Widget", Code: 1, Price: 1}))
		require.NoError(t, shB.Put(ctx, catalog.Product{ID: "p2", Name: "Gadget", Code: 2, Price: 2}))

		a := New(zap.NewNop(), registry)
		a.Start()
		defer a.Stop()

		waitForView(t, a, func(v View) bool { return len(v.Products) == 2 })

		// Closing the store closes its subscriptions.
		require.NoError(t, shB.Store.Close())

		v := waitForView(t, a, func(v View) bool { return len(v.Products) == 1 })
		assert.Equal(t, "p1", v.Products[0].ID)
		assert.Eventually(t, func() bool {
			return a.States()["B"] == StateFaulted
		}, time.Second, 5*time.Millisecond)
	})
}

// TestAggregatorStop verifies the synchronous teardown contract: after
// Stop returns, no stale feed mutates the aggregate and a fresh Start
// sees a clean slate.
func TestAggregatorStop(t *testing.T) {
	ctx := context.Background()
	registry := testRegistry(t, "A")

	shA, err := registry.ShardFor("A")
	require.NoError(t, err)
	require.NoError(t, shA.Put(ctx, catalog.Product{ID: "p1", Name: "Widget", Code: 1, Price: 1}))

	a := New(zap.NewNop(), registry)
	a.Start()
	waitForView(t, a, func(v View) bool { return len(v.Products) == 1 })

	a.Stop()
	assert.Equal(t, StateUnsubscribed, a.States()["A"])

	// Drain anything published before Stop completed.
	for {
		select {
		case <-a.Views():
			continue
		default:
		}
		break
	}

	// Commits while stopped must not publish.
	require.NoError(t, shA.Put(ctx, catalog.Product{ID: "p2", Name: "Gadget", Code: 2, Price: 2}))
	select {
	case v := <-a.Views():
		t.Fatalf("Unexpected view after Stop: %v", ids(v.Products))
	case <-time.After(50 * time.Millisecond):
	}

	// Restart picks up the current shard contents, nothing stale.
	a.Start()
	defer a.Stop()
	v := waitForView(t, a, func(v View) bool { return len(v.Products) == 2 })
	assert.Equal(t, []string{"p1", "p2"}, ids(v.Products))
}

// TestAggregatorStartTwice verifies Start while running is a no-op.
func TestAggregatorStartTwice(t *testing.T) {
	registry := testRegistry(t, "A")

	a := New(zap.NewNop(), registry)
	a.Start()
	defer a.Stop()

	a.Start()
	assert.Equal(t, StateActive, a.States()["A"])
}
