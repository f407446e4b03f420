package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dreamware/catalogd/internal/aggregator"
	"github.com/dreamware/catalogd/internal/auth"
	"github.com/dreamware/catalogd/internal/catalog"
	"github.com/dreamware/catalogd/internal/coordinator"
	"github.com/dreamware/catalogd/internal/shard"
	"github.com/dreamware/catalogd/internal/shardmap"
)

func newTestService(t *testing.T) (*Service, *auth.StaticProvider) {
	t.Helper()

	shards := []*shard.Shard{shard.NewMemory("A"), shard.NewMemory("B"), shard.NewMemory("C")}
	registry, err := coordinator.NewShardRegistry(shards)
	require.NoError(t, err)

	log := zap.NewNop()
	coord := coordinator.New(log, registry, shardmap.NewMemoryMap())
	agg := aggregator.New(log, registry)
	provider := auth.NewStaticProvider()

	svc := New(log, coord, agg, provider)
	t.Cleanup(func() {
		svc.Close()
		agg.Stop()
		_ = registry.Close()
	})
	return svc, provider
}

func signIn(t *testing.T, svc *Service, provider *auth.StaticProvider, id auth.Identity) {
	t.Helper()
	provider.Set(id)
	require.NoError(t, svc.RefreshIdentity(context.Background()))
}

var ownerIdentity = auth.Identity{CallerID: "u1", Label: "User One", Role: catalog.RoleOwner}

// TestServiceSessionLifecycle covers sign-in, sign-out and the loading
// suspension around identity refresh.
func TestServiceSessionLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("loading identity suspends everything", func(t *testing.T) {
		svc, _ := newTestService(t)

		require.NoError(t, svc.RefreshIdentity(ctx))
		assert.True(t, svc.Identity().IsLoading)

		_, err := svc.AddProduct(ctx, coordinator.NewProduct{Name: "Widget", Code: 10, Price: 1})
		assert.True(t, catalog.ErrUnauthorized.Has(err))

		_, ok := svc.Snapshot()
		assert.False(t, ok, "No view before the first session")
	})

	t.Run("sign-in starts subscriptions and publishes a view", func(t *testing.T) {
		svc, provider := newTestService(t)

		signIn(t, svc, provider, ownerIdentity)
		assert.True(t, svc.Identity().Authenticated())

		require.Eventually(t, func() bool {
			_, ok := svc.Snapshot()
			return ok
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("sign-out tears down and clears the view", func(t *testing.T) {
		svc, provider := newTestService(t)

		signIn(t, svc, provider, ownerIdentity)
		p, err := svc.AddProduct(ctx, coordinator.NewProduct{Name: "Widget", Code: 10, Price: 1})
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			v, ok := svc.Snapshot()
			return ok && len(v.Products) == 1 && v.Products[0].ID == p.ID
		}, time.Second, 5*time.Millisecond)

		provider.SignOut()
		require.NoError(t, svc.RefreshIdentity(ctx))

		require.Eventually(t, func() bool {
			v, ok := svc.Snapshot()
			return ok && len(v.Products) == 0
		}, time.Second, 5*time.Millisecond, "Stale data must not linger after sign-out")

		_, err = svc.AddProduct(ctx, coordinator.NewProduct{Name: "Another", Code: 11, Price: 1})
		assert.True(t, catalog.ErrUnauthorized.Has(err))
	})

	t.Run("identity switch restarts the session cleanly", func(t *testing.T) {
		svc, provider := newTestService(t)

		signIn(t, svc, provider, ownerIdentity)
		_, err := svc.AddProduct(ctx, coordinator.NewProduct{Name: "Widget", Code: 10, Price: 1})
		require.NoError(t, err)

		signIn(t, svc, provider, auth.Identity{CallerID: "u2", Label: "User Two", Role: catalog.RoleOwner})

		// The new session still sees the shard data; subscriptions are
		// per-session, records are not.
		require.Eventually(t, func() bool {
			v, ok := svc.Snapshot()
			return ok && len(v.Products) == 1
		}, time.Second, 5*time.Millisecond)
	})
}

// TestServiceWrites covers the write operations through the facade.
func TestServiceWrites(t *testing.T) {
	ctx := context.Background()

	t.Run("add update delete roundtrip", func(t *testing.T) {
		svc, provider := newTestService(t)
		signIn(t, svc, provider, ownerIdentity)

		p, err := svc.AddProduct(ctx, coordinator.NewProduct{Name: "Widget", Code: 10, Price: 9.99})
		require.NoError(t, err)
		assert.Equal(t, "B", p.ShardID)
		assert.Equal(t, "u1", p.OwnerID)

		shardID, err := svc.ResolveShard(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.ShardID, shardID)

		newName := "Gadget"
		require.NoError(t, svc.UpdateProduct(ctx, p.ID, p.ShardID, catalog.Patch{Name: &newName}))

		require.Eventually(t, func() bool {
			v, ok := svc.Snapshot()
			return ok && len(v.Products) == 1 && v.Products[0].Name == "Gadget"
		}, time.Second, 5*time.Millisecond)

		require.NoError(t, svc.DeleteProduct(ctx, p.ID, p.ShardID))
		require.Eventually(t, func() bool {
			v, ok := svc.Snapshot()
			return ok && len(v.Products) == 0
		}, time.Second, 5*time.Millisecond)

		_, err = svc.ResolveShard(ctx, p.ID)
		assert.ErrorIs(t, err, shardmap.ErrNotFound)
	})

	t.Run("reassign requires elevated role", func(t *testing.T) {
		svc, provider := newTestService(t)
		signIn(t, svc, provider, ownerIdentity)

		p, err := svc.AddProduct(ctx, coordinator.NewProduct{Name: "Widget", Code: 10, Price: 1})
		require.NoError(t, err)

		err = svc.ReassignOwner(ctx, p.ID, p.ShardID, catalog.Caller{ID: "u2", Label: "User Two"})
		assert.True(t, catalog.ErrUnauthorized.Has(err))

		signIn(t, svc, provider, auth.Identity{CallerID: "adm", Label: "Admin", Role: catalog.RoleAdmin})
		require.NoError(t, svc.ReassignOwner(ctx, p.ID, p.ShardID, catalog.Caller{ID: "u2", Label: "User Two"}))

		require.Eventually(t, func() bool {
			v, ok := svc.Snapshot()
			return ok && len(v.Products) == 1 && v.Products[0].OwnerID == "u2"
		}, time.Second, 5*time.Millisecond)
	})
}

// TestServiceSearch covers term changes flowing through to the view.
func TestServiceSearch(t *testing.T) {
	ctx := context.Background()
	svc, provider := newTestService(t)
	signIn(t, svc, provider, ownerIdentity)

	_, err := svc.AddProduct(ctx, coordinator.NewProduct{Name: "Red Widget", Code: 10, Price: 1})
	require.NoError(t, err)
	_, err = svc.AddProduct(ctx, coordinator.NewProduct{Name: "Blue Gadget", Code: 21, Price: 2})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		v, ok := svc.Snapshot()
		return ok && len(v.Products) == 2
	}, time.Second, 5*time.Millisecond)

	svc.Search("widget")
	require.Eventually(t, func() bool {
		v, ok := svc.Snapshot()
		return ok && len(v.Filtered) == 1 && v.Filtered[0].Name == "Red Widget"
	}, time.Second, 5*time.Millisecond)

	svc.Search("")
	require.Eventually(t, func() bool {
		v, ok := svc.Snapshot()
		return ok && len(v.Filtered) == 2
	}, time.Second, 5*time.Millisecond)
}

// TestServiceWatch covers the watcher fanout.
func TestServiceWatch(t *testing.T) {
	ctx := context.Background()
	svc, provider := newTestService(t)
	signIn(t, svc, provider, ownerIdentity)

	ch, cancel := svc.Watch()
	defer cancel()

	_, err := svc.AddProduct(ctx, coordinator.NewProduct{Name: "Widget", Code: 10, Price: 1})
	require.NoError(t, err)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case v := <-ch:
			if len(v.Products) == 1 {
				assert.Equal(t, "Widget", v.Products[0].Name)
				return
			}
		case <-deadline:
			t.Fatal("Timed out waiting for view on watcher")
		}
	}
}
