package shardmap

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testMap runs the Map contract against an implementation.
func testMap(t *testing.T, m Map) {
	ctx := context.Background()

	t.Run("missing entry returns ErrNotFound", func(t *testing.T) {
		_, err := m.Get(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("set and get", func(t *testing.T) {
		require.NoError(t, m.Set(ctx, "rec-1", "shard-b"))

		shardID, err := m.Get(ctx, "rec-1")
		require.NoError(t, err)
		assert.Equal(t, "shard-b", shardID)

		n, err := m.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("set overwrites", func(t *testing.T) {
		require.NoError(t, m.Set(ctx, "rec-1", "shard-c"))

		shardID, err := m.Get(ctx, "rec-1")
		require.NoError(t, err)
		assert.Equal(t, "shard-c", shardID)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, m.Delete(ctx, "rec-1"))
		_, err := m.Get(ctx, "rec-1")
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, m.Delete(ctx, "rec-1"))
	})
}

func TestMemoryMap(t *testing.T) {
	m := NewMemoryMap()
	defer m.Close()
	testMap(t, m)
}

func TestBoltMap(t *testing.T) {
	m, err := NewBoltMap(filepath.Join(t.TempDir(), "shardmap.db"))
	require.NoError(t, err)
	defer m.Close()
	testMap(t, m)
}

func TestBoltMapSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shardmap.db")

	m, err := NewBoltMap(path)
	require.NoError(t, err)
	require.NoError(t, m.Set(ctx, "rec-1", "shard-a"))
	require.NoError(t, m.Close())

	reopened, err := NewBoltMap(path)
	require.NoError(t, err)
	defer reopened.Close()

	shardID, err := reopened.Get(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "shard-a", shardID)
}
