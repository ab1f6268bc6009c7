package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelfetch/modelfetch/internal/domain"
)

const testDigest = "1f1b73496ca4480680e288880a53d7b3cb577396791e2ec153483b123bbb979b"

func memCache(t *testing.T) *BadgerCache {
	t.Helper()
	c, err := NewBadgerCache(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestBadgerCache_SetGet(t *testing.T) {
	c := memCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestBadgerCache_Miss(t *testing.T) {
	c := memCache(t)

	_, err := c.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestBadgerCache_Delete(t *testing.T) {
	c := memCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, c.Delete(ctx, "k"))

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestStore_MarkAndCheckVerified(t *testing.T) {
	store := NewStore(memCache(t))
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "model.bin")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0644))

	assert.False(t, store.IsVerified(ctx, path, 10, testDigest))

	require.NoError(t, store.MarkVerified(ctx, path, 10, testDigest))
	assert.True(t, store.IsVerified(ctx, path, 10, testDigest))
}

func TestStore_IsVerified_ExpectationChanged(t *testing.T) {
	store := NewStore(memCache(t))
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "model.bin")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0644))
	require.NoError(t, store.MarkVerified(ctx, path, 10, testDigest))

	// A manifest update (new size or digest) invalidates the record.
	assert.False(t, store.IsVerified(ctx, path, 11, testDigest))
	otherDigest := "9a4bcbdd61e2b0b11b816015b3a21fb82f5612b579f60a9e76a7159a9bd659ff"
	assert.False(t, store.IsVerified(ctx, path, 10, otherDigest))
}

func TestStore_IsVerified_FileModified(t *testing.T) {
	store := NewStore(memCache(t))
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "model.bin")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0644))
	require.NoError(t, store.MarkVerified(ctx, path, 10, testDigest))

	// Touch the file with a different mtime and size.
	require.NoError(t, os.WriteFile(path, []byte("01234567890123"), 0644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	assert.False(t, store.IsVerified(ctx, path, 10, testDigest))
}

func TestStore_IsVerified_FileDeleted(t *testing.T) {
	store := NewStore(memCache(t))
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "model.bin")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0644))
	require.NoError(t, store.MarkVerified(ctx, path, 10, testDigest))
	require.NoError(t, os.Remove(path))

	assert.False(t, store.IsVerified(ctx, path, 10, testDigest))
}

func TestStore_NilStoreDegradesGracefully(t *testing.T) {
	var store *Store
	ctx := context.Background()

	assert.False(t, store.IsVerified(ctx, "/tmp/x", 1, testDigest))
	assert.NoError(t, store.MarkVerified(ctx, "/tmp/x", 1, testDigest))
	assert.NoError(t, store.Invalidate(ctx, "/tmp/x"))
	assert.False(t, store.IsProcessed(ctx, "/tmp", "digest"))
	assert.NoError(t, store.MarkProcessed(ctx, "/tmp", "digest"))
}

func TestStore_ProcessedMarker(t *testing.T) {
	store := NewStore(memCache(t))
	ctx := context.Background()

	digest := StepsDigest([]string{"unpack_archive:gztar:weights.tar.gz"})
	require.NotEmpty(t, digest)

	assert.False(t, store.IsProcessed(ctx, "/out/model", digest))

	require.NoError(t, store.MarkProcessed(ctx, "/out/model", digest))
	assert.True(t, store.IsProcessed(ctx, "/out/model", digest))

	// A changed step declaration goes stale.
	other := StepsDigest([]string{"unpack_archive:zip:weights.zip"})
	assert.False(t, store.IsProcessed(ctx, "/out/model", other))
}

func TestKey_DistinctPerPath(t *testing.T) {
	assert.NotEqual(t, Key("/a/model.bin"), Key("/b/model.bin"))
	assert.Equal(t, Key("/a/model.bin"), Key("/a/model.bin"))
}
