package catalog_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/range-sharding/chunkr/catalog"
)

func seedCatalog(t *testing.T) *catalog.MemCatalog {
	t.Helper()
	cat, err := catalog.NewMemCatalog("")
	assert.NoError(t, err)

	ctx := context.Background()
	assert.NoError(t, cat.AddNamespace(ctx, &catalog.NamespaceMeta{
		Name:            "public.orders",
		ShardKeyPattern: []string{"id"},
		KeyTypes:        []string{"integer"},
	}))
	assert.NoError(t, cat.AddChunk(ctx, &catalog.ChunkRecord{
		ChunkID:   "c1",
		Namespace: "public.orders",
		RangeMin:  nil,
		RangeMax:  [][]byte{[]byte("100")},
		OwnerNode: "node1",
	}))
	assert.NoError(t, cat.AddChunk(ctx, &catalog.ChunkRecord{
		ChunkID:   "c2",
		Namespace: "public.orders",
		RangeMin:  [][]byte{[]byte("100")},
		RangeMax:  nil,
		OwnerNode: "node2",
	}))
	return cat
}

func TestMemCatalogNamespaces(t *testing.T) {
	assert := assert.New(t)
	cat := seedCatalog(t)
	ctx := context.Background()

	meta, err := cat.GetNamespace(ctx, "public.orders")
	assert.NoError(err)
	assert.Equal([]string{"id"}, meta.ShardKeyPattern)

	_, err = cat.GetNamespace(ctx, "public.missing")
	assert.Error(err)
}

func TestMemCatalogListChunks(t *testing.T) {
	assert := assert.New(t)
	cat := seedCatalog(t)
	ctx := context.Background()

	recs, err := cat.ListChunks(ctx, "public.orders")
	assert.NoError(err)
	assert.Len(recs, 2)

	recs, err = cat.ListChunks(ctx, "public.other")
	assert.NoError(err)
	assert.Empty(recs)
}

func TestMemCatalogRoutingVersion(t *testing.T) {
	assert := assert.New(t)
	cat := seedCatalog(t)
	ctx := context.Background()

	v, err := cat.GetRoutingVersion(ctx, "public.orders")
	assert.NoError(err)
	assert.Equal(uint64(1), v.Major)
	assert.NotEmpty(v.Epoch)
}

func TestMemCatalogSplitChunk(t *testing.T) {
	assert := assert.New(t)
	cat := seedCatalog(t)
	ctx := context.Background()

	err := cat.SplitChunk(ctx, "c2", [][][]byte{{[]byte("500")}})
	assert.NoError(err)

	recs, err := cat.ListChunks(ctx, "public.orders")
	assert.NoError(err)
	assert.Len(recs, 3)

	// splitting bumps the namespace routing version
	v, err := cat.GetRoutingVersion(ctx, "public.orders")
	assert.NoError(err)
	assert.Equal(uint64(2), v.Major)

	// the epoch survives splits within one layout
	assert.NotEmpty(v.Epoch)
}

func TestMemCatalogSplitChunkErrors(t *testing.T) {
	assert := assert.New(t)
	cat := seedCatalog(t)
	ctx := context.Background()

	assert.Error(cat.SplitChunk(ctx, "missing", [][][]byte{{[]byte("5")}}))
	assert.Error(cat.SplitChunk(ctx, "c1", nil))
}

func TestMemCatalogMutationsPersistToBackup(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	backupPath := filepath.Join(t.TempDir(), "catalog.json")

	cat, err := catalog.RestoreMemCatalog(backupPath)
	assert.NoError(err)
	assert.NoError(cat.AddNamespace(ctx, &catalog.NamespaceMeta{
		Name:            "public.orders",
		ShardKeyPattern: []string{"id"},
		KeyTypes:        []string{"integer"},
	}))
	assert.NoError(cat.AddChunk(ctx, &catalog.ChunkRecord{
		ChunkID:   "c1",
		Namespace: "public.orders",
		RangeMin:  nil,
		RangeMax:  nil,
		OwnerNode: "node1",
	}))
	assert.NoError(cat.SetMaxChunkSizeBytes(ctx, 1<<20))
	assert.NoError(cat.SplitChunk(ctx, "c1", [][][]byte{{[]byte("500")}}))

	// every mutation dumps state, so a fresh restore sees all of it
	restored, err := catalog.RestoreMemCatalog(backupPath)
	assert.NoError(err)

	meta, err := restored.GetNamespace(ctx, "public.orders")
	assert.NoError(err)
	assert.Equal([]string{"id"}, meta.ShardKeyPattern)

	recs, err := restored.ListChunks(ctx, "public.orders")
	assert.NoError(err)
	assert.Len(recs, 2)

	v, err := restored.GetRoutingVersion(ctx, "public.orders")
	assert.NoError(err)
	assert.Equal(uint64(2), v.Major)

	size, err := restored.MaxChunkSizeBytes(ctx)
	assert.NoError(err)
	assert.Equal(int64(1<<20), size)
}

func TestMemCatalogMaxChunkSize(t *testing.T) {
	assert := assert.New(t)
	cat := seedCatalog(t)
	ctx := context.Background()

	size, err := cat.MaxChunkSizeBytes(ctx)
	assert.NoError(err)
	assert.Zero(size)

	assert.NoError(cat.SetMaxChunkSizeBytes(ctx, 1<<20))
	size, err = cat.MaxChunkSizeBytes(ctx)
	assert.NoError(err)
	assert.Equal(int64(1<<20), size)
}
