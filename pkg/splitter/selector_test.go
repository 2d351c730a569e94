package splitter_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/range-sharding/chunkr/catalog"
	"github.com/range-sharding/chunkr/pkg/datanode"
	"github.com/range-sharding/chunkr/pkg/datanode/mock"
	"github.com/range-sharding/chunkr/pkg/models/chunk"
	"github.com/range-sharding/chunkr/pkg/splitter"
)

const testNamespace = "public.orders"

// seedChunks fills a fresh in-memory catalog with n contiguous integer-keyed
// chunks of width 100, all owned by node1. Chunk IDs sort in range order.
func seedChunks(t *testing.T, n int) *catalog.MemCatalog {
	t.Helper()
	cat, err := catalog.NewMemCatalog("")
	assert.NoError(t, err)

	ctx := context.Background()
	assert.NoError(t, cat.AddNamespace(ctx, &catalog.NamespaceMeta{
		Name:            testNamespace,
		ShardKeyPattern: []string{"id"},
		KeyTypes:        []string{chunk.KeyTypeInteger},
	}))
	for i := 0; i < n; i++ {
		assert.NoError(t, cat.AddChunk(ctx, &catalog.ChunkRecord{
			ChunkID:   fmt.Sprintf("c%02d", i),
			Namespace: testNamespace,
			RangeMin:  [][]byte{[]byte(fmt.Sprintf("%d", i*100))},
			RangeMax:  [][]byte{[]byte(fmt.Sprintf("%d", (i+1)*100))},
			OwnerNode: "node1",
		}))
	}
	return cat
}

func testRegistry(cl datanode.Client) *datanode.Registry {
	return datanode.NewRegistry(map[string]datanode.Client{"node1": cl})
}

func TestSampleSize(t *testing.T) {
	assert := assert.New(t)

	for i, c := range []struct {
		total    int
		fraction float64
		expected int
	}{
		{10, 1, 10},
		{10, 0.5, 5},
		{10, 0.05, 1},
		{3, 0.5, 2}, // round, not truncate
		{1, 0.01, 1},
		{100, 0.333, 33},
	} {
		assert.Equal(c.expected, splitter.SampleSize(c.total, c.fraction), "case %d", i)
	}
}

func TestSamplingFractionOneVisitsEveryChunkOnce(t *testing.T) {
	assert := assert.New(t)
	ctrl := gomock.NewController(t)
	cat := seedChunks(t, 10)
	ctx := context.Background()

	cl := mock.NewMockClient(ctrl)
	visited := map[string]int{}
	cl.EXPECT().EstimateSize(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, req *datanode.EstimateSizeRequest) (int64, error) {
			visited[string(req.RangeMin[0])]++
			return 100, nil
		}).Times(10)

	est := splitter.NewEstimator(testRegistry(cl), 900, time.Second)
	sel := splitter.NewSelector(cat, est, splitter.ModeEstimate, 1, 900, 1)

	chunks, err := sel.Discover(ctx, testNamespace)
	assert.NoError(err)
	sampled := sel.Sample(chunks)
	assert.Len(sampled, 10)

	cands, failures := sel.EstimateAndFilter(ctx, sampled)
	assert.Empty(cands)
	assert.Empty(failures)

	assert.Len(visited, 10)
	for min, count := range visited {
		assert.Equal(1, count, "chunk with min %s estimated more than once", min)
	}
}

func TestSamplingFractionDrawsWithoutReplacement(t *testing.T) {
	assert := assert.New(t)
	ctrl := gomock.NewController(t)
	cat := seedChunks(t, 10)
	ctx := context.Background()

	cl := mock.NewMockClient(ctrl)
	cl.EXPECT().EstimateSize(gomock.Any(), gomock.Any()).Return(int64(100), nil).AnyTimes()

	est := splitter.NewEstimator(testRegistry(cl), 900, time.Second)
	sel := splitter.NewSelector(cat, est, splitter.ModeEstimate, 0.5, 900, 1)

	chunks, err := sel.Discover(ctx, testNamespace)
	assert.NoError(err)
	sampled := sel.Sample(chunks)
	assert.Len(sampled, 5)

	seen := map[string]bool{}
	for _, ch := range sampled {
		assert.False(seen[ch.ID], "chunk %s sampled twice", ch.ID)
		seen[ch.ID] = true
	}
}

func TestEstimateVerifyReclassifiesFalsePositive(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	const (
		mib            = int64(1 << 20)
		thresholdBytes = 90 * mib
	)

	// the cheap estimate reports 95 MiB, the exact scan says 80 MiB
	newClient := func(t *testing.T) *mock.MockClient {
		cl := mock.NewMockClient(gomock.NewController(t))
		cl.EXPECT().EstimateSize(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, req *datanode.EstimateSizeRequest) (int64, error) {
				if req.Exact {
					return 80 * mib, nil
				}
				return 95 * mib, nil
			}).AnyTimes()
		return cl
	}

	cat := seedChunks(t, 1)
	est := splitter.NewEstimator(testRegistry(newClient(t)), thresholdBytes, time.Second)
	sel := splitter.NewSelector(cat, est, splitter.ModeEstimateVerify, 1, thresholdBytes, 1)
	chunks, err := sel.Discover(ctx, testNamespace)
	assert.NoError(err)
	cands, failures := sel.EstimateAndFilter(ctx, chunks)
	assert.Empty(cands, "verified size is below threshold, chunk must be reclassified")
	assert.Empty(failures)

	// without verification the false positive stays in
	est = splitter.NewEstimator(testRegistry(newClient(t)), thresholdBytes, time.Second)
	sel = splitter.NewSelector(cat, est, splitter.ModeEstimate, 1, thresholdBytes, 1)
	cands, failures = sel.EstimateAndFilter(ctx, chunks)
	assert.Len(cands, 1)
	assert.Empty(failures)
	assert.Equal(95*mib, cands[0].EstimatedSizeBytes)
}

func TestEstimateVerifyKeepsSmallChunksCheap(t *testing.T) {
	assert := assert.New(t)
	ctrl := gomock.NewController(t)
	cat := seedChunks(t, 1)
	ctx := context.Background()

	cl := mock.NewMockClient(ctrl)
	// below threshold: the exact re-check must not be issued
	cl.EXPECT().EstimateSize(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, req *datanode.EstimateSizeRequest) (int64, error) {
			assert.False(req.Exact)
			return 100, nil
		}).Times(1)

	est := splitter.NewEstimator(testRegistry(cl), 900, time.Second)
	sel := splitter.NewSelector(cat, est, splitter.ModeEstimateVerify, 1, 900, 1)
	chunks, err := sel.Discover(ctx, testNamespace)
	assert.NoError(err)
	cands, failures := sel.EstimateAndFilter(ctx, chunks)
	assert.Empty(cands)
	assert.Empty(failures)
}

func TestEstimationErrorExcludesOnlyThatChunk(t *testing.T) {
	assert := assert.New(t)
	ctrl := gomock.NewController(t)
	cat := seedChunks(t, 2)
	ctx := context.Background()

	cl := mock.NewMockClient(ctrl)
	cl.EXPECT().EstimateSize(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, req *datanode.EstimateSizeRequest) (int64, error) {
			if string(req.RangeMin[0]) == "0" {
				return 0, fmt.Errorf("size query returned no value")
			}
			return 1500, nil
		}).Times(2)

	est := splitter.NewEstimator(testRegistry(cl), 900, time.Second)
	sel := splitter.NewSelector(cat, est, splitter.ModeEstimate, 1, 900, 1)
	chunks, err := sel.Discover(ctx, testNamespace)
	assert.NoError(err)

	cands, failures := sel.EstimateAndFilter(ctx, chunks)
	assert.Len(cands, 1)
	assert.Len(failures, 1)
	assert.Equal("c00", failures[0].ChunkID)
	assert.Equal(splitter.StageEstimate, failures[0].Stage)
}

func TestDiscoverZeroChunksIsError(t *testing.T) {
	assert := assert.New(t)
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	cat, err := catalog.NewMemCatalog("")
	assert.NoError(err)
	assert.NoError(cat.AddNamespace(ctx, &catalog.NamespaceMeta{
		Name:            testNamespace,
		ShardKeyPattern: []string{"id"},
		KeyTypes:        []string{chunk.KeyTypeInteger},
	}))

	est := splitter.NewEstimator(testRegistry(mock.NewMockClient(ctrl)), 900, time.Second)
	sel := splitter.NewSelector(cat, est, splitter.ModeEstimate, 1, 900, 1)

	_, err = sel.Discover(ctx, testNamespace)
	assert.Error(err)
}

func TestParseMode(t *testing.T) {
	assert := assert.New(t)

	mode, err := splitter.ParseMode("exact")
	assert.NoError(err)
	assert.Equal(splitter.ModeExact, mode)

	mode, err = splitter.ParseMode("estimate")
	assert.NoError(err)
	assert.Equal(splitter.ModeEstimate, mode)

	mode, err = splitter.ParseMode("estimate-verify")
	assert.NoError(err)
	assert.Equal(splitter.ModeEstimateVerify, mode)

	_, err = splitter.ParseMode("guess")
	assert.Error(err)
}
