package splitter

import (
	"context"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/range-sharding/chunkr/catalog"
	"github.com/range-sharding/chunkr/pkg/chunklog"
	"github.com/range-sharding/chunkr/pkg/models/cherror"
	"github.com/range-sharding/chunkr/pkg/models/chunk"
)

// Selector shrinks the universe of chunks with sampling and flags the ones
// whose size exceeds the split threshold.
type Selector struct {
	cat              catalog.Catalog
	estimator        *Estimator
	mode             EstimationMode
	samplingFraction float64
	thresholdBytes   int64
	parallelism      int
}

func NewSelector(cat catalog.Catalog, estimator *Estimator, mode EstimationMode, samplingFraction float64, thresholdBytes int64, parallelism int) *Selector {
	return &Selector{
		cat:              cat,
		estimator:        estimator,
		mode:             mode,
		samplingFraction: samplingFraction,
		thresholdBytes:   thresholdBytes,
		parallelism:      parallelism,
	}
}

// Discover resolves the namespace metadata and its full chunk list. Zero
// chunks means there is nothing to run against and is treated as a
// configuration error.
func (s *Selector) Discover(ctx context.Context, namespace string) ([]*chunk.Chunk, error) {
	meta, err := s.cat.GetNamespace(ctx, namespace)
	if err != nil {
		return nil, err
	}
	recs, err := s.cat.ListChunks(ctx, namespace)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, cherror.Newf(cherror.CHNK_CONFIG_ERROR, "no chunks found for namespace %s", namespace)
	}

	chunks := make([]*chunk.Chunk, len(recs))
	for i, rec := range recs {
		chunks[i] = chunk.ChunkFromCatalog(rec, meta)
	}
	return chunks, nil
}

// SampleSize is round(total*fraction) floored at one chunk.
func SampleSize(total int, fraction float64) int {
	size := int(math.Round(float64(total) * fraction))
	if size < 1 {
		return 1
	}
	if size > total {
		return total
	}
	return size
}

// Sample draws a uniform sample without replacement. Fraction 1 keeps the
// full list in catalog order, so every chunk is visited exactly once.
func (s *Selector) Sample(chunks []*chunk.Chunk) []*chunk.Chunk {
	if s.samplingFraction >= 1 {
		return chunks
	}
	size := SampleSize(len(chunks), s.samplingFraction)
	shuffled := make([]*chunk.Chunk, len(chunks))
	copy(shuffled, chunks)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:size]
}

// EstimateAndFilter sizes every sampled chunk and keeps the ones strictly
// above the threshold. Estimation failures exclude the chunk and are
// reported back without aborting the stage.
func (s *Selector) EstimateAndFilter(ctx context.Context, sampled []*chunk.Chunk) ([]*chunk.Candidate, []ChunkFailure) {
	results := make([]*chunk.Candidate, len(sampled))
	errs := make([]error, len(sampled))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, ch := range sampled {
		i, ch := i, ch
		g.Go(func() error {
			size, err := s.estimator.Estimate(gCtx, ch, s.mode)
			if err != nil {
				errs[i] = err
				return nil
			}
			if size > s.thresholdBytes {
				cand := chunk.NewCandidate(ch)
				cand.EstimatedSizeBytes = size
				results[i] = cand
			}
			return nil
		})
	}
	_ = g.Wait()

	candidates := make([]*chunk.Candidate, 0, len(sampled))
	failures := make([]ChunkFailure, 0)
	for i, ch := range sampled {
		if errs[i] != nil {
			chunklog.Zero.Error().
				Err(errs[i]).
				Str("chunk-id", ch.ID).
				Msg("chunk excluded: size estimation failed")
			failures = append(failures, ChunkFailure{ChunkID: ch.ID, Stage: StageEstimate, Err: errs[i]})
			continue
		}
		if results[i] != nil {
			candidates = append(candidates, results[i])
		}
	}
	return candidates, failures
}
