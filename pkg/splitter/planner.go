package splitter

import (
	"context"
	"time"

	"github.com/range-sharding/chunkr/pkg/chunklog"
	"github.com/range-sharding/chunkr/pkg/datanode"
	"github.com/range-sharding/chunkr/pkg/models/cherror"
	"github.com/range-sharding/chunkr/pkg/models/chunk"
)

// Planner asks the owning node where a candidate can be cut. Target piece
// size is the cluster maximum, not the lower split threshold: pieces should
// come out close to, but under, the ceiling.
type Planner struct {
	registry          *datanode.Registry
	maxChunkSizeBytes int64
	timeout           time.Duration
}

func NewPlanner(registry *datanode.Registry, maxChunkSizeBytes int64, timeout time.Duration) *Planner {
	return &Planner{
		registry:          registry,
		maxChunkSizeBytes: maxChunkSizeBytes,
		timeout:           timeout,
	}
}

func (p *Planner) Plan(ctx context.Context, cand *chunk.Candidate) error {
	ch := cand.Chunk
	cl, err := p.registry.Client(ch.OwnerNode)
	if err != nil {
		return err
	}

	opCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	points, err := cl.ComputeSplitPoints(opCtx, &datanode.SplitPointsRequest{
		Namespace:        ch.Namespace,
		ShardKeyPattern:  ch.ShardKeyPattern,
		KeyTypes:         ch.KeyTypes,
		RangeMin:         ch.RangeMin,
		RangeMax:         ch.RangeMax,
		TargetChunkBytes: p.maxChunkSizeBytes,
	})
	if err != nil {
		return cherror.Newf(cherror.CHNK_PLAN_ERROR, "split points for chunk %s: %s", ch.ID, err.Error())
	}

	// a node may hand back boundary values; a usable split point lies
	// strictly inside the range
	inside := make([]chunk.Bound, 0, len(points))
	for _, point := range points {
		if ch.Inside(point) {
			inside = append(inside, point)
		}
	}
	cand.SplitPoints = inside

	chunklog.Zero.Debug().
		Str("chunk-id", ch.ID).
		Int64("estimated-size", cand.EstimatedSizeBytes).
		Int("split-points", len(inside)).
		Msg("planned chunk split")
	return nil
}
