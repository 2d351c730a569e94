package splitter

import (
	"context"
	"time"

	"github.com/range-sharding/chunkr/pkg/chunklog"
	"github.com/range-sharding/chunkr/pkg/datanode"
	"github.com/range-sharding/chunkr/pkg/models/cherror"
	"github.com/range-sharding/chunkr/pkg/models/chunk"
)

type EstimationMode int

const (
	ModeExact EstimationMode = iota
	ModeEstimate
	ModeEstimateVerify
)

func ParseMode(mode string) (EstimationMode, error) {
	switch mode {
	case "exact":
		return ModeExact, nil
	case "estimate":
		return ModeEstimate, nil
	case "estimate-verify":
		return ModeEstimateVerify, nil
	default:
		return 0, cherror.Newf(cherror.CHNK_CONFIG_ERROR, "unknown estimation mode: %s", mode)
	}
}

func (m EstimationMode) String() string {
	switch m {
	case ModeExact:
		return "exact"
	case ModeEstimate:
		return "estimate"
	case ModeEstimateVerify:
		return "estimate-verify"
	default:
		return "unknown"
	}
}

// Estimator resolves a chunk's byte size through its owning node. The
// threshold is needed because estimate-verify only escalates to the exact
// measurement for chunks that already look oversized.
type Estimator struct {
	registry       *datanode.Registry
	thresholdBytes int64
	timeout        time.Duration
}

func NewEstimator(registry *datanode.Registry, thresholdBytes int64, timeout time.Duration) *Estimator {
	return &Estimator{
		registry:       registry,
		thresholdBytes: thresholdBytes,
		timeout:        timeout,
	}
}

func (e *Estimator) Estimate(ctx context.Context, ch *chunk.Chunk, mode EstimationMode) (int64, error) {
	cl, err := e.registry.Client(ch.OwnerNode)
	if err != nil {
		return 0, err
	}

	switch mode {
	case ModeExact:
		return e.query(ctx, cl, ch, true)
	case ModeEstimate:
		return e.query(ctx, cl, ch, false)
	case ModeEstimateVerify:
		est, err := e.query(ctx, cl, ch, false)
		if err != nil {
			return 0, err
		}
		if est <= e.thresholdBytes {
			return est, nil
		}
		// looks oversized, confirm before the chunk reaches planning
		exact, err := e.query(ctx, cl, ch, true)
		if err != nil {
			return 0, err
		}
		chunklog.Zero.Debug().
			Str("chunk-id", ch.ID).
			Int64("estimate", est).
			Int64("exact", exact).
			Msg("estimate verified against exact measurement")
		return exact, nil
	default:
		return 0, cherror.Newf(cherror.CHNK_CONFIG_ERROR, "unknown estimation mode: %d", mode)
	}
}

func (e *Estimator) query(ctx context.Context, cl datanode.Client, ch *chunk.Chunk, exact bool) (int64, error) {
	opCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	size, err := cl.EstimateSize(opCtx, &datanode.EstimateSizeRequest{
		Namespace:       ch.Namespace,
		ShardKeyPattern: ch.ShardKeyPattern,
		KeyTypes:        ch.KeyTypes,
		RangeMin:        ch.RangeMin,
		RangeMax:        ch.RangeMax,
		Exact:           exact,
	})
	if err != nil {
		return 0, cherror.Newf(cherror.CHNK_ESTIMATE_ERROR, "size query for chunk %s: %s", ch.ID, err.Error())
	}
	if size < 0 {
		return 0, cherror.Newf(cherror.CHNK_ESTIMATE_ERROR, "size query for chunk %s returned no usable value", ch.ID)
	}
	return size, nil
}
