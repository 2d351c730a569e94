package datanode

import (
	"context"

	"github.com/range-sharding/chunkr/pkg/models/chunk"
)

type EstimateSizeRequest struct {
	Namespace       string
	ShardKeyPattern []string
	KeyTypes        []string
	RangeMin        chunk.Bound
	RangeMax        chunk.Bound

	// Exact requests a full scan instead of the cheap approximation.
	Exact bool
}

type SplitPointsRequest struct {
	Namespace       string
	ShardKeyPattern []string
	KeyTypes        []string
	RangeMin        chunk.Bound
	RangeMax        chunk.Bound

	// TargetChunkBytes is the desired size of each resulting piece. This is
	// the cluster maximum, not the split threshold.
	TargetChunkBytes int64
}

type ExecuteSplitRequest struct {
	Namespace       string
	ShardKeyPattern []string
	RangeMin        chunk.Bound
	RangeMax        chunk.Bound
	SplitPoints     []chunk.Bound
	OwnerNode       string
	Version         chunk.VersionToken

	// MetadataAuthorityAddr is only required by older split-command protocol
	// variants. Nodes speaking the newer protocol ignore an empty value.
	MetadataAuthorityAddr string
}

type ExecuteSplitResponse struct {
	OK     bool
	Reason string
}

// Client issues the three remote operations a storage node exposes. One
// client per owning node; the node serializes split commands internally, so
// no extra coordination is needed on this side.
type Client interface {
	EstimateSize(ctx context.Context, req *EstimateSizeRequest) (int64, error)
	ComputeSplitPoints(ctx context.Context, req *SplitPointsRequest) ([]chunk.Bound, error)
	ExecuteSplit(ctx context.Context, req *ExecuteSplitRequest) (*ExecuteSplitResponse, error)
}
