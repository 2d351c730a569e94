package splitter

import (
	"context"
	"time"

	"github.com/range-sharding/chunkr/catalog"
	"github.com/range-sharding/chunkr/pkg/chunklog"
	"github.com/range-sharding/chunkr/pkg/datanode"
	"github.com/range-sharding/chunkr/pkg/models/cherror"
	"github.com/range-sharding/chunkr/pkg/models/chunk"
)

// Executor issues split commands fenced by the current routing version.
type Executor struct {
	cat      catalog.Catalog
	registry *datanode.Registry
	timeout  time.Duration
}

func NewExecutor(cat catalog.Catalog, registry *datanode.Registry, timeout time.Duration) *Executor {
	return &Executor{
		cat:      cat,
		registry: registry,
		timeout:  timeout,
	}
}

// fence reads the namespace routing version. It must run immediately before
// the split command; a token cached from planning time widens the window in
// which a concurrent actor can invalidate it.
func (e *Executor) fence(ctx context.Context, namespace string) (chunk.VersionToken, error) {
	opCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	v, err := e.cat.GetRoutingVersion(opCtx, namespace)
	if err != nil {
		return chunk.VersionToken{}, cherror.Newf(cherror.CHNK_FENCE_ERROR, "routing version for %s: %s", namespace, err.Error())
	}
	return chunk.VersionFromCatalog(v), nil
}

func (e *Executor) Execute(ctx context.Context, cand *chunk.Candidate) error {
	ch := cand.Chunk
	cl, err := e.registry.Client(ch.OwnerNode)
	if err != nil {
		return err
	}

	version, err := e.fence(ctx, ch.Namespace)
	if err != nil {
		return err
	}

	req := &datanode.ExecuteSplitRequest{
		Namespace:             ch.Namespace,
		ShardKeyPattern:       ch.ShardKeyPattern,
		RangeMin:              ch.RangeMin,
		RangeMax:              ch.RangeMax,
		SplitPoints:           cand.SplitPoints,
		OwnerNode:             ch.OwnerNode,
		Version:               version,
		MetadataAuthorityAddr: e.cat.AuthorityAddr(),
	}

	opCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := cl.ExecuteSplit(opCtx, req)
	if err != nil {
		chunklog.Zero.Error().
			Err(err).
			Str("chunk-id", ch.ID).
			Interface("request", req).
			Msg("split command failed")
		return cherror.Newf(cherror.CHNK_EXECUTE_ERROR, "split of chunk %s: %s", ch.ID, err.Error())
	}
	if !resp.OK {
		chunklog.Zero.Error().
			Str("chunk-id", ch.ID).
			Interface("request", req).
			Interface("response", resp).
			Msg("split command rejected")
		return cherror.Newf(cherror.CHNK_EXECUTE_ERROR, "split of chunk %s rejected: %s", ch.ID, resp.Reason)
	}

	chunklog.Zero.Info().
		Str("chunk-id", ch.ID).
		Str("owner", ch.OwnerNode).
		Int("split-points", len(cand.SplitPoints)).
		Str("version", version.String()).
		Msg("chunk split applied")
	return nil
}
