package splitter

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/range-sharding/chunkr/catalog"
	"github.com/range-sharding/chunkr/pkg/chunklog"
	"github.com/range-sharding/chunkr/pkg/config"
	"github.com/range-sharding/chunkr/pkg/datanode"
	"github.com/range-sharding/chunkr/pkg/models/cherror"
	"github.com/range-sharding/chunkr/pkg/models/chunk"
)

const (
	StageEstimate = "estimate"
	StagePlan     = "plan"
	StageExecute  = "execute"
)

type ChunkFailure struct {
	ChunkID string
	Stage   string
	Err     error
}

// Report aggregates one run. Chunks are processed independently, so a run
// with failures is still a completed run.
type Report struct {
	Namespace string

	TotalChunks   int
	SampledChunks int
	Candidates    int
	Splittable    int
	SplitsApplied int
	SplitsFailed  int

	ChunksBefore int
	ChunksAfter  int

	Failures []ChunkFailure
}

// Pipeline runs the five-stage control loop over one namespace:
// discover, estimate/filter, plan, fence+execute, re-verify.
type Pipeline struct {
	cfg      *config.Splitter
	cat      catalog.Catalog
	registry *datanode.Registry
	mode     EstimationMode
}

func NewPipeline(cfg *config.Splitter, cat catalog.Catalog, registry *datanode.Registry) (*Pipeline, error) {
	if err := config.ValidateSplitterCfg(cfg); err != nil {
		return nil, err
	}
	mode, err := ParseMode(cfg.EstimationMode)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:      cfg,
		cat:      cat,
		registry: registry,
		mode:     mode,
	}, nil
}

// resolveMaxChunkSize prefers the run configuration, then the cluster-wide
// catalog setting, then the hard-coded default.
func (p *Pipeline) resolveMaxChunkSize(ctx context.Context) (int64, error) {
	if p.cfg.MaxChunkSizeBytes > 0 {
		return p.cfg.MaxChunkSizeBytes, nil
	}
	size, err := p.cat.MaxChunkSizeBytes(ctx)
	if err != nil {
		return 0, err
	}
	if size < 0 {
		return 0, cherror.Newf(cherror.CHNK_CONFIG_ERROR, "negative cluster max chunk size: %d", size)
	}
	if size == 0 {
		return config.DefaultMaxChunkSizeBytes, nil
	}
	return size, nil
}

func (p *Pipeline) Run(ctx context.Context, namespace string, apply bool) (*Report, error) {
	if namespace == "" {
		return nil, cherror.New(cherror.CHNK_CONFIG_ERROR, "namespace is required")
	}

	maxSize, err := p.resolveMaxChunkSize(ctx)
	if err != nil {
		return nil, err
	}
	thresholdBytes := int64(p.cfg.SplitThresholdRatio * float64(maxSize))

	chunklog.Zero.Info().
		Str("namespace", namespace).
		Bool("apply", apply).
		Int64("max-chunk-size", maxSize).
		Int64("split-threshold", thresholdBytes).
		Str("mode", p.mode.String()).
		Float64("sampling-fraction", p.cfg.SamplingFraction).
		Msg("starting splitter run")

	estimator := NewEstimator(p.registry, thresholdBytes, p.cfg.Timeout())
	selector := NewSelector(p.cat, estimator, p.mode, p.cfg.SamplingFraction, thresholdBytes, p.cfg.Parallelism)
	planner := NewPlanner(p.registry, maxSize, p.cfg.Timeout())
	executor := NewExecutor(p.cat, p.registry, p.cfg.Timeout())

	report := &Report{Namespace: namespace}

	// DISCOVER
	chunks, err := selector.Discover(ctx, namespace)
	if err != nil {
		return nil, err
	}
	report.TotalChunks = len(chunks)
	report.ChunksBefore = len(chunks)

	sampled := selector.Sample(chunks)
	report.SampledChunks = len(sampled)

	// ESTIMATE
	candidates, failures := selector.EstimateAndFilter(ctx, sampled)
	report.Failures = append(report.Failures, failures...)
	report.Candidates = len(candidates)
	if len(candidates) == 0 {
		chunklog.Zero.Info().
			Str("namespace", namespace).
			Int("sampled", len(sampled)).
			Msg("no chunks above split threshold")
		return report, nil
	}

	// PLAN
	planErrs := make([]error, len(candidates))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Parallelism)
	for i, cand := range candidates {
		i, cand := i, cand
		g.Go(func() error {
			planErrs[i] = planner.Plan(gCtx, cand)
			return nil
		})
	}
	_ = g.Wait()

	splittable := make([]*chunk.Candidate, 0, len(candidates))
	for i, cand := range candidates {
		if planErrs[i] != nil {
			chunklog.Zero.Error().
				Err(planErrs[i]).
				Str("chunk-id", cand.Chunk.ID).
				Msg("chunk not splittable: planning failed")
			report.Failures = append(report.Failures, ChunkFailure{ChunkID: cand.Chunk.ID, Stage: StagePlan, Err: planErrs[i]})
			continue
		}
		if cand.Splittable() {
			splittable = append(splittable, cand)
		}
	}
	report.Splittable = len(splittable)
	if len(splittable) == 0 {
		chunklog.Zero.Info().
			Str("namespace", namespace).
			Int("candidates", len(candidates)).
			Msg("no splittable candidates")
		return report, nil
	}

	if !apply {
		chunklog.Zero.Info().
			Str("namespace", namespace).
			Int("splittable", len(splittable)).
			Msg("dry run: no splits issued")
		return report, nil
	}

	// EXECUTE: each candidate independently, continuing past failures
	for _, cand := range splittable {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := executor.Execute(ctx, cand); err != nil {
			report.SplitsFailed++
			report.Failures = append(report.Failures, ChunkFailure{ChunkID: cand.Chunk.ID, Stage: StageExecute, Err: err})
			continue
		}
		report.SplitsApplied++
	}

	// VERIFY: re-count only, routing metadata is the eventual source of truth
	recs, err := p.cat.ListChunks(ctx, namespace)
	if err != nil {
		chunklog.Zero.Error().Err(err).Msg("post-run chunk recount failed")
		report.ChunksAfter = report.ChunksBefore
		return report, nil
	}
	report.ChunksAfter = len(recs)

	chunklog.Zero.Info().
		Str("namespace", namespace).
		Int("applied", report.SplitsApplied).
		Int("failed", report.SplitsFailed).
		Int("chunks-before", report.ChunksBefore).
		Int("chunks-after", report.ChunksAfter).
		Msg("splitter run finished")
	return report, nil
}
