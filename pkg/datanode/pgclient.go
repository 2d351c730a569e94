package datanode

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/range-sharding/chunkr/pkg/chunklog"
	"github.com/range-sharding/chunkr/pkg/models/chunk"
)

// PGClient talks to a PostgreSQL-backed storage node. The node hosts the
// namespace as a regular relation keyed by the shard key columns and
// installs the chunkr_split_chunk function that validates the version fence
// and applies the split against the metadata authority.
type PGClient struct {
	nodeID string
	pool   *pgxpool.Pool
}

var _ Client = &PGClient{}

func NewPGClient(ctx context.Context, nodeID string, connString string) (*PGClient, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, errors.Wrapf(err, "connect to storage node %s", nodeID)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrapf(err, "ping storage node %s", nodeID)
	}

	chunklog.Zero.Debug().
		Str("node", nodeID).
		Msg("pgclient: connected to storage node")

	return &PGClient{
		nodeID: nodeID,
		pool:   pool,
	}, nil
}

func (c *PGClient) Close() {
	c.pool.Close()
}

func relIdent(namespace string) string {
	parts := strings.Split(namespace, ".")
	return pgx.Identifier(parts).Sanitize()
}

func castType(keyType string) string {
	switch keyType {
	case chunk.KeyTypeInteger:
		return "bigint"
	default:
		return "text"
	}
}

// rangePredicate renders [min, max) as a row-wise comparison over the shard
// key columns. Nil bounds are open ends of the key space.
func rangePredicate(pattern []string, keyTypes []string, min, max chunk.Bound) (string, []any) {
	cols := make([]string, len(pattern))
	for i, col := range pattern {
		cols[i] = pgx.Identifier{col}.Sanitize()
	}
	row := "(" + strings.Join(cols, ", ") + ")"

	conds := make([]string, 0, 2)
	args := make([]any, 0, len(min)+len(max))

	placeholders := func(b chunk.Bound) string {
		ph := make([]string, len(b))
		for i, v := range b {
			args = append(args, string(v))
			keyType := chunk.KeyTypeVarchar
			if i < len(keyTypes) {
				keyType = keyTypes[i]
			}
			ph[i] = fmt.Sprintf("$%d::%s", len(args), castType(keyType))
		}
		return "(" + strings.Join(ph, ", ") + ")"
	}

	if min != nil {
		conds = append(conds, row+" >= "+placeholders(min))
	}
	if max != nil {
		conds = append(conds, row+" < "+placeholders(max))
	}
	if len(conds) == 0 {
		return "TRUE", args
	}
	return strings.Join(conds, " AND "), args
}

// avgRowBytes derives the average stored row width from relation-level
// statistics, without scanning any data.
func (c *PGClient) avgRowBytes(ctx context.Context, namespace string) (float64, error) {
	var reltuples float64
	var relSize int64
	err := c.pool.QueryRow(ctx, `
SELECT greatest(c.reltuples, 1)::float8, pg_relation_size(c.oid)
FROM pg_class c
WHERE c.oid = to_regclass($1)
`, namespace).Scan(&reltuples, &relSize)
	if err != nil {
		return 0, errors.Wrapf(err, "relation statistics for %s", namespace)
	}
	if relSize <= 0 {
		return 1, nil
	}
	return float64(relSize) / reltuples, nil
}

// estimatedRows asks the planner, not the table, how many rows the range
// predicate covers.
func (c *PGClient) estimatedRows(ctx context.Context, req *EstimateSizeRequest) (float64, error) {
	pred, args := rangePredicate(req.ShardKeyPattern, req.KeyTypes, req.RangeMin, req.RangeMax)
	q := fmt.Sprintf("EXPLAIN (FORMAT JSON) SELECT 1 FROM %s t WHERE %s", relIdent(req.Namespace), pred)

	var raw string
	if err := c.pool.QueryRow(ctx, q, args...).Scan(&raw); err != nil {
		return 0, errors.Wrap(err, "range row estimate")
	}

	var plans []struct {
		Plan struct {
			PlanRows float64 `json:"Plan Rows"`
		} `json:"Plan"`
	}
	if err := json.Unmarshal([]byte(raw), &plans); err != nil {
		return 0, errors.Wrap(err, "parse planner output")
	}
	if len(plans) == 0 {
		return 0, errors.New("planner returned no plan")
	}
	return plans[0].Plan.PlanRows, nil
}

func (c *PGClient) EstimateSize(ctx context.Context, req *EstimateSizeRequest) (int64, error) {
	if req.Exact {
		pred, args := rangePredicate(req.ShardKeyPattern, req.KeyTypes, req.RangeMin, req.RangeMax)
		q := fmt.Sprintf("SELECT coalesce(sum(pg_column_size(t.*)), 0)::bigint FROM %s t WHERE %s",
			relIdent(req.Namespace), pred)

		var size int64
		if err := c.pool.QueryRow(ctx, q, args...).Scan(&size); err != nil {
			return 0, errors.Wrap(err, "exact size scan")
		}
		return size, nil
	}

	avg, err := c.avgRowBytes(ctx, req.Namespace)
	if err != nil {
		return 0, err
	}
	rows, err := c.estimatedRows(ctx, req)
	if err != nil {
		return 0, err
	}
	return int64(rows * avg), nil
}

func (c *PGClient) ComputeSplitPoints(ctx context.Context, req *SplitPointsRequest) ([]chunk.Bound, error) {
	avg, err := c.avgRowBytes(ctx, req.Namespace)
	if err != nil {
		return nil, err
	}
	stride := int64(float64(req.TargetChunkBytes) / avg)
	if stride < 1 {
		stride = 1
	}

	cols := make([]string, len(req.ShardKeyPattern))
	innerCols := make([]string, len(req.ShardKeyPattern))
	outerCols := make([]string, len(req.ShardKeyPattern))
	for i, col := range req.ShardKeyPattern {
		cols[i] = pgx.Identifier{col}.Sanitize()
		innerCols[i] = fmt.Sprintf("%s::text AS k%d", cols[i], i)
		outerCols[i] = fmt.Sprintf("s.k%d", i)
	}

	pred, args := rangePredicate(req.ShardKeyPattern, req.KeyTypes, req.RangeMin, req.RangeMax)
	args = append(args, stride)
	q := fmt.Sprintf(`
SELECT %s FROM (
	SELECT %s, row_number() OVER (ORDER BY %s) AS rn
	FROM %s t WHERE %s
) s WHERE s.rn %% $%d = 0 ORDER BY s.rn
`,
		strings.Join(outerCols, ", "),
		strings.Join(innerCols, ", "),
		strings.Join(cols, ", "),
		relIdent(req.Namespace),
		pred,
		len(args))

	rows, err := c.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "split point query")
	}
	defer rows.Close()

	var points []chunk.Bound
	for rows.Next() {
		vals := make([]string, len(req.ShardKeyPattern))
		dest := make([]any, len(vals))
		for i := range vals {
			dest[i] = &vals[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.Wrap(err, "scan split point")
		}
		point := make(chunk.Bound, len(vals))
		for i, v := range vals {
			point[i] = []byte(v)
		}
		points = append(points, point)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "split point query")
	}

	chunklog.Zero.Debug().
		Str("node", c.nodeID).
		Str("namespace", req.Namespace).
		Int64("stride", stride).
		Int("points", len(points)).
		Msg("pgclient: computed split points")
	return points, nil
}

type splitCommand struct {
	Namespace             string     `json:"namespace"`
	ShardKeyPattern       []string   `json:"shard_key_pattern"`
	RangeMin              []string   `json:"range_min"`
	RangeMax              []string   `json:"range_max"`
	SplitPoints           [][]string `json:"split_points"`
	OwnerNode             string     `json:"owner_node"`
	VersionMajor          uint64     `json:"version_major"`
	VersionEpoch          string     `json:"version_epoch"`
	MetadataAuthorityAddr string     `json:"metadata_authority_addr,omitempty"`
}

func boundToStrings(b chunk.Bound) []string {
	if b == nil {
		return nil
	}
	ret := make([]string, len(b))
	for i, v := range b {
		ret[i] = string(v)
	}
	return ret
}

func (c *PGClient) ExecuteSplit(ctx context.Context, req *ExecuteSplitRequest) (*ExecuteSplitResponse, error) {
	cmd := splitCommand{
		Namespace:             req.Namespace,
		ShardKeyPattern:       req.ShardKeyPattern,
		RangeMin:              boundToStrings(req.RangeMin),
		RangeMax:              boundToStrings(req.RangeMax),
		OwnerNode:             req.OwnerNode,
		VersionMajor:          req.Version.Major,
		VersionEpoch:          req.Version.Epoch,
		MetadataAuthorityAddr: req.MetadataAuthorityAddr,
	}
	for _, p := range req.SplitPoints {
		cmd.SplitPoints = append(cmd.SplitPoints, boundToStrings(p))
	}

	rawCmd, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}

	var ok bool
	var reason string
	err = c.pool.QueryRow(ctx,
		"SELECT ok, coalesce(reason, '') FROM chunkr_split_chunk($1::jsonb)",
		string(rawCmd)).Scan(&ok, &reason)
	if err != nil {
		return nil, errors.Wrap(err, "split command")
	}
	return &ExecuteSplitResponse{OK: ok, Reason: reason}, nil
}
