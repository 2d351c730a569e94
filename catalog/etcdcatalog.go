package catalog

import (
	"context"
	"encoding/json"
	"path"
	"strconv"
	"time"

	"github.com/pkg/errors"
	retry "github.com/sethvargo/go-retry"
	clientv3 "go.etcd.io/etcd/client/v3"
	"google.golang.org/grpc"

	"github.com/range-sharding/chunkr/pkg/chunklog"
	"github.com/range-sharding/chunkr/pkg/models/cherror"
)

type EtcdCatalog struct {
	cli  *clientv3.Client
	addr string
}

var _ Catalog = &EtcdCatalog{}

const (
	namespacesNamespace     = "/namespaces/"
	chunksNamespace         = "/chunks/"
	routingVersionNamespace = "/routing_versions/"
	maxChunkSizePath        = "/cluster/max_chunk_size_bytes"
)

func namespaceNodePath(name string) string {
	return path.Join(namespacesNamespace, name)
}

func chunkNodePath(namespace, chunkID string) string {
	return path.Join(chunksNamespace, namespace, chunkID)
}

func routingVersionNodePath(namespace string) string {
	return path.Join(routingVersionNamespace, namespace)
}

func NewEtcdCatalog(ctx context.Context, addr string) (*EtcdCatalog, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints: []string{addr},
		DialOptions: []grpc.DialOption{ // TODO remove WithInsecure
			grpc.WithInsecure(), //nolint:all
		},
	})
	if err != nil {
		return nil, err
	}

	chunklog.Zero.Debug().
		Str("address", addr).
		Msg("etcdcatalog: NewEtcdCatalog")

	cat := &EtcdCatalog{
		cli:  cli,
		addr: addr,
	}
	if err := cat.waitReady(ctx); err != nil {
		return nil, errors.Wrap(err, "etcd catalog is not reachable")
	}
	return cat, nil
}

// waitReady probes connectivity with a bounded backoff. This is the only
// place the splitter retries anything: in-run remote operations are never
// retried because a re-read fence is required for a safe re-issue.
func (q *EtcdCatalog) waitReady(ctx context.Context) error {
	return retry.Do(ctx, retry.WithMaxRetries(7, retry.NewFibonacci(500*time.Millisecond)), func(ctx context.Context) error {
		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if _, err := q.cli.Get(probeCtx, maxChunkSizePath, clientv3.WithCountOnly()); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (q *EtcdCatalog) Close() error {
	return q.cli.Close()
}

// ==============================================================================
//                                  NAMESPACES
// ==============================================================================

func (q *EtcdCatalog) AddNamespace(ctx context.Context, meta *NamespaceMeta) error {
	chunklog.Zero.Debug().
		Str("namespace", meta.Name).
		Msg("etcdcatalog: add namespace")

	rawMeta, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	if _, err := q.cli.Put(ctx, namespaceNodePath(meta.Name), string(rawMeta)); err != nil {
		return err
	}

	resp, err := q.cli.Get(ctx, routingVersionNodePath(meta.Name), clientv3.WithCountOnly())
	if err != nil {
		return err
	}
	if resp.Count == 0 {
		return q.putRoutingVersion(ctx, &RoutingVersion{Namespace: meta.Name, Major: 1, Epoch: newEpoch()})
	}
	return nil
}

func (q *EtcdCatalog) GetNamespace(ctx context.Context, name string) (*NamespaceMeta, error) {
	chunklog.Zero.Debug().
		Str("namespace", name).
		Msg("etcdcatalog: get namespace")

	resp, err := q.cli.Get(ctx, namespaceNodePath(name))
	if err != nil {
		return nil, err
	}
	if len(resp.Kvs) == 0 {
		return nil, cherror.Newf(cherror.CHNK_CATALOG_ERROR, "no such namespace: %s", name)
	}

	var meta NamespaceMeta
	if err := json.Unmarshal(resp.Kvs[0].Value, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// ==============================================================================
//                                    CHUNKS
// ==============================================================================

func (q *EtcdCatalog) AddChunk(ctx context.Context, rec *ChunkRecord) error {
	chunklog.Zero.Debug().
		Str("chunk-id", rec.ChunkID).
		Str("namespace", rec.Namespace).
		Msg("etcdcatalog: add chunk")

	rawRec, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = q.cli.Put(ctx, chunkNodePath(rec.Namespace, rec.ChunkID), string(rawRec))
	return err
}

func (q *EtcdCatalog) ListChunks(ctx context.Context, namespace string) ([]*ChunkRecord, error) {
	resp, err := q.cli.Get(ctx, path.Join(chunksNamespace, namespace)+"/", clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	ret := make([]*ChunkRecord, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var rec ChunkRecord
		if err := json.Unmarshal(kv.Value, &rec); err != nil {
			return nil, err
		}
		ret = append(ret, &rec)
	}

	chunklog.Zero.Debug().
		Str("namespace", namespace).
		Int("count", len(ret)).
		Msg("etcdcatalog: list chunks")
	return ret, nil
}

// ==============================================================================
//                              ROUTING VERSIONS
// ==============================================================================

func (q *EtcdCatalog) putRoutingVersion(ctx context.Context, v *RoutingVersion) error {
	rawV, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = q.cli.Put(ctx, routingVersionNodePath(v.Namespace), string(rawV))
	return err
}

func (q *EtcdCatalog) GetRoutingVersion(ctx context.Context, namespace string) (*RoutingVersion, error) {
	resp, err := q.cli.Get(ctx, routingVersionNodePath(namespace))
	if err != nil {
		return nil, err
	}
	if len(resp.Kvs) == 0 {
		return nil, cherror.Newf(cherror.CHNK_CATALOG_ERROR, "no routing version for namespace: %s", namespace)
	}

	var v RoutingVersion
	if err := json.Unmarshal(resp.Kvs[0].Value, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// ==============================================================================
//                              CLUSTER SETTINGS
// ==============================================================================

func (q *EtcdCatalog) SetMaxChunkSizeBytes(ctx context.Context, size int64) error {
	_, err := q.cli.Put(ctx, maxChunkSizePath, strconv.FormatInt(size, 10))
	return err
}

func (q *EtcdCatalog) MaxChunkSizeBytes(ctx context.Context) (int64, error) {
	resp, err := q.cli.Get(ctx, maxChunkSizePath)
	if err != nil {
		return 0, err
	}
	if len(resp.Kvs) == 0 {
		return 0, nil
	}
	size, err := strconv.ParseInt(string(resp.Kvs[0].Value), 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "malformed max chunk size setting")
	}
	return size, nil
}

func (q *EtcdCatalog) AuthorityAddr() string {
	return q.addr
}
