package catalog

import (
	"context"
	"fmt"
)

// Catalog is the routing metadata authority as seen by the splitter: the
// splitter only ever reads from it. Splits mutate the catalog as a side
// effect of the storage node executing a split command, never locally.
type Catalog interface {
	GetNamespace(ctx context.Context, name string) (*NamespaceMeta, error)
	ListChunks(ctx context.Context, namespace string) ([]*ChunkRecord, error)
	GetRoutingVersion(ctx context.Context, namespace string) (*RoutingVersion, error)
	MaxChunkSizeBytes(ctx context.Context) (int64, error)

	// AuthorityAddr is forwarded to storage nodes for split-command protocol
	// variants that still require the metadata authority endpoint.
	AuthorityAddr() string
}

func NewCatalog(ctx context.Context, catalogType string, addr string, backupPath string) (Catalog, error) {
	switch catalogType {
	case "etcd":
		return NewEtcdCatalog(ctx, addr)
	case "mem":
		return RestoreMemCatalog(backupPath)
	default:
		return nil, fmt.Errorf("catalog implementation %s is invalid", catalogType)
	}
}
