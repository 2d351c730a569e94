package catalog

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/range-sharding/chunkr/pkg/chunklog"
	"github.com/range-sharding/chunkr/pkg/models/cherror"
)

// MemCatalog is an in-memory catalog with an optional JSON state file. It
// backs tests and local runs, and additionally carries the authority-side
// SplitChunk mutation so a loopback storage node can apply splits.
type MemCatalog struct {
	mu sync.RWMutex

	Namespaces map[string]*NamespaceMeta  `json:"namespaces"`
	Chunks     map[string]*ChunkRecord    `json:"chunks"`
	Versions   map[string]*RoutingVersion `json:"versions"`
	Settings   ClusterSettings            `json:"settings"`

	backupPath string
}

var _ Catalog = &MemCatalog{}

func NewMemCatalog(backupPath string) (*MemCatalog, error) {
	return &MemCatalog{
		Namespaces: map[string]*NamespaceMeta{},
		Chunks:     map[string]*ChunkRecord{},
		Versions:   map[string]*RoutingVersion{},

		backupPath: backupPath,
	}, nil
}

func RestoreMemCatalog(backupPath string) (*MemCatalog, error) {
	cat, err := NewMemCatalog(backupPath)
	if err != nil {
		return nil, err
	}
	if backupPath == "" {
		return cat, nil
	}
	if _, err := os.Stat(backupPath); err != nil {
		chunklog.Zero.Info().Err(err).Msg("memcatalog state file does not exist. Creating new one.")
		f, err := os.Create(backupPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return cat, nil
	}
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, cat); err != nil {
		return nil, err
	}
	return cat, nil
}

// DumpState writes the catalog to the backup file. Mutators call it while
// holding the write lock, so it takes no lock of its own.
func (c *MemCatalog) DumpState() error {
	if c.backupPath == "" {
		return nil
	}
	tmpPath := c.backupPath + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	state, err := json.MarshalIndent(c, "", "	")
	if err != nil {
		return err
	}

	if _, err := f.Write(state); err != nil {
		return err
	}
	f.Close()

	return os.Rename(tmpPath, c.backupPath)
}

// ==============================================================================
//                                  NAMESPACES
// ==============================================================================

func (c *MemCatalog) AddNamespace(ctx context.Context, meta *NamespaceMeta) error {
	chunklog.Zero.Debug().Interface("namespace", meta).Msg("memcatalog: add namespace")
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Namespaces[meta.Name] = meta
	if _, ok := c.Versions[meta.Name]; !ok {
		c.Versions[meta.Name] = &RoutingVersion{
			Namespace: meta.Name,
			Major:     1,
			Epoch:     newEpoch(),
		}
	}
	return c.DumpState()
}

func (c *MemCatalog) GetNamespace(ctx context.Context, name string) (*NamespaceMeta, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	meta, ok := c.Namespaces[name]
	if !ok {
		return nil, cherror.Newf(cherror.CHNK_CATALOG_ERROR, "no such namespace: %s", name)
	}
	return meta, nil
}

// ==============================================================================
//                                    CHUNKS
// ==============================================================================

func (c *MemCatalog) AddChunk(ctx context.Context, rec *ChunkRecord) error {
	chunklog.Zero.Debug().
		Str("chunk-id", rec.ChunkID).
		Str("namespace", rec.Namespace).
		Str("owner", rec.OwnerNode).
		Msg("memcatalog: add chunk")
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Chunks[rec.ChunkID] = rec
	return c.DumpState()
}

func (c *MemCatalog) ListChunks(ctx context.Context, namespace string) ([]*ChunkRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ret := make([]*ChunkRecord, 0)
	for _, rec := range c.Chunks {
		if rec.Namespace == namespace {
			ret = append(ret, rec)
		}
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].ChunkID < ret[j].ChunkID
	})
	return ret, nil
}

// ==============================================================================
//                              ROUTING VERSIONS
// ==============================================================================

func (c *MemCatalog) GetRoutingVersion(ctx context.Context, namespace string) (*RoutingVersion, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.Versions[namespace]
	if !ok {
		return nil, cherror.Newf(cherror.CHNK_CATALOG_ERROR, "no routing version for namespace: %s", namespace)
	}
	return &RoutingVersion{Namespace: v.Namespace, Major: v.Major, Epoch: v.Epoch}, nil
}

// ==============================================================================
//                              CLUSTER SETTINGS
// ==============================================================================

func (c *MemCatalog) SetMaxChunkSizeBytes(ctx context.Context, size int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Settings.MaxChunkSizeBytes = size
	return c.DumpState()
}

func (c *MemCatalog) MaxChunkSizeBytes(ctx context.Context) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.Settings.MaxChunkSizeBytes, nil
}

func (c *MemCatalog) AuthorityAddr() string {
	return ""
}

// ==============================================================================
//                         AUTHORITY-SIDE SPLIT APPLICATION
// ==============================================================================

// SplitChunk replaces one chunk with len(points)+1 narrower chunks sharing
// the same owner, and bumps the namespace routing version. It is the
// catalog-side effect a storage node triggers when executing a split; the
// splitter itself never calls it.
func (c *MemCatalog) SplitChunk(ctx context.Context, chunkID string, points [][][]byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	old, ok := c.Chunks[chunkID]
	if !ok {
		return cherror.Newf(cherror.CHNK_CATALOG_ERROR, "no such chunk: %s", chunkID)
	}
	if len(points) == 0 {
		return cherror.New(cherror.CHNK_CATALOG_ERROR, "split requires at least one split point")
	}

	lower := old.RangeMin
	for _, point := range points {
		id := uuid.NewString()
		c.Chunks[id] = &ChunkRecord{
			ChunkID:   id,
			Namespace: old.Namespace,
			RangeMin:  lower,
			RangeMax:  point,
			OwnerNode: old.OwnerNode,
		}
		lower = point
	}
	c.Chunks[chunkID] = &ChunkRecord{
		ChunkID:   chunkID,
		Namespace: old.Namespace,
		RangeMin:  lower,
		RangeMax:  old.RangeMax,
		OwnerNode: old.OwnerNode,
	}

	if v, ok := c.Versions[old.Namespace]; ok {
		v.Major++
	}
	return c.DumpState()
}
