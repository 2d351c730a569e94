package catalog

// Wire records stored in the routing metadata catalog. Bounds are kept as
// raw per-column values; typed interpretation happens in pkg/models/chunk.

type NamespaceMeta struct {
	Name            string   `json:"name"`
	ShardKeyPattern []string `json:"shard_key_pattern"`
	KeyTypes        []string `json:"key_types"`
}

type ChunkRecord struct {
	ChunkID   string   `json:"chunk_id"`
	Namespace string   `json:"namespace"`
	RangeMin  [][]byte `json:"range_min"`
	RangeMax  [][]byte `json:"range_max"`
	OwnerNode string   `json:"owner_node"`
}

type RoutingVersion struct {
	Namespace string `json:"namespace"`
	Major     uint64 `json:"major"`
	Epoch     string `json:"epoch"`
}

type ClusterSettings struct {
	MaxChunkSizeBytes int64 `json:"max_chunk_size_bytes"`
}
