package chunk

import "github.com/range-sharding/chunkr/catalog"

func ChunkFromCatalog(rec *catalog.ChunkRecord, meta *catalog.NamespaceMeta) *Chunk {
	if rec == nil {
		return nil
	}
	return &Chunk{
		ID:              rec.ChunkID,
		Namespace:       rec.Namespace,
		ShardKeyPattern: meta.ShardKeyPattern,
		KeyTypes:        meta.KeyTypes,
		RangeMin:        Bound(rec.RangeMin),
		RangeMax:        Bound(rec.RangeMax),
		OwnerNode:       rec.OwnerNode,
	}
}

func VersionFromCatalog(v *catalog.RoutingVersion) VersionToken {
	if v == nil {
		return VersionToken{}
	}
	return VersionToken{
		Major: v.Major,
		Epoch: v.Epoch,
	}
}
