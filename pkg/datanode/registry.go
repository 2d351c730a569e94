package datanode

import (
	"sort"

	"github.com/range-sharding/chunkr/pkg/models/cherror"
)

// Registry maps owner node IDs to their clients. It is immutable after
// construction: topology discovery and connection establishment happen in
// the launcher, the splitter only looks clients up.
type Registry struct {
	clients map[string]Client
}

func NewRegistry(clients map[string]Client) *Registry {
	own := make(map[string]Client, len(clients))
	for id, cl := range clients {
		own[id] = cl
	}
	return &Registry{clients: own}
}

func (r *Registry) Client(nodeID string) (Client, error) {
	cl, ok := r.clients[nodeID]
	if !ok {
		return nil, cherror.Newf(cherror.CHNK_NODE_ERROR, "no client for storage node: %s", nodeID)
	}
	return cl, nil
}

func (r *Registry) Nodes() []string {
	ret := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ret = append(ret, id)
	}
	sort.Strings(ret)
	return ret
}
