package chunk

import "fmt"

// VersionToken is the optimistic concurrency fence presented to a storage
// node alongside a split command. It is read from the routing metadata
// catalog immediately before execution and used exactly once.
type VersionToken struct {
	Major uint64
	Epoch string
}

func (v VersionToken) String() string {
	return fmt.Sprintf("%d|%s", v.Major, v.Epoch)
}
