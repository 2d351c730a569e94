package chunk

import (
	"bytes"
	"strconv"
)

// Shard key column types understood by the typed bound comparisons.
const (
	KeyTypeInteger = "integer"
	KeyTypeVarchar = "varchar"
)

// Bound is one point in the shard key space: one value per shard key column,
// in pattern order. A nil Bound denotes the open end of the key space.
type Bound [][]byte

// Chunk is a contiguous, non-overlapping key range of a sharded namespace,
// owned by exactly one storage node. RangeMin is inclusive, RangeMax is
// exclusive. Chunks are read-only from the splitter's perspective: the
// routing metadata catalog creates and replaces them.
type Chunk struct {
	ID              string
	Namespace       string
	ShardKeyPattern []string
	KeyTypes        []string
	RangeMin        Bound
	RangeMax        Bound
	OwnerNode       string
}

func cmpValues(a, b []byte, keyType string) int {
	switch keyType {
	case KeyTypeInteger:
		av, aerr := strconv.ParseInt(string(a), 10, 64)
		bv, berr := strconv.ParseInt(string(b), 10, 64)
		if aerr == nil && berr == nil {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			default:
				return 0
			}
		}
		// unparsable integers fall back to length-then-lexicographic order
		if len(a) != len(b) {
			if len(a) < len(b) {
				return -1
			}
			return 1
		}
		return bytes.Compare(a, b)
	default:
		return bytes.Compare(a, b)
	}
}

func cmpBounds(a, b Bound, keyTypes []string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		keyType := KeyTypeVarchar
		if i < len(keyTypes) {
			keyType = keyTypes[i]
		}
		if c := cmpValues(a[i], b[i], keyType); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

func CmpBoundsLess(a, b Bound, keyTypes []string) bool {
	return cmpBounds(a, b, keyTypes) < 0
}

func CmpBoundsLessEqual(a, b Bound, keyTypes []string) bool {
	return cmpBounds(a, b, keyTypes) <= 0
}

func CmpBoundsEqual(a, b Bound, keyTypes []string) bool {
	return cmpBounds(a, b, keyTypes) == 0
}

// Contains reports whether point lies in [RangeMin, RangeMax).
func (c *Chunk) Contains(point Bound) bool {
	if c.RangeMin != nil && CmpBoundsLess(point, c.RangeMin, c.KeyTypes) {
		return false
	}
	if c.RangeMax != nil && !CmpBoundsLess(point, c.RangeMax, c.KeyTypes) {
		return false
	}
	return true
}

// Inside reports whether point lies strictly between the chunk bounds, which
// is what a usable split point must satisfy.
func (c *Chunk) Inside(point Bound) bool {
	if c.RangeMin != nil && !CmpBoundsLess(c.RangeMin, point, c.KeyTypes) {
		return false
	}
	if c.RangeMax != nil && !CmpBoundsLess(point, c.RangeMax, c.KeyTypes) {
		return false
	}
	return true
}
