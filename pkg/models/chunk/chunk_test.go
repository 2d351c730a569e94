package chunk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/range-sharding/chunkr/pkg/models/chunk"
)

func bound(vals ...string) chunk.Bound {
	b := make(chunk.Bound, len(vals))
	for i, v := range vals {
		b[i] = []byte(v)
	}
	return b
}

func TestCmpBoundsLess(t *testing.T) {
	assert := assert.New(t)

	for i, c := range []struct {
		a        chunk.Bound
		b        chunk.Bound
		keyTypes []string
		expected bool
	}{
		{bound("2"), bound("10"), []string{chunk.KeyTypeInteger}, true},
		{bound("10"), bound("2"), []string{chunk.KeyTypeInteger}, false},
		{bound("-5"), bound("3"), []string{chunk.KeyTypeInteger}, true},
		{bound("7"), bound("7"), []string{chunk.KeyTypeInteger}, false},
		// varchar ordering is lexicographic: "10" < "2"
		{bound("10"), bound("2"), []string{chunk.KeyTypeVarchar}, true},
		{bound("abc"), bound("abd"), []string{chunk.KeyTypeVarchar}, true},
		// composite keys compare column-wise
		{bound("1", "zzz"), bound("2", "aaa"), []string{chunk.KeyTypeInteger, chunk.KeyTypeVarchar}, true},
		{bound("2", "aaa"), bound("2", "abc"), []string{chunk.KeyTypeInteger, chunk.KeyTypeVarchar}, true},
		{bound("2", "abc"), bound("2", "abc"), []string{chunk.KeyTypeInteger, chunk.KeyTypeVarchar}, false},
		// shorter bound with equal prefix sorts first
		{bound("2"), bound("2", "x"), []string{chunk.KeyTypeInteger, chunk.KeyTypeVarchar}, true},
	} {
		assert.Equal(c.expected, chunk.CmpBoundsLess(c.a, c.b, c.keyTypes), "case %d", i)
	}
}

func TestCmpBoundsEqual(t *testing.T) {
	assert := assert.New(t)

	assert.True(chunk.CmpBoundsEqual(bound("42"), bound("42"), []string{chunk.KeyTypeInteger}))
	assert.False(chunk.CmpBoundsEqual(bound("42"), bound("43"), []string{chunk.KeyTypeInteger}))
	assert.True(chunk.CmpBoundsLessEqual(bound("42"), bound("42"), []string{chunk.KeyTypeInteger}))
}

func TestChunkContains(t *testing.T) {
	assert := assert.New(t)

	ch := &chunk.Chunk{
		ID:              "c1",
		Namespace:       "public.orders",
		ShardKeyPattern: []string{"id"},
		KeyTypes:        []string{chunk.KeyTypeInteger},
		RangeMin:        bound("100"),
		RangeMax:        bound("200"),
	}

	assert.True(ch.Contains(bound("100")))
	assert.True(ch.Contains(bound("150")))
	assert.False(ch.Contains(bound("200")))
	assert.False(ch.Contains(bound("99")))
}

func TestChunkInside(t *testing.T) {
	assert := assert.New(t)

	ch := &chunk.Chunk{
		KeyTypes: []string{chunk.KeyTypeInteger},
		RangeMin: bound("100"),
		RangeMax: bound("200"),
	}

	assert.False(ch.Inside(bound("100")), "lower bound is not a usable split point")
	assert.False(ch.Inside(bound("200")), "upper bound is not a usable split point")
	assert.True(ch.Inside(bound("101")))
	assert.True(ch.Inside(bound("199")))
}

func TestChunkOpenBounds(t *testing.T) {
	assert := assert.New(t)

	ch := &chunk.Chunk{
		KeyTypes: []string{chunk.KeyTypeInteger},
		RangeMin: nil,
		RangeMax: bound("0"),
	}

	assert.True(ch.Contains(bound("-100000")))
	assert.False(ch.Contains(bound("0")))
	assert.True(ch.Inside(bound("-1")))
}

func TestCandidateSplittable(t *testing.T) {
	assert := assert.New(t)

	cand := chunk.NewCandidate(&chunk.Chunk{ID: "c1"})
	assert.Equal(chunk.SizeUnknown, cand.EstimatedSizeBytes)
	assert.False(cand.Splittable())

	cand.SplitPoints = []chunk.Bound{bound("5")}
	assert.True(cand.Splittable())
}
