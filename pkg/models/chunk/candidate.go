package chunk

// SizeUnknown marks a candidate whose size estimation did not produce a
// usable value.
const SizeUnknown int64 = -1

// Candidate annotates a chunk for the duration of one splitter run. It is
// never persisted.
type Candidate struct {
	Chunk *Chunk

	EstimatedSizeBytes int64
	SplitPoints        []Bound
}

func NewCandidate(c *Chunk) *Candidate {
	return &Candidate{
		Chunk:              c,
		EstimatedSizeBytes: SizeUnknown,
	}
}

func (c *Candidate) Splittable() bool {
	return len(c.SplitPoints) > 0
}
