package quantify

// Context accumulates per-record dispositions produced by a Counter
// worker. It is a commutative monoid under field-wise addition and
// hash-map union with integer summation: merging any set of Contexts in
// any order yields the same result, which is the sole justification for
// running workers without locks and folding their results afterward.
type Context struct {
	Hits       map[string]uint64
	Miss       uint64
	Ambiguous  uint64
	LowQuality uint64
	Unmapped   uint64
	Nonunique  uint64
}

// NewContext returns an empty Context ready to accumulate events.
func NewContext() *Context {
	return &Context{Hits: make(map[string]uint64)}
}

func (c *Context) apply(event Event, name string) {
	switch event {
	case EventHit:
		c.Hits[name]++
	case EventMiss:
		c.Miss++
	case EventAmbiguous:
		c.Ambiguous++
	case EventLowQuality:
		c.LowQuality++
	case EventUnmapped:
		c.Unmapped++
	case EventNonunique:
		c.Nonunique++
	case EventSkip, EventNone:
		// Not tallied anywhere.
	}
}

// Merge folds other into c, summing every field including Hits by key.
func (c *Context) Merge(other *Context) {
	if other == nil {
		return
	}
	for name, n := range other.Hits {
		c.Hits[name] += n
	}
	c.Miss += other.Miss
	c.Ambiguous += other.Ambiguous
	c.LowQuality += other.LowQuality
	c.Unmapped += other.Unmapped
	c.Nonunique += other.Nonunique
}
