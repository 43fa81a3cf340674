package quantify

import (
	"fmt"

	"github.com/biogo/hts/sam"
)

// SegmentPosition is which mate of a template a segmented record is.
type SegmentPosition int8

const (
	segmentFirst SegmentPosition = iota
	segmentLast
)

func segmentPositionOf(r *sam.Record) (SegmentPosition, error) {
	first := r.Flags&sam.Read1 != 0
	last := r.Flags&sam.Read2 != 0
	switch {
	case first && last:
		return 0, fmt.Errorf("quantify: record %q has both first- and last-segment flags set", r.Name)
	case !first && !last:
		return 0, fmt.Errorf("quantify: record %q is segmented but has neither first- nor last-segment flag", r.Name)
	case first:
		return segmentFirst, nil
	default:
		return segmentLast, nil
	}
}

// Pair is a reassembled mate pair, ordered canonically (First, Last)
// regardless of arrival order.
type Pair struct {
	First *sam.Record
	Last  *sam.Record
}

// SegmentedReads reassembles mate pairs from an interleaved-but-unordered
// stream of primary alignment records. It buffers records until both
// mates of a template are seen, then emits them in canonical order.
//
// SegmentedReads is inherently single-threaded: pair reassembly requires
// observing both mates, a linearizable operation, so it always runs on
// the decoder goroutine before fan-out to workers.
type SegmentedReads struct {
	cache map[string][]*sam.Record
}

// NewSegmentedReads returns an empty reassembly cache.
func NewSegmentedReads() *SegmentedReads {
	return &SegmentedReads{cache: make(map[string][]*sam.Record)}
}

// Push feeds one primary record into the reassembly cache. Non-primary
// records (secondary/supplementary) must be filtered out by the caller
// before calling Push. If the record completes a pair, Push returns it;
// otherwise it returns (Pair{}, false, nil) and the record is buffered.
func (s *SegmentedReads) Push(r *sam.Record) (Pair, bool, error) {
	if _, err := segmentPositionOf(r); err != nil {
		return Pair{}, false, err
	}

	bucket, ok := s.cache[r.Name]
	if !ok {
		s.cache[r.Name] = []*sam.Record{r}
		return Pair{}, false, nil
	}

	for i, m := range bucket {
		if isMate(r, m) {
			bucket = append(bucket[:i], bucket[i+1:]...)
			if len(bucket) == 0 {
				delete(s.cache, r.Name)
			} else {
				s.cache[r.Name] = bucket
			}
			return canonicalPair(r, m), true, nil
		}
	}

	s.cache[r.Name] = append(bucket, r)
	return Pair{}, false, nil
}

// Drain returns every record left unmatched once the input is exhausted.
// These records were primary but never found a mate anywhere in the
// stream (the mate is absent, or its mate fields do not mirror this
// record's); their dispositions still
// contribute to the run's totals through the single-record path.
func (s *SegmentedReads) Drain() []*sam.Record {
	var out []*sam.Record
	for _, bucket := range s.cache {
		out = append(out, bucket...)
	}
	s.cache = make(map[string][]*sam.Record)
	return out
}

func canonicalPair(a, b *sam.Record) Pair {
	posA, _ := segmentPositionOf(a)
	if posA == segmentFirst {
		return Pair{First: a, Last: b}
	}
	return Pair{First: b, Last: a}
}

// isMate is the standard BAM mate identity: segment positions are
// complementary, and the (segment, ref, start, mate_ref, mate_start,
// tlen) six-tuple of a equals the mirrored tuple of b.
func isMate(a, b *sam.Record) bool {
	posA, err := segmentPositionOf(a)
	if err != nil {
		return false
	}
	posB, err := segmentPositionOf(b)
	if err != nil {
		return false
	}
	if posA == posB {
		return false
	}

	refA, refB := refID(a.Ref), refID(a.MateRef)
	refC, refD := refID(b.Ref), refID(b.MateRef)

	return refA == refD &&
		a.Pos == b.MatePos &&
		refB == refC &&
		a.MatePos == b.Pos &&
		a.TempLen == -b.TempLen
}

func refID(ref *sam.Reference) int {
	if ref == nil {
		return -1
	}
	return ref.ID()
}
