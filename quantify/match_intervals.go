package quantify

import (
	"fmt"

	"github.com/biogo/hts/sam"

	"github.com/stjude-rust-labs/atlas-go/collections"
	"github.com/stjude-rust-labs/atlas-go/features"
)

// MatchIntervals translates a CIGAR operation stream plus a 1-based
// alignment start into the maximal contiguous reference intervals the
// read's bases actually match. It is a pull iterator: Next returns
// false once the CIGAR is exhausted, and any cursor overflow is
// reported through err rather than panicking the caller's goroutine.
type MatchIntervals struct {
	cigar  sam.Cigar
	cursor features.Position
	index  int
}

// NewMatchIntervals builds a MatchIntervals iterator over cigar, starting
// at the given 1-based alignment start position.
func NewMatchIntervals(cigar sam.Cigar, alignmentStart features.Position) *MatchIntervals {
	return &MatchIntervals{cigar: cigar, cursor: alignmentStart}
}

// Next advances the iterator. It returns (range, true, nil) for each
// contiguous matched interval, (zero, false, nil) once exhausted, and
// (zero, false, err) if cursor arithmetic overflows -- which indicates a
// corrupt record or annotation, per the package invariant that reference
// coordinates are bounded well below the overflow point.
func (m *MatchIntervals) Next() (collections.Range[features.Position], bool, error) {
	for m.index < len(m.cigar) {
		op := m.cigar[m.index]
		m.index++

		length := uint64(op.Len())
		if length == 0 {
			continue
		}

		switch op.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			start := m.cursor
			end, err := m.cursor.Add(length - 1)
			if err != nil {
				return collections.Range[features.Position]{}, false, fmt.Errorf("quantify: match interval: %w", err)
			}
			next, err := m.cursor.Add(length)
			if err != nil {
				return collections.Range[features.Position]{}, false, fmt.Errorf("quantify: cursor advance: %w", err)
			}
			m.cursor = next
			return collections.Range[features.Position]{Start: start, End: end}, true, nil

		case sam.CigarDeletion, sam.CigarSkipped:
			next, err := m.cursor.Add(length)
			if err != nil {
				return collections.Range[features.Position]{}, false, fmt.Errorf("quantify: cursor advance: %w", err)
			}
			m.cursor = next

		default:
			// Insertion, soft/hard clip, padding: consumes no reference.
		}
	}
	return collections.Range[features.Position]{}, false, nil
}

// Intervals drains the iterator into a slice, for callers that don't need
// lazy evaluation (tests, small CIGARs).
func (m *MatchIntervals) Intervals() ([]collections.Range[features.Position], error) {
	var out []collections.Range[features.Position]
	for {
		r, ok, err := m.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, r)
	}
}
