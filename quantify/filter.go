package quantify

import (
	"fmt"

	"github.com/biogo/hts/sam"
)

// nhTag is the "NH" aux tag: number of reported alignments for this read.
var nhTag = sam.Tag{'N', 'H'}

// Event is the verdict a Filter or the Counter's intersection step
// reaches for a record or record pair.
type Event int

const (
	// EventNone means "no verdict yet, keep going" -- only meaningful as
	// a Filter return value, never stored in a Context.
	EventNone Event = iota
	EventHit
	EventMiss
	EventAmbiguous
	EventLowQuality
	EventUnmapped
	EventNonunique
	// EventSkip means "not counted anywhere, not even in dispositions".
	EventSkip
)

// Filter classifies single records and read pairs before they reach
// interval intersection. A minimum mapping-quality threshold is the only
// configuration it needs.
type Filter struct {
	MinMappingQuality byte
}

// Classify applies the single-record rules in order. ok is false when the
// record needs further processing (interval intersection); it is true
// when event is a final verdict. err is non-nil only for a present but
// non-integer NH tag, which is an invalid-data error the caller should
// abort the run on, not a disposition to tally.
//
// NH absent or NH>1 is Nonunique. NH<=0 (including the negative sentinel
// values some upstream tools emit) is treated as unique -- this matches
// htseq-count 0.12.3's behavior and is preserved deliberately; see
// DESIGN.md's Open Question Decisions for why this is bug-compatible,
// not "fixed".
func (f Filter) Classify(r *sam.Record) (Event, bool, error) {
	if r.Flags&sam.Unmapped != 0 {
		return EventUnmapped, true, nil
	}
	if r.Flags&(sam.Secondary|sam.Supplementary) != 0 {
		return EventSkip, true, nil
	}
	nh, present, err := nhValue(r)
	if err != nil {
		return EventNone, false, err
	}
	if !present || nh > 1 {
		return EventNonunique, true, nil
	}
	if r.MapQ < f.MinMappingQuality {
		return EventLowQuality, true, nil
	}
	return EventNone, false, nil
}

// ClassifySegments applies the paired-segment rules to a mate pair.
func (f Filter) ClassifySegments(r1, r2 *sam.Record) (Event, bool, error) {
	if r1.Flags&sam.Unmapped != 0 && r2.Flags&sam.Unmapped != 0 {
		return EventUnmapped, true, nil
	}
	if r1.Flags&(sam.Secondary|sam.Supplementary) != 0 || r2.Flags&(sam.Secondary|sam.Supplementary) != 0 {
		return EventSkip, true, nil
	}
	nh1, present1, err := nhValue(r1)
	if err != nil {
		return EventNone, false, err
	}
	nh2, present2, err := nhValue(r2)
	if err != nil {
		return EventNone, false, err
	}
	if !present1 || nh1 > 1 || !present2 || nh2 > 1 {
		return EventNonunique, true, nil
	}
	if r1.MapQ < f.MinMappingQuality || r2.MapQ < f.MinMappingQuality {
		return EventLowQuality, true, nil
	}
	return EventNone, false, nil
}

// nhValue reads the NH tag, returning (value, true, nil) when the tag is
// present and an integer, and (0, false, nil) when it's absent. A
// present-but-non-integer NH tag reports a non-nil error. The caller
// decides uniqueness (present && nh<=1) from the result.
func nhValue(r *sam.Record) (nh int64, present bool, err error) {
	aux := r.AuxFields.Get(nhTag)
	if aux == nil {
		return 0, false, nil
	}
	switch v := aux.Value().(type) {
	case int8:
		nh = int64(v)
	case uint8:
		nh = int64(v)
	case int16:
		nh = int64(v)
	case uint16:
		nh = int64(v)
	case int32:
		nh = int64(v)
	case uint32:
		nh = int64(v)
	case int:
		nh = int64(v)
	default:
		return 0, false, fmt.Errorf("quantify: NH tag present but not an integer (got %T)", v)
	}
	return nh, true, nil
}
