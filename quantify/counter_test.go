package quantify

import (
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stjude-rust-labs/atlas-go/features"
)

func recordStream(records ...*sam.Record) NextFunc {
	i := 0
	return func() (*sam.Record, bool, error) {
		if i >= len(records) {
			return nil, false, nil
		}
		r := records[i]
		i++
		return r, true, nil
	}
}

func withNH(r *sam.Record, nh int) *sam.Record {
	aux, err := sam.NewAux(nhTag, nh)
	if err != nil {
		panic(err)
	}
	r.AuxFields = append(r.AuxFields, aux)
	return r
}

func TestCountEmptyBAM(t *testing.T) {
	cat := &features.Catalog{Features: map[string][]features.Feature{
		"gene1": {{Start: 1, End: 100, Strand: features.StrandForward}},
	}}
	trees := BuildIntervalTrees(cat)

	ctx, err := Count(CounterOpts{
		Trees:   trees,
		Filter:  Filter{MinMappingQuality: 10},
		Spec:    LibrarySpec{Layout: LayoutSingle, Strand: StrandUnstranded},
		Workers: 2,
	}, recordStream())
	require.NoError(t, err)
	assert.Empty(t, ctx.Hits)
	assert.Zero(t, ctx.Miss+ctx.Ambiguous+ctx.LowQuality+ctx.Unmapped+ctx.Nonunique)
}

func TestCountSingleEndHit(t *testing.T) {
	ref, err := sam.NewReference("chr1", "", "", 1<<20, nil, nil)
	require.NoError(t, err)
	_, err = sam.NewHeader(nil, []*sam.Reference{ref})
	require.NoError(t, err)

	cat := &features.Catalog{Features: map[string][]features.Feature{
		"gene1": {{ReferenceSequenceID: uint32(ref.ID()), Start: 1, End: 100, Strand: features.StrandForward}},
	}}
	trees := BuildIntervalTrees(cat)

	r := withNH(&sam.Record{
		Ref: ref, Pos: 9, MapQ: 30,
		Cigar: sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 10)},
	}, 1)

	ctx, err := Count(CounterOpts{
		Trees:   trees,
		Filter:  Filter{MinMappingQuality: 10},
		Spec:    LibrarySpec{Layout: LayoutSingle, Strand: StrandUnstranded},
		Workers: 2,
	}, recordStream(r))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ctx.Hits["gene1"])
}

func TestCountAmbiguous(t *testing.T) {
	ref, err := sam.NewReference("chr1", "", "", 1<<20, nil, nil)
	require.NoError(t, err)
	_, err = sam.NewHeader(nil, []*sam.Reference{ref})
	require.NoError(t, err)

	cat := &features.Catalog{Features: map[string][]features.Feature{
		"gene1": {{ReferenceSequenceID: uint32(ref.ID()), Start: 1, End: 50, Strand: features.StrandForward}},
		"gene2": {{ReferenceSequenceID: uint32(ref.ID()), Start: 5, End: 60, Strand: features.StrandForward}},
	}}
	trees := BuildIntervalTrees(cat)

	r := withNH(&sam.Record{
		Ref: ref, Pos: 9, MapQ: 30,
		Cigar: sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 10)},
	}, 1)

	ctx, err := Count(CounterOpts{
		Trees:   trees,
		Filter:  Filter{MinMappingQuality: 10},
		Spec:    LibrarySpec{Layout: LayoutSingle, Strand: StrandUnstranded},
		Workers: 1,
	}, recordStream(r))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ctx.Ambiguous)
	assert.Empty(t, ctx.Hits)
}

func TestCountInvariantTotalsBalance(t *testing.T) {
	ref, err := sam.NewReference("chr1", "", "", 1<<20, nil, nil)
	require.NoError(t, err)
	_, err = sam.NewHeader(nil, []*sam.Reference{ref})
	require.NoError(t, err)

	cat := &features.Catalog{Features: map[string][]features.Feature{
		"gene1": {{ReferenceSequenceID: uint32(ref.ID()), Start: 1, End: 100, Strand: features.StrandForward}},
	}}
	trees := BuildIntervalTrees(cat)

	hit := withNH(&sam.Record{Ref: ref, Pos: 9, MapQ: 30, Cigar: sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 10)}}, 1)
	unmapped := &sam.Record{Flags: sam.Unmapped}
	lowQ := withNH(&sam.Record{Ref: ref, Pos: 9, MapQ: 1, Cigar: sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 10)}}, 1)
	nonunique := withNH(&sam.Record{Ref: ref, Pos: 9, MapQ: 30, Cigar: sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 10)}}, 5)
	skip := &sam.Record{Flags: sam.Secondary}

	ctx, err := Count(CounterOpts{
		Trees:   trees,
		Filter:  Filter{MinMappingQuality: 10},
		Spec:    LibrarySpec{Layout: LayoutSingle, Strand: StrandUnstranded},
		Workers: 3,
	}, recordStream(hit, unmapped, lowQ, nonunique, skip))
	require.NoError(t, err)

	var hitsTotal uint64
	for _, n := range ctx.Hits {
		hitsTotal += n
	}
	total := hitsTotal + ctx.Miss + ctx.Ambiguous + ctx.LowQuality + ctx.Unmapped + ctx.Nonunique
	assert.Equal(t, uint64(4), total) // 5 records minus 1 Skip
}
