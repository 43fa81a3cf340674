package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func seg(start, end Position) Feature {
	return Feature{Start: start, End: end}
}

func TestMerge(t *testing.T) {
	in := []Feature{
		seg(2, 5), seg(3, 4), seg(5, 7), seg(9, 12), seg(10, 15), seg(16, 21),
	}
	want := []Feature{seg(2, 7), seg(9, 15), seg(16, 21)}
	assert.Equal(t, want, Merge(in))
}

func TestMergeIdempotent(t *testing.T) {
	in := []Feature{seg(2, 5), seg(3, 4), seg(5, 7), seg(9, 12), seg(10, 15), seg(16, 21)}
	once := Merge(in)
	twice := Merge(once)
	assert.Equal(t, once, twice)
}

func TestLength(t *testing.T) {
	in := []Feature{seg(2, 5), seg(3, 4), seg(5, 7), seg(9, 12), seg(10, 15), seg(16, 21)}
	assert.Equal(t, uint64(19), Length(in))
}

func TestMergeEmpty(t *testing.T) {
	assert.Nil(t, Merge(nil))
	assert.Equal(t, uint64(0), Length(nil))
}

func TestMergeStrandAgnostic(t *testing.T) {
	a := Feature{Start: 1, End: 10, Strand: StrandForward}
	b := Feature{Start: 5, End: 15, Strand: StrandReverse}
	got := Merge([]Feature{a, b})
	assert.Equal(t, []Feature{{Start: 1, End: 15, Strand: StrandForward}}, got)
}
