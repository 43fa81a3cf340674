package collections

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ival(start, end int) Range[int] { return Range[int]{Start: start, End: end} }

func TestIntervalTreeFind(t *testing.T) {
	var tr IntervalTree[int, int]
	tr.Insert(ival(17, 19), 0)
	tr.Insert(ival(5, 8), 1)
	tr.Insert(ival(21, 24), 2)
	tr.Insert(ival(4, 8), 3)
	tr.Insert(ival(15, 18), 4)
	tr.Insert(ival(7, 10), 5)
	tr.Insert(ival(16, 22), 6)

	got := tr.Find(ival(7, 20))

	sort.Slice(got, func(i, j int) bool { return got[i].Value < got[j].Value })

	want := []Entry[int, int]{
		{Range: ival(17, 19), Value: 0},
		{Range: ival(5, 8), Value: 1},
		{Range: ival(4, 8), Value: 3},
		{Range: ival(15, 18), Value: 4},
		{Range: ival(7, 10), Value: 5},
		{Range: ival(16, 22), Value: 6},
	}
	sort.Slice(want, func(i, j int) bool { return want[i].Value < want[j].Value })

	assert.Equal(t, want, got)
}

func TestIntervalTreeFindNoOverlap(t *testing.T) {
	var tr IntervalTree[int, string]
	tr.Insert(ival(1, 5), "a")
	tr.Insert(ival(10, 15), "b")

	assert.Empty(t, tr.Find(ival(6, 9)))
	assert.Len(t, tr.Find(ival(5, 10)), 2)
}

func TestIntervalTreeDuplicateRanges(t *testing.T) {
	var tr IntervalTree[int, string]
	tr.Insert(ival(1, 5), "a")
	tr.Insert(ival(1, 5), "b")

	got := tr.Find(ival(1, 5))
	assert.Len(t, got, 2)
}

func TestIntervalTreeStaysBalanced(t *testing.T) {
	var tr IntervalTree[int, int]
	for i := 0; i < 2000; i++ {
		tr.Insert(ival(i, i), i)
	}
	// A degenerate (unbalanced) insertion order would make height linear
	// in the number of nodes; AVL height is O(log n).
	h := height(tr.root)
	assert.Less(t, int(h), 40)
}

func TestIntervalTreeQueryExact(t *testing.T) {
	var tr IntervalTree[int, int]
	for i := 0; i < 200; i++ {
		tr.Insert(ival(i*10, i*10+5), i)
	}

	got := tr.Find(ival(103, 108))
	sort.Slice(got, func(i, j int) bool { return got[i].Value < got[j].Value })

	// Ranges [100,105] (i=10) and [110,115] (i=11) both reach into [103,108]?
	// [100,105] overlaps [103,108]; [110,115] does not (110>108).
	assert.Equal(t, []Entry[int, int]{{Range: ival(100, 105), Value: 10}}, got)
}
