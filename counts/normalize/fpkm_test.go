package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFPKM(t *testing.T) {
	counts := [][]float64{
		{10, 20, 30},
	}
	lengths := []uint64{1000, 2000, 500}

	out, err := FPKM(counts, lengths)
	require.NoError(t, err)
	require.Len(t, out, 1)

	librarySize := 60.0
	assert.InDelta(t, 10*1e9/(1000*librarySize), out[0][0], 1e-9)
	assert.InDelta(t, 20*1e9/(2000*librarySize), out[0][1], 1e-9)
	assert.InDelta(t, 30*1e9/(500*librarySize), out[0][2], 1e-9)
}

func TestFPKMRejectsZeroLength(t *testing.T) {
	_, err := FPKM([][]float64{{1, 2}}, []uint64{100, 0})
	assert.Error(t, err)
}

func TestFPKMScaleInvariantToLibrarySize(t *testing.T) {
	lengths := []uint64{1000, 2000}
	small, err := FPKM([][]float64{{10, 10}}, lengths)
	require.NoError(t, err)
	large, err := FPKM([][]float64{{100, 100}}, lengths)
	require.NoError(t, err)

	assert.InDelta(t, small[0][0], large[0][0], 1e-9)
	assert.InDelta(t, small[0][1], large[0][1], 1e-9)
}
