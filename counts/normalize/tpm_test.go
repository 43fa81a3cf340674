package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTPMRowsSumToOneMillion(t *testing.T) {
	counts := [][]float64{
		{10, 20, 30},
		{5, 5, 5},
	}
	lengths := []uint64{1000, 2000, 500}

	out, err := TPM(counts, lengths)
	require.NoError(t, err)

	for s, row := range out {
		var sum float64
		for _, v := range row {
			sum += v
		}
		assert.InDeltaf(t, 1e6, sum, 1e-6, "sample %d", s)
	}
}

func TestTPMRejectsZeroLength(t *testing.T) {
	_, err := TPM([][]float64{{1, 2}}, []uint64{100, 0})
	assert.Error(t, err)
}

func TestTPMRejectsAllZeroSample(t *testing.T) {
	_, err := TPM([][]float64{{0, 0}}, []uint64{100, 100})
	assert.Error(t, err)
}
