package normalize

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// TPM computes transcripts-per-million, independently per sample: first
// length-normalize r[f] = counts[s][f]/lengths[f], then scale so the row
// sums to 1e6: N[s][f] = r[f] * 1e6 / sum(r).
func TPM(counts [][]float64, lengths []uint64) ([][]float64, error) {
	for _, l := range lengths {
		if l == 0 {
			return nil, fmt.Errorf("normalize: TPM requires every feature length > 0")
		}
	}

	out := make([][]float64, len(counts))
	for s, row := range counts {
		r := make([]float64, len(row))
		for f, c := range row {
			r[f] = c / float64(lengths[f])
		}
		total := floats.Sum(r)
		if total <= 0 {
			return nil, fmt.Errorf("normalize: TPM: sample %d has zero total length-normalized count", s)
		}
		norm := make([]float64, len(row))
		for f, v := range r {
			norm[f] = v * 1e6 / total
		}
		out[s] = norm
	}
	return out, nil
}
