// Package normalize implements the four count-matrix normalization
// kernels: FPKM, TPM, Median-of-Ratios, and TMM.
package normalize

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// FPKM computes fragments-per-kilobase-of-feature-per-million-reads,
// independently per sample: for sample s with library size L = sum of
// counts[s] and feature length lengths[f],
// N[s][f] = counts[s][f] * 1e9 / (lengths[f] * L).
//
// Every length must be > 0.
func FPKM(counts [][]float64, lengths []uint64) ([][]float64, error) {
	for _, l := range lengths {
		if l == 0 {
			return nil, fmt.Errorf("normalize: FPKM requires every feature length > 0")
		}
	}

	out := make([][]float64, len(counts))
	for s, row := range counts {
		librarySize := floats.Sum(row)
		norm := make([]float64, len(row))
		for f, c := range row {
			norm[f] = c * 1e9 / (float64(lengths[f]) * librarySize)
		}
		out[s] = norm
	}
	return out, nil
}
