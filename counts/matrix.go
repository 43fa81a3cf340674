// Package counts defines the count-matrix type shared by the
// normalization kernels and the htseq-count/STAR readers and writers.
package counts

import "fmt"

// Matrix is a row-major sample x feature matrix of non-negative integer
// counts, with a parallel ordered feature-name list and optional
// per-feature lengths (required by FPKM/TPM, unused by Median-of-Ratios
// and TMM).
type Matrix struct {
	SampleNames  []string
	FeatureNames []string
	Lengths      []uint64 // nil if not needed by the chosen normalizer
	Counts       [][]uint64
}

// Validate checks the matrix's internal shape invariants.
func (m *Matrix) Validate() error {
	if len(m.Counts) != len(m.SampleNames) {
		return fmt.Errorf("counts: %d samples but %d count rows", len(m.SampleNames), len(m.Counts))
	}
	for i, row := range m.Counts {
		if len(row) != len(m.FeatureNames) {
			return fmt.Errorf("counts: sample %q has %d features, expected %d", m.SampleNames[i], len(row), len(m.FeatureNames))
		}
	}
	if m.Lengths != nil && len(m.Lengths) != len(m.FeatureNames) {
		return fmt.Errorf("counts: %d feature lengths, expected %d", len(m.Lengths), len(m.FeatureNames))
	}
	return nil
}

// Float64Counts converts the integer count matrix to float64, the
// representation every normalization kernel operates on.
func (m *Matrix) Float64Counts() [][]float64 {
	out := make([][]float64, len(m.Counts))
	for i, row := range m.Counts {
		fr := make([]float64, len(row))
		for j, v := range row {
			fr[j] = float64(v)
		}
		out[i] = fr
	}
	return out
}
