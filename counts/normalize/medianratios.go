package normalize

import (
	"math"
	"sort"
)

// MedianOfRatios implements the DESeq2-style size-factor normalization:
//
//  1. X[s][f] = ln(C[s][f]), zero counts produce -Inf.
//  2. mu[f] = mean over s of X[s][f].
//  3. X[s][f] -= mu[f], then any non-finite result becomes NaN -- this
//     cleanly discards any feature with a zero count in any sample from
//     every sample's median.
//  4. Per sample, sort the finite entries and take the median (mean of
//     the middle two for an even count, the middle one for odd);
//     exponentiate to get scale[s].
//  5. N[s][f] = C[s][f] / scale[s].
func MedianOfRatios(counts [][]float64) [][]float64 {
	numSamples := len(counts)
	if numSamples == 0 {
		return nil
	}
	numFeatures := len(counts[0])

	logs := make([][]float64, numSamples)
	for s, row := range counts {
		l := make([]float64, numFeatures)
		for f, c := range row {
			l[f] = math.Log(c)
		}
		logs[s] = l
	}

	mu := make([]float64, numFeatures)
	for f := 0; f < numFeatures; f++ {
		var sum float64
		for s := 0; s < numSamples; s++ {
			sum += logs[s][f]
		}
		mu[f] = sum / float64(numSamples)
	}

	for s := range logs {
		for f := range logs[s] {
			v := logs[s][f] - mu[f]
			if math.IsInf(v, 0) || math.IsNaN(v) {
				v = math.NaN()
			}
			logs[s][f] = v
		}
	}

	scale := make([]float64, numSamples)
	for s, row := range logs {
		scale[s] = math.Exp(median(finite(row)))
	}

	out := make([][]float64, numSamples)
	for s, row := range counts {
		norm := make([]float64, numFeatures)
		for f, c := range row {
			norm[f] = c / scale[s]
		}
		out[s] = norm
	}
	return out
}

func finite(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			out = append(out, x)
		}
	}
	return out
}

func median(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
