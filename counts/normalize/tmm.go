package normalize

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

const (
	// mTrimFraction is the fraction trimmed from each tail of the
	// log-fold-change (M) distribution.
	mTrimFraction = 0.30
	// aTrimFraction is the fraction trimmed from each tail of the
	// average-log-intensity (A) distribution.
	aTrimFraction = 0.05
)

// TMM implements the edgeR-style trimmed mean of M-values normalization.
// It scales the raw input counts (not the row-normalized abundances used
// internally to pick M/A values and the reference sample), per the
// edgeR convention.
func TMM(counts [][]float64) [][]float64 {
	numSamples := len(counts)
	if numSamples == 0 {
		return nil
	}

	relative := make([][]float64, numSamples)
	for s, row := range counts {
		total := floats.Sum(row)
		r := make([]float64, len(row))
		for f, c := range row {
			if total > 0 {
				r[f] = c / total
			}
		}
		relative[s] = r
	}

	ref := chooseReference(relative)

	scale := make([]float64, numSamples)
	for s := range scale {
		scale[s] = 1
	}
	for s := range relative {
		if s == ref {
			continue
		}
		scale[s] = tmmFactor(relative[s], relative[ref])
	}

	center(scale)

	out := make([][]float64, numSamples)
	for s, row := range counts {
		norm := make([]float64, len(row))
		for f, c := range row {
			norm[f] = c * scale[s]
		}
		out[s] = norm
	}
	return out
}

// chooseReference picks the sample whose 75th-percentile relative
// abundance is closest to the mean of all samples' 75th percentiles.
func chooseReference(relative [][]float64) int {
	q3 := make([]float64, len(relative))
	for s, row := range relative {
		q3[s] = quantile(row, 0.75)
	}
	mean := floats.Sum(q3) / float64(len(q3))

	best := 0
	bestDist := math.Inf(1)
	for s, q := range q3 {
		d := math.Abs(q - mean)
		if d < bestDist {
			bestDist = d
			best = s
		}
	}
	return best
}

// quantile computes the p-th quantile using the alpha=beta=1
// continuous-quantile convention: interpolate between the sorted
// entries at 1-based index floor(n*p+1-p), with weight
// n*p+1-p-floor(...).
func quantile(xs []float64, p float64) float64 {
	n := len(xs)
	if n == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	h := float64(n)*p + 1 - p
	lo := int(math.Floor(h))
	frac := h - float64(lo)

	clamp := func(i int) int {
		if i < 1 {
			return 1
		}
		if i > n {
			return n
		}
		return i
	}
	i0 := clamp(lo) - 1
	i1 := clamp(lo+1) - 1
	return sorted[i0] + frac*(sorted[i1]-sorted[i0])
}

// tmmFactor computes the scale factor for sample relative abundances a
// against the reference sample's relative abundances b.
func tmmFactor(a, b []float64) float64 {
	var m, av []float64
	for f := range a {
		if a[f] == 0 || b[f] == 0 {
			continue
		}
		logA := math.Log2(a[f])
		logB := math.Log2(b[f])
		m = append(m, logA-logB)
		av = append(av, (logA+logB)/2)
	}
	if len(m) == 0 {
		return 1
	}

	mKeep := trimmedRankSet(m, mTrimFraction)
	aKeep := trimmedRankSet(av, aTrimFraction)

	var sum float64
	var n int
	for i := range m {
		if mKeep[i] && aKeep[i] {
			sum += m[i]
			n++
		}
	}
	if n == 0 {
		return 1
	}
	return math.Exp2(sum / float64(n))
}

// trimmedRankSet returns, for each index in xs, whether it survives
// trimming frac from each tail by rank (sorted-position), not by value
// cutoff.
func trimmedRankSet(xs []float64, frac float64) map[int]bool {
	n := len(xs)
	type ranked struct {
		idx int
		val float64
	}
	rs := make([]ranked, n)
	for i, v := range xs {
		rs[i] = ranked{idx: i, val: v}
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i].val < rs[j].val })

	trim := int(math.Floor(float64(n) * frac))
	keep := make(map[int]bool, n)
	for pos, r := range rs {
		if pos >= trim && pos < n-trim {
			keep[r.idx] = true
		}
	}
	return keep
}

// center divides every scale factor by the geometric mean of all scale
// factors, so the centered factors multiply out to 1 overall.
func center(scale []float64) {
	var logSum float64
	for _, s := range scale {
		logSum += math.Log(s)
	}
	gm := math.Exp(logSum / float64(len(scale)))
	for i := range scale {
		scale[i] /= gm
	}
}
