// Package writer formats count and normalized-count matrices for
// output, matching the htseq-count and multi-sample matrix conventions
// consumed downstream by counts/reader.
package writer

import (
	"bufio"
	"fmt"
	"io"
	"sort"
)

// MetaCounts holds the five disposition tallies htseq-count reports as
// trailing meta rows.
type MetaCounts struct {
	NoFeature          uint64
	Ambiguous          uint64
	TooLowAQual        uint64
	NotAligned         uint64
	AlignmentNotUnique uint64
}

// WriteHTSeqCount writes one line per name in featureNames, in sorted
// order, followed by the five meta rows in their fixed order. A name
// absent from hits renders as a zero count.
func WriteHTSeqCount(w io.Writer, featureNames []string, hits map[string]uint64, meta MetaCounts) error {
	sorted := append([]string(nil), featureNames...)
	sort.Strings(sorted)

	bw := bufio.NewWriter(w)

	for _, name := range sorted {
		if _, err := fmt.Fprintf(bw, "%s\t%d\n", name, hits[name]); err != nil {
			return err
		}
	}

	rows := []struct {
		name  string
		count uint64
	}{
		{"__no_feature", meta.NoFeature},
		{"__ambiguous", meta.Ambiguous},
		{"__too_low_aQual", meta.TooLowAQual},
		{"__not_aligned", meta.NotAligned},
		{"__alignment_not_unique", meta.AlignmentNotUnique},
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(bw, "%s\t%d\n", row.name, row.count); err != nil {
			return err
		}
	}

	return bw.Flush()
}
