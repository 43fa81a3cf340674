package writer

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
)

// SampleName derives a normalization-matrix column header from a count
// file's path: the basename up to (but not including) its first dot.
func SampleName(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		return base[:i]
	}
	return base
}

// WriteMatrix writes a tab-separated feature-by-sample matrix. A
// single-sample matrix omits the header row, matching htseq-count's
// single-column convention.
func WriteMatrix(w io.Writer, samplePaths []string, featureNames []string, values [][]float64) error {
	bw := bufio.NewWriter(w)

	if len(samplePaths) > 1 {
		names := make([]string, len(samplePaths))
		for i, p := range samplePaths {
			names[i] = SampleName(p)
		}
		if _, err := fmt.Fprintln(bw, "\t"+strings.Join(names, "\t")); err != nil {
			return err
		}
	}

	for f, name := range featureNames {
		row := make([]string, len(values))
		for s, sampleRow := range values {
			row[s] = strconv.FormatFloat(sampleRow[f], 'g', -1, 64)
		}
		if _, err := fmt.Fprintf(bw, "%s\t%s\n", name, strings.Join(row, "\t")); err != nil {
			return err
		}
	}

	return bw.Flush()
}
