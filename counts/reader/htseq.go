// Package reader implements parsers for the count-matrix file formats
// produced by htseq-count and STAR's --quantMode GeneCounts output.
package reader

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// htseqMetaPrefix marks the trailing summary rows htseq-count appends
// after the per-feature counts (__no_feature, __ambiguous, and so on).
const htseqMetaPrefix = "__"

// ReadHTSeqCount reads an htseq-count output file: tab-separated
// "<feature name>\t<count>" rows, terminating at the first row whose
// feature name begins with "__".
func ReadHTSeqCount(r io.Reader) ([]string, []uint64, error) {
	scanner := bufio.NewScanner(r)

	var names []string
	var counts []uint64

	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, htseqMetaPrefix) {
			break
		}

		name, count, err := parseHTSeqLine(line)
		if err != nil {
			return nil, nil, err
		}
		names = append(names, name)
		counts = append(counts, count)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("reader: htseq-count: %w", err)
	}

	return names, counts, nil
}

func parseHTSeqLine(line string) (string, uint64, error) {
	name, rawCount, ok := strings.Cut(line, "\t")
	if !ok {
		return "", 0, fmt.Errorf("reader: htseq-count: invalid line %q", line)
	}

	count, err := strconv.ParseUint(rawCount, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("reader: htseq-count: invalid count in line %q: %w", line, err)
	}

	return name, count, nil
}
