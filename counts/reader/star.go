package reader

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/stjude-rust-labs/atlas-go/quantify"
)

// starMetaLineCount is the number of header/summary lines STAR writes
// before the first per-feature row in ReadsPerGene.out.tab (N_unmapped,
// N_multimapping, N_noFeature, N_ambiguous, plus the column header and
// a leading comment line).
const starMetaLineCount = 6

// ReadStarGeneCounts reads a STAR ReadsPerGene.out.tab file, selecting
// the feature-name column by featureName ("gene_id" or "gene_name")
// and the count column by strand specification.
func ReadStarGeneCounts(r io.Reader, featureName string, strand quantify.StrandSpecification) ([]string, []uint64, error) {
	nameIndex, err := starNameIndex(featureName)
	if err != nil {
		return nil, nil, err
	}
	countIndex := starCountIndex(strand)

	scanner := bufio.NewScanner(r)

	for i := 0; i < starMetaLineCount; i++ {
		if !scanner.Scan() {
			break
		}
	}

	var names []string
	var counts []uint64

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		name, count, err := parseStarLine(line, nameIndex, countIndex)
		if err != nil {
			return nil, nil, err
		}
		names = append(names, name)
		counts = append(counts, count)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("reader: star: %w", err)
	}

	return names, counts, nil
}

func starNameIndex(featureName string) (int, error) {
	switch featureName {
	case "gene_id":
		return 0, nil
	case "gene_name":
		return 1, nil
	default:
		return 0, fmt.Errorf("reader: star: invalid feature name %q", featureName)
	}
}

func starCountIndex(strand quantify.StrandSpecification) int {
	switch strand {
	case quantify.StrandSpecForward:
		return 4
	case quantify.StrandSpecReverse:
		return 5
	default:
		return 3
	}
}

func parseStarLine(line string, nameIndex, countIndex int) (string, uint64, error) {
	fields := strings.Split(line, "\t")
	if nameIndex >= len(fields) {
		return "", 0, fmt.Errorf("reader: star: missing name column in line %q", line)
	}
	if countIndex >= len(fields) {
		return "", 0, fmt.Errorf("reader: star: missing count column in line %q", line)
	}

	count, err := strconv.ParseUint(fields[countIndex], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("reader: star: invalid count in line %q: %w", line, err)
	}

	return fields[nameIndex], count, nil
}
