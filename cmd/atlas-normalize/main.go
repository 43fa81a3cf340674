// atlas-normalize reads one or more htseq-count or STAR gene-count
// files and writes a normalized count matrix.
//
// Usage: atlas-normalize -method tpm -counts a.tsv -counts b.tsv -gff3 genes.gff3 -out norm.tsv
package main

import (
	"flag"
	"os"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"

	"github.com/stjude-rust-labs/atlas-go/counts"
	"github.com/stjude-rust-labs/atlas-go/counts/normalize"
	"github.com/stjude-rust-labs/atlas-go/counts/reader"
	"github.com/stjude-rust-labs/atlas-go/counts/writer"
	"github.com/stjude-rust-labs/atlas-go/features"
	"github.com/stjude-rust-labs/atlas-go/quantify"
)

// countFiles collects the repeatable -counts flag's values, in the
// order given on the command line.
type countFiles []string

func (c *countFiles) String() string { return strings.Join(*c, ",") }

func (c *countFiles) Set(s string) error {
	*c = append(*c, s)
	return nil
}

var (
	method          = flag.String("method", "", "Normalization method: fpkm, tpm, median-ratios, or tmm")
	countPaths      countFiles
	starFeatureName = flag.String("star-feature-name", "gene_id", "STAR gene-count name column: gene_id or gene_name")
	gff3File        = flag.String("gff3", "", "GFF3 annotation, required for fpkm/tpm feature lengths")
	featureType     = flag.String("feature-type", "exon", "GFF3 feature type to sum lengths over")
	featureID       = flag.String("feature-id", "gene_id", "GFF3 attribute grouping rows into a feature")
	outFile         = flag.String("out", "", "Output matrix filename")
)

func main() {
	flag.Var(&countPaths, "counts", "Input count file (htseq-count or STAR format); repeatable")

	shutdown := grail.Init()
	defer shutdown()

	if *method == "" || len(countPaths) == 0 || *outFile == "" {
		log.Fatalf("atlas-normalize: -method, at least one -counts, and -out are required")
	}

	matrix, err := loadMatrix(countPaths)
	if err != nil {
		log.Fatalf("%v", errors.E(err, "atlas-normalize: loading count files"))
	}

	needsLengths := *method == "fpkm" || *method == "tpm"
	if needsLengths {
		lengths, err := loadFeatureLengths(matrix.FeatureNames)
		if err != nil {
			log.Fatalf("%v", errors.E(err, "atlas-normalize: loading feature lengths"))
		}
		matrix.Lengths = lengths
	}

	if err := matrix.Validate(); err != nil {
		log.Fatalf("%v", errors.E(err, "atlas-normalize: assembling count matrix"))
	}

	normalized, err := normalizeMatrix(*method, matrix)
	if err != nil {
		log.Fatalf("%v", errors.E(err, "atlas-normalize: normalizing"))
	}

	out, err := os.Create(*outFile)
	if err != nil {
		log.Fatalf("%v", errors.E(err, "atlas-normalize: creating output:", *outFile))
	}
	defer out.Close()

	if err := writer.WriteMatrix(out, matrix.SampleNames, matrix.FeatureNames, normalized); err != nil {
		log.Fatalf("%v", errors.E(err, "atlas-normalize: writing output:", *outFile))
	}
}

// loadMatrix reads every input file, autodetecting htseq-count vs STAR
// format by content (STAR files start with a "# gene-model" comment
// line), and asserts every file reports the same ordered feature set.
func loadMatrix(paths []string) (*counts.Matrix, error) {
	m := &counts.Matrix{SampleNames: paths}

	for i, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.E(err, "opening count file:", path)
		}

		isStar, err := looksLikeStarFormat(f)
		if err != nil {
			f.Close()
			return nil, errors.E(err, "sniffing count file:", path)
		}
		if _, err := f.Seek(0, 0); err != nil {
			f.Close()
			return nil, errors.E(err, "seeking count file:", path)
		}

		var names []string
		var row []uint64
		if isStar {
			// Strand-specific STAR columns aren't exposed on the CLI: TMM
			// and Median-of-Ratios normalize raw counts and FPKM/TPM only
			// need a feature's total length, not a strand-specific count.
			names, row, err = reader.ReadStarGeneCounts(f, *starFeatureName, quantify.StrandUnstranded)
		} else {
			names, row, err = reader.ReadHTSeqCount(f)
		}
		f.Close()
		if err != nil {
			return nil, errors.E(err, "parsing count file:", path)
		}

		if i == 0 {
			m.FeatureNames = names
		} else if !sameFeatureOrder(m.FeatureNames, names) {
			return nil, errors.E("feature set mismatch in count file:", path)
		}
		m.Counts = append(m.Counts, row)
	}

	return m, nil
}

func sameFeatureOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// looksLikeStarFormat sniffs the first line without consuming the
// reader for its caller; the caller rewinds before the real parse.
func looksLikeStarFormat(f *os.File) (bool, error) {
	buf := make([]byte, 64)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return false, err
	}
	return strings.HasPrefix(string(buf[:n]), "# gene-model"), nil
}

func loadFeatureLengths(featureNames []string) ([]uint64, error) {
	if *gff3File == "" {
		return nil, errors.New("-gff3 is required for fpkm/tpm normalization")
	}

	f, err := os.Open(*gff3File)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cat, err := features.LoadCatalog(f, features.LoadOpts{
		FeatureType:        *featureType,
		FeatureIDAttribute: *featureID,
	})
	if err != nil {
		return nil, err
	}

	lengths := make([]uint64, len(featureNames))
	for i, name := range featureNames {
		segments, ok := cat.Features[name]
		if !ok {
			continue
		}
		lengths[i] = features.Length(segments)
	}
	return lengths, nil
}

func normalizeMatrix(method string, m *counts.Matrix) ([][]float64, error) {
	floatCounts := m.Float64Counts()
	switch method {
	case "fpkm":
		return normalize.FPKM(floatCounts, m.Lengths)
	case "tpm":
		return normalize.TPM(floatCounts, m.Lengths)
	case "median-ratios":
		return normalize.MedianOfRatios(floatCounts), nil
	case "tmm":
		return normalize.TMM(floatCounts), nil
	default:
		return nil, errors.New("unknown normalization method: " + method)
	}
}
