// atlas-quantify counts BAM alignments against a GFF3 annotation,
// producing an htseq-count-compatible output file.
//
// Usage: atlas-quantify -bam in.bam -gff3 genes.gff3 -out counts.tsv
package main

import (
	"flag"
	"io"
	"os"
	"runtime"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"

	"github.com/stjude-rust-labs/atlas-go/counts/writer"
	"github.com/stjude-rust-labs/atlas-go/features"
	"github.com/stjude-rust-labs/atlas-go/quantify"
)

var (
	bamFile      = flag.String("bam", "", "Input BAM filename")
	gff3File     = flag.String("gff3", "", "Input GFF3 annotation filename")
	featureType  = flag.String("feature-type", "exon", "GFF3 feature type (column 3) to count")
	featureID    = flag.String("feature-id", "gene_id", "GFF3 attribute grouping rows into a feature")
	strandedness = flag.String("strandedness", "auto", "Library strandedness: auto, unstranded, forward, or reverse")
	minMapQ      = flag.Int("min-mapq", 10, "Minimum mapping quality; alignments below this are low-quality")
	threads      = flag.Int("threads", runtime.GOMAXPROCS(0), "Number of counting worker goroutines")
	outFile      = flag.String("out", "", "Output htseq-count-format filename")
)

// recordReader is implemented by both biogo's sam.Reader and bam.Reader.
type recordReader interface {
	Header() *sam.Header
	Read() (*sam.Record, error)
}

func openBAM(path string) (recordReader, io.Closer) {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("atlas-quantify: open %s: %v", path, err)
	}
	r, err := bam.NewReader(f, *threads)
	if err != nil {
		log.Fatalf("atlas-quantify: open %s: failed to read BAM header: %v", path, err)
	}
	return r, f
}

// nextFromReader adapts a recordReader's Read method to quantify.NextFunc.
func nextFromReader(r recordReader) quantify.NextFunc {
	return func() (*sam.Record, bool, error) {
		rec, err := r.Read()
		if err == io.EOF {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		return rec, true, nil
	}
}

func main() {
	shutdown := grail.Init()
	defer shutdown()

	if *bamFile == "" || *gff3File == "" || *outFile == "" {
		log.Fatalf("atlas-quantify: -bam, -gff3, and -out are required")
	}

	gff3, err := os.Open(*gff3File)
	if err != nil {
		log.Fatalf("%v", errors.E(err, "atlas-quantify: opening annotation:", *gff3File))
	}
	cat, err := features.LoadCatalog(gff3, features.LoadOpts{
		FeatureType:        *featureType,
		FeatureIDAttribute: *featureID,
	})
	gff3.Close()
	if err != nil {
		log.Fatalf("%v", errors.E(err, "atlas-quantify: loading annotation:", *gff3File))
	}

	trees := quantify.BuildIntervalTrees(cat)

	detectReader, detectCloser := openBAM(*bamFile)
	spec, err := quantify.DetectLibrarySpec(trees, nextFromReader(detectReader))
	detectCloser.Close()
	if err != nil {
		log.Fatalf("%v", errors.E(err, "atlas-quantify: detecting library specification"))
	}
	if forced, ok := parseStrandedness(*strandedness); ok {
		spec.Strand = forced
	}
	log.Printf("atlas-quantify: detected layout=%v strand=%v", spec.Layout, spec.Strand)

	countReader, countCloser := openBAM(*bamFile)
	defer countCloser.Close()

	opts := quantify.CounterOpts{
		Trees:   trees,
		Filter:  quantify.Filter{MinMappingQuality: byte(*minMapQ)},
		Spec:    spec,
		Workers: *threads,
	}
	ctx, err := quantify.Count(opts, nextFromReader(countReader))
	if err != nil {
		log.Fatalf("%v", errors.E(err, "atlas-quantify: counting"))
	}

	out, err := os.Create(*outFile)
	if err != nil {
		log.Fatalf("%v", errors.E(err, "atlas-quantify: creating output:", *outFile))
	}
	defer out.Close()

	featureNames := make([]string, 0, len(cat.Features))
	for name := range cat.Features {
		featureNames = append(featureNames, name)
	}

	meta := writer.MetaCounts{
		NoFeature:          ctx.Miss,
		Ambiguous:          ctx.Ambiguous,
		TooLowAQual:        ctx.LowQuality,
		NotAligned:         ctx.Unmapped,
		AlignmentNotUnique: ctx.Nonunique,
	}
	if err := writer.WriteHTSeqCount(out, featureNames, ctx.Hits, meta); err != nil {
		log.Fatalf("%v", errors.E(err, "atlas-quantify: writing output:", *outFile))
	}
}

func parseStrandedness(s string) (quantify.StrandSpecification, bool) {
	switch s {
	case "unstranded":
		return quantify.StrandUnstranded, true
	case "forward":
		return quantify.StrandSpecForward, true
	case "reverse":
		return quantify.StrandSpecReverse, true
	default:
		return 0, false
	}
}
