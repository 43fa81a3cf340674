package quantify

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/sync/multierror"

	"github.com/stjude-rust-labs/atlas-go/collections"
	"github.com/stjude-rust-labs/atlas-go/features"
)

// chunkSize is the number of records batched per channel send. Chunk size
// 8192 and channel capacity equal to the worker count keep the reader one
// batch ahead of each worker, amortizing channel overhead against the
// per-record classification cost.
const chunkSize = 8192

// NextFunc pulls the next primary-or-not alignment record from a decoder.
// It returns (nil, false, nil) at end of stream.
type NextFunc func() (*sam.Record, bool, error)

// CounterOpts configures a counting run.
type CounterOpts struct {
	Trees   IntervalTrees
	Filter  Filter
	Spec    LibrarySpec
	Workers int
}

// workItem is either a reassembled pair or a single record: paired
// layouts emit pairs for matched mates and singles for the residual,
// unmatched records drained from the reassembly cache at end of stream.
type workItem struct {
	pair   *Pair
	single *sam.Record
}

// Count runs the full producer/consumer counting pipeline: one reader
// goroutine decodes next into fixed-size chunks over a bounded channel,
// opts.Workers goroutines each classify their chunks into a private
// Context, and the results are merged after every goroutine has joined.
//
// For paired layouts, mate reassembly happens on the reader goroutine
// before chunks are handed to workers -- SegmentedReads is inherently
// single-threaded, so workers never touch the reassembly cache: they see
// reassembled pairs, plus the unmatched residual records as singles.
func Count(opts CounterOpts, next NextFunc) (*Context, error) {
	workers := opts.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers < 1 {
		workers = 1
	}

	chunkCh := make(chan []workItem, workers)
	errs := multierror.NewMultiError(workers + 1)

	var readerWG sync.WaitGroup
	readerWG.Add(1)
	go func() {
		defer readerWG.Done()
		defer close(chunkCh)
		errs.Add(produce(opts, next, chunkCh))
	}()

	contexts := make([]*Context, workers)
	var workerWG sync.WaitGroup
	for i := 0; i < workers; i++ {
		workerWG.Add(1)
		go func(i int) {
			defer workerWG.Done()
			ctx := NewContext()
			contexts[i] = ctx
			for chunk := range chunkCh {
				for _, item := range chunk {
					if err := classify(opts, ctx, item); err != nil {
						errs.Add(err)
						return
					}
				}
			}
		}(i)
	}

	readerWG.Wait()
	workerWG.Wait()

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	merged := NewContext()
	for _, c := range contexts {
		merged.Merge(c)
	}
	log.Debug.Printf("quantify: counted %d features hit, %d miss, %d ambiguous, %d low-quality, %d unmapped, %d nonunique",
		len(merged.Hits), merged.Miss, merged.Ambiguous, merged.LowQuality, merged.Unmapped, merged.Nonunique)
	return merged, nil
}

func produce(opts CounterOpts, next NextFunc, chunkCh chan<- []workItem) error {
	chunk := make([]workItem, 0, chunkSize)
	flush := func() {
		if len(chunk) == 0 {
			return
		}
		chunkCh <- chunk
		chunk = make([]workItem, 0, chunkSize)
	}

	if opts.Spec.Layout != LayoutPaired {
		for {
			r, ok, err := next()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			chunk = append(chunk, workItem{single: r})
			if len(chunk) == chunkSize {
				flush()
			}
		}
		flush()
		return nil
	}

	sr := NewSegmentedReads()
	for {
		r, ok, err := next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if r.Flags&(sam.Secondary|sam.Supplementary) != 0 {
			continue
		}

		pair, matched, err := sr.Push(r)
		if err != nil {
			return err
		}
		if matched {
			p := pair
			chunk = append(chunk, workItem{pair: &p})
			if len(chunk) == chunkSize {
				flush()
			}
		}
	}
	for _, residual := range sr.Drain() {
		chunk = append(chunk, workItem{single: residual})
		if len(chunk) == chunkSize {
			flush()
		}
	}
	flush()
	return nil
}

func classify(opts CounterOpts, ctx *Context, item workItem) error {
	if item.pair != nil {
		return classifyPair(opts, ctx, item.pair)
	}
	return classifySingle(opts, ctx, item.single)
}

func classifySingle(opts CounterOpts, ctx *Context, r *sam.Record) error {
	event, final, err := opts.Filter.Classify(r)
	if err != nil {
		return err
	}
	if final {
		ctx.apply(event, "")
		return nil
	}

	effectiveReverse := (r.Flags&sam.Reverse != 0) != (opts.Spec.Strand == StrandSpecReverse)

	tree, ok := referenceTree(opts.Trees, r)
	if !ok {
		ctx.apply(EventMiss, "")
		return nil
	}

	alignmentStart, err := recordStart(r)
	if err != nil {
		return err
	}

	set := make(map[string]struct{})
	if err := accumulateHits(tree, r.Cigar, alignmentStart, opts.Spec.Strand, effectiveReverse, set); err != nil {
		return err
	}

	resolve(ctx, set)
	return nil
}

func classifyPair(opts CounterOpts, ctx *Context, p *Pair) error {
	event, final, err := opts.Filter.ClassifySegments(p.First, p.Last)
	if err != nil {
		return err
	}
	if final {
		ctx.apply(event, "")
		return nil
	}

	effectiveReverse1 := (p.First.Flags&sam.Reverse != 0) != (opts.Spec.Strand == StrandSpecReverse)
	effectiveReverse2 := !((p.Last.Flags&sam.Reverse != 0) != (opts.Spec.Strand == StrandSpecReverse))

	set := make(map[string]struct{})

	if tree, ok := referenceTree(opts.Trees, p.First); ok {
		start, err := recordStart(p.First)
		if err != nil {
			return err
		}
		if err := accumulateHits(tree, p.First.Cigar, start, opts.Spec.Strand, effectiveReverse1, set); err != nil {
			return err
		}
	}
	if tree, ok := referenceTree(opts.Trees, p.Last); ok {
		start, err := recordStart(p.Last)
		if err != nil {
			return err
		}
		if err := accumulateHits(tree, p.Last.Cigar, start, opts.Spec.Strand, effectiveReverse2, set); err != nil {
			return err
		}
	}

	resolve(ctx, set)
	return nil
}

func recordStart(r *sam.Record) (features.Position, error) {
	if r.Pos < 0 {
		return 0, fmt.Errorf("quantify: record %q is mapped but has no alignment start", r.Name)
	}
	return features.Position(r.Pos + 1), nil
}

func accumulateHits(tree *collections.IntervalTree[features.Position, entry], cigar sam.Cigar, start features.Position, strandSpec StrandSpecification, effectiveReverse bool, set map[string]struct{}) error {
	mi := NewMatchIntervals(cigar, start)
	for {
		interval, ok, err := mi.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		for _, hit := range tree.Find(interval) {
			if matchesStrand(strandSpec, hit.Value.strand, effectiveReverse) {
				set[hit.Value.name] = struct{}{}
			}
		}
	}
	return nil
}

func matchesStrand(strandSpec StrandSpecification, featureStrand features.Strand, effectiveReverse bool) bool {
	if strandSpec == StrandUnstranded {
		return true
	}
	if featureStrand == features.StrandReverse && effectiveReverse {
		return true
	}
	if featureStrand == features.StrandForward && !effectiveReverse {
		return true
	}
	return false
}

func resolve(ctx *Context, set map[string]struct{}) {
	switch len(set) {
	case 0:
		ctx.apply(EventMiss, "")
	case 1:
		for name := range set {
			ctx.apply(EventHit, name)
		}
	default:
		ctx.apply(EventAmbiguous, "")
	}
}
