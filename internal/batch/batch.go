// Package batch writes many items to a sink with a bounded worker pool.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/pbo/internal/pbotype"
)

// Processor streams items into a sink.
type Processor struct {
	workers  int // 0 = auto, <0 = serial, >0 = fixed count
	logger   *slog.Logger
	progress pbotype.ProgressFunc
}

// log returns the logger, falling back to a discard logger if nil.
func (p *Processor) log() *slog.Logger {
	if p.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithWorkers sets the number of workers for parallel processing.
// Values < 0 force serial processing. Zero uses GOMAXPROCS.
// Values > 0 force a specific worker count.
func WithWorkers(n int) ProcessorOption {
	return func(p *Processor) {
		p.workers = n
	}
}

// WithProcessorLogger sets the logger for batch processing operations.
// If not set, logging is disabled.
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithProcessorProgress sets a callback invoked after each item is written.
func WithProcessorProgress(fn pbotype.ProgressFunc) ProcessorOption {
	return func(p *Processor) {
		p.progress = fn
	}
}

// NewProcessor creates a new batch processor.
func NewProcessor(opts ...ProcessorOption) *Processor {
	p := &Processor{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process writes every item the sink accepts.
//
// Items are processed concurrently but each is written by exactly one
// worker. Processing stops on the first error or when ctx is done; items
// already committed stay on disk.
func (p *Processor) Process(ctx context.Context, items []*Item, sink Sink) (Stats, error) {
	var stats Stats
	if len(items) == 0 {
		return stats, nil
	}

	var total uint64
	for _, item := range items {
		total += uint64(max(item.Size, 0)) //nolint:gosec // clamped to non-negative
	}

	var mu sync.Mutex
	record := func(item *Item, written int64, skipped bool) {
		mu.Lock()
		defer mu.Unlock()
		if skipped {
			stats.Skipped++
			return
		}
		stats.Processed++
		stats.TotalBytes += uint64(written) //nolint:gosec // io.Copy never returns negative counts
		if p.progress != nil {
			p.progress(pbotype.ProgressEvent{
				Stage:        pbotype.StageExtracting,
				Name:         item.Path,
				BytesDone:    stats.TotalBytes,
				BytesTotal:   total,
				EntriesDone:  stats.Processed + stats.Skipped,
				EntriesTotal: len(items),
			})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workerCount(len(items)))
	for _, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if !sink.ShouldProcess(item) {
				p.log().Debug("skipping existing file", "path", item.Path)
				record(item, 0, true)
				return nil
			}
			n, err := p.processItem(item, sink)
			if err != nil {
				return err
			}
			record(item, n, false)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}
	// A cancellation seen only by the dispatch loop leaves nothing in g.
	return stats, ctx.Err()
}

func (p *Processor) processItem(item *Item, sink Sink) (int64, error) {
	r, err := item.Open()
	if err != nil {
		return 0, err
	}

	w, err := sink.Writer(item)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(w, r)
	if err == nil && n != item.Size {
		err = fmt.Errorf("%s: short read (%d of %d bytes): %w", item.Path, n, item.Size, io.ErrUnexpectedEOF)
	}
	if err != nil {
		if discardErr := w.Discard(); discardErr != nil {
			err = errors.Join(err, discardErr)
		}
		return 0, err
	}
	if err := w.Commit(); err != nil {
		return 0, err
	}
	p.log().Debug("wrote file", "path", item.Path, "bytes", n)
	return n, nil
}

func (p *Processor) workerCount(items int) int {
	switch {
	case p.workers < 0:
		return 1
	case p.workers > 0:
		return min(p.workers, items)
	default:
		return min(runtime.GOMAXPROCS(0), items)
	}
}
