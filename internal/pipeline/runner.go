// Package pipeline orchestrates a full extraction run for one book: PDF text
// extraction, segmentation into per-author chunks, concurrent structuring
// calls, and in-order persistence of records and the index.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/msalhab/tarajim/internal/extract"
	"github.com/msalhab/tarajim/internal/home"
	"github.com/msalhab/tarajim/internal/pdf"
	"github.com/msalhab/tarajim/internal/providers"
	"github.com/msalhab/tarajim/internal/segment"
	"github.com/msalhab/tarajim/internal/store"
)

// ErrNoMatches is returned when the segmentation pattern finds no entry
// boundaries in the extracted text. This usually means the wrong pattern was
// configured for the book's edition.
var ErrNoMatches = errors.New("segmentation pattern matched no entries")

// DefaultMaxWorkers keeps runs sequential unless config says otherwise;
// biography collections hit provider rate limits long before CPU limits.
const DefaultMaxWorkers = 1

// Runner executes extraction runs against one provider client.
type Runner struct {
	client     providers.LLMClient
	structurer *extract.Structurer
	limiter    *providers.RateLimiter
	home       *home.Dir
	logger     *slog.Logger
	maxWorkers int
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithMaxWorkers sets the number of concurrent extraction calls.
func WithMaxWorkers(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.maxWorkers = n
		}
	}
}

// WithStructurer substitutes the structurer, used by tests and by callers
// that want non-default extraction options.
func WithStructurer(s *extract.Structurer) RunnerOption {
	return func(r *Runner) { r.structurer = s }
}

// NewRunner builds a Runner for the given client and home directory.
func NewRunner(client providers.LLMClient, h *home.Dir, logger *slog.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		client:     client,
		limiter:    providers.NewRateLimiter(client.RequestsPerMinute()),
		home:       h,
		logger:     logger,
		maxWorkers: DefaultMaxWorkers,
	}
	for _, o := range opts {
		o(r)
	}
	if r.structurer == nil {
		r.structurer = extract.NewStructurer(client, logger)
	}
	return r
}

// Options describe one run.
type Options struct {
	BookID  string
	PDFPath string

	// Pattern overrides the segmentation expression; empty means the default.
	Pattern string
}

// outcome is the terminal state of one chunk inside a run.
type outcome struct {
	pos    int
	chunk  segment.Chunk
	result *extract.Result
	err    error
}

// Run executes a full extraction run from a PDF file. Chunks that already
// have an index entry are skipped, so re-running after a partial failure
// only pays for the missing entries.
func (r *Runner) Run(ctx context.Context, opts Options) (*Report, error) {
	text, err := pdf.ExtractText(opts.PDFPath)
	if err != nil {
		return nil, err
	}
	return r.RunText(ctx, text, opts)
}

// RunText executes a run over already-extracted document text. Successful
// results are flushed to disk in chunk order regardless of worker completion
// order.
func (r *Runner) RunText(ctx context.Context, text string, opts Options) (*Report, error) {
	if opts.BookID == "" {
		return nil, errors.New("book id is required")
	}

	expr := opts.Pattern
	if expr == "" {
		expr = segment.DefaultExpr
	}
	pattern, err := segment.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("segmentation pattern: %w", err)
	}

	chunks := pattern.Split(text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: pattern %q", ErrNoMatches, expr)
	}

	st, err := store.New(r.home, opts.BookID)
	if err != nil {
		return nil, err
	}
	idx, err := st.LoadIndex()
	if err != nil {
		return nil, err
	}
	idx.Pattern = expr

	report := &Report{
		RunID:       uuid.New().String(),
		BookID:      opts.BookID,
		Pattern:     expr,
		StartedAt:   time.Now().UTC(),
		TotalChunks: len(chunks),
		Failed:      []Failure{},
	}

	r.logger.Info("starting extraction run",
		"run_id", report.RunID,
		"book_id", opts.BookID,
		"chunks", len(chunks),
		"workers", r.maxWorkers,
		"provider", r.client.Name())

	// done marks chunks that need no worker: already extracted in a
	// previous run.
	done := make([]*outcome, len(chunks))
	var pending []int
	for i, c := range chunks {
		if idx.Has(c.Index) {
			done[i] = &outcome{pos: i, chunk: c}
			report.Skipped++
			continue
		}
		pending = append(pending, i)
	}

	// runCtx lets a persistence failure stop in-flight workers early; the
	// receive loop still drains every outcome so no worker blocks on send.
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	jobs := make(chan int, len(pending))
	for _, pos := range pending {
		jobs <- pos
	}
	close(jobs)

	results := make(chan outcome)
	var wg sync.WaitGroup
	workers := r.maxWorkers
	if workers > len(pending) {
		workers = len(pending)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pos := range jobs {
				chunk := chunks[pos]

				if err := runCtx.Err(); err != nil {
					results <- outcome{pos: pos, chunk: chunk, err: err}
					continue
				}
				if err := r.limiter.Wait(runCtx); err != nil {
					results <- outcome{pos: pos, chunk: chunk, err: err}
					continue
				}

				res, err := r.structurer.Extract(runCtx, chunk.Text)
				results <- outcome{pos: pos, chunk: chunk, result: res, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// Flush cursor: records and index entries are written strictly in chunk
	// order, so the index on disk never has a gap a resumed run would miss.
	next := 0
	flush := func() error {
		for next < len(done) && done[next] != nil {
			o := done[next]
			next++
			if o.result == nil {
				continue
			}
			file, err := st.WriteRecord(o.chunk.Index, o.result.Record)
			if err != nil {
				return err
			}
			idx.Add(store.IndexEntry{
				AuthorIndex: o.chunk.Index,
				File:        file,
				Name:        o.result.Record.Name,
				ExtractedAt: time.Now().UTC(),
			})
			if err := st.SaveIndex(idx); err != nil {
				return err
			}
		}
		return nil
	}

	// A flush failure must not return before the channel is drained: workers
	// block on the unbuffered send, and abandoning them here would leak a
	// goroutine per in-flight chunk for the life of the process.
	var flushErr error
	for o := range results {
		o := o
		if flushErr != nil {
			continue
		}
		if o.err != nil {
			r.logger.Warn("chunk extraction failed",
				"run_id", report.RunID,
				"entry", o.chunk.Label(),
				"error", o.err)
			report.Failed = append(report.Failed, Failure{
				AuthorIndex: o.chunk.Index,
				Label:       o.chunk.Label(),
				Reason:      failureReason(o.err),
			})
		} else {
			report.Succeeded++
			r.logger.Info("chunk extracted",
				"run_id", report.RunID,
				"entry", o.chunk.Label(),
				"attempts", o.result.Attempts,
				"repaired", o.result.Repaired)
		}
		done[o.pos] = &o
		if err := flush(); err != nil {
			flushErr = err
			cancelRun()
		}
	}
	if flushErr != nil {
		return report, flushErr
	}

	if err := flush(); err != nil {
		return report, err
	}
	if err := st.SaveIndex(idx); err != nil {
		return report, err
	}

	sort.Slice(report.Failed, func(i, j int) bool {
		return report.Failed[i].AuthorIndex < report.Failed[j].AuthorIndex
	})

	report.Duration = time.Since(report.StartedAt)
	r.logger.Info("extraction run finished",
		"run_id", report.RunID,
		"succeeded", report.Succeeded,
		"skipped", report.Skipped,
		"failed", len(report.Failed),
		"duration", report.Duration)

	if ctx.Err() != nil {
		return report, ctx.Err()
	}
	return report, nil
}

// failureReason classifies an extraction error for the run report.
func failureReason(err error) string {
	switch {
	case errors.Is(err, extract.ErrServiceUnavailable):
		return "service unavailable"
	case errors.Is(err, extract.ErrMalformedExtraction):
		return "malformed output"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return err.Error()
	}
}
