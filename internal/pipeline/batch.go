package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/contactscan/internal/model"
)

// SiteCrawler crawls one site. crawler.Spider implements it.
type SiteCrawler interface {
	Crawl(ctx context.Context) (model.CrawlResult, error)
}

// Factory builds a fresh SiteCrawler for a seed.
type Factory func(seed string) (SiteCrawler, error)

// Dispatcher crawls many sites concurrently.
type Dispatcher struct {
	factory Factory

	// concurrency overrides the computed worker count when positive.
	concurrency int

	// cpus feeds Workers; zero means runtime.NumCPU.
	cpus int

	logger *slog.Logger
}

// DispatchOption configures a Dispatcher.
type DispatchOption func(*Dispatcher)

// WithBatchLogger sets the logger for batch progress.
func WithBatchLogger(logger *slog.Logger) DispatchOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithConcurrency fixes the number of workers instead of deriving it from
// the batch size.
func WithConcurrency(n int) DispatchOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithCPUCount sets the CPU count used to size the worker pool.
func WithCPUCount(n int) DispatchOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.cpus = n
		}
	}
}

// NewDispatcher creates a Dispatcher that builds a crawler per seed with factory.
func NewDispatcher(factory Factory, opts ...DispatchOption) *Dispatcher {
	d := &Dispatcher{factory: factory}

	for _, opt := range opts {
		opt(d)
	}

	if d.logger == nil {
		d.logger = slog.Default()
	}

	return d
}

// WorkerCount returns the number of workers used for a batch of n seeds.
func (d *Dispatcher) WorkerCount(n int) int {
	if d.concurrency > 0 {
		return min(d.concurrency, max(n, 1))
	}
	return Workers(n, d.cpus)
}

// Run crawls every seed and returns the results in input order.
// The slice always has one entry per seed. The error is non-nil only when
// ctx ended the batch; seeds that never started then carry ctx's error.
func (d *Dispatcher) Run(ctx context.Context, seeds []string) ([]model.CrawlResult, error) {
	return d.run(ctx, seeds, d.WorkerCount(len(seeds)))
}

func (d *Dispatcher) run(ctx context.Context, seeds []string, workers int) ([]model.CrawlResult, error) {
	results := make([]model.CrawlResult, len(seeds))

	err := d.runBatch(ctx, seeds, workers, func(result model.CrawlResult, index int) {
		// Each index is written by exactly one goroutine.
		results[index] = result
	})

	return results, err
}

// RunWithCallback crawls every seed and calls callback once per seed as soon
// as its result is ready. callback runs on worker goroutines and must be
// safe for concurrent use.
func (d *Dispatcher) RunWithCallback(
	ctx context.Context,
	seeds []string,
	callback func(result model.CrawlResult, index int),
) error {
	return d.runBatch(ctx, seeds, d.WorkerCount(len(seeds)), callback)
}

func (d *Dispatcher) runBatch(
	ctx context.Context,
	seeds []string,
	workers int,
	callback func(result model.CrawlResult, index int),
) error {
	d.logger.Info("starting batch",
		"total_sites", len(seeds),
		"workers", workers,
	)
	startTime := time.Now()

	var g errgroup.Group
	g.SetLimit(max(workers, 1))

	for i, seed := range seeds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				result := model.NewEmptyResult(seed)
				result.Error = err.Error()
				callback(result, i)
				return nil
			}

			d.logger.Info("crawling site",
				"seed", seed,
				"index", i+1,
				"total", len(seeds),
			)

			result := d.crawlOne(ctx, seed)
			callback(result, i)

			if result.Failed() {
				d.logger.Warn("site crawl failed",
					"seed", seed,
					"error", result.Error,
				)
				return nil
			}

			d.logger.Info("site crawl completed",
				"seed", seed,
				"emails", len(result.Emails),
				"pages", result.PagesVisited,
			)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // workers never return errors

	d.logger.Info("batch complete",
		"total_sites", len(seeds),
		"elapsed", time.Since(startTime),
	)

	return ctx.Err()
}

// crawlOne runs a single job. A job that returns an error or panics yields
// a result with no emails and the error text set.
func (d *Dispatcher) crawlOne(ctx context.Context, seed string) (result model.CrawlResult) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("site crawl panicked", "seed", seed, "panic", r)
			result = model.NewEmptyResult(seed)
			result.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	site, err := d.factory(seed)
	if err != nil {
		result = model.NewEmptyResult(seed)
		result.Error = err.Error()
		return result
	}

	result, err = site.Crawl(ctx)
	if result.Seed == "" {
		result.Seed = seed
	}
	if err != nil {
		result.Emails = []string{}
		result.Error = err.Error()
	}
	if result.Emails == nil {
		result.Emails = []string{}
	}
	return result
}
