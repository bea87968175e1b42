// Package controller seeds the frontier and runs the worker pool until the
// crawl drains.
package controller

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/mini-spider/internal/crawler"
	"github.com/JakeFAU/mini-spider/internal/frontier"
	"github.com/JakeFAU/mini-spider/internal/metrics"
	"github.com/JakeFAU/mini-spider/internal/visited"
	"github.com/JakeFAU/mini-spider/internal/worker"
)

// ErrAlreadyRan is returned when Run is called a second time.
var ErrAlreadyRan = errors.New("controller already ran")

// Config holds the crawl parameters shared by all workers.
type Config struct {
	ThreadCount int
	MaxDepth    int
	Interval    time.Duration
	Timeout     time.Duration
	// TargetURL must match at the start of a URL for it to be stored and expanded.
	TargetURL string
}

// Deps are the collaborators the workers call into.
type Deps struct {
	Fetcher   crawler.Fetcher
	Extractor crawler.LinkExtractor
	Persister crawler.Persister
}

// Controller owns the frontier, the visited set and the worker pool of one crawl.
type Controller struct {
	cfg      Config
	deps     Deps
	pattern  *regexp.Regexp
	frontier *frontier.Frontier
	visited  *visited.Set
	logger   *zap.Logger
	ran      atomic.Bool
}

// New validates cfg and compiles the target pattern.
func New(cfg Config, deps Deps, logger *zap.Logger) (*Controller, error) {
	if cfg.ThreadCount <= 0 {
		return nil, fmt.Errorf("thread count must be positive, got %d", cfg.ThreadCount)
	}
	if cfg.MaxDepth < 0 {
		return nil, fmt.Errorf("max depth must not be negative, got %d", cfg.MaxDepth)
	}
	if deps.Fetcher == nil || deps.Extractor == nil || deps.Persister == nil {
		return nil, errors.New("fetcher, extractor and persister are required")
	}
	pattern, err := regexp.Compile("^(?:" + cfg.TargetURL + ")")
	if err != nil {
		return nil, fmt.Errorf("compile target url pattern: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		cfg:      cfg,
		deps:     deps,
		pattern:  pattern,
		frontier: frontier.New(),
		visited:  visited.New(),
		logger:   logger,
	}, nil
}

// Run validates and enqueues seeds, prepares the output location and blocks
// until every entry has been processed or ctx ends.
func (c *Controller) Run(ctx context.Context, seeds []string) error {
	if !c.ran.CompareAndSwap(false, true) {
		return ErrAlreadyRan
	}

	accepted := c.enqueueSeeds(ctx, seeds)
	if err := c.deps.Persister.Prepare(ctx); err != nil {
		return fmt.Errorf("prepare output: %w", err)
	}
	c.logger.Info("crawl starting",
		zap.Int("seeds", accepted),
		zap.Int("threads", c.cfg.ThreadCount),
		zap.Int("max_depth", c.cfg.MaxDepth),
	)

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	wcfg := worker.Config{
		MaxDepth: c.cfg.MaxDepth,
		Interval: c.cfg.Interval,
		Timeout:  c.cfg.Timeout,
		Pattern:  c.pattern,
	}
	var wg sync.WaitGroup
	for i := range c.cfg.ThreadCount {
		w := worker.New(i+1, c.frontier, c.visited, c.deps.Fetcher, c.deps.Extractor, c.deps.Persister, wcfg, c.logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(workerCtx)
		}()
	}

	waitErr := c.frontier.Wait(ctx)
	cancel()
	c.frontier.Close()
	wg.Wait()

	if waitErr != nil {
		return fmt.Errorf("crawl interrupted: %w", waitErr)
	}
	c.logger.Info("crawl finished", zap.Int("visited", c.visited.Len()))
	return nil
}

func (c *Controller) enqueueSeeds(ctx context.Context, seeds []string) int {
	accepted := 0
	for _, seed := range seeds {
		if !c.pattern.MatchString(seed) {
			c.logger.Warn("seed url doesn't match target pattern", zap.String("url", seed))
			continue
		}
		if !c.deps.Fetcher.IsAccessible(ctx, seed, c.cfg.Timeout) {
			c.logger.Warn("seed url isn't accessible", zap.String("url", seed))
			continue
		}
		c.frontier.Push(crawler.Entry{URL: seed, Depth: 0})
		accepted++
	}
	metrics.SetFrontierPending(c.frontier.Len())
	return accepted
}

// Stats returns a snapshot of crawl progress. It is safe to call concurrently with Run.
func (c *Controller) Stats() crawler.Stats {
	return crawler.Stats{
		Visited:     c.visited.Len(),
		Pending:     c.frontier.Len(),
		Outstanding: c.frontier.Outstanding(),
	}
}
