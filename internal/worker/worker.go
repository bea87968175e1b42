// Package worker implements the crawl loop run by each worker goroutine.
package worker

import (
	"context"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/mini-spider/internal/crawler"
	"github.com/JakeFAU/mini-spider/internal/metrics"
)

// Config controls Worker behavior. Pattern is shared read-only by all workers.
type Config struct {
	MaxDepth int
	Interval time.Duration
	Timeout  time.Duration
	Pattern  *regexp.Regexp
}

// Worker pops frontier entries and fetches, stores and expands them.
type Worker struct {
	id        int
	frontier  crawler.Frontier
	visited   crawler.VisitedSet
	fetcher   crawler.Fetcher
	extractor crawler.LinkExtractor
	persister crawler.Persister
	pauser    pauser
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Worker.
func New(
	id int,
	frontier crawler.Frontier,
	visited crawler.VisitedSet,
	fetcher crawler.Fetcher,
	extractor crawler.LinkExtractor,
	persister crawler.Persister,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		id:        id,
		frontier:  frontier,
		visited:   visited,
		fetcher:   fetcher,
		extractor: extractor,
		persister: persister,
		pauser:    timerPauser{},
		cfg:       cfg,
		logger:    logger.With(zap.Int("worker", id)),
	}
}

// Run blocks, processing entries until ctx ends or the frontier is closed.
func (w *Worker) Run(ctx context.Context) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	for {
		if ctx.Err() != nil {
			return
		}
		entry, err := w.frontier.Pop(ctx)
		if err != nil {
			w.logger.Debug("worker stopping", zap.Error(err))
			return
		}

		completed := w.process(ctx, entry)
		w.frontier.Done()
		metrics.SetFrontierPending(w.frontier.Len())

		if completed {
			w.pauser.Pause(ctx, w.cfg.Interval)
		}
	}
}

// process handles one entry. It reports whether the entry went through the
// whole pipeline, which is the only case followed by the pacing pause.
func (w *Worker) process(ctx context.Context, entry crawler.Entry) bool {
	if !w.visited.MarkIfNew(entry.URL) {
		metrics.ObservePage(entry.URL, metrics.OutcomeSkippedVisited)
		return false
	}

	if w.cfg.Pattern != nil && !w.cfg.Pattern.MatchString(entry.URL) {
		w.logger.Warn("url doesn't match target pattern", zap.String("url", entry.URL))
		metrics.ObservePage(entry.URL, metrics.OutcomeSkippedPattern)
		return false
	}

	content := w.fetcher.Fetch(ctx, entry.URL, w.cfg.Timeout)
	if len(content) == 0 {
		metrics.ObservePage(entry.URL, metrics.OutcomeFetchFailed)
		return false
	}

	if err := w.persister.Save(ctx, entry.URL, content); err != nil {
		w.logger.Error("failed to save page", zap.String("url", entry.URL), zap.Error(err))
		metrics.ObservePersistError()
	} else {
		metrics.ObservePersisted(entry.URL, len(content))
	}

	if entry.Depth >= w.cfg.MaxDepth {
		w.logger.Debug("max depth reached", zap.Stringer("entry", entry))
		return false
	}

	enqueued := 0
	for _, link := range w.extractor.ExtractLinks(content, entry.URL) {
		if w.visited.Contains(link) {
			continue
		}
		w.frontier.Push(entry.Child(link))
		enqueued++
	}
	metrics.AddLinksEnqueued(enqueued)
	w.logger.Debug("page expanded", zap.Stringer("entry", entry), zap.Int("enqueued", enqueued))
	return true
}

type pauser interface {
	Pause(ctx context.Context, delay time.Duration)
}

type timerPauser struct{}

func (timerPauser) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
