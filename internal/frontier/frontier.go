// Package frontier implements the crawl work queue: an unbounded FIFO of
// entries paired with an outstanding-work counter, in the spirit of a join-able queue.
package frontier

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/JakeFAU/mini-spider/internal/crawler"
)

// ErrClosed is returned by Pop once the frontier has been closed.
var ErrClosed = errors.New("frontier closed")

// Frontier is safe for concurrent use by any number of producers and consumers.
//
// The outstanding counter increments on every Push and decrements on every Done.
// It reaches zero only when each pushed entry has been popped and finished,
// including entries pushed while processing others, so an empty queue with
// workers still busy does not count as drained.
type Frontier struct {
	mu          sync.Mutex
	items       []crawler.Entry
	outstanding int
	// ready holds at most one wake-up token for blocked consumers.
	ready chan struct{}
	// drained is closed whenever outstanding is zero and replaced on the next Push.
	drained chan struct{}
	done    chan struct{}
	closed  bool
}

// New returns an empty frontier. Wait on an empty frontier returns immediately.
func New() *Frontier {
	drained := make(chan struct{})
	close(drained)
	return &Frontier{
		ready:   make(chan struct{}, 1),
		drained: drained,
		done:    make(chan struct{}),
	}
}

// Push appends entry and counts it as outstanding work.
func (f *Frontier) Push(entry crawler.Entry) {
	f.mu.Lock()
	if f.outstanding == 0 {
		f.drained = make(chan struct{})
	}
	f.outstanding++
	f.items = append(f.items, entry)
	f.mu.Unlock()
	f.signal()
}

// Pop removes the oldest entry, blocking until one is available.
// It returns ErrClosed after Close and a wrapped context error when ctx ends.
func (f *Frontier) Pop(ctx context.Context) (crawler.Entry, error) {
	for {
		f.mu.Lock()
		if f.closed {
			f.mu.Unlock()
			return crawler.Entry{}, ErrClosed
		}
		if len(f.items) > 0 {
			entry := f.items[0]
			f.items[0] = crawler.Entry{}
			f.items = f.items[1:]
			more := len(f.items) > 0
			f.mu.Unlock()
			if more {
				// Pass the token on so another blocked consumer picks up the rest.
				f.signal()
			}
			return entry, nil
		}
		f.mu.Unlock()

		select {
		case <-ctx.Done():
			return crawler.Entry{}, fmt.Errorf("pop canceled: %w", ctx.Err())
		case <-f.done:
			return crawler.Entry{}, ErrClosed
		case <-f.ready:
		}
	}
}

// Done marks one popped entry as fully processed.
// Calling Done more often than Push is a programming error and panics.
func (f *Frontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.outstanding <= 0 {
		panic("frontier: Done called more times than Push")
	}
	f.outstanding--
	if f.outstanding == 0 {
		close(f.drained)
	}
}

// Wait blocks until no outstanding work remains or ctx ends.
func (f *Frontier) Wait(ctx context.Context) error {
	f.mu.Lock()
	drained := f.drained
	f.mu.Unlock()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait canceled: %w", ctx.Err())
	}
}

// Close releases every blocked Pop. Closing twice is safe.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	close(f.done)
}

// Len returns the number of entries waiting to be popped.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// Outstanding returns the number of pushed entries not yet marked Done.
func (f *Frontier) Outstanding() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.outstanding
}

func (f *Frontier) signal() {
	select {
	case f.ready <- struct{}{}:
	default:
	}
}
