package crawler

import (
	"context"
	"time"
)

// Fetcher retrieves pages over HTTP. Failures are reported as an empty body,
// never as an error, so callers only branch on len(body).
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, timeout time.Duration) []byte
	IsAccessible(ctx context.Context, rawURL string, timeout time.Duration) bool
}

// LinkExtractor returns the absolute URLs linked from an HTML page, in document order.
type LinkExtractor interface {
	ExtractLinks(content []byte, sourceURL string) []string
}

// Persister stores fetched page bodies.
type Persister interface {
	// Prepare makes sure the output location exists. It must be idempotent.
	Prepare(ctx context.Context) error
	Save(ctx context.Context, rawURL string, content []byte) error
}

// Frontier is the shared work queue with completion tracking.
type Frontier interface {
	Push(entry Entry)
	Pop(ctx context.Context) (Entry, error)
	Done()
	Wait(ctx context.Context) error
	Close()
	Len() int
	Outstanding() int
}

// VisitedSet records URLs already claimed for processing.
type VisitedSet interface {
	Put(rawURL string)
	Contains(rawURL string) bool
	MarkIfNew(rawURL string) bool
	Len() int
}
