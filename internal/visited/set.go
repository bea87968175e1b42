// Package visited provides the thread-safe record of URLs already claimed by a crawl.
package visited

import (
	"sync"

	"github.com/JakeFAU/mini-spider/internal/crawler"
)

// Set stores normalized URLs. All methods are safe for concurrent use.
type Set struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// New returns an empty Set.
func New() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// Put records rawURL as visited. Repeated calls are no-ops.
func (s *Set) Put(rawURL string) {
	key := crawler.DedupKey(rawURL)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[key] = struct{}{}
}

// Contains reports whether rawURL was recorded before.
func (s *Set) Contains(rawURL string) bool {
	key := crawler.DedupKey(rawURL)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[key]
	return ok
}

// MarkIfNew stores rawURL if it has not been seen before and returns true.
// Exactly one of any number of concurrent callers for the same URL gets true.
func (s *Set) MarkIfNew(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	key := crawler.DedupKey(rawURL)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Len returns the number of distinct URLs recorded.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
