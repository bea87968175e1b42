package crawler

import "fmt"

// Entry is a unit of frontier work: a URL and the number of hops from its seed.
// Depth 0 marks a seed. Entries are values and never mutated after creation.
type Entry struct {
	URL   string
	Depth int
}

// Child returns the entry for a link discovered on this entry's page.
func (e Entry) Child(link string) Entry {
	return Entry{URL: link, Depth: e.Depth + 1}
}

// String renders the entry for log output.
func (e Entry) String() string {
	return fmt.Sprintf("%s@%d", e.URL, e.Depth)
}

// Stats is a point-in-time view of a crawl run.
type Stats struct {
	Visited     int `json:"visited"`
	Pending     int `json:"pending"`
	Outstanding int `json:"outstanding"`
}
