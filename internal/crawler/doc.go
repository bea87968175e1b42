// Package crawler defines the types and interfaces shared by the crawl engine:
// the frontier entry, the collaborator contracts implemented by the fetcher,
// link extractor and persister, and URL normalization used for de-duplication.
package crawler
