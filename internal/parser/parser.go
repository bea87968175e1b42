// Package parser extracts outbound links from fetched HTML pages.
package parser

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	linkSelector = "a[href], link[href]"
	httpPrefix   = "http:"
)

// Extractor implements crawler.LinkExtractor with goquery.
type Extractor struct {
	logger *zap.Logger
}

// New constructs an Extractor. A nil logger discards output.
func New(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// ExtractLinks returns the resolved href of every <a> and <link> element in
// document order. Hrefs that cannot be resolved are skipped.
func (e *Extractor) ExtractLinks(content []byte, sourceURL string) []string {
	if len(content) == 0 {
		return nil
	}
	base, err := url.Parse(sourceURL)
	if err != nil {
		e.logger.Warn("invalid source url", zap.String("url", sourceURL), zap.Error(err))
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		e.logger.Warn("failed to parse html", zap.String("url", sourceURL), zap.Error(err))
		return nil
	}

	var links []string
	doc.Find(linkSelector).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		link, ok := resolve(base, href)
		if !ok {
			return
		}
		links = append(links, link)
	})

	e.logger.Debug("links extracted",
		zap.String("url", sourceURL),
		zap.Int("count", len(links)),
	)
	return links
}

// JoinURL resolves href against sourceURL. It returns "" when the href is a
// javascript: pseudo link or either URL fails to parse.
func JoinURL(sourceURL, href string) string {
	base, err := url.Parse(sourceURL)
	if err != nil {
		return ""
	}
	link, _ := resolve(base, href)
	return link
}

func resolve(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	switch {
	case ref.Host == "" && strings.EqualFold(ref.Scheme, "javascript"):
		return "", false
	case ref.Host == "":
		return base.ResolveReference(ref).String(), true
	case ref.Scheme == "":
		return httpPrefix + href, true
	default:
		return href, true
	}
}
