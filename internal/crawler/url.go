package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL standardizes a URL for de-duplication.
// It lowercases the scheme and host, removes default ports and drops the fragment.
// Path and query are kept byte for byte since servers may treat them case-sensitively.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Scheme == "http" && strings.HasSuffix(u.Host, ":80") {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" && strings.HasSuffix(u.Host, ":443") {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.Fragment = ""
	u.RawFragment = ""

	return u.String(), nil
}

// DedupKey returns the visited-set key for rawURL, falling back to the raw
// string when it cannot be parsed.
func DedupKey(rawURL string) string {
	key, err := NormalizeURL(rawURL)
	if err != nil {
		return rawURL
	}
	return key
}
