package fetcher

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/htmlindex"
)

var (
	errUnknownCharset = errors.New("unknown charset")
	errInvalidUTF8    = errors.New("invalid utf-8 byte sequence")
	errInvalidBytes   = errors.New("invalid byte sequence")
)

var replacementChar = []byte(string(utf8.RuneError))

// chardet reports a few names that differ from the WHATWG labels htmlindex knows.
var charsetAliases = map[string]string{
	"gb-18030": "gb18030",
}

// sniffCharset guesses the body encoding from its bytes.
func sniffCharset(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	result, err := chardet.NewHtmlDetector().DetectBest(body)
	if err != nil || result == nil {
		return ""
	}
	return result.Charset
}

// declaredCharset extracts the charset parameter of a Content-Type header value.
func declaredCharset(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}

// toUTF8 decodes body using the first candidate charset htmlindex recognizes and
// returns the UTF-8 bytes together with the canonical name that was used.
func toUTF8(body []byte, candidates ...string) ([]byte, string, error) {
	for _, candidate := range candidates {
		label := strings.ToLower(strings.TrimSpace(candidate))
		if label == "" {
			continue
		}
		if alias, ok := charsetAliases[label]; ok {
			label = alias
		}
		enc, err := htmlindex.Get(label)
		if err != nil {
			continue
		}
		name, err := htmlindex.Name(enc)
		if err != nil {
			name = label
		}
		if name == "utf-8" {
			if !utf8.Valid(body) {
				return nil, name, errInvalidUTF8
			}
			return body, name, nil
		}
		decoded, err := enc.NewDecoder().Bytes(body)
		if err != nil {
			return nil, name, fmt.Errorf("decode %s: %w", name, err)
		}
		// x/text decoders substitute U+FFFD for bytes they cannot map.
		if bytes.Count(decoded, replacementChar) > bytes.Count(body, replacementChar) {
			return nil, name, fmt.Errorf("decode %s: %w", name, errInvalidBytes)
		}
		return decoded, name, nil
	}
	return nil, "", fmt.Errorf("%w: %q", errUnknownCharset, candidates)
}
