// Package fetcher implements the crawler's HTTP GET with bounded retry and
// transcoding of response bodies to UTF-8.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/JakeFAU/mini-spider/internal/metrics"
)

const (
	defaultMaxAttempts = 2
	defaultRetryDelay  = 100 * time.Millisecond
	defaultUserAgent   = "mini-spider/1.0"
)

// Config controls request and retry behavior.
type Config struct {
	UserAgent string
	// MaxAttempts is the total number of tries per request, first one included.
	MaxAttempts int
	// RetryDelay is the fixed pause between attempts.
	RetryDelay time.Duration
	// Transport overrides the default pooled transport.
	Transport http.RoundTripper
}

// Fetcher implements crawler.Fetcher over net/http.
type Fetcher struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

type response struct {
	statusCode int
	header     http.Header
	body       []byte
}

// New builds a Fetcher, filling unset Config fields with defaults.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	transport := cfg.Transport
	if transport == nil {
		transport = newHTTPTransport()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		cfg:    cfg,
		client: &http.Client{Transport: transport},
		logger: logger,
	}
}

// Fetch returns the UTF-8 body of rawURL, or an empty slice when the request
// fails after all attempts or the server answers with a non-2xx status.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, timeout time.Duration) []byte {
	start := time.Now()
	defer func() {
		metrics.ObserveFetchDuration(time.Since(start))
	}()

	resp, err := f.get(ctx, rawURL, timeout)
	if err != nil {
		f.logger.Error("failed to get url", zap.String("url", rawURL), zap.Error(err))
		return []byte{}
	}
	if resp.statusCode < http.StatusOK || resp.statusCode >= http.StatusMultipleChoices {
		f.logger.Warn("unexpected status code",
			zap.String("url", rawURL),
			zap.Int("status_code", resp.statusCode),
		)
		return []byte{}
	}
	return f.transcode(rawURL, resp)
}

// IsAccessible reports whether rawURL answers 200 within the retry budget.
func (f *Fetcher) IsAccessible(ctx context.Context, rawURL string, timeout time.Duration) bool {
	resp, err := f.get(ctx, rawURL, timeout)
	if err != nil {
		f.logger.Error("url isn't accessible", zap.String("url", rawURL), zap.Error(err))
		return false
	}
	return resp.statusCode == http.StatusOK
}

func (f *Fetcher) transcode(rawURL string, resp response) []byte {
	sniffed := sniffCharset(resp.body)
	declared := declaredCharset(resp.header.Get("Content-Type"))
	if sniffed == "" && declared == "" {
		f.logger.Warn("charset is empty", zap.String("url", rawURL))
		metrics.ObserveDecodeFallback("no_charset")
		return resp.body
	}

	decoded, name, err := toUTF8(resp.body, sniffed, declared)
	if err != nil {
		f.logger.Error("failed to decode content",
			zap.String("url", rawURL),
			zap.String("sniffed", sniffed),
			zap.String("declared", declared),
			zap.Error(err),
		)
		metrics.ObserveDecodeFallback("decode_error")
		return resp.body
	}
	f.logger.Debug("content transcoded", zap.String("url", rawURL), zap.String("charset", name))
	return decoded
}

func (f *Fetcher) get(ctx context.Context, rawURL string, timeout time.Duration) (response, error) {
	if err := validateURL(rawURL); err != nil {
		return response{}, err
	}

	var result response
	operation := func() error {
		resp, err := f.do(ctx, rawURL, timeout)
		if err != nil {
			metrics.ObserveFetchAttempt(0)
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		metrics.ObserveFetchAttempt(resp.statusCode)
		result = resp
		return nil
	}
	notify := func(err error, wait time.Duration) {
		metrics.ObserveFetchRetry()
		f.logger.Debug("retrying fetch",
			zap.String("url", rawURL),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(f.cfg.RetryDelay), uint64(f.cfg.MaxAttempts-1)),
		ctx,
	)
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return response{}, err
	}
	return result, nil
}

func (f *Fetcher) do(ctx context.Context, rawURL string, timeout time.Duration) (response, error) {
	reqCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return response{}, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return response{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // body fully read below

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, fmt.Errorf("read body: %w", err)
	}
	return response{
		statusCode: resp.StatusCode,
		header:     resp.Header.Clone(),
		body:       body,
	}, nil
}

var errMalformedURL = errors.New("malformed url")

// validateURL rejects URLs no retry could fix.
func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", errMalformedURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", errMalformedURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", errMalformedURL)
	}
	return nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
