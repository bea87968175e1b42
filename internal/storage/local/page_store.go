// Package local persists fetched pages to the local filesystem.
package local

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ErrPathTraversal is returned when a URL maps to a file outside the base directory.
var ErrPathTraversal = errors.New("path traversal detected")

// Config captures the parameters for the local page store.
type Config struct {
	// BaseDir is the directory pages are written to.
	BaseDir string
}

// PageStore writes one file per URL under BaseDir.
type PageStore struct {
	baseDir string
	logger  *zap.Logger
}

// New creates a page store rooted at cfg.BaseDir. The directory itself is
// created by Prepare.
func New(cfg Config, logger *zap.Logger) (*PageStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageStore{
		baseDir: filepath.Clean(cfg.BaseDir),
		logger:  logger,
	}, nil
}

// Dir returns the cleaned base directory.
func (s *PageStore) Dir() string {
	return s.baseDir
}

// Prepare creates the base directory if needed and checks that it is writable.
func (s *PageStore) Prepare(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Stat(s.baseDir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(s.baseDir, 0o750); mkErr != nil {
			return fmt.Errorf("failed to create base directory: %w", mkErr)
		}
	case err != nil:
		return fmt.Errorf("failed to stat base directory: %w", err)
	case !info.IsDir():
		return fmt.Errorf("base directory path %q is not a directory", s.baseDir)
	}

	probe := filepath.Join(s.baseDir, ".writable_test")
	if err := os.WriteFile(probe, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(probe); err != nil {
		return fmt.Errorf("failed to clean up test file: %w", err)
	}
	return nil
}

// FileName maps rawURL to the file name its content is stored under. Every
// reserved byte is percent-encoded and spaces become '+'.
func FileName(rawURL string) string {
	return url.QueryEscape(rawURL)
}

// Path returns the full path content for rawURL is written to.
func (s *PageStore) Path(rawURL string) (string, error) {
	name := FileName(rawURL)
	if name == "" {
		return "", fmt.Errorf("url is required")
	}
	fullPath := filepath.Clean(filepath.Join(s.baseDir, name))
	if !strings.HasPrefix(fullPath, s.baseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, rawURL)
	}
	return fullPath, nil
}

// Save writes content for rawURL, replacing any earlier copy.
func (s *PageStore) Save(ctx context.Context, rawURL string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := s.Path(rawURL)
	if err != nil {
		return err
	}
	// #nosec G306 -- pages are private to the crawl user.
	if err := os.WriteFile(fullPath, content, 0o600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	s.logger.Info("page saved",
		zap.String("url", rawURL),
		zap.String("path", fullPath),
		zap.Int("bytes", len(content)),
	)
	return nil
}
