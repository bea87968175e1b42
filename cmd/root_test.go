package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/mini-spider/internal/seedfile"
	"github.com/JakeFAU/mini-spider/internal/storage/local"
)

type crawlFixture struct {
	confDir string
	logDir  string
	outDir  string
	server  *httptest.Server
}

func newCrawlFixture(t *testing.T, extraConf string) *crawlFixture {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, `<html><body><a href="/page.html">page</a></body></html>`)
	})
	mux.HandleFunc("/page.html", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<html><body>leaf</body></html>`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	root := t.TempDir()
	f := &crawlFixture{
		confDir: filepath.Join(root, "conf"),
		logDir:  filepath.Join(root, "log"),
		outDir:  filepath.Join(root, "output"),
		server:  server,
	}
	require.NoError(t, os.MkdirAll(f.confDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(f.confDir, "urls"), []byte(server.URL+"/\n"), 0o600))

	conf := fmt.Sprintf(`spider:
  url_list_file: ./urls
  output_directory: %s
  max_depth: 1
  crawl_interval: 0
  crawl_timeout: 2
  target_url: .*
  thread_count: 2
http:
  retry_delay_ms: 1
%s`, f.outDir, extraConf)
	require.NoError(t, os.WriteFile(filepath.Join(f.confDir, "spider.yaml"), []byte(conf), 0o600))
	return f
}

func (f *crawlFixture) execute(args ...string) error {
	_, err := f.executeC(args...)
	return err
}

func (f *crawlFixture) executeC(args ...string) (*cobra.Command, error) {
	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--conf-dir", f.confDir, "--log-dir", f.logDir}, args...))
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.ExecuteContextC(context.Background())
}

func TestRootCommandCrawls(t *testing.T) {
	t.Parallel()

	f := newCrawlFixture(t, "")
	require.NoError(t, f.execute())

	assert.FileExists(t, filepath.Join(f.outDir, local.FileName(f.server.URL+"/")))
	assert.FileExists(t, filepath.Join(f.outDir, local.FileName(f.server.URL+"/page.html")))
	assert.FileExists(t, filepath.Join(f.logDir, "mini_spider.log"))
}

func TestCrawlSubcommandWithStatusListener(t *testing.T) {
	t.Parallel()

	f := newCrawlFixture(t, "metrics:\n  listen_addr: 127.0.0.1:0\n")
	require.NoError(t, f.execute("crawl"))

	assert.FileExists(t, filepath.Join(f.outDir, local.FileName(f.server.URL+"/page.html")))
}

func TestRootCommandMissingSeedFile(t *testing.T) {
	t.Parallel()

	f := newCrawlFixture(t, "")
	require.NoError(t, os.Remove(filepath.Join(f.confDir, "urls")))

	err := f.execute()
	require.ErrorIs(t, err, seedfile.ErrNotFound)
}

func TestFailureLoggerWritesToLogFile(t *testing.T) {
	t.Parallel()

	f := newCrawlFixture(t, "")
	require.NoError(t, os.Remove(filepath.Join(f.confDir, "urls")))

	executed, runErr := f.executeC()
	require.ErrorIs(t, runErr, seedfile.ErrNotFound)

	logger, err := failureLogger(executed)
	require.NoError(t, err)
	logger.Error("command execution failed", zap.Error(runErr))
	_ = logger.Sync()

	data, err := os.ReadFile(filepath.Join(f.logDir, "mini_spider.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "command execution failed")
	assert.Contains(t, string(data), seedfile.ErrNotFound.Error())
}

func TestFailureLoggerWithoutApp(t *testing.T) {
	t.Parallel()

	logger, err := failureLogger(nil)
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestLogLevelFlag(t *testing.T) {
	t.Parallel()

	f := newCrawlFixture(t, "")
	require.NoError(t, f.execute("--log-level", "warn"))

	err := f.execute("--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}

func TestRootCommandMissingConfig(t *testing.T) {
	t.Parallel()

	f := newCrawlFixture(t, "")
	err := f.execute("-c", "other.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize application services")
}

func TestVersionFlag(t *testing.T) {
	t.Parallel()

	for _, flag := range []string{"-v", "--version"} {
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetArgs([]string{flag})
		cmd.SetOut(&out)
		require.NoError(t, cmd.Execute())
		assert.Equal(t, Version+"\n", out.String())
	}
}

func TestResolveAppWithoutApp(t *testing.T) {
	t.Parallel()

	_, err := resolveApp(context.Background())
	require.Error(t, err)
}
