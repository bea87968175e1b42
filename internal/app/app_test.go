// Package app_test contains unit tests for the app package.
package app_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/mini-spider/internal/app"
	"github.com/JakeFAU/mini-spider/internal/config"
)

func writeConf(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "spider.yaml"), []byte(body), 0o600))
	return dir
}

func TestNew_Success(t *testing.T) {
	t.Parallel()

	outDir := filepath.Join(t.TempDir(), "output")
	confDir := writeConf(t, "spider:\n  url_list_file: ./urls\n  output_directory: "+outDir+"\n  thread_count: 2\n")
	logDir := filepath.Join(t.TempDir(), "log")

	a, err := app.New(context.Background(), app.Options{
		ConfDir:  confDir,
		ConfFile: "spider.yaml",
		LogDir:   logDir,
		LogFile:  "mini_spider.log",
	})
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.GetLogger())
	assert.NotEmpty(t, a.GetRunID())
	assert.Equal(t, 2, a.GetConfig().Spider.ThreadCount)
	assert.Equal(t, filepath.Join(confDir, "urls"), a.SeedFilePath())
	assert.FileExists(t, filepath.Join(logDir, "mini_spider.log"))

	ctrl, err := a.NewController()
	require.NoError(t, err)
	assert.Zero(t, ctrl.Stats().Visited)
}

func TestNew_ConfigErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		confBody string
		confFile string
		check    func(t *testing.T, err error)
	}{
		{
			name:     "missing file",
			confFile: "absent.yaml",
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "load config")
			},
		},
		{
			name:     "missing url list",
			confBody: "spider:\n  max_depth: 1\n",
			confFile: "spider.yaml",
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, config.ErrMissingKey))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			dir := writeConf(t, tc.confBody)
			_, err := app.New(context.Background(), app.Options{ConfDir: dir, ConfFile: tc.confFile})
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestNew_LogLevel(t *testing.T) {
	t.Parallel()

	confDir := writeConf(t, "spider:\n  url_list_file: ./urls\n  output_directory: "+filepath.Join(t.TempDir(), "out")+"\n")

	a, err := app.New(context.Background(), app.Options{ConfDir: confDir, ConfFile: "spider.yaml", LogLevel: "debug"})
	require.NoError(t, err)
	defer a.Close()
	assert.True(t, a.GetLogger().Core().Enabled(zapcore.DebugLevel))

	_, err = app.New(context.Background(), app.Options{ConfDir: confDir, ConfFile: "spider.yaml", LogLevel: "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init logger")
}
