package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/mini-spider/internal/app"
	"github.com/JakeFAU/mini-spider/internal/config"
	"github.com/JakeFAU/mini-spider/internal/controller"
	"github.com/JakeFAU/mini-spider/internal/logging"
)

// Version is printed by -v/--version.
const Version = "v1.0.0"

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands will use.
// This allows us to inject a fake app during tests.
type App interface {
	Close()
	GetLogger() *zap.Logger
	GetConfig() config.Config
	GetRunID() string
	SeedFilePath() string
	NewController() (*controller.Controller, error)
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(ctx context.Context, opts app.Options) (App, error) {
	return app.New(ctx, opts)
}

// newRootCmd creates and configures the root command, which runs the crawl.
func newRootCmd() *cobra.Command {
	opts := app.Options{}

	cmd := &cobra.Command{
		Use:   "mini-spider",
		Short: "A bounded-depth, multi-worker web crawler.",
		Long: `mini-spider crawls outward from the seed URLs listed in its seed file,
follows links breadth-first up to a maximum depth and stores every page whose
URL matches the target pattern in the output directory.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},

		RunE: runCrawlCommand,
	}
	cmd.SetVersionTemplate("{{.Version}}\n")

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfDir, "conf-dir", "conf", "directory holding the config and seed files")
	flags.StringVarP(&opts.ConfFile, "conf", "c", "spider.yaml", "config file name inside --conf-dir")
	flags.StringVar(&opts.LogDir, "log-dir", "log", "directory the log file is written to")
	flags.StringVar(&opts.LogFile, "log", "mini_spider.log", "log file name inside --log-dir")
	flags.StringVar(&opts.LogLevel, "log-level", "", "minimum log level: debug, info, warn or error")
	flags.BoolVar(&opts.Development, "dev", false, "use the development console logger")

	cmd.AddCommand(newCrawlCmd())

	return cmd
}

// Execute is the main entry point. SIGINT and SIGTERM cancel the running crawl.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	executed, err := newRootCmd().ExecuteContextC(ctx)
	if err != nil {
		stop()
		logger, lerr := failureLogger(executed)
		if lerr != nil {
			fmt.Fprintf(os.Stderr, "mini-spider: %v\n", err)
			os.Exit(1)
		}
		logger.Fatal("command execution failed", zap.Error(err))
	}
}

// failureLogger returns the logger of the App the failed command built, so the
// failure also lands in the log file. Without an App it falls back to stderr.
func failureLogger(cmd *cobra.Command) (*zap.Logger, error) {
	if cmd != nil && cmd.Context() != nil {
		if appInstance, err := resolveApp(cmd.Context()); err == nil {
			return appInstance.GetLogger(), nil
		}
	}
	return logging.New(false)
}
