// Package cmd defines and implements the CLI commands for the mini-spider executable.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/mini-spider/internal/api"
	"github.com/JakeFAU/mini-spider/internal/seedfile"
)

// newCrawlCmd creates the explicit 'crawl' subcommand. It behaves exactly like
// running the root command.
func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Runs the crawl",
		Args:  cobra.NoArgs,
		RunE:  runCrawlCommand,
	}
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.GetLogger()

	seeds, err := seedfile.Load(appInstance.SeedFilePath())
	if err != nil {
		return fmt.Errorf("load seeds: %w", err)
	}
	logger.Info("seeds loaded", zap.String("path", appInstance.SeedFilePath()), zap.Int("count", len(seeds)))

	ctrl, err := appInstance.NewController()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(cmd.Context())
	listenerCtx, stopListener := context.WithCancel(gctx)
	defer stopListener()

	g.Go(func() error {
		defer stopListener()
		return ctrl.Run(gctx, seeds)
	})
	if addr := appInstance.GetConfig().Metrics.ListenAddr; addr != "" {
		server := api.NewServer(ctrl, appInstance.GetRunID(), logger.Named("api"))
		g.Go(func() error {
			return server.ListenAndServe(listenerCtx, addr)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run crawler: %w", err)
	}

	stats := ctrl.Stats()
	logger.Info("crawl command finished", zap.Int("visited", stats.Visited))
	return nil
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}
