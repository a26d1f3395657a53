// Package main implements the inflight CLI: an admin API server over the call
// tracker and a batch fetcher with a terminal busy indicator.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iliamunaev/inflight/internal/app"
	"github.com/iliamunaev/inflight/internal/config"
	"github.com/iliamunaev/inflight/internal/logging"
	"github.com/iliamunaev/inflight/internal/model"
	"github.com/iliamunaev/inflight/internal/tui"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath string
	envFiles   []string
}

func newRootCmd() *cobra.Command {
	var flags rootFlags

	root := &cobra.Command{
		Use:   "inflight",
		Short: "Track in-flight outbound HTTP calls",
		Long: `inflight counts outbound HTTP calls while they are in flight, skipping
calls whose URL matches an exclusion rule, and reports every change of the
counter to its observers.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "YAML config file")
	root.PersistentFlags().StringSliceVar(&flags.envFiles, "env-file", []string{".env"}, "dotenv files loaded before the environment is read")

	root.AddCommand(newServeCmd(&flags), newFetchCmd(&flags))
	return root
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin API",
		Long: `Run the admin HTTP API.

Endpoints:
  GET    /health
  GET    /api/v1/state
  GET    /api/v1/exclusions
  POST   /api/v1/exclusions   {"path":"api/users/:id"}
  DELETE /api/v1/exclusions   {"path":"api/users/:id"}
  POST   /api/v1/fetch        {"urls":["https://..."]}
  GET    /metrics             (when server.metrics is enabled)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(flags)
			if err != nil {
				return err
			}
			defer func() { _ = a.Logger.Sync() }()
			if addr != "" {
				a.Config.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

// serve runs the server until ctx is done, then drains in-flight calls.
func serve(ctx context.Context, a *app.App) error {
	srv := a.Server()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Start(a.Config.Server.Addr)
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if err := a.Tracker.WaitIdle(shutdownCtx); err != nil {
			a.Logger.Warn(shutdownCtx, "calls still in flight at shutdown",
				zap.Int64("calling_count", a.Tracker.Running()),
			)
		}
		return nil
	})

	return g.Wait()
}

func newFetchCmd(flags *rootFlags) *cobra.Command {
	var (
		plain   bool
		exclude []string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "fetch URL...",
		Short: "GET URLs concurrently behind a busy indicator",
		Long: `GET every URL concurrently through the tracked client and show a spinner
with the live in-flight count until the batch settles.

Examples:
  inflight fetch https://example.com/a https://example.com/b
  inflight fetch --exclude example.com/health https://example.com/health
  inflight fetch --plain https://example.com/users/42`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, urls []string) error {
			a, err := setup(flags)
			if err != nil {
				return err
			}
			defer func() { _ = a.Logger.Sync() }()

			for _, p := range exclude {
				a.Tracker.AddExcludedPath(p)
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			batch := func(ctx context.Context) ([]model.CallResult, error) {
				return a.Fetcher.FetchAll(ctx, urls)
			}

			var results []model.CallResult
			if plain {
				results, err = batch(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), tui.RenderResults(results))
			} else {
				results, err = tui.Run(ctx, a.Tracker, batch)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "print results without the interactive indicator")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "extra exclusion rules")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "deadline for the whole batch")
	return cmd
}

func setup(flags *rootFlags) (*app.App, error) {
	if err := config.LoadDotEnv(flags.envFiles...); err != nil {
		return nil, err
	}
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	lc, err := cfg.Logging()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewLogger(lc)
	if err != nil {
		return nil, err
	}
	return app.New(cfg, logger)
}
