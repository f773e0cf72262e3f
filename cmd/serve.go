package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/contentops/contentpipe/internal/scheduler"
)

// newServeCmd creates the 'serve' subcommand, which runs the HTTP API
// and, when enabled, the interval scheduler.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and optional interval scheduler",
		Long: `Starts the HTTP server exposing run triggers, job lookup, health, and
metrics endpoints. With the scheduler enabled the full pipeline also runs
on the configured interval until shutdown.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if a.Config.Scheduler.Enabled {
				sched := scheduler.New(a.Config.SchedulerInterval(), false, a.Logger)
				sched.Start(ctx, func(runCtx context.Context) {
					if _, err := a.Orchestrator.RunAll(runCtx); err != nil {
						a.Logger.Error("scheduled run failed", zap.Error(err))
					}
				})
				defer sched.Stop()
				a.Logger.Info("scheduler started",
					zap.Duration("interval", a.Config.SchedulerInterval()),
				)
			}

			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", a.Config.Server.Port),
				Handler:           a.Server.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.Logger.Info("http server listening", zap.String("addr", srv.Addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("http server: %w", err)
				}
			case <-ctx.Done():
				a.Logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("shutdown http server: %w", err)
				}
			}
			return nil
		},
	}
}
