package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/benvon/smart-todo-sync/internal/reminders"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep tasks fresh and announce start and due dates until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return withApp(ctx, opts, cmd.InOrStdin(), cmd.ErrOrStderr(), func(a *app) error {
				if metricsAddr != "" {
					srv := serveMetrics(a, metricsAddr)
					defer func() {
						shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
						defer cancel()
						_ = srv.Shutdown(shutdownCtx)
					}()
				}

				refresh := func() {
					if err := a.controller.RefreshTags(ctx); err != nil {
						a.logger.Warn("watch_refresh_failed", zap.Error(err))
					}
					if err := a.controller.RefreshAll(ctx); err != nil {
						a.logger.Warn("watch_refresh_failed", zap.Error(err))
					}
				}
				refresh()

				// joined before returning so no refresh is in flight while the app closes
				waitRefresher := startRefresher(ctx, a.cfg.ReminderInterval, refresh)

				a.logger.Info("watch_started", zap.Duration("interval", a.cfg.ReminderInterval))
				poller := reminders.NewPoller(a.store, a.notifier, a.cfg.ReminderInterval, a.logger)
				err := poller.Start(ctx)
				waitRefresher()
				if err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				a.logger.Info("watch_stopped")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve cache metrics on this address, e.g. :9090")
	return cmd
}

// startRefresher calls refresh on every tick until ctx is done. The returned
// func blocks until the loop and any refresh it started have finished.
func startRefresher(ctx context.Context, interval time.Duration, refresh func()) (wait func()) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				refresh()
			}
		}
	}()
	return wg.Wait
}

func serveMetrics(a *app, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics_server_failed", zap.String("addr", addr), zap.Error(fmt.Errorf("listen: %w", err)))
		}
	}()
	return srv
}
