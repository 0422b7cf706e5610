package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/benvon/smart-todo-sync/internal/cache"
	"github.com/benvon/smart-todo-sync/internal/config"
	"github.com/benvon/smart-todo-sync/internal/logger"
	"github.com/benvon/smart-todo-sync/internal/middleware"
	"github.com/benvon/smart-todo-sync/internal/notify"
	"github.com/benvon/smart-todo-sync/internal/persist"
	"github.com/benvon/smart-todo-sync/internal/remote"
	"github.com/benvon/smart-todo-sync/internal/store"
	"github.com/benvon/smart-todo-sync/internal/syncer"
	"github.com/benvon/smart-todo-sync/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// cacheTTL bounds how long Redis keeps an offline copy of a response
const cacheTTL = 7 * 24 * time.Hour

// app is everything one taskctl invocation needs, wired from configuration
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	store      *store.Store
	controller *syncer.Controller
	notifier   *notify.Notifier
	registry   *prometheus.Registry

	cache    *cache.Transport
	closers  []func() error
	state    *persist.Store
	tracerTP *sdktrace.TracerProvider
}

// newApp builds the app and restores the last saved store contents
func newApp(ctx context.Context, opts *rootOptions, in io.Reader, errOut io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	zapLogger, err := logger.New(cfg.DebugMode || opts.debug, opts.console)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	a := &app{cfg: cfg, logger: zapLogger, store: store.New(), registry: prometheus.NewRegistry()}

	if cfg.OTELEnabled {
		tp, err := telemetry.InitTracer(ctx, telemetry.ServiceName, cfg.OTELEndpoint)
		if err != nil {
			zapLogger.Warn("tracing_disabled", zap.Error(err))
		} else {
			a.tracerTP = tp
		}
	}

	cacheStore, err := a.cacheStore()
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	base := middleware.Chain(http.DefaultTransport, middleware.Logging(zapLogger))
	a.cache = cache.NewTransport(base, cacheStore, zapLogger,
		cache.WithMetrics(cache.NewMetrics(a.registry)),
		cache.WithRefreshTimeout(cfg.HTTPTimeout),
	)

	client := remote.New(remote.Options{
		BaseURL:   cfg.BaseURL,
		AuthToken: cfg.AuthToken,
		Timeout:   cfg.HTTPTimeout,
		Transport: middleware.Chain(a.cache, telemetry.Propagate()),
		Logger:    zapLogger,
	})

	if err := a.openState(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.notifier = notify.New(permission(cfg.NotifyPermission, in, errOut), display(cfg.NotifyDisplay, errOut, zapLogger), zapLogger)
	a.controller = syncer.New(client, a.store, a.notifier, zapLogger)
	return a, nil
}

func (a *app) cacheStore() (cache.Store, error) {
	if a.cfg.CacheBackend != config.CacheBackendRedis {
		return cache.NewMemoryStore(), nil
	}
	rs, err := cache.NewRedisStore(a.cfg.RedisURL, cacheTTL)
	if err != nil {
		return nil, fmt.Errorf("connect cache: %w", err)
	}
	a.closers = append(a.closers, rs.Close)
	return rs, nil
}

func (a *app) openState(ctx context.Context) error {
	if a.cfg.StateDBPath == "" {
		return nil
	}
	if dir := filepath.Dir(a.cfg.StateDBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create state directory: %w", err)
		}
	}
	state, err := persist.Open(a.cfg.StateDBPath)
	if err != nil {
		return err
	}
	a.state = state
	if err := state.Restore(ctx, a.store); err != nil {
		return fmt.Errorf("restore state: %w", err)
	}
	return nil
}

// Close waits for background cache refreshes, saves the store and releases resources
func (a *app) Close(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	if a.cache != nil {
		a.cache.Wait()
	}
	if a.state != nil {
		if err := a.state.Save(ctx, a.store.Snapshot()); err != nil {
			a.logger.Warn("state_save_failed", zap.Error(err))
		}
		if err := a.state.Close(); err != nil {
			a.logger.Warn("state_close_failed", zap.Error(err))
		}
	}
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Warn("resource_close_failed", zap.Error(err))
		}
	}
	if a.tracerTP != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx, a.tracerTP); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			a.logger.Warn("tracer_shutdown_failed", zap.Error(err))
		}
	}
	_ = logger.Sync(a.logger)
}

func permission(configured string, in io.Reader, errOut io.Writer) notify.Permission {
	state := notify.ParsePermissionState(configured)
	if state == notify.PermissionDefault {
		return notify.NewPromptPermission(in, errOut, state)
	}
	return notify.StaticPermission(state)
}

func display(configured string, errOut io.Writer, logger *zap.Logger) notify.Display {
	if configured == config.NotifyDisplayLog {
		return notify.NewLogDisplay(logger)
	}
	return notify.NewWriterDisplay(errOut)
}

// withApp runs fn with a freshly wired app and always closes it
func withApp(ctx context.Context, opts *rootOptions, in io.Reader, errOut io.Writer, fn func(*app) error) error {
	a, err := newApp(ctx, opts, in, errOut)
	if err != nil {
		return err
	}
	defer a.Close(ctx)
	return fn(a)
}
