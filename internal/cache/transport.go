// Package cache implements the offline response cache: an http.RoundTripper
// that answers safe requests from a stored copy while revalidating it in the
// background (stale-while-revalidate).
package cache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	logpkg "github.com/benvon/smart-todo-sync/internal/logger"
	"go.uber.org/zap"
)

const (
	// HeaderCacheStatus is set to "hit" on responses served from the cache
	HeaderCacheStatus = "X-Offline-Cache"

	// DefaultRefreshTimeout bounds a background revalidation
	DefaultRefreshTimeout = 30 * time.Second
)

// Transport is the stale-while-revalidate RoundTripper
type Transport struct {
	next           http.RoundTripper
	store          Store
	logger         *zap.Logger
	metrics        *Metrics
	refreshTimeout time.Duration
	now            func() time.Time

	wg sync.WaitGroup
}

type bypassKey struct{}

// Bypass marks ctx so requests made with it skip the stored copy and go to
// the network. A successful answer still replaces the stored entry.
func Bypass(ctx context.Context) context.Context {
	return context.WithValue(ctx, bypassKey{}, true)
}

func bypassed(ctx context.Context) bool {
	skip, _ := ctx.Value(bypassKey{}).(bool)
	return skip
}

// Option configures a Transport
type Option func(*Transport)

// WithMetrics records hit/miss counters
func WithMetrics(m *Metrics) Option {
	return func(t *Transport) { t.metrics = m }
}

// WithRefreshTimeout overrides DefaultRefreshTimeout; d <= 0 keeps the default
func WithRefreshTimeout(d time.Duration) Option {
	return func(t *Transport) {
		if d > 0 {
			t.refreshTimeout = d
		}
	}
}

// WithClock overrides the time source used for Entry.StoredAt
func WithClock(now func() time.Time) Option {
	return func(t *Transport) { t.now = now }
}

// NewTransport wraps next. A nil next uses http.DefaultTransport.
func NewTransport(next http.RoundTripper, store Store, logger *zap.Logger, opts ...Option) *Transport {
	if next == nil {
		next = http.DefaultTransport
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Transport{
		next:           next,
		store:          store,
		logger:         logger,
		refreshTimeout: DefaultRefreshTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Key identifies a cached response
func Key(req *http.Request) string {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	return method + " " + req.URL.String()
}

// RoundTrip implements http.RoundTripper
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !isSafe(req.Method) {
		t.metrics.passThrough()
		return t.next.RoundTrip(req)
	}

	key := Key(req)
	if !bypassed(req.Context()) {
		if entry, ok := t.lookup(req.Context(), key); ok {
			t.metrics.hit()
			t.logger.Debug("cache_hit", zap.String("key", logpkg.SanitizePath(key)))
			t.revalidate(req, key)
			return entry.response(req), nil
		}
	}

	t.metrics.miss()
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	return t.keep(req.Context(), key, resp)
}

func (t *Transport) lookup(ctx context.Context, key string) (*Entry, bool) {
	entry, ok, err := t.store.Get(ctx, key)
	if err != nil {
		t.metrics.storeFailed()
		t.logger.Warn("cache_read_failed",
			zap.String("key", logpkg.SanitizePath(key)),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		return nil, false
	}
	return entry, ok
}

// Wait blocks until in-flight background revalidations finish
func (t *Transport) Wait() {
	t.wg.Wait()
}

// revalidate refetches req in the background and overwrites the entry on success.
// Failures are logged and dropped: the caller already has an answer.
func (t *Transport) revalidate(req *http.Request, key string) {
	// the caller may cancel once it has the cached answer
	refreshReq := req.Clone(context.WithoutCancel(req.Context()))

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		ctx, cancel := context.WithTimeout(refreshReq.Context(), t.refreshTimeout)
		defer cancel()

		resp, err := t.next.RoundTrip(refreshReq.WithContext(ctx))
		if err != nil {
			t.metrics.refreshFailed()
			t.logger.Info("cache_revalidate_failed",
				zap.String("key", logpkg.SanitizePath(key)),
				zap.String("error", logpkg.SanitizeError(err)),
			)
			return
		}

		if _, err := t.keep(ctx, key, resp); err != nil {
			t.metrics.refreshFailed()
			t.logger.Info("cache_revalidate_failed",
				zap.String("key", logpkg.SanitizePath(key)),
				zap.String("error", logpkg.SanitizeError(err)),
			)
			return
		}
		if err := resp.Body.Close(); err != nil {
			t.logger.Debug("cache_revalidate_close_failed", zap.Error(err))
		}
	}()
}

// keep buffers a successful response into the store and hands back a
// response whose body can still be read by the caller.
func (t *Transport) keep(ctx context.Context, key string, resp *http.Response) (*http.Response, error) {
	if !cacheable(resp.StatusCode) {
		return resp, nil
	}

	var body []byte
	var err error
	if resp.Request == nil || resp.Request.Method != http.MethodHead {
		body, err = io.ReadAll(resp.Body)
	}
	closeErr := resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if closeErr != nil {
		t.logger.Debug("response_body_close_failed", zap.Error(closeErr))
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	entry := &Entry{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
		StoredAt:   t.now(),
	}
	if err := t.store.Set(ctx, key, entry); err != nil {
		t.metrics.storeFailed()
		t.logger.Warn("cache_write_failed",
			zap.String("key", logpkg.SanitizePath(key)),
			zap.String("error", logpkg.SanitizeError(err)),
		)
	}
	return resp, nil
}

func (e *Entry) response(req *http.Request) *http.Response {
	header := e.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	header.Set(HeaderCacheStatus, "hit")

	resp := &http.Response{
		Status:        fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode)),
		StatusCode:    e.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
	if req.Method == http.MethodHead {
		// HEAD answers carry headers only; Content-Length describes the GET body
		resp.Body = http.NoBody
		resp.ContentLength = -1
		if n, err := strconv.ParseInt(header.Get("Content-Length"), 10, 64); err == nil {
			resp.ContentLength = n
		}
	}
	return resp
}

func isSafe(method string) bool {
	// net/http treats an empty method as GET
	return method == "" || method == http.MethodGet || method == http.MethodHead
}

func cacheable(status int) bool {
	return status >= 200 && status < 300
}
