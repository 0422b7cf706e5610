package middleware

import (
	"net/http"
	"time"

	logpkg "github.com/benvon/smart-todo-sync/internal/logger"
	"go.uber.org/zap"
)

// Logging creates logging middleware for outbound requests
func Logging(logger *zap.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()

			resp, err := next.RoundTrip(r)

			duration := time.Since(start)
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", logpkg.SanitizePath(r.URL.Path)),
				zap.String("url", logpkg.SanitizeURL(r.URL)),
				zap.String("request_id", r.Header.Get(RequestIDHeader)),
				zap.Int64("duration_ms", duration.Milliseconds()),
			}
			if err != nil {
				logger.Warn("http_request_failed", append(fields, zap.String("error", logpkg.SanitizeError(err)))...)
				return nil, err
			}

			logger.Info("http_request", append(fields, zap.Int("status_code", resp.StatusCode))...)
			return resp, nil
		})
	}
}
