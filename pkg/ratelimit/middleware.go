package ratelimit

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
)

// Middleware gates next behind the limiter. Rejected requests get 429 and
// never reach next.
func Middleware(log *slog.Logger, name string, l *FixedWindow) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(l.opts.Window.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := l.Acquire(r.Context()); err != nil {
				if errors.Is(err, ErrRejected) {
					log.Warn("request rejected by limiter", "limiter", name, "path", r.URL.Path)
					w.Header().Set("Retry-After", retryAfter)
					http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
					return
				}
				// client went away while queued
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
