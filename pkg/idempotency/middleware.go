package idempotency

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

const HeaderKey = "Idempotency-Key"

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) Key(topic string, partition int, offset int64) string {
	return fmt.Sprintf("idem:%s:%d:%d", topic, partition, offset)
}

func (s *Store) RequestKey(route, key string) string {
	return fmt.Sprintf("idem:http:%s:%s", route, key)
}

// Seen marks key as processed and reports whether it already was.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, "1", s.ttl).Result()
	if err != nil {
		return false, err
	}

	return !ok, nil
}

// Forget removes key so a failed request can be retried with it.
func (s *Store) Forget(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// Middleware rejects replays of a request carrying an Idempotency-Key header
// with 409. Requests without the header pass through. A replayed key is
// released again when the first attempt ends with a 5xx.
func Middleware(log *slog.Logger, s *Store, route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(HeaderKey)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			key := s.RequestKey(route, raw)
			seen, err := s.Seen(r.Context(), key)
			if err != nil {
				log.Error("idempotency check failed", "key", key, "err", err)
				http.Error(w, "idempotency store unavailable", http.StatusServiceUnavailable)
				return
			}
			if seen {
				log.Info("duplicate request rejected", "key", key)
				http.Error(w, "duplicate request", http.StatusConflict)
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			if rec.status >= http.StatusInternalServerError {
				if err := s.Forget(context.WithoutCancel(r.Context()), key); err != nil {
					log.Error("idempotency release failed", "key", key, "err", err)
				}
			}
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
