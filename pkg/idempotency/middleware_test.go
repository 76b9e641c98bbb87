package idempotency

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmehra2102/myshop/pkg/logging"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewStore(client, 10*time.Minute), mr
}

func TestStore_Seen(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()
	key := store.Key("payment.events", 0, 42)

	seen, err := store.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = store.Seen(ctx, key)
	require.NoError(t, err)
	assert.True(t, seen)

	assert.Equal(t, "idem:payment.events:0:42", key)
	assert.Equal(t, 10*time.Minute, mr.TTL(key))
}

func TestStore_SeenRedisDown(t *testing.T) {
	store, mr := setupStore(t)
	mr.Close()

	_, err := store.Seen(context.Background(), "idem:x")
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	store, mr := setupStore(t)
	status := http.StatusOK
	calls := 0
	h := Middleware(logging.Discard(), store, "order-create")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(status)
	}))

	send := func(key string) int {
		req := httptest.NewRequest(http.MethodPost, "/order/create", nil)
		if key != "" {
			req.Header.Set(HeaderKey, key)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	t.Run("no header passes through", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, send(""))
		assert.Equal(t, http.StatusOK, send(""))
	})

	t.Run("replay is rejected", func(t *testing.T) {
		before := calls
		assert.Equal(t, http.StatusOK, send("k-1"))
		assert.Equal(t, http.StatusConflict, send("k-1"))
		assert.Equal(t, before+1, calls)
	})

	t.Run("server error releases key", func(t *testing.T) {
		status = http.StatusInternalServerError
		assert.Equal(t, http.StatusInternalServerError, send("k-2"))
		assert.False(t, mr.Exists(store.RequestKey("order-create", "k-2")))

		status = http.StatusOK
		assert.Equal(t, http.StatusOK, send("k-2"))
	})
}
