package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmehra2102/myshop/internal/inventory/application"
	"github.com/dmehra2102/myshop/internal/inventory/application/ledgertest"
	"github.com/dmehra2102/myshop/pkg/logging"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) (*Ledger, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewLedger(logging.Discard(), rdb), mr
}

func TestLedgerContract(t *testing.T) {
	ledgertest.Run(t, func(t *testing.T) application.Ledger {
		l, _ := newTestLedger(t)
		return l
	})
}

func TestLedgerKeys(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLedger(t)

	require.NoError(t, l.SetStock(ctx, "p-1", 5))
	v, err := mr.Get("stock:p-1")
	require.NoError(t, err)
	assert.Equal(t, "5", v)

	_, ok, err := l.TryReserve(ctx, "p-1", 2)
	require.NoError(t, err)
	require.True(t, ok)
	v, _ = mr.Get("stock:p-1")
	assert.Equal(t, "3", v)
}

func TestReleaseUnknownDoesNotCreateKey(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLedger(t)

	require.NoError(t, l.Release(ctx, "ghost", 3))
	assert.False(t, mr.Exists("stock:ghost"))
}
