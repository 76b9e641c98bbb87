package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// reserveScript decrements the counter only when enough units are left.
// It returns {ok, remaining}; a missing key yields {-1, 0}.
var reserveScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if not current then
	return {-1, 0}
end
current = tonumber(current)
local qty = tonumber(ARGV[1])
if current < qty then
	return {0, current}
end
return {1, redis.call("DECRBY", KEYS[1], qty)}
`)

// releaseScript only increments counters that exist.
var releaseScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
return redis.call("INCRBY", KEYS[1], ARGV[1])
`)

type Ledger struct {
	log    *slog.Logger
	rdb    *redis.Client
	prefix string
}

func NewLedger(log *slog.Logger, rdb *redis.Client) *Ledger {
	return &Ledger{log: log, rdb: rdb, prefix: "stock:"}
}

func (l *Ledger) key(productID string) string {
	return l.prefix + productID
}

func (l *Ledger) TryReserve(ctx context.Context, productID string, quantity int) (int, bool, error) {
	if quantity <= 0 {
		return 0, false, nil
	}
	res, err := reserveScript.Run(ctx, l.rdb, []string{l.key(productID)}, quantity).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("reserve %s: %w", productID, err)
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("reserve %s: unexpected script reply %v", productID, res)
	}
	return int(res[1]), res[0] == 1, nil
}

func (l *Ledger) Release(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return nil
	}
	n, err := releaseScript.Run(ctx, l.rdb, []string{l.key(productID)}, quantity).Int64()
	if err != nil {
		return fmt.Errorf("release %s: %w", productID, err)
	}
	if n == 0 {
		l.log.Warn("release of unknown product ignored", "product_id", productID, "quantity", quantity)
	}
	return nil
}

func (l *Ledger) GetStock(ctx context.Context, productID string) (int, bool, error) {
	n, err := l.rdb.Get(ctx, l.key(productID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get stock %s: %w", productID, err)
	}
	return n, true, nil
}

func (l *Ledger) SetStock(ctx context.Context, productID string, stock int) error {
	if stock < 0 {
		stock = 0
	}
	if err := l.rdb.Set(ctx, l.key(productID), stock, 0).Err(); err != nil {
		return fmt.Errorf("set stock %s: %w", productID, err)
	}
	return nil
}
