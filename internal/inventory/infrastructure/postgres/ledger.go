package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ledger uses the stock column of the products table as the counter. The
// conditional UPDATE takes a row lock, so concurrent reservations of the
// same product serialize in the database.
type Ledger struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewLedger(log *slog.Logger, pool *pgxpool.Pool) *Ledger {
	return &Ledger{log: log, pool: pool}
}

func (l *Ledger) TryReserve(ctx context.Context, productID string, quantity int) (int, bool, error) {
	if quantity <= 0 {
		return 0, false, nil
	}
	var remaining int
	err := l.pool.QueryRow(ctx, `UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2 RETURNING stock`,
		productID, quantity).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		stock, _, err := l.GetStock(ctx, productID)
		return stock, false, err
	}
	if err != nil {
		return 0, false, fmt.Errorf("reserve %s: %w", productID, err)
	}
	return remaining, true, nil
}

func (l *Ledger) Release(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return nil
	}
	if _, err := l.pool.Exec(ctx, `UPDATE products SET stock = stock + $2 WHERE id = $1`, productID, quantity); err != nil {
		return fmt.Errorf("release %s: %w", productID, err)
	}
	return nil
}

func (l *Ledger) GetStock(ctx context.Context, productID string) (int, bool, error) {
	var stock int
	err := l.pool.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get stock %s: %w", productID, err)
	}
	return stock, true, nil
}

// SetStock only updates existing rows; products are inserted by the
// product repository.
func (l *Ledger) SetStock(ctx context.Context, productID string, stock int) error {
	if stock < 0 {
		stock = 0
	}
	ct, err := l.pool.Exec(ctx, `UPDATE products SET stock = $2 WHERE id = $1`, productID, stock)
	if err != nil {
		return fmt.Errorf("set stock %s: %w", productID, err)
	}
	if ct.RowsAffected() == 0 {
		l.log.Warn("stock set for unknown product", "product_id", productID)
	}
	return nil
}
