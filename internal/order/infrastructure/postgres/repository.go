package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmehra2102/myshop/internal/order/domain"
	platform "github.com/dmehra2102/myshop/internal/platform/postgres"
	"github.com/dmehra2102/myshop/pkg/repository"
	"github.com/dmehra2102/myshop/pkg/tracing"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const aggregateType = "order"

// Repository stores orders and writes an outbox event in the same
// transaction as every change.
type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Add(ctx context.Context, o domain.Order) (domain.Order, error) {
	payload, err := json.Marshal(domain.OrderPlaced{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Status:     o.Status,
		Total:      o.Total(),
		Items:      o.LineItems,
	})
	if err != nil {
		return domain.Order{}, fmt.Errorf("marshal order placed: %w", err)
	}

	err = r.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO orders (id, customer_id, order_date, status) VALUES ($1,$2,$3,$4)`,
			o.ID, o.CustomerID, o.OrderDate, string(o.Status))
		if err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for i, item := range o.LineItems {
			batch.Queue(`INSERT INTO line_items (id, order_id, position, product_id, quantity, unit_price)
				VALUES ($1,$2,$3,$4,$5,$6::numeric)`,
				item.ID, o.ID, i, item.ProductID, item.Quantity, item.UnitPrice.String())
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, o.ID, domain.EventOrderPlaced, payload)
	})
	if platform.IsUniqueViolation(err) {
		return domain.Order{}, fmt.Errorf("order %s: %w", o.ID, repository.ErrDuplicate)
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}
	return o, nil
}

// Update persists the status; line items never change after Add.
func (r *Repository) Update(ctx context.Context, o domain.Order) (domain.Order, error) {
	payload, err := json.Marshal(domain.OrderStatusChanged{OrderID: o.ID, Status: o.Status})
	if err != nil {
		return domain.Order{}, fmt.Errorf("marshal status changed: %w", err)
	}

	err = r.inTx(ctx, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, o.ID, string(o.Status))
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return repository.ErrNotFound
		}
		return insertOutbox(ctx, tx, o.ID, domain.EventOrderStatusChanged, payload)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Order{}, fmt.Errorf("order %s: %w", o.ID, err)
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("update order: %w", err)
	}
	return o, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (domain.Order, error) {
	orders, err := r.query(ctx, `WHERE id=$1`, id)
	if err != nil {
		return domain.Order{}, err
	}
	if len(orders) == 0 {
		return domain.Order{}, fmt.Errorf("order %s: %w", id, repository.ErrNotFound)
	}
	return orders[0], nil
}

func (r *Repository) All(ctx context.Context) ([]domain.Order, error) {
	return r.query(ctx, ``)
}

func (r *Repository) Find(ctx context.Context, match func(domain.Order) bool) ([]domain.Order, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	var found []domain.Order
	for _, o := range all {
		if match(o) {
			found = append(found, o)
		}
	}
	return found, nil
}

// FindBetween returns the orders dated in [from, to).
func (r *Repository) FindBetween(ctx context.Context, from, to time.Time) ([]domain.Order, error) {
	return r.query(ctx, `WHERE order_date >= $1 AND order_date < $2`, from.UTC(), to.UTC())
}

func (r *Repository) Commit(context.Context) error { return nil }

func (r *Repository) query(ctx context.Context, where string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, customer_id, order_date, status FROM orders `+where+` ORDER BY order_date, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Order, error) {
		var (
			o      domain.Order
			status string
		)
		if err := row.Scan(&o.ID, &o.CustomerID, &o.OrderDate, &status); err != nil {
			return domain.Order{}, err
		}
		o.OrderDate = o.OrderDate.UTC()
		o.Status = domain.OrderStatus(status)
		return o, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan orders: %w", err)
	}
	if len(orders) == 0 {
		return nil, nil
	}

	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	itemRows, err := r.pool.Query(ctx, `SELECT id, order_id, product_id, quantity, unit_price::text
		FROM line_items WHERE order_id = ANY($1) ORDER BY order_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("query line items: %w", err)
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var (
			item  domain.LineItem
			price string
		)
		if err := itemRows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &price); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		if item.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse unit price %q: %w", price, err)
		}
		i := index[item.OrderID]
		orders[i].LineItems = append(orders[i].LineItems, item)
	}
	return orders, itemRows.Err()
}

func (r *Repository) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertOutbox(ctx context.Context, tx pgx.Tx, orderID, eventType string, payload []byte) error {
	headers := map[string]string{"source": "myshop"}
	_, err := tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,$6,'pending')`,
		aggregateType, orderID, eventType, payload, headers, tracing.Traceparent(ctx))
	return err
}
