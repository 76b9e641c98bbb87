package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmehra2102/myshop/internal/payment/domain"
	platform "github.com/dmehra2102/myshop/internal/platform/postgres"
	"github.com/dmehra2102/myshop/pkg/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const paymentColumns = `id, order_id, amount::text, type, status, reference, created_at`

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Add(ctx context.Context, p domain.Payment) (domain.Payment, error) {
	_, err := r.pool.Exec(ctx, `INSERT INTO payments (id, order_id, amount, type, status, reference, created_at)
		VALUES ($1,$2,$3::numeric,$4,$5,$6,$7)`,
		p.ID, p.OrderID, p.Amount.String(), string(p.Type), string(p.Status), p.Reference, p.CreatedAt)
	if platform.IsUniqueViolation(err) {
		return domain.Payment{}, fmt.Errorf("payment %s: %w", p.ID, repository.ErrDuplicate)
	}
	if err != nil {
		return domain.Payment{}, fmt.Errorf("insert payment: %w", err)
	}
	return p, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (domain.Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1`, id)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("get payment: %w", err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPayment)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Payment{}, fmt.Errorf("payment %s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return domain.Payment{}, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

func (r *Repository) All(ctx context.Context) ([]domain.Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+paymentColumns+` FROM payments ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	payments, err := pgx.CollectRows(rows, scanPayment)
	if err != nil {
		return nil, fmt.Errorf("scan payments: %w", err)
	}
	return payments, nil
}

func (r *Repository) Find(ctx context.Context, match func(domain.Payment) bool) ([]domain.Payment, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	var found []domain.Payment
	for _, p := range all {
		if match(p) {
			found = append(found, p)
		}
	}
	return found, nil
}

func (r *Repository) Update(ctx context.Context, p domain.Payment) (domain.Payment, error) {
	ct, err := r.pool.Exec(ctx, `UPDATE payments SET status=$2, reference=$3 WHERE id=$1`, p.ID, string(p.Status), p.Reference)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("update payment: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.Payment{}, fmt.Errorf("payment %s: %w", p.ID, repository.ErrNotFound)
	}
	return p, nil
}

func (r *Repository) Commit(context.Context) error { return nil }

func scanPayment(row pgx.CollectableRow) (domain.Payment, error) {
	var (
		p           domain.Payment
		amount      string
		typ, status string
	)
	if err := row.Scan(&p.ID, &p.OrderID, &amount, &typ, &status, &p.Reference, &p.CreatedAt); err != nil {
		return domain.Payment{}, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	p.Amount = d
	p.Type = domain.Type(typ)
	p.Status = domain.Status(status)
	return p, nil
}
