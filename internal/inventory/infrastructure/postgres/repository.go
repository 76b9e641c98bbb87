package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmehra2102/myshop/internal/inventory/domain"
	platform "github.com/dmehra2102/myshop/internal/platform/postgres"
	"github.com/dmehra2102/myshop/pkg/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const productColumns = `id, name, price::text, stock`

// ProductRepository stores products. When the Postgres Ledger owns the
// stock column, Update leaves it alone; with the ledger elsewhere it writes
// the snapshot (see WithStockSnapshots).
type ProductRepository struct {
	log            *slog.Logger
	pool           *pgxpool.Pool
	writeSnapshots bool
}

type ProductOption func(*ProductRepository)

// WithStockSnapshots makes Update persist Product.Stock.
func WithStockSnapshots() ProductOption {
	return func(r *ProductRepository) { r.writeSnapshots = true }
}

func NewProductRepository(log *slog.Logger, pool *pgxpool.Pool, opts ...ProductOption) *ProductRepository {
	r := &ProductRepository{log: log, pool: pool}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *ProductRepository) Add(ctx context.Context, p domain.Product) (domain.Product, error) {
	_, err := r.pool.Exec(ctx, `INSERT INTO products (id, name, price, stock) VALUES ($1,$2,$3::numeric,$4)`,
		p.ID, p.Name, p.Price.String(), p.Stock)
	if platform.IsUniqueViolation(err) {
		return domain.Product{}, fmt.Errorf("product %s: %w", p.ID, repository.ErrDuplicate)
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (domain.Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, fmt.Errorf("product %s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *ProductRepository) All(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *ProductRepository) Find(ctx context.Context, match func(domain.Product) bool) ([]domain.Product, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	var found []domain.Product
	for _, p := range all {
		if match(p) {
			found = append(found, p)
		}
	}
	return found, nil
}

func (r *ProductRepository) Update(ctx context.Context, p domain.Product) (domain.Product, error) {
	query := `UPDATE products SET name=$2, price=$3::numeric WHERE id=$1`
	args := []any{p.ID, p.Name, p.Price.String()}
	if r.writeSnapshots {
		query = `UPDATE products SET name=$2, price=$3::numeric, stock=$4 WHERE id=$1`
		args = append(args, max(p.Stock, 0))
	}
	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return domain.Product{}, fmt.Errorf("update product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.Product{}, fmt.Errorf("product %s: %w", p.ID, repository.ErrNotFound)
	}
	return p, nil
}

func (r *ProductRepository) Commit(context.Context) error { return nil }

func scanProduct(row pgx.Row) (domain.Product, error) {
	var (
		p     domain.Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &price, &p.Stock); err != nil {
		return domain.Product{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return domain.Product{}, fmt.Errorf("parse price %q: %w", price, err)
	}
	p.Price = d
	return p, nil
}
