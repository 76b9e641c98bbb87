package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmehra2102/myshop/internal/customer/domain"
	platform "github.com/dmehra2102/myshop/internal/platform/postgres"
	"github.com/dmehra2102/myshop/pkg/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const customerColumns = `id, name, email, shipping_address, city, postal_code, country`

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Add(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	_, err := r.pool.Exec(ctx, `INSERT INTO customers (`+customerColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		c.ID, c.Name, c.Email, c.ShippingAddress, c.City, c.PostalCode, c.Country)
	if platform.IsUniqueViolation(err) {
		return domain.Customer{}, fmt.Errorf("customer %s: %w", c.ID, repository.ErrDuplicate)
	}
	if err != nil {
		return domain.Customer{}, fmt.Errorf("insert customer: %w", err)
	}
	return c, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (domain.Customer, error) {
	var c domain.Customer
	err := r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id=$1`, id).
		Scan(&c.ID, &c.Name, &c.Email, &c.ShippingAddress, &c.City, &c.PostalCode, &c.Country)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Customer{}, fmt.Errorf("customer %s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return domain.Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func (r *Repository) All(ctx context.Context) ([]domain.Customer, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	customers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Customer, error) {
		var c domain.Customer
		err := row.Scan(&c.ID, &c.Name, &c.Email, &c.ShippingAddress, &c.City, &c.PostalCode, &c.Country)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan customers: %w", err)
	}
	return customers, nil
}

// Find loads every customer and filters in process. The lookup by email
// goes through FindByEmail instead.
func (r *Repository) Find(ctx context.Context, match func(domain.Customer) bool) ([]domain.Customer, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	var found []domain.Customer
	for _, c := range all {
		if match(c) {
			found = append(found, c)
		}
	}
	return found, nil
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (domain.Customer, error) {
	var c domain.Customer
	err := r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE email=$1 ORDER BY id LIMIT 1`, email).
		Scan(&c.ID, &c.Name, &c.Email, &c.ShippingAddress, &c.City, &c.PostalCode, &c.Country)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Customer{}, repository.ErrNotFound
	}
	if err != nil {
		return domain.Customer{}, fmt.Errorf("find customer by email: %w", err)
	}
	return c, nil
}

func (r *Repository) Update(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	ct, err := r.pool.Exec(ctx, `UPDATE customers SET name=$2, email=$3, shipping_address=$4, city=$5, postal_code=$6, country=$7 WHERE id=$1`,
		c.ID, c.Name, c.Email, c.ShippingAddress, c.City, c.PostalCode, c.Country)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("update customer: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.Customer{}, fmt.Errorf("customer %s: %w", c.ID, repository.ErrNotFound)
	}
	return c, nil
}

func (r *Repository) Commit(context.Context) error { return nil }
