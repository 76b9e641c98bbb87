package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmehra2102/myshop/internal/inventory/domain"
	"github.com/dmehra2102/myshop/pkg/repository"
)

type Catalog struct {
	log      *slog.Logger
	products ProductRepository
	ledger   Ledger
}

func NewCatalog(log *slog.Logger, products ProductRepository, ledger Ledger) *Catalog {
	return &Catalog{log: log, products: products, ledger: ledger}
}

// List returns every product with its stock read from the ledger.
func (c *Catalog) List(ctx context.Context) ([]domain.Product, error) {
	products, err := c.products.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	for i := range products {
		stock, known, err := c.ledger.GetStock(ctx, products[i].ID)
		if err != nil {
			return nil, fmt.Errorf("read stock of %s: %w", products[i].ID, err)
		}
		if known {
			products[i].Stock = stock
		}
	}
	return products, nil
}

// Seed adds the products that are not stored yet and loads every product's
// stock into the ledger.
func (c *Catalog) Seed(ctx context.Context, seed []domain.Product) error {
	for _, p := range seed {
		_, err := c.products.GetByID(ctx, p.ID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			if _, err := c.products.Add(ctx, p); err != nil {
				return fmt.Errorf("seed product %s: %w", p.Name, err)
			}
		case err != nil:
			return fmt.Errorf("seed product %s: %w", p.Name, err)
		}
	}
	if err := c.products.Commit(ctx); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return c.SyncLedger(ctx)
}

// SyncLedger initializes ledger counters from stored snapshots for products
// the ledger does not know yet.
func (c *Catalog) SyncLedger(ctx context.Context) error {
	products, err := c.products.All(ctx)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}
	for _, p := range products {
		_, known, err := c.ledger.GetStock(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("read stock of %s: %w", p.ID, err)
		}
		if known {
			continue
		}
		if err := c.ledger.SetStock(ctx, p.ID, p.Stock); err != nil {
			return fmt.Errorf("init stock of %s: %w", p.ID, err)
		}
		c.log.Info("ledger initialized", "product_id", p.ID, "name", p.Name, "stock", p.Stock)
	}
	return nil
}
