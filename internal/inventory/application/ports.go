package application

import (
	"context"

	"github.com/dmehra2102/myshop/internal/inventory/domain"
	"github.com/dmehra2102/myshop/pkg/repository"
)

// Ledger owns the authoritative stock counter of every product.
type Ledger interface {
	// TryReserve takes quantity units iff at least that many are left,
	// atomically with respect to every other caller for the same product.
	// Unknown products have no stock.
	TryReserve(ctx context.Context, productID string, quantity int) (remaining int, ok bool, err error)
	// Release gives back units taken by TryReserve.
	Release(ctx context.Context, productID string, quantity int) error
	// GetStock reads the latest committed value. It is never a substitute
	// for TryReserve.
	GetStock(ctx context.Context, productID string) (stock int, known bool, err error)
	SetStock(ctx context.Context, productID string, stock int) error
}

type ProductRepository = repository.Repository[domain.Product]
