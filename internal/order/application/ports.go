package application

import (
	"context"

	custdomain "github.com/dmehra2102/myshop/internal/customer/domain"
	invapp "github.com/dmehra2102/myshop/internal/inventory/application"
	invdomain "github.com/dmehra2102/myshop/internal/inventory/domain"
	"github.com/dmehra2102/myshop/internal/order/domain"
	paydomain "github.com/dmehra2102/myshop/internal/payment/domain"
	"github.com/dmehra2102/myshop/pkg/repository"
)

type (
	OrderRepository    = repository.Repository[domain.Order]
	ProductRepository  = repository.Repository[invdomain.Product]
	CustomerRepository = repository.Repository[custdomain.Customer]
	Ledger             = invapp.Ledger
)

type CustomerValidator interface {
	Validate(ctx context.Context, c *custdomain.Customer) bool
	ValidateContext(ctx context.Context, c *custdomain.Customer) (bool, error)
}

type Payments interface {
	ValidateReference(ref string) bool
	Record(ctx context.Context, o domain.Order, t paydomain.Type, ref string) (paydomain.Payment, error)
}

// emailFinder is implemented by customer stores that can look up by email
// without a scan.
type emailFinder interface {
	FindByEmail(ctx context.Context, email string) (custdomain.Customer, error)
}
