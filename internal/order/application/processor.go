package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	custdomain "github.com/dmehra2102/myshop/internal/customer/domain"
	"github.com/dmehra2102/myshop/internal/order/domain"
	"github.com/dmehra2102/myshop/pkg/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Deps struct {
	Validator CustomerValidator
	Products  ProductRepository
	Customers CustomerRepository
	Orders    OrderRepository
	Ledger    Ledger
	Payments  Payments
	// Now defaults to time.Now.
	Now func() time.Time
}

// Processor turns reservation requests into orders. Stock only changes
// through the Ledger; every failure after stock was taken gives it back
// before the error is returned.
type Processor struct {
	log    *slog.Logger
	tracer trace.Tracer
	deps   Deps
	locks  *keyedLocks
}

func NewProcessor(log *slog.Logger, deps Deps) *Processor {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Processor{
		log:    log,
		tracer: otel.Tracer("order-processor"),
		deps:   deps,
		locks:  newKeyedLocks(),
	}
}

// TryReserveProductInStock reserves one unit and records a fully paid order
// for it. Validation runs before the ledger is touched.
func (p *Processor) TryReserveProductInStock(ctx context.Context, productID string, customer *custdomain.Customer) (domain.Result, error) {
	ctx, span := p.tracer.Start(ctx, "TryReserveProductInStock", trace.WithAttributes(attribute.String("product_id", productID)))
	defer span.End()

	if !p.deps.Validator.Validate(ctx, customer) {
		return domain.InvalidCustomer(customer), nil
	}

	product, err := p.deps.Products.GetByID(ctx, productID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NotFound(productID, ""), nil
	}
	if err != nil {
		return domain.Result{}, fmt.Errorf("get product: %w", err)
	}

	remaining, ok, err := p.deps.Ledger.TryReserve(ctx, productID, 1)
	if err != nil {
		return domain.Result{}, fmt.Errorf("reserve stock: %w", err)
	}
	if !ok {
		return domain.OutOfStock(product), nil
	}

	order := domain.NewOrder(customer.ID, domain.StatusFullyPaid, p.deps.Now())
	order.AddLineItem(product.ID, 1, product.Price)

	if err := p.persist(ctx, &order); err != nil {
		span.RecordError(err)
		p.release(ctx, map[string]int{productID: 1})
		return domain.Result{}, err
	}
	return domain.Succeeded(order, remaining), nil
}

// Reserve is the deferred variant: the order waits for payment and the
// stock check, decrement and snapshot update run inside the product's
// section. Different products do not wait for each other.
func (p *Processor) Reserve(ctx context.Context, productID string, customer *custdomain.Customer) (domain.Result, error) {
	ctx, span := p.tracer.Start(ctx, "Reserve", trace.WithAttributes(attribute.String("product_id", productID)))
	defer span.End()

	valid, err := p.deps.Validator.ValidateContext(ctx, customer)
	if err != nil {
		return domain.Result{}, fmt.Errorf("validate customer: %w", err)
	}
	if !valid {
		return domain.InvalidCustomer(customer), nil
	}

	product, err := p.deps.Products.GetByID(ctx, productID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NotFound(productID, ""), nil
	}
	if err != nil {
		return domain.Result{}, fmt.Errorf("get product: %w", err)
	}

	unlock := p.locks.Lock(productKey(productID))
	defer unlock()

	stock, known, err := p.deps.Ledger.GetStock(ctx, productID)
	if err != nil {
		return domain.Result{}, fmt.Errorf("read stock: %w", err)
	}
	if !known || stock <= 0 {
		return domain.OutOfStock(product), nil
	}

	order := domain.NewOrder(customer.ID, domain.StatusWaitingForPayment, p.deps.Now())
	order.AddLineItem(product.ID, 1, product.Price)
	if _, err := p.deps.Orders.Add(ctx, order); err != nil {
		return domain.Result{}, fmt.Errorf("add order: %w", err)
	}

	remaining, ok, err := p.deps.Ledger.TryReserve(ctx, productID, 1)
	if err != nil {
		p.abandon(ctx, &order)
		return domain.Result{}, fmt.Errorf("reserve stock: %w", err)
	}
	if !ok {
		p.abandon(ctx, &order)
		return domain.OutOfStock(product), nil
	}

	product.Stock = remaining
	if _, err := p.deps.Products.Update(ctx, product); err != nil {
		p.abandon(ctx, &order)
		p.release(ctx, map[string]int{productID: 1})
		return domain.Result{}, fmt.Errorf("update product: %w", err)
	}
	if err := p.deps.Orders.Commit(ctx); err != nil {
		p.abandon(ctx, &order)
		p.release(ctx, map[string]int{productID: 1})
		return domain.Result{}, fmt.Errorf("commit order: %w", err)
	}
	return domain.Succeeded(order, remaining), nil
}

// persist stores a new order whose stock is already taken. When the commit
// fails after the add, the stored order is abandoned before returning so a
// later cancel cannot release its stock a second time. The caller still
// owns releasing the reserved quantities.
func (p *Processor) persist(ctx context.Context, order *domain.Order) error {
	unlock := p.locks.Lock(orderKey(order.ID))
	defer unlock()

	if _, err := p.deps.Orders.Add(ctx, *order); err != nil {
		return fmt.Errorf("add order: %w", err)
	}
	if err := p.deps.Orders.Commit(ctx); err != nil {
		p.abandon(ctx, order)
		return fmt.Errorf("commit order: %w", err)
	}
	return nil
}

// release gives reserved quantities back. It runs on the compensation path,
// so it ignores cancellation of ctx and only logs its own failures.
func (p *Processor) release(ctx context.Context, quantities map[string]int) {
	ctx = context.WithoutCancel(ctx)
	for productID, qty := range quantities {
		if err := p.deps.Ledger.Release(ctx, productID, qty); err != nil {
			p.log.Error("stock release failed", "product_id", productID, "quantity", qty, "err", err)
		}
	}
}

// abandon cancels an order that was stored before its stock could be
// secured. Failures are logged only.
func (p *Processor) abandon(ctx context.Context, order *domain.Order) {
	ctx = context.WithoutCancel(ctx)
	order.Abandon()
	if _, err := p.deps.Orders.Update(ctx, *order); err != nil {
		p.log.Error("abandon order", "order_id", order.ID, "err", err)
		return
	}
	if err := p.deps.Orders.Commit(ctx); err != nil {
		p.log.Error("abandon order", "order_id", order.ID, "err", err)
	}
}

func productKey(id string) string { return "product:" + id }
func orderKey(id string) string   { return "order:" + id }
