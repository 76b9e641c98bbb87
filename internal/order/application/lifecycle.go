package application

import (
	"context"
	"errors"
	"fmt"
	"slices"

	custdomain "github.com/dmehra2102/myshop/internal/customer/domain"
	invdomain "github.com/dmehra2102/myshop/internal/inventory/domain"
	"github.com/dmehra2102/myshop/internal/order/domain"
	paydomain "github.com/dmehra2102/myshop/internal/payment/domain"
	"github.com/dmehra2102/myshop/pkg/repository"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	ReasonNoItems          = "Order has no items"
	ReasonBadQuantity      = "Quantity must be positive"
	ReasonBadPaymentType   = "Payment type is not supported"
	ReasonInvalidReference = "Payment reference is not valid"
)

type Item struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type PlaceOrder struct {
	Customer    custdomain.Customer `json:"customer"`
	Items       []Item              `json:"items"`
	PaymentType string              `json:"payment_type"`
}

// PlaceOrder reserves every item of a cart at once. Unknown products are
// skipped; if any known product is short, nothing is reserved.
func (p *Processor) PlaceOrder(ctx context.Context, req PlaceOrder) (domain.Result, error) {
	ctx, span := p.tracer.Start(ctx, "PlaceOrder")
	defer span.End()

	payType, err := paydomain.ParseType(req.PaymentType)
	if err != nil {
		return domain.Invalid("", ReasonBadPaymentType), nil
	}

	valid, err := p.deps.Validator.ValidateContext(ctx, &req.Customer)
	if err != nil {
		return domain.Result{}, fmt.Errorf("validate customer: %w", err)
	}
	if !valid {
		return domain.InvalidCustomer(&req.Customer), nil
	}

	wanted := make(map[string]int, len(req.Items))
	var ids []string
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return domain.Invalid("", ReasonBadQuantity), nil
		}
		if _, seen := wanted[item.ProductID]; !seen {
			ids = append(ids, item.ProductID)
		}
		wanted[item.ProductID] += item.Quantity
	}

	products := make(map[string]invdomain.Product, len(ids))
	for _, id := range ids {
		product, err := p.deps.Products.GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			p.log.Warn("unknown product skipped", "product_id", id)
			continue
		}
		if err != nil {
			return domain.Result{}, fmt.Errorf("get product: %w", err)
		}
		products[id] = product
	}
	if len(products) == 0 {
		return domain.Invalid("", ReasonNoItems), nil
	}

	customer, err := p.resolveCustomer(ctx, req.Customer)
	if err != nil {
		return domain.Result{}, err
	}

	order := domain.NewOrder(customer.ID, domain.StatusOpen, p.deps.Now())
	for _, id := range ids {
		if product, ok := products[id]; ok {
			order.AddLineItem(id, wanted[id], product.Price)
		}
	}
	next := domain.StatusWaitingForPayment
	if payType == paydomain.TypeInvoice {
		next = domain.StatusShipped
	}
	if err := order.TransitionTo(next); err != nil {
		return domain.Result{}, err
	}
	span.SetAttributes(attribute.String("order_id", order.ID), attribute.String("status", string(order.Status)))

	quantities := order.Quantities()
	keys := make([]string, 0, len(quantities))
	for id := range quantities {
		keys = append(keys, id)
	}
	slices.Sort(keys)

	lockKeys := make([]string, len(keys))
	for i, id := range keys {
		lockKeys[i] = productKey(id)
	}
	unlock := p.locks.LockAll(lockKeys)
	defer unlock()

	taken := make(map[string]int, len(keys))
	for _, id := range keys {
		_, ok, err := p.deps.Ledger.TryReserve(ctx, id, quantities[id])
		if err != nil {
			p.release(ctx, taken)
			return domain.Result{}, fmt.Errorf("reserve stock: %w", err)
		}
		if !ok {
			p.release(ctx, taken)
			return domain.OutOfStock(products[id]), nil
		}
		taken[id] = quantities[id]
	}

	if err := p.persist(ctx, &order); err != nil {
		span.RecordError(err)
		p.release(ctx, taken)
		return domain.Result{}, err
	}
	p.log.Info("order placed", "order_id", order.ID, "customer_id", customer.ID, "status", order.Status, "total", order.Total().String())
	return domain.Succeeded(order, 0), nil
}

// resolveCustomer returns the stored customer with the same email, adding c
// when there is none.
func (p *Processor) resolveCustomer(ctx context.Context, c custdomain.Customer) (custdomain.Customer, error) {
	var (
		found custdomain.Customer
		err   error
	)
	if f, ok := p.deps.Customers.(emailFinder); ok {
		found, err = f.FindByEmail(ctx, c.Email)
	} else {
		found, err = repository.First(ctx, p.deps.Customers, func(s custdomain.Customer) bool {
			return s.Email == c.Email
		})
	}
	if err == nil {
		return found, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return custdomain.Customer{}, fmt.Errorf("find customer: %w", err)
	}

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, err := p.deps.Customers.Add(ctx, c); err != nil {
		return custdomain.Customer{}, fmt.Errorf("add customer: %w", err)
	}
	if err := p.deps.Customers.Commit(ctx); err != nil {
		return custdomain.Customer{}, fmt.Errorf("commit customer: %w", err)
	}
	return c, nil
}

// FinalizeOrder settles an order waiting for payment and ships it.
func (p *Processor) FinalizeOrder(ctx context.Context, orderID, paymentReference string) (domain.Result, error) {
	ctx, span := p.tracer.Start(ctx, "FinalizeOrder", trace.WithAttributes(attribute.String("order_id", orderID)))
	defer span.End()

	unlock := p.locks.Lock(orderKey(orderID))
	defer unlock()

	order, err := p.deps.Orders.GetByID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NotFound("", orderID), nil
	}
	if err != nil {
		return domain.Result{}, fmt.Errorf("get order: %w", err)
	}
	order = order.Clone()

	if !p.deps.Payments.ValidateReference(paymentReference) {
		return domain.Invalid(orderID, ReasonInvalidReference), nil
	}
	before := order.Clone()
	if err := order.TransitionTo(domain.StatusFullyPaid); err != nil {
		return domain.Invalid(orderID, err.Error()), nil
	}
	if err := order.TransitionTo(domain.StatusShipped); err != nil {
		return domain.Result{}, err
	}

	// Order first, payment second. Either failure puts the order back.
	if err := p.save(ctx, order); err != nil {
		p.restore(ctx, before)
		return domain.Result{}, err
	}
	if _, err := p.deps.Payments.Record(ctx, order, paydomain.TypeCreditCard, paymentReference); err != nil {
		p.restore(ctx, before)
		return domain.Result{}, fmt.Errorf("record payment: %w", err)
	}
	p.log.Info("order finalized", "order_id", orderID, "payment_reference", paymentReference)
	return domain.Succeeded(order, 0), nil
}

// CancelOrder cancels an order and returns its quantities to stock.
func (p *Processor) CancelOrder(ctx context.Context, orderID, reason string) (domain.Result, error) {
	ctx, span := p.tracer.Start(ctx, "CancelOrder", trace.WithAttributes(attribute.String("order_id", orderID)))
	defer span.End()

	unlock := p.locks.Lock(orderKey(orderID))
	defer unlock()

	order, err := p.deps.Orders.GetByID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NotFound("", orderID), nil
	}
	if err != nil {
		return domain.Result{}, fmt.Errorf("get order: %w", err)
	}
	order = order.Clone()

	if err := order.TransitionTo(domain.StatusCancelled); err != nil {
		return domain.Invalid(orderID, err.Error()), nil
	}
	if err := p.save(ctx, order); err != nil {
		return domain.Result{}, err
	}

	for productID, qty := range order.Quantities() {
		if err := p.deps.Ledger.Release(context.WithoutCancel(ctx), productID, qty); err != nil {
			return domain.Result{}, fmt.Errorf("release stock of cancelled order %s: %w", orderID, err)
		}
	}
	p.log.Info("order cancelled", "order_id", orderID, "reason", reason)
	return domain.Succeeded(order, 0), nil
}

func (p *Processor) GetOrder(ctx context.Context, orderID string) (domain.Result, error) {
	order, err := p.deps.Orders.GetByID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NotFound("", orderID), nil
	}
	if err != nil {
		return domain.Result{}, fmt.Errorf("get order: %w", err)
	}
	return domain.Succeeded(order, 0), nil
}

// restore writes back an order snapshot taken before a failed change.
// Failures are logged only.
func (p *Processor) restore(ctx context.Context, order domain.Order) {
	if err := p.save(context.WithoutCancel(ctx), order); err != nil {
		p.log.Error("restore order", "order_id", order.ID, "status", order.Status, "err", err)
	}
}

func (p *Processor) save(ctx context.Context, order domain.Order) error {
	if _, err := p.deps.Orders.Update(ctx, order); err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if err := p.deps.Orders.Commit(ctx); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	return nil
}
