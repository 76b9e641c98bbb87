package domain

import (
	custdomain "github.com/dmehra2102/myshop/internal/customer/domain"
	invdomain "github.com/dmehra2102/myshop/internal/inventory/domain"
)

type FailureKind string

const (
	FailureNotFound   FailureKind = "not_found"
	FailureValidation FailureKind = "validation"
	FailureOutOfStock FailureKind = "out_of_stock"
)

const (
	ReasonInvalidCustomer = "Customer data is not valid"
	ReasonOutOfStock      = "Out of stock"
)

// Failure is an expected business outcome, not a fault.
type Failure struct {
	Kind      FailureKind          `json:"kind"`
	ProductID string               `json:"product_id,omitempty"`
	OrderID   string               `json:"order_id,omitempty"`
	Product   *invdomain.Product   `json:"product,omitempty"`
	Customer  *custdomain.Customer `json:"customer,omitempty"`
	Reasons   []string             `json:"reasons,omitempty"`
}

// IsValidation reports whether f is a validation failure; running out of
// stock is one.
func (f Failure) IsValidation() bool {
	return f.Kind == FailureValidation || f.Kind == FailureOutOfStock
}

// Result is the outcome of a reservation or lifecycle operation: either an
// order (with the remaining stock when one product was reserved) or a Failure.
type Result struct {
	Order     *Order
	Remaining int
	Failure   *Failure
}

func (r Result) OK() bool { return r.Failure == nil }

func Succeeded(o Order, remaining int) Result {
	return Result{Order: &o, Remaining: remaining}
}

func Failed(f Failure) Result {
	return Result{Failure: &f}
}

func NotFound(productID, orderID string) Result {
	return Failed(Failure{Kind: FailureNotFound, ProductID: productID, OrderID: orderID})
}

func InvalidCustomer(c *custdomain.Customer) Result {
	return Failed(Failure{Kind: FailureValidation, Customer: c, Reasons: []string{ReasonInvalidCustomer}})
}

func OutOfStock(p invdomain.Product) Result {
	return Failed(Failure{Kind: FailureOutOfStock, ProductID: p.ID, Product: &p, Reasons: []string{ReasonOutOfStock}})
}

// OutOfStockFor is OutOfStock when only the product id is known.
func OutOfStockFor(productID string) Result {
	return Failed(Failure{Kind: FailureOutOfStock, ProductID: productID, Reasons: []string{ReasonOutOfStock}})
}

// Invalid is a validation failure of an existing order.
func Invalid(orderID string, reasons ...string) Result {
	return Failed(Failure{Kind: FailureValidation, OrderID: orderID, Reasons: reasons})
}
