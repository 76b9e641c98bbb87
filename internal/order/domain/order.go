package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Order struct {
	ID         string      `json:"order_id"`
	CustomerID string      `json:"customer_id"`
	OrderDate  time.Time   `json:"order_date"`
	Status     OrderStatus `json:"status"`
	LineItems  []LineItem  `json:"line_items"`
}

// LineItem refers to its product and order by id only. UnitPrice is the
// product price captured when the item was added.
type LineItem struct {
	ID        string          `json:"line_item_id"`
	OrderID   string          `json:"order_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func NewOrder(customerID string, status OrderStatus, now time.Time) Order {
	return Order{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		OrderDate:  now.UTC(),
		Status:     status,
	}
}

func (o Order) EntityID() string { return o.ID }

func (o *Order) AddLineItem(productID string, quantity int, unitPrice decimal.Decimal) LineItem {
	item := LineItem{
		ID:        uuid.NewString(),
		OrderID:   o.ID,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	}
	o.LineItems = append(o.LineItems, item)
	return item
}

func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.LineItems {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// TransitionTo moves the order forward; the status never goes back.
func (o *Order) TransitionTo(next OrderStatus) error {
	if !o.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, o.Status, next)
	}
	o.Status = next
	return nil
}

// Abandon cancels an order whose stock was never secured, whatever its
// status. It is only meant for orders that failed to persist.
func (o *Order) Abandon() {
	o.Status = StatusCancelled
}

// Clone returns a copy that shares no line item storage with o.
func (o Order) Clone() Order {
	o.LineItems = slices.Clone(o.LineItems)
	return o
}

// Quantities sums line quantities per product.
func (o Order) Quantities() map[string]int {
	q := make(map[string]int, len(o.LineItems))
	for _, item := range o.LineItems {
		q[item.ProductID] += item.Quantity
	}
	return q
}
