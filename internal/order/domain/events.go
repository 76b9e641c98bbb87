package domain

import "github.com/shopspring/decimal"

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type OrderPlaced struct {
	OrderID    string          `json:"order_id"`
	CustomerID string          `json:"customer_id"`
	Status     OrderStatus     `json:"status"`
	Total      decimal.Decimal `json:"total"`
	Items      []LineItem      `json:"items"`
}

type OrderStatusChanged struct {
	OrderID string      `json:"order_id"`
	Status  OrderStatus `json:"status"`
}
