package domain

const (
	EventPaymentConfirmed = "PaymentConfirmed"
	EventPaymentFailed    = "PaymentFailed"
)

// PaymentConfirmed is published by the payment provider once the money for
// an order has been captured.
type PaymentConfirmed struct {
	OrderID   string `json:"order_id"`
	Reference string `json:"payment_reference"`
	Type      Type   `json:"type,omitempty"`
}

type PaymentFailed struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}
