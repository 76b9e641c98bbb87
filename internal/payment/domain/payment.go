package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeCash       Type = "cash"
	TypeInvoice    Type = "invoice"
	TypeCreditCard Type = "credit_card"
)

// ParseType accepts the known payment types; empty means credit card.
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case "":
		return TypeCreditCard, nil
	case TypeCash, TypeInvoice, TypeCreditCard:
		return t, nil
	default:
		return "", fmt.Errorf("unknown payment type %q", s)
	}
}

type Status string

const (
	StatusInitialized Status = "initialized"
	StatusTimeout     Status = "timeout"
	StatusFinalized   Status = "finalized"
)

type Payment struct {
	ID        string          `json:"payment_id"`
	OrderID   string          `json:"order_id"`
	Amount    decimal.Decimal `json:"amount"`
	Type      Type            `json:"type"`
	Status    Status          `json:"status"`
	Reference string          `json:"reference"`
	CreatedAt time.Time       `json:"created_at"`
}

func NewPayment(orderID string, amount decimal.Decimal, t Type, reference string, now time.Time) Payment {
	return Payment{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		Amount:    amount,
		Type:      t,
		Status:    StatusInitialized,
		Reference: reference,
		CreatedAt: now.UTC(),
	}
}

func (p Payment) EntityID() string { return p.ID }
