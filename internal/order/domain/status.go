package domain

import "errors"

var ErrIllegalTransition = errors.New("illegal transition of order status")

type OrderStatus string

const (
	StatusOpen              OrderStatus = "open"
	StatusWaitingForPayment OrderStatus = "waiting_for_payment"
	StatusFullyPaid         OrderStatus = "fully_paid"
	StatusCancelled         OrderStatus = "cancelled"
	StatusShipped           OrderStatus = "shipped"
)

var transitions = map[OrderStatus][]OrderStatus{
	StatusOpen:              {StatusWaitingForPayment, StatusCancelled, StatusShipped},
	StatusWaitingForPayment: {StatusFullyPaid, StatusCancelled},
	StatusFullyPaid:         {StatusShipped},
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusShipped
}

func (s OrderStatus) String() string {
	return string(s)
}
