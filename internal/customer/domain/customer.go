package domain

import (
	"fmt"

	"github.com/google/uuid"
)

type Customer struct {
	ID              string `json:"customer_id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	ShippingAddress string `json:"shipping_address"`
	City            string `json:"city"`
	PostalCode      string `json:"postal_code"`
	Country         string `json:"country"`
}

func (c Customer) EntityID() string { return c.ID }

// Demo returns a throwaway customer with a unique email, used when a request
// does not carry customer data.
func Demo() Customer {
	id := uuid.NewString()
	return Customer{
		ID:              id,
		Name:            "Demo",
		Email:           fmt.Sprintf("%s@myshop.dev", id),
		ShippingAddress: "Demo",
		City:            "Demo",
		PostalCode:      "Demo",
		Country:         "Sweden",
	}
}
