package application

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/dmehra2102/myshop/internal/customer/domain"
)

// ShippingValidator decides whether an address can be shipped to.
type ShippingValidator interface {
	ValidateShippingAddress(address, postalCode, country string) bool
	ValidateShippingAddressContext(ctx context.Context, address, postalCode, country string) (bool, error)
}

// Validator applies the customer field rules and then asks the shipping
// validator. Validate and ValidateContext reach the same decision for the
// same customer.
type Validator struct {
	shipping ShippingValidator
}

func NewValidator(shipping ShippingValidator) *Validator {
	return &Validator{shipping: shipping}
}

// Validate is the blocking variant.
func (v *Validator) Validate(_ context.Context, c *domain.Customer) bool {
	if !validFields(c) {
		return false
	}
	return v.shipping.ValidateShippingAddress(c.ShippingAddress, c.PostalCode, c.Country)
}

// ValidateContext is the suspending variant. An error means the check could
// not be made, not that the customer is invalid.
func (v *Validator) ValidateContext(ctx context.Context, c *domain.Customer) (bool, error) {
	if !validFields(c) {
		return false, nil
	}
	return v.shipping.ValidateShippingAddressContext(ctx, c.ShippingAddress, c.PostalCode, c.Country)
}

func validFields(c *domain.Customer) bool {
	switch {
	case c == nil:
		return false
	case utf8.RuneCountInString(c.Name) < 2:
		return false
	case strings.TrimSpace(c.Email) == "":
		return false
	case c.ShippingAddress == "":
		return false
	case strings.TrimSpace(c.Country) == "":
		return false
	case strings.TrimSpace(c.PostalCode) == "":
		return false
	}
	return true
}
