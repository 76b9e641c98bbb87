package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Stock is a snapshot of the ledger counter at
// the time the product was read or last written; the ledger owns the value.
type Product struct {
	ID    string          `json:"product_id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

func NewProduct(name string, price decimal.Decimal, stock int) Product {
	return Product{
		ID:    uuid.NewString(),
		Name:  name,
		Price: price,
		Stock: stock,
	}
}

func (p Product) EntityID() string { return p.ID }

// DemoCameraID is the fixed identifier of the seeded camera.
const DemoCameraID = "d2dae150-9a29-4c78-b912-68ed66b056f0"

// DemoProducts is the seed catalog used in development.
func DemoProducts() []Product {
	camera := NewProduct("Camera", decimal.RequireFromString("4990.99"), 12)
	camera.ID = DemoCameraID
	return []Product{
		camera,
		NewProduct("Microphone", decimal.RequireFromString("199.99"), 3),
		NewProduct("Laptop", decimal.RequireFromString("2999.99"), 1),
	}
}
