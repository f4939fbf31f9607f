package domain

import "time"

type ProductType string

const (
	ProductTypeBike ProductType = "bike"
	ProductTypePart ProductType = "part"
)

// LowStockThreshold is the stock level at or below which a product is
// flagged as low stock on detail views.
const LowStockThreshold = 3

type Product struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Price       float64           `json:"price"`
	Stock       int               `json:"stock"`
	Category    string            `json:"category"`
	ImageURL    string            `json:"image_url"`
	Specs       map[string]string `json:"specs,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

func (p *Product) InStock() bool {
	return p.Stock > 0
}

func (p *Product) LowStock() bool {
	return p.Stock > 0 && p.Stock <= LowStockThreshold
}
