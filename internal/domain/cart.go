package domain

import "time"

// Cart is one browser session's pending purchase. Name, price and image are
// snapshots taken when the item was added, not live references to the catalog.
type Cart struct {
	SessionID string     `bson:"session_id" json:"session_id"`
	Items     []CartItem `bson:"items" json:"items"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
}

type CartItem struct {
	ProductID   int64       `bson:"product_id" json:"product_id"`
	ProductType ProductType `bson:"product_type" json:"product_type"`
	Name        string      `bson:"name" json:"name"`
	Price       float64     `bson:"price" json:"price"`
	ImageURL    string      `bson:"image_url" json:"image_url"`
	Quantity    int         `bson:"quantity" json:"quantity"`
	AddedAt     time.Time   `bson:"added_at" json:"added_at"`
}

// AddProduct merges a product into the cart: an existing entry with the same
// product id gets its quantity bumped by one, otherwise a new item with
// quantity 1 is appended. Insertion order is preserved for display.
func (c *Cart) AddProduct(p *Product, typ ProductType, now time.Time) {
	for i := range c.Items {
		if c.Items[i].ProductID == p.ID {
			c.Items[i].Quantity++
			return
		}
	}
	c.Items = append(c.Items, CartItem{
		ProductID:   p.ID,
		ProductType: typ,
		Name:        p.Name,
		Price:       p.Price,
		ImageURL:    p.ImageURL,
		Quantity:    1,
		AddedAt:     now,
	})
}

// SetQuantity clamps to a minimum of 1. Unknown ids are a no-op.
func (c *Cart) SetQuantity(productID int64, quantity int) {
	if quantity < 1 {
		quantity = 1
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			return
		}
	}
}

// RemoveProduct drops the item with the given id. Unknown ids are a no-op.
func (c *Cart) RemoveProduct(productID int64) {
	for i, item := range c.Items {
		if item.ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return
		}
	}
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c *Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}
