package domain

import "time"

// Cart is the backend's view of one user's cart. It is only ever read by the
// storefront; mutations go through line-item requests.
type Cart struct {
	ID        string     `json:"_id"`
	UserID    string     `json:"user"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type CartItem struct {
	ID       string  `json:"_id"`
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Product is the product snapshot embedded in a cart line.
type Product struct {
	ID       string   `json:"_id"`
	Name     string   `json:"name"`
	Price    float64  `json:"price"`
	Stock    int      `json:"stock"`
	Category Category `json:"category"`
}

// Subtotal is unit price times quantity.
func (i CartItem) Subtotal() float64 {
	return i.Product.Price * float64(i.Quantity)
}

// CanIncrement reports whether one more unit fits in the last known stock.
func (i CartItem) CanIncrement() bool {
	return i.Quantity < i.Product.Stock
}

// CanDecrement reports whether the quantity can drop without removing the line.
func (i CartItem) CanDecrement() bool {
	return i.Quantity > 1
}
