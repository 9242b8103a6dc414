package storefront

import (
	"context"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

// ProductGrid is the catalog listing with one add-to-cart button per product.
type ProductGrid struct {
	dispatcher *cart.Dispatcher
}

func NewProductGrid(dispatcher *cart.Dispatcher) *ProductGrid {
	return &ProductGrid{dispatcher: dispatcher}
}

// AddToCart adds a single unit.
func (g *ProductGrid) AddToCart(ctx context.Context, productID string, category domain.Category) error {
	return g.dispatcher.AddItem(ctx, productID, 1, category)
}

// Busy reports whether the button for productID should be disabled.
func (g *ProductGrid) Busy(productID string) bool {
	return g.dispatcher.InFlight(productID)
}
