package cart

import "github.com/fjod/go_cart/storefront/internal/domain"

type State int

const (
	StateNotLoaded State = iota
	StateEmpty
	StateLoaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "not_loaded"
	}
}

// View is a cart snapshot as a component sees it. Stale is set when the last
// refresh failed and Cart still holds the previous snapshot.
type View struct {
	State State
	Cart  *domain.Cart
	Stale bool
	Err   error
}

func (v View) Items() []domain.CartItem {
	if v.Cart == nil {
		return nil
	}
	return v.Cart.Items
}

// ItemCount is the navbar badge number: the sum of line quantities.
func (v View) ItemCount() int {
	n := 0
	for _, item := range v.Items() {
		n += item.Quantity
	}
	return n
}

func (v View) Total() float64 {
	total := 0.0
	for _, item := range v.Items() {
		total += item.Subtotal()
	}
	return total
}

// Line finds the line for productID.
func (v View) Line(productID string) (domain.CartItem, bool) {
	for _, item := range v.Items() {
		if item.Product.ID == productID {
			return item, true
		}
	}
	return domain.CartItem{}, false
}
