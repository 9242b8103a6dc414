package storefront

import (
	"context"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/events"
)

type LineView struct {
	LineID       string          `json:"line_id"`
	ProductID    string          `json:"product_id"`
	Name         string          `json:"name"`
	Category     domain.Category `json:"category"`
	Price        float64         `json:"price"`
	Quantity     int             `json:"quantity"`
	Stock        int             `json:"stock"`
	Subtotal     float64         `json:"subtotal"`
	InStock      bool            `json:"in_stock"`
	Busy         bool            `json:"busy"`
	CanIncrement bool            `json:"can_increment"`
	CanDecrement bool            `json:"can_decrement"`
}

type CartView struct {
	State    string     `json:"state"`
	Items    []LineView `json:"items"`
	Count    int        `json:"count"`
	Total    float64    `json:"total"`
	Loading  bool       `json:"loading"`
	Clearing bool       `json:"clearing"`
	Stale    bool       `json:"stale,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// CartPage lists the lines with +/- and remove controls.
type CartPage struct {
	dispatcher *cart.Dispatcher
	bus        events.Subscriber
}

func NewCartPage(dispatcher *cart.Dispatcher, bus events.Subscriber) *CartPage {
	return &CartPage{
		dispatcher: dispatcher,
		bus:        bus,
	}
}

// Mount loads the cart and reloads it whenever another component changes it.
// The page's own mutations already refresh, so its own broadcasts are skipped.
func (p *CartPage) Mount(ctx, tabCtx context.Context) func() {
	_, _ = p.dispatcher.Refresh(ctx)
	return p.bus.Subscribe(func(change domain.CartChange) {
		if change.Source == SourceCart {
			return
		}
		_, _ = p.dispatcher.Refresh(tabCtx)
	})
}

func (p *CartPage) Reload(ctx context.Context) (CartView, error) {
	_, err := p.dispatcher.Refresh(ctx)
	return p.View(), err
}

func (p *CartPage) Increment(ctx context.Context, productID string) error {
	line, err := p.line(productID)
	if err != nil {
		return err
	}
	return p.dispatcher.UpdateQuantity(ctx, productID, line.Quantity+1, line.Product.Category)
}

func (p *CartPage) Decrement(ctx context.Context, productID string) error {
	line, err := p.line(productID)
	if err != nil {
		return err
	}
	return p.dispatcher.UpdateQuantity(ctx, productID, line.Quantity-1, line.Product.Category)
}

// SetQuantity falls back to the line's own category when none is given.
func (p *CartPage) SetQuantity(ctx context.Context, productID string, quantity int, category domain.Category) error {
	if category == "" {
		line, err := p.line(productID)
		if err != nil {
			return err
		}
		category = line.Product.Category
	}
	return p.dispatcher.UpdateQuantity(ctx, productID, quantity, category)
}

func (p *CartPage) Add(ctx context.Context, productID string, quantity int, category domain.Category) error {
	return p.dispatcher.AddItem(ctx, productID, quantity, category)
}

func (p *CartPage) Remove(ctx context.Context, productID string) error {
	return p.dispatcher.RemoveItem(ctx, productID)
}

func (p *CartPage) Clear(ctx context.Context) error {
	return p.dispatcher.ClearCart(ctx)
}

func (p *CartPage) View() CartView {
	return renderCart(p.dispatcher)
}

func (p *CartPage) line(productID string) (domain.CartItem, error) {
	line, ok := p.dispatcher.View().Line(productID)
	if !ok {
		return domain.CartItem{}, &cart.ValidationError{Field: "productId", Message: "Item is not in your cart"}
	}
	return line, nil
}

func renderCart(d *cart.Dispatcher) CartView {
	v := d.View()
	out := CartView{
		State:    v.State.String(),
		Items:    make([]LineView, 0, len(v.Items())),
		Count:    v.ItemCount(),
		Total:    v.Total(),
		Loading:  d.Loading(),
		Clearing: d.Clearing(),
		Stale:    v.Stale,
	}
	if v.Err != nil {
		out.Error = v.Err.Error()
	}
	for _, item := range v.Items() {
		out.Items = append(out.Items, LineView{
			LineID:       item.ID,
			ProductID:    item.Product.ID,
			Name:         item.Product.Name,
			Category:     item.Product.Category,
			Price:        item.Product.Price,
			Quantity:     item.Quantity,
			Stock:        item.Product.Stock,
			Subtotal:     item.Subtotal(),
			InStock:      item.Product.Stock > 0,
			Busy:         d.InFlight(item.Product.ID),
			CanIncrement: item.CanIncrement(),
			CanDecrement: item.CanDecrement(),
		})
	}
	return out
}
