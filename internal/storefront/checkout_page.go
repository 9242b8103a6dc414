package storefront

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/events"
	"github.com/fjod/go_cart/storefront/internal/notify"
)

var ErrOrderInFlight = errors.New("order is already being placed")

const msgOrderFailed = "Failed to place order"

type orderPlacer interface {
	ConfirmOrder(ctx context.Context, token string, req domain.OrderRequest) (*domain.Order, error)
}

// CheckoutPage shows the cart summary and places cash-on-delivery orders.
type CheckoutPage struct {
	dispatcher *cart.Dispatcher
	orders     orderPlacer
	store      *cart.Store
	bus        events.Subscriber
	notifier   notify.Notifier
	publisher  events.Publisher

	mu         sync.Mutex
	opened     bool
	submitting bool
	lastOrder  *domain.Order
}

func NewCheckoutPage(
	dispatcher *cart.Dispatcher,
	orders orderPlacer,
	store *cart.Store,
	bus events.Subscriber,
	notifier notify.Notifier,
	publisher events.Publisher,
) *CheckoutPage {
	return &CheckoutPage{
		dispatcher: dispatcher,
		orders:     orders,
		store:      store,
		bus:        bus,
		notifier:   notifier,
		publisher:  publisher,
	}
}

// Mount keeps an opened checkout summary current.
func (p *CheckoutPage) Mount(tabCtx context.Context) func() {
	return p.bus.Subscribe(func(change domain.CartChange) {
		if change.Source == SourceCheckout || !p.isOpened() {
			return
		}
		_, _ = p.dispatcher.Refresh(tabCtx)
	})
}

// Open loads the summary.
func (p *CheckoutPage) Open(ctx context.Context) (CartView, error) {
	p.mu.Lock()
	p.opened = true
	p.mu.Unlock()
	_, err := p.dispatcher.Refresh(ctx)
	return p.View(), err
}

func (p *CheckoutPage) View() CartView {
	return renderCart(p.dispatcher)
}

func (p *CheckoutPage) LastOrder() *domain.Order {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastOrder
}

func (p *CheckoutPage) Submitting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.submitting
}

// PlaceOrder confirms the current cart with cash on delivery. The backend
// empties the cart, so a clear broadcast follows a successful order.
func (p *CheckoutPage) PlaceOrder(ctx context.Context, info domain.ShippingInfo) (*domain.Order, error) {
	if missing := info.MissingFields(); len(missing) > 0 {
		err := &cart.ValidationError{Field: strings.Join(missing, ","), Message: "Please fill in all required fields"}
		p.notifier.Error(err.Message)
		return nil, err
	}

	p.mu.Lock()
	if p.submitting {
		p.mu.Unlock()
		return nil, ErrOrderInFlight
	}
	p.submitting = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.submitting = false
		p.mu.Unlock()
	}()

	token, err := p.store.Token(ctx)
	if err != nil {
		p.fail(err)
		return nil, err
	}

	v := p.dispatcher.View()
	if v.State != cart.StateLoaded || v.Stale {
		// Refresh reports its own failures.
		if v, err = p.dispatcher.Refresh(ctx); err != nil {
			return nil, err
		}
	}
	if v.State != cart.StateLoaded {
		err := &cart.ValidationError{Field: "cart", Message: "Your cart is empty"}
		p.notifier.Error(err.Message)
		return nil, err
	}

	order, err := p.orders.ConfirmOrder(ctx, token, domain.OrderRequest{
		ShippingInfo:  info,
		PaymentMethod: domain.PaymentCashOnDelivery,
	})
	if err != nil {
		err = cart.Classify(err)
		p.fail(err)
		return nil, err
	}

	p.mu.Lock()
	p.lastOrder = order
	p.mu.Unlock()

	p.notifier.Success("Order placed successfully")
	_, _ = p.dispatcher.Refresh(ctx)
	p.publisher.Publish(domain.CartChange{Action: domain.ActionClear})
	return order, nil
}

func (p *CheckoutPage) isOpened() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opened
}

func (p *CheckoutPage) fail(err error) {
	var authErr *cart.AuthenticationError
	if errors.As(err, &authErr) {
		p.notifier.Redirect(notify.LoginPath)
		return
	}
	p.notifier.Error(cart.UserMessage(err, msgOrderFailed))
}
