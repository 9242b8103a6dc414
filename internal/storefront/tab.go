package storefront

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/credentials"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/events"
	"github.com/fjod/go_cart/storefront/internal/notify"
	"github.com/sirupsen/logrus"
)

// Sources stamped on the broadcasts of each component.
const (
	SourceNavbar   = "navbar"
	SourceGrid     = "product-grid"
	SourceCart     = "cart-page"
	SourceCheckout = "checkout-page"
)

// Backend is everything the mounted components need from the shop API.
type Backend interface {
	cart.Backend
	ConfirmOrder(ctx context.Context, token string, req domain.OrderRequest) (*domain.Order, error)
}

// Tab is the application context of one open browser tab. It owns the tab's
// bus and notification feed and injects them into every component it mounts.
type Tab struct {
	ID        string
	SessionID string

	Bus  *events.Bus
	Feed *notify.Feed

	Navbar   *Navbar
	Grid     *ProductGrid
	Cart     *CartPage
	Checkout *CheckoutPage

	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
	unmounts []func()
	closed   bool

	lastSeen atomic.Int64 // unix nanos of the last request
	holds    atomic.Int32 // open event streams
}

// NewTab mounts every component. The initial loads run with ctx; refreshes
// triggered later by broadcasts run with the tab's own context, which Close
// cancels.
func NewTab(ctx context.Context, id, sessionID string, backend Backend, creds credentials.Provider, log logrus.FieldLogger) *Tab {
	tabCtx, cancel := context.WithCancel(context.Background())
	log = log.WithField("tab_id", id)

	t := &Tab{
		ID:        id,
		SessionID: sessionID,
		Bus:       events.NewBus(),
		Feed:      notify.NewFeed(),
		ctx:       tabCtx,
		cancel:    cancel,
	}

	store := cart.NewStore(backend, creds)
	dispatcher := func(source string) *cart.Dispatcher {
		return cart.NewDispatcher(store, stamped{t.Bus, source}, t.Feed, log.WithField("component", source))
	}

	t.Navbar = NewNavbar(store, t.Bus, log.WithField("component", SourceNavbar))
	t.Grid = NewProductGrid(dispatcher(SourceGrid))
	t.Cart = NewCartPage(dispatcher(SourceCart), t.Bus)
	t.Checkout = NewCheckoutPage(dispatcher(SourceCheckout), backend, store, t.Bus, t.Feed, stamped{t.Bus, SourceCheckout})

	t.Attach(t.Navbar.Mount(ctx, tabCtx))
	t.Attach(t.Cart.Mount(ctx, tabCtx))
	t.Attach(t.Checkout.Mount(tabCtx))
	return t
}

// Attach registers an unmount function to run on Close.
func (t *Tab) Attach(unmount func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		unmount()
		return
	}
	t.unmounts = append(t.unmounts, unmount)
}

// Close unmounts every component. Refreshes still running are cancelled and
// their results dropped.
func (t *Tab) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	unmounts := t.unmounts
	t.unmounts = nil
	t.mu.Unlock()

	for _, u := range unmounts {
		u()
	}
	t.cancel()
}

// Hold keeps the tab from being closed as idle until release is called.
func (t *Tab) Hold() (release func()) {
	t.holds.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { t.holds.Add(-1) })
	}
}

func (t *Tab) touch(at time.Time) {
	t.lastSeen.Store(at.UnixNano())
}

func (t *Tab) idle(now time.Time, ttl time.Duration) bool {
	if t.holds.Load() > 0 {
		return false
	}
	return now.Sub(time.Unix(0, t.lastSeen.Load())) > ttl
}

// Done is closed once the tab is closed.
func (t *Tab) Done() <-chan struct{} {
	return t.ctx.Done()
}

type stamped struct {
	bus    events.Publisher
	source string
}

func (s stamped) Publish(change domain.CartChange) {
	change.Source = s.source
	s.bus.Publish(change)
}
