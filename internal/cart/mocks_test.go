package cart

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/apiclient"
	"github.com/fjod/go_cart/storefront/internal/credentials"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/events"
	"github.com/fjod/go_cart/storefront/internal/notify"
	"github.com/sirupsen/logrus"
)

type setCall struct {
	productID string
	quantity  int
	category  domain.Category
}

// mockBackend replaces the target quantity of an existing line, like the shop
// backend does.
type mockBackend struct {
	mu      sync.Mutex
	cart    *domain.Cart
	catalog map[string]domain.Product

	getErr    error
	setErr    error
	removeErr error
	clearErr  error

	getCalls    int
	setCalls    []setCall
	removeCalls []string
	clearCalls  int

	// onSet runs inside SetItem before the cart is touched.
	onSet func()
	// onGet runs after GetCart has taken its snapshot.
	onGet func()
}

func newMockBackend(items ...domain.CartItem) *mockBackend {
	catalog := map[string]domain.Product{}
	for _, item := range items {
		catalog[item.Product.ID] = item.Product
	}
	return &mockBackend{
		cart:    &domain.Cart{ID: "cart-1", UserID: "user-1", Items: items},
		catalog: catalog,
	}
}

func (m *mockBackend) GetCart(context.Context, string) (*domain.Cart, error) {
	m.mu.Lock()
	m.getCalls++
	if m.getErr != nil {
		err := m.getErr
		m.mu.Unlock()
		return nil, err
	}
	c := *m.cart
	c.Items = append([]domain.CartItem(nil), m.cart.Items...)
	hook := m.onGet
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	return &c, nil
}

func (m *mockBackend) SetItem(_ context.Context, _ string, productID string, quantity int, category domain.Category) error {
	if m.onSet != nil {
		m.onSet()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls = append(m.setCalls, setCall{productID, quantity, category})
	if m.setErr != nil {
		return m.setErr
	}
	for i := range m.cart.Items {
		if m.cart.Items[i].Product.ID == productID {
			m.cart.Items[i].Quantity = quantity
			return nil
		}
	}
	product, ok := m.catalog[productID]
	if !ok {
		product = domain.Product{ID: productID, Category: category, Stock: 10}
	}
	m.cart.Items = append(m.cart.Items, domain.CartItem{ID: "line-" + productID, Product: product, Quantity: quantity})
	return nil
}

func (m *mockBackend) RemoveItem(_ context.Context, _ string, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeCalls = append(m.removeCalls, productID)
	if m.removeErr != nil {
		return m.removeErr
	}
	for i, item := range m.cart.Items {
		if item.Product.ID == productID {
			m.cart.Items = append(m.cart.Items[:i], m.cart.Items[i+1:]...)
			return nil
		}
	}
	return &apiclient.StatusError{Status: http.StatusNotFound, Message: "Item not found in cart"}
}

func (m *mockBackend) ClearCart(context.Context, string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearCalls++
	if m.clearErr != nil {
		return m.clearErr
	}
	m.cart.Items = nil
	return nil
}

func (m *mockBackend) requests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getCalls + len(m.setCalls) + len(m.removeCalls) + m.clearCalls
}

func (m *mockBackend) gets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getCalls
}

type harness struct {
	backend    *mockBackend
	feed       *notify.Feed
	bus        *events.Bus
	broadcasts []domain.CartChange
	dispatcher *Dispatcher
}

func newHarness(backend *mockBackend, creds credentials.Provider) *harness {
	h := &harness{
		backend: backend,
		feed:    notify.NewFeed(),
		bus:     events.NewBus(),
	}
	h.bus.Subscribe(func(c domain.CartChange) { h.broadcasts = append(h.broadcasts, c) })
	log := logrus.New()
	log.SetOutput(io.Discard)
	h.dispatcher = NewDispatcher(NewStore(backend, creds), h.bus, h.feed, log)
	return h
}

func line(productID string, quantity, stock int) domain.CartItem {
	return domain.CartItem{
		ID:       "line-" + productID,
		Quantity: quantity,
		Product: domain.Product{
			ID:       productID,
			Name:     "Product " + productID,
			Price:    10,
			Stock:    stock,
			Category: domain.CategoryProduct,
		},
	}
}
