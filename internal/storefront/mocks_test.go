package storefront

import (
	"context"
	"io"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/sirupsen/logrus"
)

type mockBackend struct {
	mu       sync.Mutex
	items    []domain.CartItem
	stock    map[string]int
	gets     int
	orders   []domain.OrderRequest
	orderErr error

	// onGet runs after GetCart has taken its snapshot.
	onGet func()
}

func newMockBackend(items ...domain.CartItem) *mockBackend {
	return &mockBackend{items: items, stock: map[string]int{}}
}

func (m *mockBackend) GetCart(context.Context, string) (*domain.Cart, error) {
	m.mu.Lock()
	m.gets++
	c := &domain.Cart{ID: "cart-1", Items: append([]domain.CartItem(nil), m.items...)}
	hook := m.onGet
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	return c, nil
}

func (m *mockBackend) setOnGet(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onGet = fn
}

func (m *mockBackend) SetItem(_ context.Context, _ string, productID string, quantity int, category domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].Product.ID == productID {
			m.items[i].Quantity = quantity
			return nil
		}
	}
	stock, ok := m.stock[productID]
	if !ok {
		stock = 10
	}
	m.items = append(m.items, domain.CartItem{
		ID:       "line-" + productID,
		Product:  domain.Product{ID: productID, Name: productID, Price: 5, Stock: stock, Category: category},
		Quantity: quantity,
	})
	return nil
}

func (m *mockBackend) RemoveItem(_ context.Context, _ string, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, item := range m.items {
		if item.Product.ID == productID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			break
		}
	}
	return nil
}

func (m *mockBackend) ClearCart(context.Context, string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = nil
	return nil
}

func (m *mockBackend) ConfirmOrder(_ context.Context, _ string, req domain.OrderRequest) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.orderErr != nil {
		return nil, m.orderErr
	}
	m.orders = append(m.orders, req)
	m.items = nil
	return &domain.Order{ID: "order-1", Status: "pending"}, nil
}

func (m *mockBackend) getCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func item(productID string, quantity, stock int) domain.CartItem {
	return domain.CartItem{
		ID:       "line-" + productID,
		Quantity: quantity,
		Product: domain.Product{
			ID:       productID,
			Name:     "Product " + productID,
			Price:    10,
			Stock:    stock,
			Category: domain.CategoryInterior,
		},
	}
}
