package http

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type mockBackend struct {
	mu     sync.Mutex
	items  []domain.CartItem
	tokens []string
	gets   int
	setErr error
	orders []domain.OrderRequest
}

func (m *mockBackend) seen(token string) {
	m.tokens = append(m.tokens, token)
}

func (m *mockBackend) GetCart(_ context.Context, token string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen(token)
	m.gets++
	return &domain.Cart{ID: "cart-1", Items: append([]domain.CartItem(nil), m.items...)}, nil
}

func (m *mockBackend) SetItem(_ context.Context, token, productID string, quantity int, category domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen(token)
	if m.setErr != nil {
		return m.setErr
	}
	for i := range m.items {
		if m.items[i].Product.ID == productID {
			m.items[i].Quantity = quantity
			return nil
		}
	}
	m.items = append(m.items, domain.CartItem{
		ID:       "line-" + productID,
		Product:  domain.Product{ID: productID, Name: "Product " + productID, Price: 12.5, Stock: 10, Category: category},
		Quantity: quantity,
	})
	return nil
}

func (m *mockBackend) RemoveItem(_ context.Context, token, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen(token)
	for i, item := range m.items {
		if item.Product.ID == productID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			break
		}
	}
	return nil
}

func (m *mockBackend) ClearCart(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen(token)
	m.items = nil
	return nil
}

func (m *mockBackend) ConfirmOrder(_ context.Context, token string, req domain.OrderRequest) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen(token)
	m.orders = append(m.orders, req)
	m.items = nil
	return &domain.Order{ID: "order-42", Status: "pending", TotalAmount: 25}, nil
}

func (m *mockBackend) getCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets
}

func (m *mockBackend) lastToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tokens) == 0 {
		return ""
	}
	return m.tokens[len(m.tokens)-1]
}
