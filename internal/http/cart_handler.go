package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/storefront"
	"github.com/go-chi/chi/v5"
)

type AddItemRequestDTO struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Category  domain.Category `json:"category"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int             `json:"quantity"`
	Category domain.Category `json:"category,omitempty"`
}

type AddProductRequestDTO struct {
	Category domain.Category `json:"category"`
}

type CartResponseDTO struct {
	Badge int                 `json:"badge"`
	Cart  storefront.CartView `json:"cart"`
}

type BadgeResponseDTO struct {
	Count int `json:"count"`
}

// GET /api/v1/tabs/{tabID}/cart
func (h *TabHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	tab, err := getTab(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	view, err := tab.Cart.Reload(ctx)
	// A failed reload after an earlier success still has a view to show.
	if err != nil && (!view.Stale || errors.Is(err, cart.ErrNotAuthenticated)) {
		handleCartError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, CartResponseDTO{Badge: tab.Navbar.Count(), Cart: view})
}

// POST /api/v1/tabs/{tabID}/cart/items
func (h *TabHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	h.mutate(w, r, http.StatusCreated, func(ctx context.Context, tab *storefront.Tab) error {
		return tab.Cart.Add(ctx, strings.TrimSpace(req.ProductID), req.Quantity, req.Category)
	})
}

// PUT /api/v1/tabs/{tabID}/cart/items/{productID}
func (h *TabHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	h.mutate(w, r, http.StatusOK, func(ctx context.Context, tab *storefront.Tab) error {
		return tab.Cart.SetQuantity(ctx, productID, req.Quantity, req.Category)
	})
}

// DELETE /api/v1/tabs/{tabID}/cart/items/{productID}
func (h *TabHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	h.mutate(w, r, http.StatusOK, func(ctx context.Context, tab *storefront.Tab) error {
		return tab.Cart.Remove(ctx, productID)
	})
}

// DELETE /api/v1/tabs/{tabID}/cart
func (h *TabHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, http.StatusOK, func(ctx context.Context, tab *storefront.Tab) error {
		return tab.Cart.Clear(ctx)
	})
}

// POST /api/v1/tabs/{tabID}/products/{productID}/add
func (h *TabHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	var req AddProductRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	h.mutate(w, r, http.StatusCreated, func(ctx context.Context, tab *storefront.Tab) error {
		return tab.Grid.AddToCart(ctx, productID, req.Category)
	})
}

// GET /api/v1/tabs/{tabID}/badge
func (h *TabHandler) Badge(w http.ResponseWriter, r *http.Request) {
	tab, err := getTab(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, BadgeResponseDTO{Count: tab.Navbar.Count()})
}

// mutate runs fn against the tab and answers with the cart page and badge as
// they stand afterwards.
func (h *TabHandler) mutate(w http.ResponseWriter, r *http.Request, status int, fn func(ctx context.Context, tab *storefront.Tab) error) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	tab, err := getTab(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	if err := fn(ctx, tab); err != nil {
		handleCartError(w, err)
		return
	}

	respondJSON(w, status, CartResponseDTO{Badge: tab.Navbar.Count(), Cart: tab.Cart.View()})
}
