package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/storefront"
)

// PlaceOrderRequestDTO mirrors the checkout form. Payment is always cash on
// delivery, whatever the form says.
type PlaceOrderRequestDTO struct {
	ShippingInfo domain.ShippingInfo `json:"shipping_info"`
}

type CheckoutResponseDTO struct {
	Summary storefront.CartView `json:"summary"`
}

type OrderResponseDTO struct {
	OrderID       string  `json:"order_id"`
	Status        string  `json:"status,omitempty"`
	TotalAmount   float64 `json:"total_amount,omitempty"`
	PaymentMethod string  `json:"payment_method"`
}

// GET /api/v1/tabs/{tabID}/checkout
func (h *TabHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	tab, err := getTab(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	view, err := tab.Checkout.Open(ctx)
	if err != nil && !view.Stale {
		handleCartError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, CheckoutResponseDTO{Summary: view})
}

// POST /api/v1/tabs/{tabID}/checkout
func (h *TabHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	tab, err := getTab(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	var req PlaceOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	order, err := tab.Checkout.PlaceOrder(ctx, req.ShippingInfo)
	if err != nil {
		handleCartError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, OrderResponseDTO{
		OrderID:       order.ID,
		Status:        order.Status,
		TotalAmount:   order.TotalAmount,
		PaymentMethod: domain.PaymentCashOnDelivery,
	})
}
