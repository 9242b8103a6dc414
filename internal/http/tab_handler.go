package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/storefront"
	"github.com/go-chi/chi/v5"
)

type tabRegistry interface {
	Open(ctx context.Context, sessionID string) *storefront.Tab
	Get(tabID, sessionID string) (*storefront.Tab, error)
	Close(tabID, sessionID string) error
}

// TabHandler serves the components of one browser tab.
type TabHandler struct {
	registry tabRegistry
	timeout  time.Duration
}

func NewTabHandler(registry tabRegistry, timeout time.Duration) *TabHandler {
	return &TabHandler{
		registry: registry,
		timeout:  timeout,
	}
}

type TabResponseDTO struct {
	TabID string              `json:"tab_id"`
	Badge int                 `json:"badge"`
	Cart  storefront.CartView `json:"cart"`
}

// POST /api/v1/tabs
func (h *TabHandler) OpenTab(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	tab := h.registry.Open(ctx, getSessionID(r.Context()))

	if redirect := tab.Feed.PendingRedirect(); redirect != "" {
		w.Header().Set("Location", redirect)
	}
	respondJSON(w, http.StatusCreated, TabResponseDTO{
		TabID: tab.ID,
		Badge: tab.Navbar.Count(),
		Cart:  tab.Cart.View(),
	})
}

// DELETE /api/v1/tabs/{tabID}
func (h *TabHandler) CloseTab(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Close(chi.URLParam(r, "tabID"), getSessionID(r.Context())); err != nil {
		handleCartError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TabContext resolves {tabID} for the session and stores the tab in the
// request context.
func (h *TabHandler) TabContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tab, err := h.registry.Get(chi.URLParam(r, "tabID"), getSessionID(r.Context()))
		if err != nil {
			handleCartError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), tabKey, tab)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getTab(ctx context.Context) (*storefront.Tab, error) {
	if tab, ok := ctx.Value(tabKey).(*storefront.Tab); ok {
		return tab, nil
	}
	return nil, errors.New("tab missing from request context")
}
