package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	Sessions       *SessionHandler
	Tabs           *TabHandler
	Events         *EventsHandler
	Log            logrus.FieldLogger
	RequestTimeout time.Duration
}

// NewRouter mounts the storefront API. Event streams are long-lived and are
// kept out of the request timeout and compression.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(cfg.Log))
	r.Use(middleware.Recoverer)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SessionMiddleware)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.RequestTimeout))

			r.Post("/session", cfg.Sessions.Login)
			r.Delete("/session", cfg.Sessions.Logout)
			r.Post("/tabs", cfg.Tabs.OpenTab)
		})

		r.Route("/tabs/{tabID}", func(r chi.Router) {
			r.Use(cfg.Tabs.TabContext)

			r.Get("/events", cfg.Events.Stream)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(cfg.RequestTimeout))
				r.Use(middleware.Compress(5))

				r.Delete("/", cfg.Tabs.CloseTab)
				r.Get("/cart", cfg.Tabs.GetCart)
				r.Delete("/cart", cfg.Tabs.ClearCart)
				r.Post("/cart/items", cfg.Tabs.AddItem)
				r.Put("/cart/items/{productID}", cfg.Tabs.UpdateQuantity)
				r.Delete("/cart/items/{productID}", cfg.Tabs.RemoveItem)
				r.Get("/badge", cfg.Tabs.Badge)
				r.Post("/products/{productID}/add", cfg.Tabs.AddProduct)
				r.Get("/checkout", cfg.Tabs.GetCheckout)
				r.Post("/checkout", cfg.Tabs.PlaceOrder)
			})
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}
