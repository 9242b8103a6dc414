package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/apiclient"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/notify"
	"github.com/fjod/go_cart/storefront/internal/storefront"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error    string `json:"error"`
	Code     string `json:"code,omitempty"`
	Details  string `json:"details,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logrus.WithError(err).Error("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// respondUnauthenticated tells the browser to go to the login page.
func respondUnauthenticated(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusUnauthorized, ErrorResponse{
		Error:    message,
		Code:     "unauthenticated",
		Redirect: notify.LoginPath,
	})
}

// handleCartError converts storefront errors to HTTP status codes.
func handleCartError(w http.ResponseWriter, err error) {
	var (
		validationErr *cart.ValidationError
		authErr       *cart.AuthenticationError
		fetchErr      *cart.FetchError
	)

	switch {
	case errors.As(err, &validationErr):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   validationErr.Message,
			Code:    "validation_failed",
			Details: validationErr.Field,
		})
	case errors.As(err, &authErr):
		message := authErr.Message
		if message == "" {
			message = "please log in to continue"
		}
		respondUnauthenticated(w, message)
	case errors.Is(err, cart.ErrNotAuthenticated):
		respondUnauthenticated(w, "please log in to continue")
	case errors.Is(err, cart.ErrMutationInFlight),
		errors.Is(err, cart.ErrClearInFlight),
		errors.Is(err, storefront.ErrOrderInFlight):
		respondError(w, http.StatusConflict, "in_flight", err.Error())
	case errors.Is(err, storefront.ErrTabNotFound):
		respondError(w, http.StatusNotFound, "tab_not_found", err.Error())
	case errors.Is(err, apiclient.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "shop backend is unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "shop backend did not answer in time")
	case errors.As(err, &fetchErr):
		respondError(w, http.StatusBadGateway, "backend_error", fetchErr.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
