package cart

import (
	"errors"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/apiclient"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrMutationInFlight = errors.New("a change for this item is already in progress")
	ErrClearInFlight    = errors.New("cart is already being cleared")
)

// AuthenticationError means the credential was missing (Status 0) or the
// backend rejected it. Callers redirect to login and never retry.
type AuthenticationError struct {
	Status  int
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string {
	if e.Status == 0 {
		return "not authenticated: no credential"
	}
	return fmt.Sprintf("not authenticated: backend returned %d", e.Status)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

func (e *AuthenticationError) Is(target error) bool { return target == ErrNotAuthenticated }

// ValidationError is a client-side rejection; no request was made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// FetchError covers network failures, non-success statuses and malformed
// bodies. Message is the backend's own message when it sent one.
type FetchError struct {
	Status  int
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// Classify maps a backend client error onto the storefront taxonomy.
func Classify(err error) error {
	var statusErr *apiclient.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.IsAuth() {
			return &AuthenticationError{Status: statusErr.Status, Message: statusErr.Message, Err: err}
		}
		return &FetchError{Status: statusErr.Status, Message: statusErr.Message, Err: err}
	}
	return &FetchError{Err: err}
}

// UserMessage is what a toast shows for err: the backend message if present,
// else fallback.
func UserMessage(err error, fallback string) string {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) && fetchErr.Message != "" {
		return fetchErr.Message
	}
	var authErr *AuthenticationError
	if errors.As(err, &authErr) && authErr.Message != "" {
		return authErr.Message
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message
	}
	return fallback
}
