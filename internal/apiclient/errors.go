package apiclient

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// ErrUnavailable is returned without touching the network while the circuit
// breaker is open.
var ErrUnavailable = errors.New("backend unavailable")

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}

// IsAuth reports whether the backend rejected the credential.
func (e *StatusError) IsAuth() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

func (e *StatusError) IsNotFound() bool {
	return e.Status == http.StatusNotFound
}
