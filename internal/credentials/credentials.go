package credentials

import (
	"context"
	"errors"
)

// Provider hands out the bearer token of the current caller. Implementations
// must read their backing storage on every call so a logout elsewhere is seen
// by the very next request.
type Provider interface {
	Token(ctx context.Context) (string, error)
}

var ErrNoCredential = errors.New("no credential")

// Static always returns the same token. An empty token means "logged out".
type Static string

func (s Static) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrNoCredential
	}
	return string(s), nil
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (string, error)

func (f ProviderFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}
