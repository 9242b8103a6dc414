package cart

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/storefront/internal/apiclient"
	"github.com/fjod/go_cart/storefront/internal/credentials"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

// Backend is the subset of the shop API the cart needs.
type Backend interface {
	GetCart(ctx context.Context, token string) (*domain.Cart, error)
	SetItem(ctx context.Context, token, productID string, quantity int, category domain.Category) error
	RemoveItem(ctx context.Context, token, productID string) error
	ClearCart(ctx context.Context, token string) error
}

// Store reads the caller's cart. It holds no state between calls.
type Store struct {
	backend Backend
	creds   credentials.Provider
}

func NewStore(backend Backend, creds credentials.Provider) *Store {
	return &Store{
		backend: backend,
		creds:   creds,
	}
}

// Load fetches the current snapshot. A 404 or a cart without lines is the
// Empty state, not an error.
func (s *Store) Load(ctx context.Context) (View, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return View{State: StateFailed, Err: err}, err
	}

	c, err := s.backend.GetCart(ctx, token)
	if err != nil {
		var statusErr *apiclient.StatusError
		if errors.As(err, &statusErr) && statusErr.IsNotFound() {
			return View{State: StateEmpty}, nil
		}
		err = Classify(err)
		return View{State: StateFailed, Err: err}, err
	}

	if c == nil || len(c.Items) == 0 {
		return View{State: StateEmpty, Cart: c}, nil
	}
	return View{State: StateLoaded, Cart: c}, nil
}

// Token reads the credential fresh. A storage failure is a FetchError, only a
// genuinely absent credential is an AuthenticationError.
func (s *Store) Token(ctx context.Context) (string, error) {
	token, err := s.creds.Token(ctx)
	if errors.Is(err, credentials.ErrNoCredential) {
		return "", &AuthenticationError{Err: err}
	}
	if err != nil {
		return "", &FetchError{Err: err}
	}
	return token, nil
}
