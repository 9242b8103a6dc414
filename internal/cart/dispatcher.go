package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/events"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/notify"
	"github.com/sirupsen/logrus"
)

const (
	msgLoadFailed   = "Failed to load your cart"
	msgAddFailed    = "Failed to add to cart"
	msgUpdateFailed = "Failed to update quantity"
	msgRemoveFailed = "Failed to remove item"
	msgClearFailed  = "Failed to clear cart"
)

// Dispatcher applies line-item changes for one component. Each component
// owns its own Dispatcher, so in-flight flags are never shared between them.
//
// Every successful mutation is followed by exactly one refresh through the
// Store and exactly one broadcast on the bus, in that order.
type Dispatcher struct {
	store    *Store
	bus      events.Publisher
	notifier notify.Notifier
	log      logrus.FieldLogger

	mu       sync.Mutex
	inFlight map[string]bool
	clearing bool
	loading  int    // refreshes outstanding
	issued   uint64 // sequence of the last refresh started
	applied  uint64 // sequence of the refresh that produced view
	view     View
}

func NewDispatcher(store *Store, bus events.Publisher, notifier notify.Notifier, log logrus.FieldLogger) *Dispatcher {
	return &Dispatcher{
		store:    store,
		bus:      bus,
		notifier: notifier,
		log:      log,
		inFlight: make(map[string]bool),
	}
}

// View returns the last loaded snapshot.
func (d *Dispatcher) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view
}

func (d *Dispatcher) InFlight(productID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inFlight[productID]
}

// Clearing is the cart-wide flag used by ClearCart.
func (d *Dispatcher) Clearing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clearing
}

// Loading is true while a refresh is outstanding.
func (d *Dispatcher) Loading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loading > 0
}

// Refresh reloads the snapshot. When it fails after an earlier success the
// previous snapshot is kept and marked stale. Refreshes may overlap; a result
// older than the one already shown is dropped.
func (d *Dispatcher) Refresh(ctx context.Context) (View, error) {
	d.mu.Lock()
	d.loading++
	d.issued++
	seq := d.issued
	d.mu.Unlock()

	v, err := d.store.Load(ctx)

	d.mu.Lock()
	d.loading--
	if seq < d.applied {
		v = d.view
		d.mu.Unlock()
		logger.FromContext(ctx, d.log).Debug("cart refresh superseded by a newer one")
		return v, nil
	}
	if err != nil && (d.view.State == StateLoaded || d.view.State == StateEmpty) {
		v = d.view
		v.Stale = true
		v.Err = err
	}
	d.view = v
	d.applied = seq
	d.mu.Unlock()

	if err != nil {
		logger.FromContext(ctx, d.log).WithError(err).Warn("cart refresh failed")
		d.fail(err, msgLoadFailed)
	}
	return v, err
}

// AddItem adds quantity units of a product. Whether the backend adds to or
// replaces an existing line's quantity is its own business.
func (d *Dispatcher) AddItem(ctx context.Context, productID string, quantity int, category domain.Category) error {
	if err := validateLine(productID, quantity, category); err != nil {
		d.notifier.Error(err.Error())
		return err
	}
	return d.mutate(ctx, productID, mutation{
		change:   domain.CartChange{ProductID: productID, Category: category, Action: domain.ActionAdd},
		success:  fmt.Sprintf("%s added to cart!", category),
		fallback: msgAddFailed,
		send: func(ctx context.Context, token string) error {
			return d.store.backend.SetItem(ctx, token, productID, quantity, category)
		},
	})
}

// UpdateQuantity sets a line to newQuantity. Zero is not a quantity, use
// RemoveItem. The last loaded stock is an inclusive upper bound.
func (d *Dispatcher) UpdateQuantity(ctx context.Context, productID string, newQuantity int, category domain.Category) error {
	if err := d.validateUpdate(productID, newQuantity, category); err != nil {
		d.notifier.Error(err.Error())
		return err
	}
	return d.mutate(ctx, productID, mutation{
		change:   domain.CartChange{ProductID: productID, Category: category, Action: domain.ActionUpdate},
		success:  "Quantity updated successfully",
		fallback: msgUpdateFailed,
		send: func(ctx context.Context, token string) error {
			return d.store.backend.SetItem(ctx, token, productID, newQuantity, category)
		},
	})
}

// RemoveItem deletes the line for productID. The backend picks the cart from
// the credential.
func (d *Dispatcher) RemoveItem(ctx context.Context, productID string) error {
	if productID == "" {
		err := &ValidationError{Field: "productId", Message: "productId is required"}
		d.notifier.Error(err.Error())
		return err
	}
	var category domain.Category
	if line, ok := d.View().Line(productID); ok {
		category = line.Product.Category
	}
	return d.mutate(ctx, productID, mutation{
		change:   domain.CartChange{ProductID: productID, Category: category, Action: domain.ActionRemove},
		success:  "Item removed from cart",
		fallback: msgRemoveFailed,
		send: func(ctx context.Context, token string) error {
			return d.store.backend.RemoveItem(ctx, token, productID)
		},
	})
}

// ClearCart wipes every line in one request under the cart-wide flag.
func (d *Dispatcher) ClearCart(ctx context.Context) error {
	d.mu.Lock()
	if d.clearing {
		d.mu.Unlock()
		return ErrClearInFlight
	}
	d.clearing = true
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.clearing = false
		d.mu.Unlock()
	}()

	return d.apply(ctx, mutation{
		change:   domain.CartChange{Action: domain.ActionClear},
		success:  "Cart cleared successfully",
		fallback: msgClearFailed,
		send: func(ctx context.Context, token string) error {
			return d.store.backend.ClearCart(ctx, token)
		},
	})
}

type mutation struct {
	change   domain.CartChange
	success  string
	fallback string
	send     func(ctx context.Context, token string) error
}

// mutate takes the per-product flag before anything can suspend, so a second
// call for the same product sees it set and is turned away.
func (d *Dispatcher) mutate(ctx context.Context, productID string, m mutation) error {
	release, err := d.acquire(productID)
	if err != nil {
		logger.FromContext(ctx, d.log).WithField("product_id", productID).Debug("mutation rejected, already in flight")
		return err
	}
	defer release()

	return d.apply(ctx, m)
}

func (d *Dispatcher) apply(ctx context.Context, m mutation) error {
	log := logger.FromContext(ctx, d.log).WithFields(logrus.Fields{
		"product_id": m.change.ProductID,
		"action":     m.change.Action,
	})

	token, err := d.store.Token(ctx)
	if err != nil {
		d.fail(err, m.fallback)
		return err
	}

	if err := m.send(ctx, token); err != nil {
		err = Classify(err)
		log.WithError(err).Warn("cart mutation failed")
		d.fail(err, m.fallback)
		return err
	}

	d.notifier.Success(m.success)
	// A failed refresh surfaces its own toast; the mutation itself succeeded.
	_, _ = d.Refresh(ctx)
	d.bus.Publish(m.change)
	return nil
}

func (d *Dispatcher) acquire(productID string) (func(), error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inFlight[productID] {
		return nil, ErrMutationInFlight
	}
	d.inFlight[productID] = true
	return func() {
		d.mu.Lock()
		delete(d.inFlight, productID)
		d.mu.Unlock()
	}, nil
}

// fail turns err into what the user sees: a redirect for auth problems, a
// toast otherwise.
func (d *Dispatcher) fail(err error, fallback string) {
	var authErr *AuthenticationError
	if errors.As(err, &authErr) {
		if authErr.Message != "" {
			d.notifier.Error(authErr.Message)
		}
		d.notifier.Redirect(notify.LoginPath)
		return
	}
	d.notifier.Error(UserMessage(err, fallback))
}

func (d *Dispatcher) validateUpdate(productID string, quantity int, category domain.Category) error {
	if err := validateLine(productID, quantity, category); err != nil {
		return err
	}
	line, ok := d.View().Line(productID)
	if ok && quantity > line.Product.Stock {
		return &ValidationError{
			Field:   "quantity",
			Message: fmt.Sprintf("Only %d available in stock", line.Product.Stock),
		}
	}
	return nil
}

func validateLine(productID string, quantity int, category domain.Category) error {
	if productID == "" {
		return &ValidationError{Field: "productId", Message: "productId is required"}
	}
	if quantity < 1 {
		return &ValidationError{Field: "quantity", Message: "Quantity must be positive"}
	}
	if !category.IsValid() {
		return &ValidationError{Field: "category", Message: fmt.Sprintf("Unknown category %q", category)}
	}
	return nil
}
