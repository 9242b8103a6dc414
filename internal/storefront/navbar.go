package storefront

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/events"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Navbar shows the cart badge. It re-pulls the cart on every broadcast and
// never trusts the broadcast payload.
type Navbar struct {
	store *cart.Store
	bus   events.Subscriber
	log   logrus.FieldLogger
	sfg   singleflight.Group // coalesces re-pulls that overlap
	gen   atomic.Uint64      // bumped once per requested re-pull

	mu    sync.RWMutex
	count int
	seen  uint64 // generation the current count was loaded after
}

func NewNavbar(store *cart.Store, bus events.Subscriber, log logrus.FieldLogger) *Navbar {
	return &Navbar{
		store: store,
		bus:   bus,
		log:   log,
	}
}

// Mount loads the badge with ctx and keeps it current with tabCtx until the
// returned unmount is called.
func (n *Navbar) Mount(ctx, tabCtx context.Context) func() {
	n.Refresh(ctx)
	return n.bus.Subscribe(func(domain.CartChange) {
		n.Refresh(tabCtx)
	})
}

func (n *Navbar) Count() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.count
}

// Refresh re-pulls the count. Failures keep the previous count.
//
// A caller may join a load that is already running, but only returns once a
// load that started after its own request has finished. A load that began
// before a mutation was broadcast never answers for it.
func (n *Navbar) Refresh(ctx context.Context) {
	want := n.gen.Add(1)
	for {
		_, err, _ := n.sfg.Do("count", func() (interface{}, error) {
			return nil, n.load(ctx)
		})
		if n.loadedAfter(want) {
			return
		}
		// A load abandoned by another caller's context is retried with ours.
		if err != nil && (ctx.Err() != nil || !abandoned(err)) {
			return
		}
	}
}

func abandoned(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (n *Navbar) load(ctx context.Context) error {
	start := n.gen.Load()
	v, err := n.store.Load(ctx)
	if err != nil {
		n.log.WithError(err).Debug("navbar cart fetch failed")
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	n.mu.Lock()
	if start >= n.seen {
		n.count = v.ItemCount()
		n.seen = start
	}
	n.mu.Unlock()
	return nil
}

func (n *Navbar) loadedAfter(gen uint64) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.seen >= gen
}
