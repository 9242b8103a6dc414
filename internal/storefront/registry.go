package storefront

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/credentials"
	"github.com/fjod/go_cart/storefront/internal/events"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTabIdleTTL        = 30 * time.Minute
	DefaultMaxTabsPerSession = 10
)

var ErrTabNotFound = errors.New("tab not found")

// ActivityForwarder receives a copy of every broadcast of every tab.
type ActivityForwarder interface {
	Attach(tabID string, bus events.Subscriber) (unsubscribe func())
}

type Option func(*Registry)

// WithIdleTTL sets how long a tab may go without requests or an open event
// stream before it is closed.
func WithIdleTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		if ttl > 0 {
			r.idleTTL = ttl
		}
	}
}

// WithMaxTabsPerSession caps the open tabs of one session. Opening one more
// closes the least recently used.
func WithMaxTabsPerSession(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxPerSession = n
		}
	}
}

// Registry keeps the open tabs of all sessions.
type Registry struct {
	backend   Backend
	creds     func(sessionID string) credentials.Provider
	forwarder ActivityForwarder
	log       logrus.FieldLogger

	idleTTL       time.Duration
	maxPerSession int
	now           func() time.Time

	mu   sync.RWMutex
	tabs map[string]*Tab
}

func NewRegistry(backend Backend, creds func(sessionID string) credentials.Provider, forwarder ActivityForwarder, log logrus.FieldLogger, opts ...Option) *Registry {
	r := &Registry{
		backend:       backend,
		creds:         creds,
		forwarder:     forwarder,
		log:           log,
		idleTTL:       DefaultTabIdleTTL,
		maxPerSession: DefaultMaxTabsPerSession,
		now:           time.Now,
		tabs:          make(map[string]*Tab),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open mounts a new tab for the session.
func (r *Registry) Open(ctx context.Context, sessionID string) *Tab {
	id := uuid.NewString()
	tab := NewTab(ctx, id, sessionID, r.backend, r.creds(sessionID), r.log)
	if r.forwarder != nil {
		tab.Attach(r.forwarder.Attach(id, tab.Bus))
	}
	tab.touch(r.now())

	r.mu.Lock()
	evicted := r.evictLocked(sessionID)
	r.tabs[id] = tab
	r.mu.Unlock()

	for _, old := range evicted {
		old.Close()
		r.log.WithField("tab_id", old.ID).Debug("tab evicted, session is at its tab limit")
	}
	r.log.WithField("tab_id", id).Debug("tab opened")
	return tab
}

// evictLocked removes the least recently used tabs of the session until one
// more fits.
func (r *Registry) evictLocked(sessionID string) []*Tab {
	var (
		own     []*Tab
		evicted []*Tab
	)
	for _, tab := range r.tabs {
		if tab.SessionID == sessionID {
			own = append(own, tab)
		}
	}
	for len(own) >= r.maxPerSession {
		oldest := 0
		for i := range own {
			if own[i].lastSeen.Load() < own[oldest].lastSeen.Load() {
				oldest = i
			}
		}
		delete(r.tabs, own[oldest].ID)
		evicted = append(evicted, own[oldest])
		own = append(own[:oldest], own[oldest+1:]...)
	}
	return evicted
}

// Get returns the tab only to the session that opened it and marks it used.
func (r *Registry) Get(tabID, sessionID string) (*Tab, error) {
	r.mu.RLock()
	tab, ok := r.tabs[tabID]
	r.mu.RUnlock()
	if !ok || tab.SessionID != sessionID {
		return nil, ErrTabNotFound
	}
	tab.touch(r.now())
	return tab, nil
}

func (r *Registry) Close(tabID, sessionID string) error {
	r.mu.Lock()
	tab, ok := r.tabs[tabID]
	if !ok || tab.SessionID != sessionID {
		r.mu.Unlock()
		return ErrTabNotFound
	}
	delete(r.tabs, tabID)
	r.mu.Unlock()

	tab.Close()
	r.log.WithField("tab_id", tabID).Debug("tab closed")
	return nil
}

// Sweep closes every tab idle for longer than the idle TTL and returns how
// many it closed. Tabs with an open event stream are never idle.
func (r *Registry) Sweep() int {
	now := r.now()

	r.mu.Lock()
	var expired []*Tab
	for id, tab := range r.tabs {
		if tab.idle(now, r.idleTTL) {
			delete(r.tabs, id)
			expired = append(expired, tab)
		}
	}
	r.mu.Unlock()

	for _, tab := range expired {
		tab.Close()
		r.log.WithField("tab_id", tab.ID).Debug("idle tab closed")
	}
	return len(expired)
}

// Run sweeps idle tabs until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.idleTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.log.WithField("closed", n).Info("closed idle tabs")
			}
		}
	}
}

// CloseAll unmounts every tab, used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	tabs := r.tabs
	r.tabs = make(map[string]*Tab)
	r.mu.Unlock()

	for _, tab := range tabs {
		tab.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tabs)
}
