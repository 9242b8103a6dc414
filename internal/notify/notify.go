package notify

import (
	"sync"
	"time"
)

// LoginPath is where unauthenticated callers are sent.
const LoginPath = "/login"

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notifier is how operations talk to the user: toasts and redirects.
type Notifier interface {
	Success(message string)
	Error(message string)
	Redirect(path string)
}

type Toast struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Message is one item of a Feed stream: either a toast or a redirect.
type Message struct {
	Toast    *Toast `json:"toast,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// Feed records notifications for one tab and fans them out to listeners.
type Feed struct {
	mu        sync.Mutex
	toasts    []Toast
	redirect  string
	nextID    int
	listeners map[int]func(Message)
	now       func() time.Time
}

func NewFeed() *Feed {
	return &Feed{listeners: make(map[int]func(Message)), now: time.Now}
}

func (f *Feed) Success(message string) {
	f.toast(LevelSuccess, message)
}

func (f *Feed) Error(message string) {
	f.toast(LevelError, message)
}

func (f *Feed) Redirect(path string) {
	f.mu.Lock()
	f.redirect = path
	f.mu.Unlock()
	f.emit(Message{Redirect: path})
}

// Listen registers fn for messages emitted after the call.
func (f *Feed) Listen(fn func(Message)) (stop func()) {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

// Toasts returns a copy of every toast so far, oldest first.
func (f *Feed) Toasts() []Toast {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Toast, len(f.toasts))
	copy(out, f.toasts)
	return out
}

// PendingRedirect returns the last requested redirect and clears it.
func (f *Feed) PendingRedirect() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.redirect
	f.redirect = ""
	return r
}

func (f *Feed) toast(level Level, message string) {
	t := Toast{Level: level, Message: message, At: f.now()}
	f.mu.Lock()
	f.toasts = append(f.toasts, t)
	f.mu.Unlock()
	f.emit(Message{Toast: &t})
}

func (f *Feed) emit(m Message) {
	f.mu.Lock()
	listeners := make([]func(Message), 0, len(f.listeners))
	for _, l := range f.listeners {
		listeners = append(listeners, l)
	}
	f.mu.Unlock()
	for _, l := range listeners {
		l(m)
	}
}
