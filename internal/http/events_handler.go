package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/notify"
	"github.com/sirupsen/logrus"
)

const (
	eventToast    = "toast"
	eventRedirect = "redirect"

	streamBuffer = 64
)

// HeartbeatInterval keeps idle event streams open through proxies.
var HeartbeatInterval = 15 * time.Second

type streamEvent struct {
	name string
	data interface{}
}

// EventsHandler streams a tab's broadcasts and notifications as server-sent
// events.
type EventsHandler struct {
	log logrus.FieldLogger
}

func NewEventsHandler(log logrus.FieldLogger) *EventsHandler {
	return &EventsHandler{log: log}
}

// GET /api/v1/tabs/{tabID}/events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	tab, err := getTab(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming_unsupported", "streaming is not supported")
		return
	}
	log := logger.FromContext(r.Context(), h.log).WithField("tab_id", tab.ID)
	release := tab.Hold()
	defer release()

	events := make(chan streamEvent, streamBuffer)
	send := func(e streamEvent) {
		select {
		case events <- e:
		default:
			log.WithField("event", e.name).Warn("event stream is full, dropping event")
		}
	}

	unsubscribe := tab.Bus.Subscribe(func(change domain.CartChange) {
		send(streamEvent{name: domain.CartUpdatedEvent, data: change})
	})
	defer unsubscribe()
	stop := tab.Feed.Listen(func(m notify.Message) {
		if m.Toast != nil {
			send(streamEvent{name: eventToast, data: m.Toast})
		}
		if m.Redirect != "" {
			send(streamEvent{name: eventRedirect, data: map[string]string{"path": m.Redirect}})
		}
	})
	defer stop()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-tab.Done():
			return
		case e := <-events:
			if err := writeEvent(w, e); err != nil {
				log.WithError(err).Debug("event stream closed")
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, e streamEvent) error {
	payload, err := json.Marshal(e.data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.name, payload)
	return err
}
