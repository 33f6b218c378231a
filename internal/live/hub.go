// Package live streams a form's change events to connected editors over
// WebSocket. The Hub subscribes to the event bus and fans each event out
// to the connections watching that event's form.
package live

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/matthewbaird/formbuilder/internal/event"
)

const (
	// sendBuffer is how many events a slow connection may fall behind
	// before further events for it are dropped.
	sendBuffer = 64

	writeTimeout = 5 * time.Second
)

// Message is one frame sent to a client.
type Message struct {
	Type   string             `json:"type"` // "subscribed" or "event"
	FormID uuid.UUID          `json:"formId"`
	Event  *event.DomainEvent `json:"event,omitempty"`
}

type subscriber struct {
	events chan event.DomainEvent
}

// Hub tracks live connections per form.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]map[*subscriber]struct{}
	logger *slog.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:   map[uuid.UUID]map[*subscriber]struct{}{},
		logger: logger,
	}
}

func (h *Hub) subscribe(formID uuid.UUID) *subscriber {
	s := &subscriber{events: make(chan event.DomainEvent, sendBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[formID] == nil {
		h.subs[formID] = map[*subscriber]struct{}{}
	}
	h.subs[formID][s] = struct{}{}
	return s
}

func (h *Hub) unsubscribe(formID uuid.UUID, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[formID], s)
	if len(h.subs[formID]) == 0 {
		delete(h.subs, formID)
	}
}

// Subscribers returns the number of open connections watching formID.
func (h *Hub) Subscribers(formID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[formID])
}

// HandleEvent implements eventbus.Handler. It never blocks on a slow client.
func (h *Hub) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[evt.FormID] {
		select {
		case s.events <- evt:
		default:
			h.logger.Warn("live: subscriber behind, dropping event",
				"form_id", evt.FormID, "type", evt.EventType, "event_id", evt.ID)
		}
	}
	return nil
}

// ServeHTTP upgrades to WebSocket and streams events for the form named
// by the {id} route parameter until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	formID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"invalid UUID","code":"INVALID_ID"}`, http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Warn("live: websocket accept", "error", err)
		return
	}
	defer conn.CloseNow()

	sub := h.subscribe(formID)
	defer h.unsubscribe(formID, sub)

	// The feed is one-way; CloseRead handles control frames and cancels
	// ctx once the peer closes.
	ctx := conn.CloseRead(r.Context())

	if err := h.send(ctx, conn, Message{Type: "subscribed", FormID: formID}); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case evt := <-sub.events:
			if err := h.send(ctx, conn, Message{Type: "event", FormID: formID, Event: &evt}); err != nil {
				if websocket.CloseStatus(err) == -1 {
					h.logger.Debug("live: write failed", "form_id", formID, "error", err)
				}
				return
			}
		}
	}
}

func (h *Hub) send(ctx context.Context, conn *websocket.Conn, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}
