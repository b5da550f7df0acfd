package pageserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

// ProgressEvent is one message pushed to connected UI clients while a sync
// cycle runs. The embedding UI layer is out of scope for this module, but
// the page-serving HTTP surface is the natural place to expose a push
// channel for it, alongside served page bytes.
type ProgressEvent struct {
	Stage   string `json:"stage"`
	Detail  string `json:"detail,omitempty"`
	Current int    `json:"current,omitempty"`
	Total   int    `json:"total,omitempty"`
}

// EventBroadcaster fans out ProgressEvents to every currently connected
// websocket client. Construct one with NewEventBroadcaster; the zero value
// has no client registry or logger.
type EventBroadcaster struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	logger  *slog.Logger
}

func NewEventBroadcaster(logger *slog.Logger) *EventBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBroadcaster{clients: make(map[*websocket.Conn]struct{}), logger: logger}
}

// ServeHTTP upgrades the connection and keeps it registered until the
// client disconnects.
func (b *EventBroadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		b.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	b.mu.Lock()
	b.clients[conn] = struct{}{}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.clients, conn)
		b.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "")
	}()

	// Block until the client goes away; this handler only ever sends.
	for {
		if _, _, err := conn.Read(r.Context()); err != nil {
			return
		}
	}
}

// Report implements cloudsync.Progress structurally (no import needed in
// either direction): the orchestrator calls this at each sync stage
// transition, and it fans out as a ProgressEvent to connected clients.
func (b *EventBroadcaster) Report(ctx context.Context, stage, detail string, current, total int) {
	b.Broadcast(ctx, ProgressEvent{Stage: stage, Detail: detail, Current: current, Total: total})
}

// Broadcast sends event to every connected client, dropping any that fail
// to receive it within the request's context.
func (b *EventBroadcaster) Broadcast(ctx context.Context, event ProgressEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Warn("marshaling progress event", slog.String("error", err.Error()))
		return
	}

	b.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(b.clients))
	for c := range b.clients {
		conns = append(conns, c)
	}
	b.mu.Unlock()

	for _, c := range conns {
		if err := c.Write(ctx, websocket.MessageText, data); err != nil {
			b.logger.Debug("dropping unresponsive progress listener", slog.String("error", err.Error()))
		}
	}
}
