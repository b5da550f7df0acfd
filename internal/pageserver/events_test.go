package pageserver

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
)

// TestEventBroadcasterDeliversProgress covers a connected client receiving a
// progress event pushed through Report, the method cloudsync.Progress calls
// at each sync stage transition.
func TestEventBroadcasterDeliversProgress(t *testing.T) {
	b := NewEventBroadcaster(nil)
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + srv.URL[len("http"):]
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })

	// Give ServeHTTP a moment to register the client before broadcasting;
	// Broadcast only reaches clients already in the registry.
	deadline := time.Now().Add(time.Second)
	for {
		b.mu.Lock()
		n := len(b.clients)
		b.mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("client never registered with broadcaster")
		}
		time.Sleep(time.Millisecond)
	}

	b.Report(ctx, "merging", "comparing snapshots", 2, 5)

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var got ProgressEvent
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := ProgressEvent{Stage: "merging", Detail: "comparing snapshots", Current: 2, Total: 5}
	if got != want {
		t.Fatalf("got event %+v, want %+v", got, want)
	}
}
