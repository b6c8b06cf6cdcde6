package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/nudge/internal/auth"
)

type fakeSessions struct {
	mu       sync.Mutex
	attached chan int64
	detached []int64
}

func (f *fakeSessions) Attach(_ context.Context, userID int64) error {
	f.attached <- userID
	return nil
}

func (f *fakeSessions) Detach(userID int64) {
	f.mu.Lock()
	f.detached = append(f.detached, userID)
	f.mu.Unlock()
}

func TestHandleWebSocketDeliversToUser(t *testing.T) {
	hub := NewHub(slog.Default())
	sessions := &fakeSessions{attached: make(chan int64, 1)}

	h := HandleWebSocket(hub, sessions, slog.Default())
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h(w, r.WithContext(auth.WithAuth(r.Context(), auth.AuthContext{UserID: 5})))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(server.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	select {
	case uid := <-sessions.attached:
		if uid != 5 {
			t.Fatalf("attached user = %d, want 5", uid)
		}
	case <-ctx.Done():
		t.Fatal("session was never attached")
	}

	if n := hub.SendToUser(5, NewReminder("Event Reminder: Standup", "starting now")); n != 1 {
		t.Fatalf("accepted = %d, want 1", n)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Title != "Event Reminder: Standup" {
		t.Errorf("title = %q", got.Title)
	}
}

func TestHandleWebSocketRequiresUser(t *testing.T) {
	hub := NewHub(slog.Default())
	server := httptest.NewServer(HandleWebSocket(hub, nil, slog.Default()))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}
