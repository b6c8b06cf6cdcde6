package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dukerupert/nudge/internal/auth"
	"github.com/dukerupert/nudge/internal/database"
	"github.com/dukerupert/nudge/internal/push"
	"github.com/dukerupert/nudge/internal/store"
	"github.com/dukerupert/nudge/internal/websocket"
)

type fakeHub struct {
	mu   sync.Mutex
	sent map[int64][]websocket.Message
}

func (h *fakeHub) SendToUser(userID int64, msg websocket.Message) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sent == nil {
		h.sent = make(map[int64][]websocket.Message)
	}
	h.sent[userID] = append(h.sent[userID], msg)
	return 1
}

func (h *fakeHub) types(userID int64) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, m := range h.sent[userID] {
		out = append(out, m.Type)
	}
	return out
}

type fakeSessions struct {
	mu         sync.Mutex
	refreshed  map[int64]int
	cleared    map[int64]bool
	background map[int64]bool
}

func (s *fakeSessions) SetBackground(_ context.Context, userID int64, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.background == nil {
		s.background = make(map[int64]bool)
	}
	s.background[userID] = on
	return nil
}

func (s *fakeSessions) backgroundOn(userID int64) (on, set bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	on, set = s.background[userID]
	return on, set
}

func (s *fakeSessions) Refresh(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refreshed == nil {
		s.refreshed = make(map[int64]int)
	}
	s.refreshed[userID]++
	return nil
}

func (s *fakeSessions) ClearHistory(userID int64) bool {
	return s.cleared[userID]
}

func (s *fakeSessions) count(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshed[userID]
}

type testEnv struct {
	db       *sql.DB
	mux      *http.ServeMux
	hub      *fakeHub
	sessions *fakeSessions
	alice    int64
	bob      int64
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	return setupEnvWithPush(t, push.NewService(push.Config{}))
}

func setupEnvWithPush(t *testing.T, pushSvc *push.Service) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users := store.NewUserStore(db)
	alice, err := users.Create("alice@example.com", "Alice", "pw")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	bob, err := users.Create("bob@example.com", "Bob", "pw")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	env := &testEnv{
		db:       db,
		mux:      http.NewServeMux(),
		hub:      &fakeHub{},
		sessions: &fakeSessions{cleared: map[int64]bool{alice.ID: true}},
		alice:    alice.ID,
		bob:      bob.ID,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	taskH := NewTaskHandler(store.NewTaskStore(db), env.hub, env.sessions, logger)
	eventH := NewCalendarEventHandler(store.NewEventStore(db), env.hub, env.sessions, logger)
	noteH := NewNoteHandler(store.NewNoteStore(db), env.hub, logger)
	prefH := NewPreferencesHandler(store.NewPreferenceStore(db), logger)
	notifH := NewNotificationHandler(env.sessions)
	pushH := NewPushHandler(store.NewPushStore(db), pushSvc, env.sessions, logger)

	env.mux.HandleFunc("GET /api/tasks", taskH.List)
	env.mux.HandleFunc("POST /api/tasks", taskH.Create)
	env.mux.HandleFunc("PUT /api/tasks/{id}", taskH.Update)
	env.mux.HandleFunc("DELETE /api/tasks/{id}", taskH.Delete)
	env.mux.HandleFunc("GET /api/events", eventH.List)
	env.mux.HandleFunc("POST /api/events", eventH.Create)
	env.mux.HandleFunc("PUT /api/events/{id}", eventH.Update)
	env.mux.HandleFunc("DELETE /api/events/{id}", eventH.Delete)
	env.mux.HandleFunc("GET /api/notes", noteH.List)
	env.mux.HandleFunc("POST /api/notes", noteH.Create)
	env.mux.HandleFunc("PUT /api/notes/{id}", noteH.Update)
	env.mux.HandleFunc("DELETE /api/notes/{id}", noteH.Delete)
	env.mux.HandleFunc("GET /api/preferences", prefH.Get)
	env.mux.HandleFunc("PUT /api/preferences", prefH.Update)
	env.mux.HandleFunc("POST /api/notifications/clear-history", notifH.ClearHistory)
	env.mux.HandleFunc("GET /api/push/vapid-key", pushH.GetVAPIDKey)
	env.mux.HandleFunc("POST /api/push/subscribe", pushH.Subscribe)
	env.mux.HandleFunc("GET /api/push/subscriptions", pushH.ListSubscriptions)
	env.mux.HandleFunc("DELETE /api/push/subscriptions/{id}", pushH.Unsubscribe)
	return env
}

func (e *testEnv) do(t *testing.T, userID int64, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req = req.WithContext(auth.WithAuth(req.Context(), auth.AuthContext{UserID: userID}))
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}
