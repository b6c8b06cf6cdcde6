package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/nudge/internal/alert"
	"github.com/dukerupert/nudge/internal/auth"
	"github.com/dukerupert/nudge/internal/handler"
	"github.com/dukerupert/nudge/internal/middleware"
	"github.com/dukerupert/nudge/internal/monitor"
	"github.com/dukerupert/nudge/internal/push"
	"github.com/dukerupert/nudge/internal/session"
	"github.com/dukerupert/nudge/internal/store"
	ws "github.com/dukerupert/nudge/internal/websocket"
)

// Config carries the collaborators and limits the HTTP server is built with.
type Config struct {
	Verifier *auth.Verifier
	// Push is always non-nil; an unconfigured service makes alerts socket-only.
	Push            *push.Service
	MonitorInterval time.Duration
	RatePerSecond   float64
	RateBurst       int
}

type Server struct {
	hub            *ws.Hub
	sessions       *session.Manager
	taskH          *handler.TaskHandler
	calendarEventH *handler.CalendarEventHandler
	noteH          *handler.NoteHandler
	preferencesH   *handler.PreferencesHandler
	notificationH  *handler.NotificationHandler
	pushH          *handler.PushHandler
	pushStore      *store.PushStore
	pushSvc        *push.Service
	verifier       *auth.Verifier
	rateLimiter    *middleware.RateLimiter
	logger         *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	taskStore := store.NewTaskStore(db)
	eventStore := store.NewEventStore(db)
	pushStore := store.NewPushStore(db)

	pushSvc := cfg.Push
	if pushSvc == nil {
		pushSvc = push.NewService(push.Config{})
	}

	dispatcher := alert.NewDispatcher(hub, pushSvc, pushStore, logger)
	sessions := session.NewManager(taskStore, eventStore, func(userID int64) monitor.Alerter {
		return dispatcher.ForUser(userID)
	}, cfg.MonitorInterval, logger)

	return &Server{
		hub:            hub,
		sessions:       sessions,
		taskH:          handler.NewTaskHandler(taskStore, hub, sessions, logger.With("component", "task")),
		calendarEventH: handler.NewCalendarEventHandler(eventStore, hub, sessions, logger.With("component", "calendar")),
		noteH:          handler.NewNoteHandler(store.NewNoteStore(db), hub, logger.With("component", "note")),
		preferencesH:   handler.NewPreferencesHandler(store.NewPreferenceStore(db), logger.With("component", "preferences")),
		notificationH:  handler.NewNotificationHandler(sessions),
		pushH:          handler.NewPushHandler(pushStore, pushSvc, sessions, logger.With("component", "push_handler")),
		pushStore:      pushStore,
		pushSvc:        pushSvc,
		verifier:       cfg.Verifier,
		rateLimiter:    middleware.NewRateLimiter(cfg.RatePerSecond, cfg.RateBurst),
		logger:         logger,
	}
}

// Sessions returns the per-user monitor manager.
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

// StartBackground starts a monitor for every user with a push subscription so
// reminders reach them without an open socket. It is a no-op when push is not
// configured.
func (s *Server) StartBackground(ctx context.Context) error {
	if !s.pushSvc.Configured() {
		return nil
	}
	ids, err := s.pushStore.UserIDs()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.sessions.SetBackground(ctx, id, true); err != nil {
			s.logger.Error("start background monitor", "user_id", id, "error", err)
		}
	}
	s.logger.Info("background monitors started", "users", len(ids))
	return nil
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Close stops every reminder monitor.
func (s *Server) Close() {
	s.sessions.Close()
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes, limited per user after authentication
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	limit := middleware.RateLimit(s.rateLimiter, rateKey)
	outerMux.Handle("/", middleware.RequireAuth(s.verifier)(limit(protectedMux)))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func rateKey(r *http.Request) string {
	if uid := auth.UserID(r.Context()); uid != 0 {
		return "user:" + strconv.FormatInt(uid, 10)
	}
	return "ip:" + middleware.RealIP(r)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"clients":  s.hub.ClientCount(),
		"monitors": s.sessions.Active(),
	})
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.sessions, s.logger.With("component", "websocket")))

	// Task API routes
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("PUT /api/tasks/{id}", s.taskH.Update)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.taskH.Delete)

	// Calendar event API routes
	mux.HandleFunc("GET /api/events", s.calendarEventH.List)
	mux.HandleFunc("POST /api/events", s.calendarEventH.Create)
	mux.HandleFunc("PUT /api/events/{id}", s.calendarEventH.Update)
	mux.HandleFunc("DELETE /api/events/{id}", s.calendarEventH.Delete)

	// Notes API routes
	mux.HandleFunc("GET /api/notes", s.noteH.List)
	mux.HandleFunc("POST /api/notes", s.noteH.Create)
	mux.HandleFunc("PUT /api/notes/{id}", s.noteH.Update)
	mux.HandleFunc("DELETE /api/notes/{id}", s.noteH.Delete)

	mux.HandleFunc("GET /api/preferences", s.preferencesH.Get)
	mux.HandleFunc("PUT /api/preferences", s.preferencesH.Update)

	mux.HandleFunc("POST /api/notifications/clear-history", s.notificationH.ClearHistory)

	// Push notification API routes
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
}
