package handler

import (
	"net/http"

	"github.com/dukerupert/nudge/internal/auth"
)

type HistoryClearer interface {
	ClearHistory(userID int64) bool
}

type NotificationHandler struct {
	sessions HistoryClearer
}

func NewNotificationHandler(sessions HistoryClearer) *NotificationHandler {
	return &NotificationHandler{sessions: sessions}
}

// ClearHistory handles POST /api/notifications/clear-history
func (h *NotificationHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	cleared := h.sessions.ClearHistory(auth.UserID(r.Context()))
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": cleared})
}
