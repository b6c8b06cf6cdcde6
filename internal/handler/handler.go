package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/nudge/internal/websocket"
)

// Broadcaster pushes change notifications to a user's open clients.
type Broadcaster interface {
	SendToUser(userID int64, msg websocket.Message) int
}

// Refresher reloads a user's reminder monitor after their data changed.
type Refresher interface {
	Refresh(ctx context.Context, userID int64) error
}

// changes fans a mutation out to the owner's live clients and, for reminder
// sources, to their monitor.
type changes struct {
	hub      Broadcaster
	sessions Refresher
	logger   *slog.Logger
}

func (c changes) publish(ctx context.Context, userID int64, entity, action, id string) {
	if c.hub != nil {
		c.hub.SendToUser(userID, websocket.NewMessage(entity, action, id))
	}
}

func (c changes) publishAndRefresh(ctx context.Context, userID int64, entity, action, id string) {
	c.publish(ctx, userID, entity, action, id)
	if c.sessions == nil {
		return
	}
	if err := c.sessions.Refresh(ctx, userID); err != nil {
		c.logger.Warn("refresh reminder monitor", "user_id", userID, "error", err)
	}
}

func parseIDParam(r *http.Request) (int64, error) {
	idStr := r.PathValue("id")
	return strconv.ParseInt(idStr, 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
