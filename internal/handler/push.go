package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/nudge/internal/auth"
	"github.com/dukerupert/nudge/internal/model"
	"github.com/dukerupert/nudge/internal/push"
	"github.com/dukerupert/nudge/internal/store"
)

// BackgroundMonitor keeps reminders running for users reachable only by push.
type BackgroundMonitor interface {
	SetBackground(ctx context.Context, userID int64, on bool) error
}

type PushHandler struct {
	pushStore  *store.PushStore
	service    *push.Service
	background BackgroundMonitor
	logger     *slog.Logger
}

func NewPushHandler(ps *store.PushStore, svc *push.Service, background BackgroundMonitor, logger *slog.Logger) *PushHandler {
	return &PushHandler{pushStore: ps, service: svc, background: background, logger: logger}
}

// subscribeRequest accepts both flat keys and the browser's
// PushSubscription.toJSON() shape.
type subscribeRequest struct {
	Endpoint   string `json:"endpoint"`
	P256dh     string `json:"p256dh"`
	Auth       string `json:"auth"`
	DeviceName string `json:"device_name"`
	Keys       struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// Subscribe handles POST /api/push/subscribe
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.P256dh == "" {
		req.P256dh = req.Keys.P256dh
	}
	if req.Auth == "" {
		req.Auth = req.Keys.Auth
	}

	if req.Endpoint == "" || req.P256dh == "" || req.Auth == "" {
		writeError(w, http.StatusBadRequest, "endpoint, p256dh, and auth are required")
		return
	}

	sub, err := h.pushStore.CreateSubscription(userID, req.Endpoint, req.P256dh, req.Auth, req.DeviceName)
	if err != nil {
		h.logger.Error("create push subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save subscription")
		return
	}

	if h.service.Configured() {
		if err := h.background.SetBackground(r.Context(), userID, true); err != nil {
			h.logger.Error("start background monitor", "user_id", userID, "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, sub)
}

// Unsubscribe handles DELETE /api/push/subscriptions/{id}
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	changed, err := h.pushStore.DeleteSubscription(id, userID)
	if err != nil {
		h.logger.Error("delete push subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete subscription")
		return
	}
	if changed == 0 {
		writeError(w, http.StatusNotFound, "subscription not found")
		return
	}

	remaining, err := h.pushStore.ListByUser(userID)
	if err != nil {
		h.logger.Error("list push subscriptions", "error", err)
	} else if len(remaining) == 0 {
		h.background.SetBackground(r.Context(), userID, false)
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListSubscriptions handles GET /api/push/subscriptions
func (h *PushHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.pushStore.ListByUser(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list subscriptions")
		return
	}
	if subs == nil {
		subs = []model.PushSubscription{}
	}
	writeJSON(w, http.StatusOK, subs)
}

// GetVAPIDKey handles GET /api/push/vapid-key
func (h *PushHandler) GetVAPIDKey(w http.ResponseWriter, r *http.Request) {
	if !h.service.Configured() {
		writeError(w, http.StatusNotFound, "push notifications are not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.service.VAPIDPublicKey()})
}
