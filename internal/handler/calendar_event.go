package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/nudge/internal/auth"
	"github.com/dukerupert/nudge/internal/model"
	"github.com/dukerupert/nudge/internal/store"
)

type CalendarEventHandler struct {
	eventStore *store.EventStore
	changes    changes
	logger     *slog.Logger
}

func NewCalendarEventHandler(es *store.EventStore, hub Broadcaster, sessions Refresher, logger *slog.Logger) *CalendarEventHandler {
	return &CalendarEventHandler{
		eventStore: es,
		changes:    changes{hub: hub, sessions: sessions, logger: logger},
		logger:     logger,
	}
}

type eventRequest struct {
	ID            string                    `json:"id"`
	Title         string                    `json:"title"`
	Description   string                    `json:"description"`
	StartDate     *time.Time                `json:"start_date"`
	EndDate       *time.Time                `json:"end_date"`
	AllDay        bool                      `json:"all_day"`
	Category      string                    `json:"category"`
	Notifications *model.EventNotifications `json:"notifications"`
}

func decodeEvent(w http.ResponseWriter, r *http.Request) (store.EventInput, bool) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return store.EventInput{}, false
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return store.EventInput{}, false
	}
	if req.StartDate == nil || req.StartDate.IsZero() {
		writeError(w, http.StatusBadRequest, "start_date is required")
		return store.EventInput{}, false
	}

	in := store.EventInput{
		ID:            req.ID,
		Title:         req.Title,
		Description:   req.Description,
		StartDate:     *req.StartDate,
		EndDate:       *req.StartDate,
		AllDay:        req.AllDay,
		Category:      req.Category,
		Notifications: req.Notifications,
	}
	if req.EndDate != nil {
		in.EndDate = *req.EndDate
	}
	if in.EndDate.Before(in.StartDate) {
		writeError(w, http.StatusBadRequest, "end_date must not be before start_date")
		return store.EventInput{}, false
	}

	if n := in.Notifications; n != nil {
		if n.LeadMinutes < 0 {
			writeError(w, http.StatusBadRequest, "notifications.lead_minutes must not be negative")
			return store.EventInput{}, false
		}
		if n.Channel == "" {
			n.Channel = model.ChannelBrowser
		}
		if !model.ValidChannel(n.Channel) {
			writeError(w, http.StatusBadRequest, "notifications.channel must be browser or email")
			return store.EventInput{}, false
		}
	}

	return in, true
}

func (h *CalendarEventHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	in, ok := decodeEvent(w, r)
	if !ok {
		return
	}

	event, err := h.eventStore.Create(userID, in)
	if errors.Is(err, store.ErrDuplicateID) {
		writeError(w, http.StatusConflict, "id already in use")
		return
	}
	if err != nil {
		h.logger.Error("create event", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create event")
		return
	}

	h.changes.publishAndRefresh(r.Context(), userID, "event", "created", event.ID)
	writeJSON(w, http.StatusCreated, event)
}

func (h *CalendarEventHandler) List(w http.ResponseWriter, r *http.Request) {
	events, err := h.eventStore.ListByUser(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list events", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []model.CalendarEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *CalendarEventHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	in, ok := decodeEvent(w, r)
	if !ok {
		return
	}
	in.ID = r.PathValue("id")

	changed, err := h.eventStore.Update(userID, in)
	if err != nil {
		h.logger.Error("update event", "id", in.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update event")
		return
	}
	if changed == 0 {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	event, err := h.eventStore.GetByID(userID, in.ID)
	if err != nil || event == nil {
		h.logger.Error("reload event", "id", in.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load event")
		return
	}

	h.changes.publishAndRefresh(r.Context(), userID, "event", "updated", in.ID)
	writeJSON(w, http.StatusOK, event)
}

func (h *CalendarEventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	id := r.PathValue("id")

	changed, err := h.eventStore.Delete(userID, id)
	if err != nil {
		h.logger.Error("delete event", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}
	if changed == 0 {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	h.changes.publishAndRefresh(r.Context(), userID, "event", "deleted", id)
	w.WriteHeader(http.StatusNoContent)
}
