package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/nudge/internal/auth"
	"github.com/dukerupert/nudge/internal/store"
)

var validThemes = map[string]bool{
	"light":  true,
	"dark":   true,
	"system": true,
}

type PreferencesHandler struct {
	prefStore *store.PreferenceStore
	logger    *slog.Logger
}

func NewPreferencesHandler(ps *store.PreferenceStore, logger *slog.Logger) *PreferencesHandler {
	return &PreferencesHandler{prefStore: ps, logger: logger}
}

// Get handles GET /api/preferences
func (h *PreferencesHandler) Get(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.prefStore.Get(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("get preferences", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get preferences")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// Update handles PUT /api/preferences. Fields missing from the body keep
// their current values.
func (h *PreferencesHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	prefs, err := h.prefStore.Get(userID)
	if err != nil {
		h.logger.Error("get preferences", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get preferences")
		return
	}

	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	prefs.UserID = userID

	if !validThemes[prefs.Theme] {
		writeError(w, http.StatusBadRequest, "theme must be light, dark, or system")
		return
	}
	if _, err := time.LoadLocation(prefs.Timezone); err != nil || prefs.Timezone == "" {
		writeError(w, http.StatusBadRequest, "timezone must be an IANA zone name")
		return
	}

	saved, err := h.prefStore.Set(prefs)
	if err != nil {
		h.logger.Error("set preferences", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update preferences")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
