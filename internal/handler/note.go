package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/nudge/internal/auth"
	"github.com/dukerupert/nudge/internal/model"
	"github.com/dukerupert/nudge/internal/store"
)

type NoteHandler struct {
	noteStore *store.NoteStore
	changes   changes
	logger    *slog.Logger
}

func NewNoteHandler(ns *store.NoteStore, hub Broadcaster, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{
		noteStore: ns,
		changes:   changes{hub: hub, logger: logger},
		logger:    logger,
	}
}

type noteRequest struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

func decodeNote(w http.ResponseWriter, r *http.Request) (*noteRequest, bool) {
	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return nil, false
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return nil, false
	}

	tags := req.Tags[:0]
	for _, t := range req.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	req.Tags = tags

	return &req, true
}

func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	req, ok := decodeNote(w, r)
	if !ok {
		return
	}

	note, err := h.noteStore.Create(userID, req.ID, req.Title, req.Content, req.Category, req.Tags)
	if errors.Is(err, store.ErrDuplicateID) {
		writeError(w, http.StatusConflict, "id already in use")
		return
	}
	if err != nil {
		h.logger.Error("create note", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create note")
		return
	}

	h.changes.publish(r.Context(), userID, "note", "created", note.ID)
	writeJSON(w, http.StatusCreated, note)
}

func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	notes, err := h.noteStore.ListByUser(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list notes", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list notes")
		return
	}
	if notes == nil {
		notes = []model.Note{}
	}
	writeJSON(w, http.StatusOK, notes)
}

func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	id := r.PathValue("id")

	req, ok := decodeNote(w, r)
	if !ok {
		return
	}

	changed, err := h.noteStore.Update(userID, id, req.Title, req.Content, req.Category, req.Tags)
	if err != nil {
		h.logger.Error("update note", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update note")
		return
	}
	if changed == 0 {
		writeError(w, http.StatusNotFound, "note not found")
		return
	}

	note, err := h.noteStore.GetByID(userID, id)
	if err != nil || note == nil {
		h.logger.Error("reload note", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load note")
		return
	}

	h.changes.publish(r.Context(), userID, "note", "updated", id)
	writeJSON(w, http.StatusOK, note)
}

func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	id := r.PathValue("id")

	changed, err := h.noteStore.Delete(userID, id)
	if err != nil {
		h.logger.Error("delete note", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete note")
		return
	}
	if changed == 0 {
		writeError(w, http.StatusNotFound, "note not found")
		return
	}

	h.changes.publish(r.Context(), userID, "note", "deleted", id)
	w.WriteHeader(http.StatusNoContent)
}
