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

type TaskHandler struct {
	taskStore *store.TaskStore
	changes   changes
	logger    *slog.Logger
}

func NewTaskHandler(ts *store.TaskStore, hub Broadcaster, sessions Refresher, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		taskStore: ts,
		changes:   changes{hub: hub, sessions: sessions, logger: logger},
		logger:    logger,
	}
}

type taskRequest struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
}

func decodeTask(w http.ResponseWriter, r *http.Request) (*taskRequest, bool) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return nil, false
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return nil, false
	}

	if req.Priority == "" {
		req.Priority = model.PriorityMedium
	}
	if !model.ValidPriority(req.Priority) {
		writeError(w, http.StatusBadRequest, "priority must be low, medium, or high")
		return nil, false
	}

	return &req, true
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	req, ok := decodeTask(w, r)
	if !ok {
		return
	}

	task, err := h.taskStore.Create(userID, req.ID, req.Title, req.Description, req.Priority, req.DueDate)
	if errors.Is(err, store.ErrDuplicateID) {
		writeError(w, http.StatusConflict, "id already in use")
		return
	}
	if err != nil {
		h.logger.Error("create task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	h.changes.publishAndRefresh(r.Context(), userID, "task", "created", task.ID)
	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.taskStore.ListByUser(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list tasks", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	id := r.PathValue("id")

	req, ok := decodeTask(w, r)
	if !ok {
		return
	}

	changed, err := h.taskStore.Update(userID, id, req.Title, req.Description, req.Completed, req.Priority, req.DueDate)
	if err != nil {
		h.logger.Error("update task", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update task")
		return
	}
	if changed == 0 {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	task, err := h.taskStore.GetByID(userID, id)
	if err != nil || task == nil {
		h.logger.Error("reload task", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load task")
		return
	}

	h.changes.publishAndRefresh(r.Context(), userID, "task", "updated", id)
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	id := r.PathValue("id")

	changed, err := h.taskStore.Delete(userID, id)
	if err != nil {
		h.logger.Error("delete task", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}
	if changed == 0 {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	h.changes.publishAndRefresh(r.Context(), userID, "task", "deleted", id)
	w.WriteHeader(http.StatusNoContent)
}
