package handler

import (
	"net/http"
	"testing"

	"github.com/dukerupert/nudge/internal/model"
)

func TestNoteLifecycle(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, env.alice, "POST", "/api/notes", `{"title":"Ideas","content":"ship it","tags":["work"," ",""]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body)
	}
	note := decodeBody[model.Note](t, rec)
	if len(note.Tags) != 1 || note.Tags[0] != "work" {
		t.Errorf("tags = %v, want [work]", note.Tags)
	}

	rec = env.do(t, env.alice, "PUT", "/api/notes/"+note.ID, `{"title":"Ideas","content":"ship it today"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d", rec.Code)
	}
	if got := decodeBody[model.Note](t, rec); got.Content != "ship it today" {
		t.Errorf("content = %q", got.Content)
	}

	if rec := env.do(t, env.bob, "PUT", "/api/notes/"+note.ID, `{"title":"x"}`); rec.Code != http.StatusNotFound {
		t.Errorf("update by other owner = %d, want 404", rec.Code)
	}
	if rec := env.do(t, env.alice, "DELETE", "/api/notes/"+note.ID, ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", rec.Code)
	}

	// Notes are not reminder sources.
	if got := env.sessions.count(env.alice); got != 0 {
		t.Errorf("refreshes = %d, want 0", got)
	}
	if got := len(env.hub.types(env.alice)); got != 3 {
		t.Errorf("messages = %d, want 3", got)
	}
}

func TestNoteRequiresTitle(t *testing.T) {
	env := setupEnv(t)
	if rec := env.do(t, env.alice, "POST", "/api/notes", `{"content":"no title"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
