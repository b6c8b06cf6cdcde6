package handler

import (
	"net/http"
	"testing"

	"github.com/dukerupert/nudge/internal/model"
)

func TestPreferencesDefaultsAndPartialUpdate(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, env.alice, "GET", "/api/preferences", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	prefs := decodeBody[model.Preferences](t, rec)
	if !prefs.EmailNotifications || !prefs.TaskReminders || prefs.Theme != "light" {
		t.Errorf("defaults = %+v", prefs)
	}

	rec = env.do(t, env.alice, "PUT", "/api/preferences", `{"task_reminders":false,"user_id":999}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d, body %s", rec.Code, rec.Body)
	}
	prefs = decodeBody[model.Preferences](t, rec)
	if prefs.TaskReminders {
		t.Error("task_reminders should be off")
	}
	if !prefs.EventReminders {
		t.Error("event_reminders should keep its value")
	}
	if prefs.UserID != env.alice {
		t.Errorf("user_id = %d, want caller %d", prefs.UserID, env.alice)
	}

	rec = env.do(t, env.bob, "GET", "/api/preferences", "")
	if got := decodeBody[model.Preferences](t, rec); !got.TaskReminders {
		t.Error("bob's preferences changed")
	}
}

func TestPreferencesValidation(t *testing.T) {
	env := setupEnv(t)

	for _, body := range []string{`{"theme":"neon"}`, `{"timezone":"Mars/Olympus"}`, `{`} {
		if rec := env.do(t, env.alice, "PUT", "/api/preferences", body); rec.Code != http.StatusBadRequest {
			t.Errorf("PUT %s = %d, want 400", body, rec.Code)
		}
	}
}
