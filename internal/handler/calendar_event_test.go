package handler

import (
	"net/http"
	"testing"

	"github.com/dukerupert/nudge/internal/model"
)

func TestEventCreateDefaultsChannel(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, env.alice, "POST", "/api/events",
		`{"title":"Standup","start_date":"2024-01-01T09:00:00Z","notifications":{"enabled":true,"lead_minutes":15}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body)
	}
	ev := decodeBody[model.CalendarEvent](t, rec)
	if ev.Notifications == nil || ev.Notifications.Channel != model.ChannelBrowser {
		t.Errorf("notifications = %+v, want browser channel", ev.Notifications)
	}
	if !ev.EndDate.Equal(ev.StartDate) {
		t.Errorf("end = %v, want start when omitted", ev.EndDate)
	}
	if got := env.sessions.count(env.alice); got != 1 {
		t.Errorf("refreshes = %d, want 1", got)
	}
}

func TestEventValidation(t *testing.T) {
	env := setupEnv(t)

	tests := []struct {
		name, body string
	}{
		{"missing start", `{"title":"x"}`},
		{"end before start", `{"title":"x","start_date":"2024-01-01T09:00:00Z","end_date":"2024-01-01T08:00:00Z"}`},
		{"negative lead", `{"title":"x","start_date":"2024-01-01T09:00:00Z","notifications":{"enabled":true,"lead_minutes":-5}}`},
		{"unknown channel", `{"title":"x","start_date":"2024-01-01T09:00:00Z","notifications":{"enabled":true,"channel":"sms"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, env.alice, "POST", "/api/events", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestEventUpdateAndDelete(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, env.alice, "POST", "/api/events", `{"id":"e1","title":"Dentist","start_date":"2024-01-01T09:00:00Z"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec = env.do(t, env.alice, "PUT", "/api/events/e1",
		`{"title":"Dentist","start_date":"2024-01-02T09:00:00Z","notifications":{"enabled":true,"lead_minutes":0,"channel":"email"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body)
	}
	ev := decodeBody[model.CalendarEvent](t, rec)
	if ev.Notifications == nil || ev.Notifications.Channel != model.ChannelEmail || ev.Notifications.LeadMinutes != 0 {
		t.Errorf("notifications = %+v", ev.Notifications)
	}

	if rec := env.do(t, env.bob, "DELETE", "/api/events/e1", ""); rec.Code != http.StatusNotFound {
		t.Errorf("delete by other owner = %d, want 404", rec.Code)
	}
	if rec := env.do(t, env.alice, "DELETE", "/api/events/e1", ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", rec.Code)
	}
	if rec := env.do(t, env.alice, "PUT", "/api/events/e1", `{"title":"x","start_date":"2024-01-02T09:00:00Z"}`); rec.Code != http.StatusNotFound {
		t.Errorf("update after delete = %d, want 404", rec.Code)
	}
}
