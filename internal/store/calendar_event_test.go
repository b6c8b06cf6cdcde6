package store

import (
	"testing"
	"time"

	"github.com/dukerupert/nudge/internal/model"
)

func TestEventCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	es := NewEventStore(db)
	uid := createTestUser(t, db, "alice@example.com")

	start := time.Date(2026, 2, 5, 10, 0, 0, 0, time.UTC)
	event, err := es.Create(uid, EventInput{
		Title:     "Team Meeting",
		StartDate: start,
		EndDate:   start.Add(time.Hour),
		Category:  "work",
		Notifications: &model.EventNotifications{
			Enabled: true, LeadMinutes: 15, Channel: model.ChannelEmail,
		},
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if event.ID == "" {
		t.Fatal("expected generated ID")
	}
	if !event.StartDate.Equal(start) {
		t.Errorf("start = %v, want %v", event.StartDate, start)
	}
	n := event.Notifications
	if n == nil || !n.Enabled || n.LeadMinutes != 15 || n.Channel != model.ChannelEmail {
		t.Errorf("notifications = %+v", n)
	}

	plain, err := es.Create(uid, EventInput{ID: "plain", Title: "Lunch", StartDate: start, EndDate: start})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if plain.Notifications != nil {
		t.Errorf("notifications = %+v, want nil", plain.Notifications)
	}
}

func TestEventGetByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	es := NewEventStore(db)
	uid := createTestUser(t, db, "alice@example.com")

	got, err := es.GetByID(uid, "nope")
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got != nil {
		t.Error("expected nil for missing event")
	}
}

func TestEventUpdateAndDelete(t *testing.T) {
	db := setupTestDB(t)
	es := NewEventStore(db)
	uid := createTestUser(t, db, "alice@example.com")

	start := time.Date(2026, 2, 5, 10, 0, 0, 0, time.UTC)
	es.Create(uid, EventInput{ID: "e1", Title: "Dentist", StartDate: start, EndDate: start.Add(time.Hour)})

	n, err := es.Update(uid, EventInput{
		ID: "e1", Title: "Dentist (moved)", StartDate: start.Add(24 * time.Hour), EndDate: start.Add(25 * time.Hour),
		Notifications: &model.EventNotifications{Enabled: false, LeadMinutes: 30},
	})
	if err != nil {
		t.Fatalf("update event: %v", err)
	}
	if n != 1 {
		t.Errorf("changed = %d, want 1", n)
	}
	got, _ := es.GetByID(uid, "e1")
	if got.Title != "Dentist (moved)" {
		t.Errorf("title = %q", got.Title)
	}
	if got.Notifications == nil || got.Notifications.Enabled || got.Notifications.Channel != model.ChannelBrowser {
		t.Errorf("notifications = %+v, want disabled browser config", got.Notifications)
	}

	other := createTestUser(t, db, "bob@example.com")
	n, _ = es.Delete(other, "e1")
	if n != 0 {
		t.Errorf("deleted = %d, want 0 for another user", n)
	}
	n, _ = es.Delete(uid, "e1")
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
}

func TestEventListDueForReminder(t *testing.T) {
	db := setupTestDB(t)
	es := NewEventStore(db)
	uid := createTestUser(t, db, "alice@example.com")

	now := time.Date(2026, 2, 5, 9, 0, 0, 0, time.UTC)
	mk := func(id string, startIn time.Duration, n *model.EventNotifications) {
		t.Helper()
		start := now.Add(startIn)
		if _, err := es.Create(uid, EventInput{ID: id, Title: id, StartDate: start, EndDate: start.Add(time.Hour), Notifications: n}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	mk("no-config", time.Hour, nil)
	mk("email", 90*time.Minute, &model.EventNotifications{Enabled: true, LeadMinutes: 15, Channel: model.ChannelEmail})
	mk("browser", time.Hour, &model.EventNotifications{Enabled: true, LeadMinutes: 15, Channel: model.ChannelBrowser})
	mk("disabled", time.Hour, &model.EventNotifications{Enabled: false, Channel: model.ChannelEmail})
	mk("later", 3*time.Hour, nil)
	mk("past", -time.Hour, nil)
	mk("sent", 30*time.Minute, nil)
	es.MarkReminderSent("sent")

	due, err := es.ListDueForReminder(now, now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("len = %d, want 2 (%+v)", len(due), due)
	}
	if due[0].Event.ID != "no-config" || due[1].Event.ID != "email" {
		t.Errorf("ids = %q, %q; want no-config, email", due[0].Event.ID, due[1].Event.ID)
	}
	if due[0].Owner.Name != "Test User" {
		t.Errorf("owner = %+v", due[0].Owner)
	}
}
