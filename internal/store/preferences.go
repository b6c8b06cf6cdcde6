package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/nudge/internal/model"
)

type PreferenceStore struct {
	db *sql.DB
}

func NewPreferenceStore(db *sql.DB) *PreferenceStore {
	return &PreferenceStore{db: db}
}

// Get returns the user's preferences, or the defaults if none are stored.
func (s *PreferenceStore) Get(userID int64) (model.Preferences, error) {
	p := model.Preferences{UserID: userID}
	var email, tasks, events int

	err := s.db.QueryRow(
		`SELECT email_notifications, task_reminders, event_reminders, theme, timezone, updated_at
		 FROM user_preferences WHERE user_id = ?`, userID,
	).Scan(&email, &tasks, &events, &p.Theme, &p.Timezone, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.DefaultPreferences(userID), nil
	}
	if err != nil {
		return model.Preferences{}, fmt.Errorf("get preferences: %w", err)
	}

	p.EmailNotifications = email != 0
	p.TaskReminders = tasks != 0
	p.EventReminders = events != 0
	return p, nil
}

// Set upserts the user's preferences.
func (s *PreferenceStore) Set(p model.Preferences) (model.Preferences, error) {
	_, err := s.db.Exec(
		`INSERT INTO user_preferences (user_id, email_notifications, task_reminders, event_reminders, theme, timezone)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   email_notifications = excluded.email_notifications,
		   task_reminders = excluded.task_reminders,
		   event_reminders = excluded.event_reminders,
		   theme = excluded.theme,
		   timezone = excluded.timezone,
		   updated_at = CURRENT_TIMESTAMP`,
		p.UserID, boolInt(p.EmailNotifications), boolInt(p.TaskReminders), boolInt(p.EventReminders), p.Theme, p.Timezone,
	)
	if err != nil {
		return model.Preferences{}, fmt.Errorf("set preferences: %w", err)
	}
	return s.Get(p.UserID)
}
