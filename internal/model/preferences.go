package model

import "time"

// Preferences holds a user's notification and display settings.
// A user without a stored row gets DefaultPreferences.
type Preferences struct {
	UserID             int64     `json:"user_id"`
	EmailNotifications bool      `json:"email_notifications"`
	TaskReminders      bool      `json:"task_reminders"`
	EventReminders     bool      `json:"event_reminders"`
	Theme              string    `json:"theme"`
	Timezone           string    `json:"timezone"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func DefaultPreferences(userID int64) Preferences {
	return Preferences{
		UserID:             userID,
		EmailNotifications: true,
		TaskReminders:      true,
		EventReminders:     true,
		Theme:              "light",
		Timezone:           "UTC",
	}
}
