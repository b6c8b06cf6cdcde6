package model

import "time"

// Reminder delivery channels for an event.
const (
	ChannelBrowser = "browser"
	ChannelEmail   = "email"
)

// EventNotifications is the per-event reminder configuration.
// LeadMinutes is how long before StartDate the reminder fires.
type EventNotifications struct {
	Enabled     bool   `json:"enabled"`
	LeadMinutes int    `json:"lead_minutes"`
	Channel     string `json:"channel"`
}

type CalendarEvent struct {
	ID            string              `json:"id"`
	UserID        int64               `json:"user_id"`
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	StartDate     time.Time           `json:"start_date"`
	EndDate       time.Time           `json:"end_date"`
	AllDay        bool                `json:"all_day"`
	Category      string              `json:"category"`
	Notifications *EventNotifications `json:"notifications"`
	ReminderSent  bool                `json:"reminder_sent"`
	CreatedAt     time.Time           `json:"created_at"`
}

// ValidChannel reports whether c is a known reminder channel.
func ValidChannel(c string) bool {
	return c == ChannelBrowser || c == ChannelEmail
}
