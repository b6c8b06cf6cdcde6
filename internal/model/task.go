package model

import "time"

// Task priority levels.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

type Task struct {
	ID           string     `json:"id"`
	UserID       int64      `json:"user_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Completed    bool       `json:"completed"`
	Priority     string     `json:"priority"`
	DueDate      *time.Time `json:"due_date"`
	ReminderSent bool       `json:"reminder_sent"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ValidPriority reports whether p is one of the known priority levels.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}
