package reminder

import (
	"fmt"
	"math"
	"time"

	"github.com/dukerupert/nudge/internal/model"
)

// Alert is the user-facing text of a fired reminder.
type Alert struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// roundMinutes rounds d to whole minutes, halves toward +inf.
func roundMinutes(d time.Duration) int {
	return int(math.Floor(d.Minutes() + 0.5))
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func withDescription(msg, description string) string {
	if description == "" {
		return msg
	}
	return msg + "\n\n" + description
}

// DescribeTask renders the alert for a task decision.
func DescribeTask(now time.Time, d Decision, task model.Task) Alert {
	var msg string
	switch d.Key.Bucket {
	case Overdue:
		late := roundMinutes(now.Sub(*task.DueDate))
		if late < 0 {
			late = -late
		}
		msg = fmt.Sprintf("Task %q is %s overdue!", task.Title, plural(late, "minute"))
	default:
		msg = fmt.Sprintf("Task %q is due in 30 minutes", task.Title)
	}

	return Alert{
		Title: "Task Deadline: " + task.Title,
		Body:  withDescription(msg, task.Description),
	}
}

// DescribeEvent renders the alert for an event decision.
func DescribeEvent(now time.Time, d Decision, event model.CalendarEvent) Alert {
	until := roundMinutes(event.StartDate.Sub(now))

	var when string
	switch {
	case until <= 0:
		when = "now"
	case until < 60:
		when = "in " + plural(until, "minute")
	default:
		when = "in " + plural(until/60, "hour")
	}

	return Alert{
		Title: "Event Reminder: " + event.Title,
		Body:  withDescription(fmt.Sprintf("Your event %q is starting %s", event.Title, when), event.Description),
	}
}
