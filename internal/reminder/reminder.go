// Package reminder decides whether a task or event has crossed a reminder
// threshold. Everything here is pure: no clocks, no I/O, no state.
package reminder

import (
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/nudge/internal/model"
)

// Kind identifies what sort of item a reminder is about.
type Kind string

const (
	KindTask  Kind = "task"
	KindEvent Kind = "event"
)

// Bucket is the threshold a reminder was fired for. The set is closed; a new
// threshold is a new constant plus a case in the classifier.
type Bucket string

const (
	Imminent Bucket = "imminent"
	Overdue  Bucket = "overdue"
	LeadTime Bucket = "lead_time"
)

const (
	// ImminentWindow is how long before its due date a task counts as imminent.
	ImminentWindow = 30 * time.Minute

	// EventTolerance is how far either side of start-lead an event still fires.
	// It must stay at least half the monitor interval or reminders are missed.
	EventTolerance = time.Minute
)

// Key identifies one (item, threshold) pair for deduplication.
type Key struct {
	Kind   Kind
	ItemID string
	Bucket Bucket
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s", k.Kind, k.ItemID, k.Bucket)
}

// Decision is the outcome of classifying one item. The zero value means the
// item should not fire.
type Decision struct {
	Fire    bool
	Key     Key
	Channel string
}

var (
	ErrMissingID      = errors.New("item has no id")
	ErrMissingStart   = errors.New("event has no start")
	ErrEndBeforeStart = errors.New("event ends before it starts")
	ErrNegativeLead   = errors.New("negative lead time")
	ErrUnknownChannel = errors.New("unknown notification channel")
)

func ms(t time.Time) time.Time {
	return t.Truncate(time.Millisecond)
}

// ClassifyTask reports whether task is imminent or overdue at now.
// Tasks have no channel of their own and always classify to the browser.
func ClassifyTask(now time.Time, task model.Task) (Decision, error) {
	if task.ID == "" {
		return Decision{}, ErrMissingID
	}
	if task.DueDate == nil || task.Completed {
		return Decision{}, nil
	}

	remaining := ms(*task.DueDate).Sub(ms(now))

	var bucket Bucket
	switch {
	case remaining <= 0:
		bucket = Overdue
	case remaining <= ImminentWindow:
		bucket = Imminent
	default:
		return Decision{}, nil
	}

	return Decision{
		Fire:    true,
		Key:     Key{Kind: KindTask, ItemID: task.ID, Bucket: bucket},
		Channel: model.ChannelBrowser,
	}, nil
}

// ClassifyEvent reports whether event's lead-time reminder is due at now.
func ClassifyEvent(now time.Time, event model.CalendarEvent) (Decision, error) {
	if event.ID == "" {
		return Decision{}, ErrMissingID
	}
	if event.StartDate.IsZero() {
		return Decision{}, ErrMissingStart
	}
	if event.EndDate.Before(event.StartDate) {
		return Decision{}, ErrEndBeforeStart
	}

	n := event.Notifications
	if n == nil || !n.Enabled {
		return Decision{}, nil
	}
	if n.LeadMinutes < 0 {
		return Decision{}, fmt.Errorf("event %s: %w", event.ID, ErrNegativeLead)
	}
	if !model.ValidChannel(n.Channel) {
		return Decision{}, fmt.Errorf("event %s channel %q: %w", event.ID, n.Channel, ErrUnknownChannel)
	}

	fireAt := ms(event.StartDate).Add(-time.Duration(n.LeadMinutes) * time.Minute)
	diff := ms(now).Sub(fireAt)
	if diff < 0 {
		diff = -diff
	}
	if diff > EventTolerance {
		return Decision{}, nil
	}

	return Decision{
		Fire:    true,
		Key:     Key{Kind: KindEvent, ItemID: event.ID, Bucket: LeadTime},
		Channel: n.Channel,
	}, nil
}
