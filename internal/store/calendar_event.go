package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/nudge/internal/model"
)

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

// DueEvent is an event selected for an email reminder, joined with its owner.
type DueEvent struct {
	Event model.CalendarEvent
	Owner model.Owner
}

// EventInput carries the editable fields of an event.
type EventInput struct {
	ID            string
	Title         string
	Description   string
	StartDate     time.Time
	EndDate       time.Time
	AllDay        bool
	Category      string
	Notifications *model.EventNotifications
}

const eventCols = `id, user_id, title, description, start_date, end_date, all_day, category,
	notify_enabled, notify_lead_minutes, notify_channel, reminder_sent, created_at`

func scanEvent(scanner interface{ Scan(...any) error }, extra ...any) (*model.CalendarEvent, error) {
	var e model.CalendarEvent
	var allDay, reminderSent, leadMinutes int
	var enabled sql.NullInt64
	var channel string

	dest := []any{
		&e.ID, &e.UserID, &e.Title, &e.Description, &e.StartDate, &e.EndDate, &allDay, &e.Category,
		&enabled, &leadMinutes, &channel, &reminderSent, &e.CreatedAt,
	}
	if err := scanner.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	e.StartDate = e.StartDate.UTC()
	e.EndDate = e.EndDate.UTC()
	e.AllDay = allDay != 0
	e.ReminderSent = reminderSent != 0
	if enabled.Valid {
		e.Notifications = &model.EventNotifications{
			Enabled:     enabled.Int64 != 0,
			LeadMinutes: leadMinutes,
			Channel:     channel,
		}
	}
	return &e, nil
}

// notifyArgs flattens the optional notification config into its three columns.
func notifyArgs(n *model.EventNotifications) (sql.NullInt64, int, string) {
	if n == nil {
		return sql.NullInt64{}, 0, model.ChannelBrowser
	}
	channel := n.Channel
	if channel == "" {
		channel = model.ChannelBrowser
	}
	return sql.NullInt64{Int64: int64(boolInt(n.Enabled)), Valid: true}, n.LeadMinutes, channel
}

func (s *EventStore) Create(userID int64, in EventInput) (*model.CalendarEvent, error) {
	id := newID(in.ID)
	enabled, lead, channel := notifyArgs(in.Notifications)

	_, err := s.db.Exec(
		`INSERT INTO events (id, user_id, title, description, start_date, end_date, all_day, category,
		                     notify_enabled, notify_lead_minutes, notify_channel)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, userID, in.Title, in.Description, dbTime(in.StartDate), dbTime(in.EndDate),
		boolInt(in.AllDay), in.Category, enabled, lead, channel,
	)
	if isUniqueViolation(err) {
		return nil, ErrDuplicateID
	}
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return s.GetByID(userID, id)
}

func (s *EventStore) GetByID(userID int64, id string) (*model.CalendarEvent, error) {
	row := s.db.QueryRow(`SELECT `+eventCols+` FROM events WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// ListByUser returns the owner's events ordered by start date.
func (s *EventStore) ListByUser(userID int64) ([]model.CalendarEvent, error) {
	rows, err := s.db.Query(`SELECT `+eventCols+` FROM events WHERE user_id = ? ORDER BY start_date ASC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.CalendarEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (s *EventStore) Update(userID int64, in EventInput) (int64, error) {
	enabled, lead, channel := notifyArgs(in.Notifications)

	result, err := s.db.Exec(
		`UPDATE events
		 SET title = ?, description = ?, start_date = ?, end_date = ?, all_day = ?, category = ?,
		     notify_enabled = ?, notify_lead_minutes = ?, notify_channel = ?
		 WHERE id = ? AND user_id = ?`,
		in.Title, in.Description, dbTime(in.StartDate), dbTime(in.EndDate), boolInt(in.AllDay), in.Category,
		enabled, lead, channel, in.ID, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("update event: %w", err)
	}
	return result.RowsAffected()
}

func (s *EventStore) Delete(userID int64, id string) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM events WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return 0, fmt.Errorf("delete event: %w", err)
	}
	return result.RowsAffected()
}

// ListDueForReminder selects events across all owners starting in [from, to]
// whose reminder has not been sent. Events whose notifications are disabled
// or routed to the browser channel are never emailed, and neither are events
// of owners who turned off email or event reminders.
func (s *EventStore) ListDueForReminder(from, to time.Time) ([]DueEvent, error) {
	rows, err := s.db.Query(
		`SELECT e.id, e.user_id, e.title, e.description, e.start_date, e.end_date, e.all_day, e.category,
		        e.notify_enabled, e.notify_lead_minutes, e.notify_channel, e.reminder_sent, e.created_at,
		        u.name, u.email
		 FROM events e
		 JOIN users u ON e.user_id = u.id
		 LEFT JOIN user_preferences p ON p.user_id = e.user_id
		 WHERE e.start_date BETWEEN ? AND ?
		   AND e.reminder_sent != 1
		   AND (e.notify_enabled IS NULL OR (e.notify_enabled = 1 AND e.notify_channel = 'email'))
		   AND COALESCE(p.email_notifications, 1) = 1
		   AND COALESCE(p.event_reminders, 1) = 1
		 ORDER BY e.start_date ASC`,
		dbTime(from), dbTime(to),
	)
	if err != nil {
		return nil, fmt.Errorf("list due events: %w", err)
	}
	defer rows.Close()

	var due []DueEvent
	for rows.Next() {
		var owner model.Owner
		e, err := scanEvent(rows, &owner.Name, &owner.Email)
		if err != nil {
			return nil, fmt.Errorf("scan due event: %w", err)
		}
		owner.UserID = e.UserID
		due = append(due, DueEvent{Event: *e, Owner: owner})
	}
	return due, rows.Err()
}

// MarkReminderSent records a confirmed email delivery.
func (s *EventStore) MarkReminderSent(id string) error {
	_, err := s.db.Exec(`UPDATE events SET reminder_sent = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark event reminder sent: %w", err)
	}
	return nil
}

// ResetReminder clears the reminder flag. Maintenance only.
func (s *EventStore) ResetReminder(id string) (int64, error) {
	result, err := s.db.Exec(`UPDATE events SET reminder_sent = 0 WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("reset event reminder: %w", err)
	}
	return result.RowsAffected()
}
