package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/nudge/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

// DueTask is a task selected for an email reminder, joined with its owner.
type DueTask struct {
	Task  model.Task
	Owner model.Owner
}

const taskCols = `id, user_id, title, description, completed, priority, due_date, reminder_sent, created_at, updated_at`

func scanTask(scanner interface{ Scan(...any) error }, extra ...any) (*model.Task, error) {
	var t model.Task
	var completed, reminderSent int
	var due sql.NullTime

	dest := []any{
		&t.ID, &t.UserID, &t.Title, &t.Description, &completed,
		&t.Priority, &due, &reminderSent, &t.CreatedAt, &t.UpdatedAt,
	}
	if err := scanner.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	t.Completed = completed != 0
	t.ReminderSent = reminderSent != 0
	if due.Valid {
		d := due.Time.UTC()
		t.DueDate = &d
	}
	return &t, nil
}

func (s *TaskStore) Create(userID int64, id, title, description, priority string, dueDate *time.Time) (*model.Task, error) {
	if priority == "" {
		priority = model.PriorityMedium
	}
	id = newID(id)

	_, err := s.db.Exec(
		`INSERT INTO tasks (id, user_id, title, description, priority, due_date) VALUES (?, ?, ?, ?, ?, ?)`,
		id, userID, title, description, priority, nullTime(dueDate),
	)
	if isUniqueViolation(err) {
		return nil, ErrDuplicateID
	}
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return s.GetByID(userID, id)
}

func (s *TaskStore) GetByID(userID int64, id string) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// ListByUser returns the owner's tasks, newest first.
func (s *TaskStore) ListByUser(userID int64) ([]model.Task, error) {
	rows, err := s.db.Query(`SELECT `+taskCols+` FROM tasks WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// Update replaces the editable fields and returns the number of rows changed.
// The reminder flag is left alone; only ResetReminder clears it.
func (s *TaskStore) Update(userID int64, id, title, description string, completed bool, priority string, dueDate *time.Time) (int64, error) {
	result, err := s.db.Exec(
		`UPDATE tasks
		 SET title = ?, description = ?, completed = ?, priority = ?, due_date = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ?`,
		title, description, boolInt(completed), priority, nullTime(dueDate), id, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("update task: %w", err)
	}
	return result.RowsAffected()
}

func (s *TaskStore) Delete(userID int64, id string) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return 0, fmt.Errorf("delete task: %w", err)
	}
	return result.RowsAffected()
}

// ListDueForReminder selects open tasks across all owners whose due date falls
// in [from, to] and whose reminder has not been sent. Owners who turned off
// email or task reminders are skipped.
func (s *TaskStore) ListDueForReminder(from, to time.Time) ([]DueTask, error) {
	rows, err := s.db.Query(
		`SELECT t.id, t.user_id, t.title, t.description, t.completed, t.priority, t.due_date,
		        t.reminder_sent, t.created_at, t.updated_at, u.name, u.email
		 FROM tasks t
		 JOIN users u ON t.user_id = u.id
		 LEFT JOIN user_preferences p ON p.user_id = t.user_id
		 WHERE t.due_date IS NOT NULL
		   AND t.due_date BETWEEN ? AND ?
		   AND t.completed = 0
		   AND t.reminder_sent != 1
		   AND COALESCE(p.email_notifications, 1) = 1
		   AND COALESCE(p.task_reminders, 1) = 1
		 ORDER BY t.due_date ASC`,
		dbTime(from), dbTime(to),
	)
	if err != nil {
		return nil, fmt.Errorf("list due tasks: %w", err)
	}
	defer rows.Close()

	var due []DueTask
	for rows.Next() {
		var owner model.Owner
		t, err := scanTask(rows, &owner.Name, &owner.Email)
		if err != nil {
			return nil, fmt.Errorf("scan due task: %w", err)
		}
		owner.UserID = t.UserID
		due = append(due, DueTask{Task: *t, Owner: owner})
	}
	return due, rows.Err()
}

// MarkReminderSent records a confirmed email delivery.
func (s *TaskStore) MarkReminderSent(id string) error {
	_, err := s.db.Exec(`UPDATE tasks SET reminder_sent = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark task reminder sent: %w", err)
	}
	return nil
}

// ResetReminder clears the reminder flag so the next sweep may select the
// task again. It is a maintenance operation, never part of normal flow.
func (s *TaskStore) ResetReminder(id string) (int64, error) {
	result, err := s.db.Exec(`UPDATE tasks SET reminder_sent = 0 WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("reset task reminder: %w", err)
	}
	return result.RowsAffected()
}
