package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/nudge/internal/model"
)

type NoteStore struct {
	db *sql.DB
}

func NewNoteStore(db *sql.DB) *NoteStore {
	return &NoteStore{db: db}
}

func scanNote(scanner interface{ Scan(...any) error }) (*model.Note, error) {
	var n model.Note
	var tags string

	err := scanner.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.Category, &tags, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tags), &n.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	return &n, nil
}

const noteCols = `id, user_id, title, content, category, tags, created_at, updated_at`

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}

func (s *NoteStore) Create(userID int64, id, title, content, category string, tags []string) (*model.Note, error) {
	encoded, err := encodeTags(tags)
	if err != nil {
		return nil, err
	}
	id = newID(id)

	_, err = s.db.Exec(
		`INSERT INTO notes (id, user_id, title, content, category, tags) VALUES (?, ?, ?, ?, ?, ?)`,
		id, userID, title, content, category, encoded,
	)
	if isUniqueViolation(err) {
		return nil, ErrDuplicateID
	}
	if err != nil {
		return nil, fmt.Errorf("insert note: %w", err)
	}
	return s.GetByID(userID, id)
}

func (s *NoteStore) GetByID(userID int64, id string) (*model.Note, error) {
	row := s.db.QueryRow(`SELECT `+noteCols+` FROM notes WHERE id = ? AND user_id = ?`, id, userID)
	n, err := scanNote(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	return n, nil
}

// ListByUser returns the owner's notes, most recently edited first.
func (s *NoteStore) ListByUser(userID int64) ([]model.Note, error) {
	rows, err := s.db.Query(`SELECT `+noteCols+` FROM notes WHERE user_id = ? ORDER BY updated_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var notes []model.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, *n)
	}
	return notes, rows.Err()
}

func (s *NoteStore) Update(userID int64, id, title, content, category string, tags []string) (int64, error) {
	encoded, err := encodeTags(tags)
	if err != nil {
		return 0, err
	}

	result, err := s.db.Exec(
		`UPDATE notes SET title = ?, content = ?, category = ?, tags = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ?`,
		title, content, category, encoded, id, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("update note: %w", err)
	}
	return result.RowsAffected()
}

func (s *NoteStore) Delete(userID int64, id string) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM notes WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return 0, fmt.Errorf("delete note: %w", err)
	}
	return result.RowsAffected()
}
