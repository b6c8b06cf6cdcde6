package model

import "time"

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Owner is the contact information joined onto items selected by the
// reminder sweeps.
type Owner struct {
	UserID int64
	Name   string
	Email  string
}
