package model

import "time"

// User is an authenticated principal. The ID is immutable once created;
// profile fields (Name, Email) may change. PasswordHash never leaves the
// service layer and is excluded from JSON output.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
