package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a row is absent or falls outside the caller's
// ownership scope. The two cases are deliberately indistinguishable so a
// caller cannot probe other users' data.
var ErrNotFound = errors.New("not found")

const (
	RoleAdmin = "admin"
	RoleUser  = "user"

	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Category struct {
	ID          int64
	OwnerUserID int64
	Name        string
	SortOrder   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Link struct {
	ID          int64
	OwnerUserID int64
	CategoryID  int64
	Name        string
	URL         string
	Icon        string
	SortOrder   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
