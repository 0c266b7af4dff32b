package models

import (
	"time"

	"github.com/google/uuid"
)

// Role names recognized by the book routes. Role names are case-sensitive.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// User represents a catalog account authenticated with a username and password
type User struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	Username           string    `json:"username" db:"username"`
	PasswordHash       string    `json:"-" db:"password_hash"`
	IsActive           bool      `json:"is_active" db:"is_active"`
	AccountLocked      bool      `json:"account_locked" db:"account_locked"`
	CredentialsExpired bool      `json:"credentials_expired" db:"credentials_expired"`
	AccountExpired     bool      `json:"account_expired" db:"account_expired"`
	Roles              []string  `json:"roles" db:"-"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// NewUser creates a new active User instance
func NewUser(username, passwordHash string, roles ...string) *User {
	now := time.Now()
	return &User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		IsActive:     true,
		Roles:        roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// HasRole returns true if the user holds role
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin returns true if the user has the ADMIN role
func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}
