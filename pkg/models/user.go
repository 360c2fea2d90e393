package models

import (
	"time"
)

// Well-known group names used by the access rules and the seed data.
const (
	GroupAdministrators = "Administrators"
	GroupManagers       = "Managers"
	GroupGeneralUsers   = "General Users"
)

// User represents a persisted account in the credential store
type User struct {
	ID           int64      `json:"id" db:"id"`
	Username     string     `json:"username" db:"username"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"` // Never return password in JSON
	FirstName    string     `json:"first_name" db:"first_name"`
	LastName     string     `json:"last_name" db:"last_name"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
}

// UserProfile is the transfer object returned for a user; it never carries the hash.
type UserProfile struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	Groups      []string   `json:"groups"`
}

// Profile builds the transfer object for u with the given group names.
func (u *User) Profile(groups []string) UserProfile {
	if groups == nil {
		groups = []string{}
	}
	return UserProfile{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
		Groups:      groups,
	}
}

// UserPatch carries a partial user update; nil fields are left untouched.
type UserPatch struct {
	Email        *string
	FirstName    *string
	LastName     *string
	IsActive     *bool
	PasswordHash *string
}

// UserRegisterRequest represents the request payload for user registration
type UserRegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// UserLoginRequest represents the request payload for user login
type UserLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserLoginResponse represents the response payload for user login
type UserLoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Groups    []string  `json:"groups"`
}

// CreateUserRequest is the administrator variant of registration.
// Groups defaults to the configured default group; IsActive defaults to true.
type CreateUserRequest struct {
	UserRegisterRequest
	IsActive *bool    `json:"is_active"`
	Groups   []string `json:"groups"`
}

// UpdateUserRequest is a partial update; absent fields are not modified.
type UpdateUserRequest struct {
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	IsActive  *bool   `json:"is_active"`
	Password  *string `json:"password"`
}
