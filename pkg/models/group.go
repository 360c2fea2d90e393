package models

import "time"

// Group is a named set of users used for authorization decisions
type Group struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	MemberCount int       `json:"member_count" db:"-"`
}

// Membership relates one user to one group; (UserID, GroupID) is unique.
type Membership struct {
	UserID   int64     `json:"user_id" db:"user_id"`
	GroupID  int64     `json:"group_id" db:"group_id"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}

// GroupMember is the transfer object for one row of /usergroups/{id}/users
type GroupMember struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	IsActive  bool      `json:"is_active"`
	JoinedAt  time.Time `json:"joined_at"`
}

// GroupRequest is used for both create (name required) and partial update.
type GroupRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// GroupPatch carries a partial group update
type GroupPatch struct {
	Name        *string
	Description *string
}
