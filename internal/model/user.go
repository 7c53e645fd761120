package model

import "time"

// User is the slice of the identity provider's record the chat core reads.
type User struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	CreatedAt  time.Time  `json:"created_at"`
	DisabledAt *time.Time `json:"-"` // non-nil: account disabled, cannot authenticate
}

func (u *User) IsActive() bool { return u.DisabledAt == nil }
