package model

import "time"

// Session is an authenticated device. The signing secret lives in the secret
// store, not in this row.
type Session struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	DeviceName string     `json:"device_name"`
	LastSeenAt time.Time  `json:"last_seen_at"`
	CreatedAt  time.Time  `json:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}
