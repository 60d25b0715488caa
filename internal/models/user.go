package models

import "time"

// UserRecord is a registry entry binding a live connection to a display name.
type UserRecord struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joinedAt"`
}

// AnonymousUsername names actors whose connection never registered.
const AnonymousUsername = "Anonymous"
