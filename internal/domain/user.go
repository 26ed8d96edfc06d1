package domain

import "time"

// User is the domain model for managed accounts. Token holds the access
// token most recently handed to the user and is consulted by the
// token-check endpoint.
type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	Token        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
