package events

import (
	"time"

	"github.com/spec-kit/user-management-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered     EventType = "user_registered"
	EventUserLoggedIn       EventType = "user_logged_in"
	EventTokenRefreshed     EventType = "token_refreshed"
	EventTokenPersistFailed EventType = "token_persist_failed"
)

// Event represents an auth audit event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Username  string      `json:"username"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TokenRefreshedPayload payload.
type TokenRefreshedPayload struct {
	Role domain.TokenRole `json:"role"`
}

// TokenPersistFailedPayload payload.
type TokenPersistFailedPayload struct {
	Role   domain.TokenRole `json:"role"`
	Reason string           `json:"reason"`
}

// UserLoggedInPayload payload.
type UserLoggedInPayload struct {
	Role domain.TokenRole `json:"role"`
}
