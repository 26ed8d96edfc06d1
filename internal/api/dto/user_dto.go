package dto

import "time"

// UserRegisterRequest payload for new users.
type UserRegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserLoginRequest payload for login. Role selects the token store
// partition; defaults to subscriber.
type UserLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UserUpdateRequest payload for profile updates.
type UserUpdateRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

// UserResponse is the public shape of a user record.
type UserResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// MembershipCheckRequest payload for the organization check.
type MembershipCheckRequest struct {
	AccessToken string `json:"access_token"`
}
