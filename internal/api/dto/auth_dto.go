package dto

import (
	"time"

	"github.com/areti-alliance/crm-gateway/internal/domain"
)

// LoginRequest payload for local credential login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenExchangeRequest payload for exchanging an external provider token.
type TokenExchangeRequest struct {
	Token string `json:"token"`
}

// UserPayload is the client-facing identity shape.
type UserPayload struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Success   bool        `json:"success"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      UserPayload `json:"user"`
}
