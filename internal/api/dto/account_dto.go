package dto

import "github.com/areti-alliance/crm-gateway/internal/domain"

// CreateAccountRequest payload for admin account provisioning.
type CreateAccountRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UpdateAccountStatusRequest payload for activating or suspending an account.
type UpdateAccountStatusRequest struct {
	Status string `json:"status"`
}

// AccountPayload is the client-facing account shape. The password hash is
// never serialized.
type AccountPayload struct {
	ID       string               `json:"id"`
	Username string               `json:"username"`
	Name     string               `json:"name"`
	Email    string               `json:"email"`
	Role     domain.Role          `json:"role"`
	Status   domain.AccountStatus `json:"status"`
}

// NewAccountPayload maps a domain account to its response shape.
func NewAccountPayload(account *domain.Account) AccountPayload {
	return AccountPayload{
		ID:       account.ID,
		Username: account.Username,
		Name:     account.Name,
		Email:    account.Email,
		Role:     account.Role,
		Status:   account.Status,
	}
}
