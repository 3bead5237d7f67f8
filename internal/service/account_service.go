package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/areti-alliance/crm-gateway/internal/auth"
	"github.com/areti-alliance/crm-gateway/internal/domain"
	"github.com/areti-alliance/crm-gateway/internal/repository"
	apperrors "github.com/areti-alliance/crm-gateway/pkg/util"
)

// NewAccount carries the fields an administrator supplies when provisioning
// a local account. The plaintext password never leaves this call.
type NewAccount struct {
	Username string
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

// AccountService provisions and manages local accounts. Only administrators
// reach it; there is no self-registration.
type AccountService struct {
	accounts   repository.AccountRepository
	bcryptCost int
	logger     *zap.Logger
}

// NewAccountService builds the service.
func NewAccountService(accounts repository.AccountRepository, bcryptCost int, logger *zap.Logger) *AccountService {
	return &AccountService{accounts: accounts, bcryptCost: bcryptCost, logger: logger}
}

// Create provisions a local account with a hashed password. The role
// defaults to user; guest is never assignable to a stored account.
func (s *AccountService) Create(ctx context.Context, input NewAccount) (*domain.Account, error) {
	if input.Username == "" || input.Password == "" {
		return nil, apperrors.NewValidationError("username and password required", nil)
	}
	role := input.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() || role == domain.RoleGuest {
		return nil, apperrors.NewValidationError("role not assignable", map[string]any{"role": string(role)})
	}

	_, err := s.accounts.GetByUsername(ctx, input.Username)
	switch {
	case err == nil:
		return nil, apperrors.NewConflict("username already taken", nil)
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	account := &domain.Account{
		Username:     input.Username,
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         role,
		Status:       domain.AccountStatusActive,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("account provisioned",
		zap.String("account_id", account.ID),
		zap.String("role", string(account.Role)),
	)
	return account, nil
}

// SetStatus activates or suspends an account. Suspended accounts fail login
// the same way bad credentials do.
func (s *AccountService) SetStatus(ctx context.Context, id string, status domain.AccountStatus) (*domain.Account, error) {
	if status != domain.AccountStatusActive && status != domain.AccountStatusSuspended {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": string(status)})
	}

	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("account", nil)
		}
		return nil, apperrors.MapError(err)
	}

	account.Status = status
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("account status changed",
		zap.String("account_id", account.ID),
		zap.String("status", string(status)),
	)
	return account, nil
}
