package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/areti-alliance/crm-gateway/internal/api/dto"
	"github.com/areti-alliance/crm-gateway/internal/domain"
	"github.com/areti-alliance/crm-gateway/internal/service"
)

// AccountsHandler exposes admin-only account provisioning endpoints.
type AccountsHandler struct {
	accounts *service.AccountService
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(accounts *service.AccountService) *AccountsHandler {
	return &AccountsHandler{accounts: accounts}
}

// Create handles POST /api/accounts.
func (h *AccountsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	account, err := h.accounts.Create(c.UserContext(), service.NewAccount{
		Username: req.Username,
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.Role(req.Role),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"account": dto.NewAccountPayload(account),
	})
}

// SetStatus handles PATCH /api/accounts/:id/status.
func (h *AccountsHandler) SetStatus(c *fiber.Ctx) error {
	var req dto.UpdateAccountStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	account, err := h.accounts.SetStatus(c.UserContext(), c.Params("id"), domain.AccountStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"account": dto.NewAccountPayload(account),
	})
}
