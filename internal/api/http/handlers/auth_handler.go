package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/areti-alliance/crm-gateway/internal/api/dto"
	"github.com/areti-alliance/crm-gateway/internal/auth"
	"github.com/areti-alliance/crm-gateway/internal/service"
)

// AuthHandler exposes the gateway's authentication endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Username == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "username and password required")
	}

	session, err := h.auth.Login(c.UserContext(), req.Username, req.Password, c.IP())
	if err != nil {
		return err
	}
	return c.JSON(sessionResponse(session))
}

// Exchange handles POST /auth/token.
func (h *AuthHandler) Exchange(c *fiber.Ctx) error {
	var req dto.TokenExchangeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Token == "" {
		return fiber.NewError(http.StatusBadRequest, "token required")
	}

	session, err := h.auth.Exchange(c.UserContext(), req.Token, c.IP())
	if err != nil {
		return err
	}
	return c.JSON(sessionResponse(session))
}

// Refresh handles POST /auth/refresh. The bearer token must still verify
// locally; expired tokens require a full re-login.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	rawToken, err := auth.BearerToken(c)
	if err != nil {
		return err
	}

	session, err := h.auth.Refresh(c.UserContext(), rawToken, c.IP())
	if err != nil {
		return err
	}
	return c.JSON(sessionResponse(session))
}

// Me handles GET /api/me, echoing the identity attached by the middleware.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}
	return c.JSON(fiber.Map{
		"user": dto.UserPayload{
			ID:    principal.Identity.Subject,
			Name:  principal.Identity.DisplayName,
			Email: principal.Identity.Email,
			Role:  principal.Role,
		},
	})
}

func sessionResponse(session *service.Session) dto.AuthResponse {
	return dto.AuthResponse{
		Success:   true,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User: dto.UserPayload{
			ID:    session.Identity.Subject,
			Name:  session.Identity.DisplayName,
			Email: session.Identity.Email,
			Role:  session.Role,
		},
	}
}
