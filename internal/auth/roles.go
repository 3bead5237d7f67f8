package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/areti-alliance/crm-gateway/internal/domain"
	apperrors "github.com/areti-alliance/crm-gateway/pkg/util"
)

// RequireRole ensures the authenticated principal holds at least the required
// privilege level. Insufficient privilege is 403, distinct from the 401 the
// authentication middleware produces: the identity is known, the role is not
// enough.
func RequireRole(required domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized(apperrors.ReasonNoToken)
		}
		if !principal.Role.HasAtLeast(required) {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures a principal is present without any role floor.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized(apperrors.ReasonNoToken)
		}
		return c.Next()
	}
}
