package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/areti-alliance/crm-gateway/internal/domain"
	"github.com/areti-alliance/crm-gateway/internal/idp"
	apperrors "github.com/areti-alliance/crm-gateway/pkg/util"
)

const principalKey = "auth_principal"

// Principal is the verified caller attached to every authorized request.
// Handlers read it from the request context and never re-derive identity.
type Principal struct {
	Identity domain.Identity
	Role     domain.Role
}

// Authorizer runs the two-step verification every protected call passes
// through: local signature check first, external provider fallback second.
// It holds no per-request state and is safe for concurrent use.
type Authorizer struct {
	tokens   *TokenManager
	external idp.Verifier
	logger   *zap.Logger
}

// NewAuthorizer constructs the request gate.
func NewAuthorizer(tokens *TokenManager, external idp.Verifier, logger *zap.Logger) *Authorizer {
	return &Authorizer{tokens: tokens, external: external, logger: logger}
}

// Authorize verifies the raw token and checks the resolved role against
// required. A token failing local verification is retried against the
// external provider; success there authorizes this request only. Nothing is
// cached or re-minted, and every request re-runs the full check.
func (a *Authorizer) Authorize(ctx context.Context, rawToken string, required domain.Role) (*Principal, error) {
	if rawToken == "" {
		return nil, apperrors.NewUnauthorized(apperrors.ReasonNoToken)
	}

	principal, err := a.authenticate(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	if !principal.Role.HasAtLeast(required) {
		return nil, apperrors.NewForbidden("insufficient role")
	}
	return principal, nil
}

func (a *Authorizer) authenticate(ctx context.Context, rawToken string) (*Principal, error) {
	claims, localErr := a.tokens.Parse(rawToken)
	if localErr == nil {
		return &Principal{Identity: claims.Identity(), Role: claims.Role}, nil
	}

	localReason := apperrors.ReasonInvalidSignature
	if errors.Is(localErr, ErrTokenExpired) {
		localReason = apperrors.ReasonExpired
	}

	identity, err := a.external.Verify(ctx, rawToken)
	if err != nil {
		reason := apperrors.ReasonProviderRejected
		if errors.Is(err, idp.ErrProviderUnavailable) {
			reason = apperrors.ReasonProviderUnavailable
		}
		a.logger.Debug("authorization denied",
			zap.String("local_reason", string(localReason)),
			zap.String("fallback_reason", string(reason)))
		return nil, apperrors.NewUnauthorized(reason)
	}

	return &Principal{Identity: identity, Role: domain.ResolveRole(identity.RawRoles)}, nil
}

// Middleware adapts the Authorizer to Fiber routes.
type Middleware struct {
	authorizer *Authorizer
}

// NewMiddleware constructs middleware.
func NewMiddleware(authorizer *Authorizer) *Middleware {
	return &Middleware{authorizer: authorizer}
}

// Handle enforces authentication for protected routes and stores the
// principal for downstream handlers. Role requirements are applied per route
// via RequireRole.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	rawToken, err := BearerToken(c)
	if err != nil {
		return err
	}

	principal, err := m.authorizer.Authorize(c.UserContext(), rawToken, domain.RoleUser)
	if err != nil {
		return err
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// BearerToken extracts the bearer credential from the Authorization header.
func BearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", apperrors.NewUnauthorized(apperrors.ReasonNoToken)
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", apperrors.NewUnauthorized(apperrors.ReasonNoToken)
	}
	return parts[1], nil
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
