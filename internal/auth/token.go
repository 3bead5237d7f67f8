package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/areti-alliance/crm-gateway/internal/domain"
)

// Signing errors surfaced by ParseToken. Callers map these onto deny reasons;
// clients never see them.
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// TokenManager issues and verifies the application session tokens every other
// component trusts. The secret is process-wide and read-only after startup.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Claims describes the session token payload.
type Claims struct {
	DisplayName string        `json:"name"`
	Email       string        `json:"email"`
	Role        domain.Role   `json:"role"`
	Source      domain.Source `json:"src"`
	jwt.RegisteredClaims
}

// Identity rebuilds the normalized identity carried by the token.
func (c *Claims) Identity() domain.Identity {
	return domain.Identity{
		Subject:     c.Subject,
		DisplayName: c.DisplayName,
		Email:       c.Email,
		RawRoles:    []string{string(c.Role)},
		Source:      c.Source,
	}
}

// Issue signs a session token for the identity with the resolved role.
// Expiry is always issuedAt + TTL; the role in the token is the only role the
// rest of the system ever trusts.
func (tm *TokenManager) Issue(identity domain.Identity, role domain.Role) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(tm.ttl)
	claims := &Claims{
		DisplayName: identity.DisplayName,
		Email:       identity.Email,
		Role:        role,
		Source:      identity.Source,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Subject,
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Parse validates signature and expiry and returns the claims.
func (tm *TokenManager) Parse(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if !claims.Role.Valid() {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// TTL exposes the configured token lifetime.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}
