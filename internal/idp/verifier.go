// Package idp verifies caller-supplied bearer tokens against the external
// identity provider's userinfo endpoint.
package idp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/areti-alliance/crm-gateway/internal/config"
	"github.com/areti-alliance/crm-gateway/internal/domain"
)

var (
	// ErrInvalidToken means the provider examined the token and rejected it.
	ErrInvalidToken = errors.New("identity provider rejected token")
	// ErrProviderUnavailable means the provider could not be reached or did
	// not answer in time. Callers must fail closed but may retry; they must
	// not treat this as a trust decision about the token.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)

// Verifier exchanges a bearer token for normalized identity claims.
type Verifier interface {
	Verify(ctx context.Context, bearerToken string) (domain.Identity, error)
}

// userinfoResponse is the subset of provider claims the gateway consumes.
type userinfoResponse struct {
	Subject           string `json:"sub"`
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
	GivenName         string `json:"given_name"`
	FamilyName        string `json:"family_name"`
	RealmAccess       struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
}

// KeycloakVerifier calls the realm userinfo endpoint. One outbound request
// per verification, bounded by the client timeout, no retries.
type KeycloakVerifier struct {
	userinfoURL string
	client      *http.Client
	logger      *zap.Logger
}

// NewKeycloakVerifier builds a verifier from provider configuration.
func NewKeycloakVerifier(cfg config.IdPConfig, logger *zap.Logger) *KeycloakVerifier {
	return &KeycloakVerifier{
		userinfoURL: cfg.UserinfoURL(),
		client:      &http.Client{Timeout: cfg.Timeout()},
		logger:      logger,
	}
}

// Verify presents the token to the provider and maps its claims.
func (v *KeycloakVerifier) Verify(ctx context.Context, bearerToken string) (domain.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.userinfoURL, nil)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+bearerToken)
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		// Cancellation and timeout are indistinguishable from an outage for
		// trust purposes: fail closed, never fail open.
		v.logger.Warn("userinfo request failed", zap.Error(err))
		return domain.Identity{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.Identity{}, ErrInvalidToken
	default:
		v.logger.Warn("unexpected userinfo status", zap.Int("status", resp.StatusCode))
		return domain.Identity{}, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var info userinfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return domain.Identity{}, fmt.Errorf("%w: decode userinfo: %v", ErrProviderUnavailable, err)
	}

	return mapIdentity(info), nil
}

func mapIdentity(info userinfoResponse) domain.Identity {
	name := info.GivenName
	if info.FamilyName != "" {
		if name != "" {
			name += " "
		}
		name += info.FamilyName
	}
	if name == "" {
		name = info.PreferredUsername
	}

	email := info.Email
	if email == "" {
		email = info.PreferredUsername
	}

	return domain.Identity{
		Subject:     info.Subject,
		DisplayName: name,
		Email:       email,
		RawRoles:    info.RealmAccess.Roles,
		Source:      domain.SourceExternal,
	}
}
