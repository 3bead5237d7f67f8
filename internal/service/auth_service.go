package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/areti-alliance/crm-gateway/internal/auth"
	"github.com/areti-alliance/crm-gateway/internal/config"
	"github.com/areti-alliance/crm-gateway/internal/domain"
	"github.com/areti-alliance/crm-gateway/internal/events"
	"github.com/areti-alliance/crm-gateway/internal/idp"
	"github.com/areti-alliance/crm-gateway/internal/repository"
	apperrors "github.com/areti-alliance/crm-gateway/pkg/util"
)

// Session is the result of a successful authentication: the normalized
// identity, its resolved role, and the minted token. Never partially
// populated; a caller holding a Session always has a role.
type Session struct {
	Identity  domain.Identity
	Role      domain.Role
	Token     string
	ExpiresAt time.Time
}

// AuthService coordinates the two trust paths: local credential login and
// external token exchange. Identity claims are built fresh per attempt and
// discarded after issuance.
type AuthService struct {
	accounts   repository.AccountRepository
	verifier   idp.Verifier
	tokenMgr   *auth.TokenManager
	throttle   *LoginThrottle
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// AuthDependencies encapsulates collaborator requirements for the service.
type AuthDependencies struct {
	AccountRepo repository.AccountRepository
	Verifier    idp.Verifier
	Throttle    *LoginThrottle
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		accounts:   deps.AccountRepo,
		verifier:   deps.Verifier,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL()),
		throttle:   deps.Throttle,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// Login authenticates local credentials and mints a session token. Unknown
// username, wrong password, and suspended account are indistinguishable to
// the caller.
func (s *AuthService) Login(ctx context.Context, username, password, remoteIP string) (*Session, error) {
	if s.throttle != nil && !s.throttle.Allow(ctx, username, remoteIP) {
		s.publishLoginFailed(ctx, username, remoteIP, apperrors.ReasonThrottled)
		return nil, apperrors.NewUnauthorized(apperrors.ReasonThrottled)
	}

	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.publishLoginFailed(ctx, username, remoteIP, apperrors.ReasonBadCredentials)
			return nil, apperrors.NewUnauthorized(apperrors.ReasonBadCredentials)
		}
		return nil, apperrors.MapError(err)
	}
	if account.Status != domain.AccountStatusActive {
		s.publishLoginFailed(ctx, username, remoteIP, apperrors.ReasonBadCredentials)
		return nil, apperrors.NewUnauthorized(apperrors.ReasonBadCredentials)
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		s.publishLoginFailed(ctx, username, remoteIP, apperrors.ReasonBadCredentials)
		return nil, apperrors.NewUnauthorized(apperrors.ReasonBadCredentials)
	}

	identity := domain.Identity{
		Subject:     account.ID,
		DisplayName: account.Name,
		Email:       account.Email,
		RawRoles:    []string{string(account.Role)},
		Source:      domain.SourceLocal,
	}

	session, err := s.mint(identity)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventLoginSucceeded,
		Subject:  identity.Subject,
		Source:   string(identity.Source),
		RemoteIP: remoteIP,
		Payload:  events.TokenIssuedPayload{Role: session.Role, ExpiresAt: session.ExpiresAt},
	})
	return session, nil
}

// Exchange verifies an externally issued bearer token against the provider
// and mints an application session token for it.
func (s *AuthService) Exchange(ctx context.Context, externalToken, remoteIP string) (*Session, error) {
	identity, err := s.verifier.Verify(ctx, externalToken)
	if err != nil {
		if errors.Is(err, idp.ErrProviderUnavailable) {
			s.publish(ctx, events.Event{
				Type:     events.EventProviderUnreachable,
				RemoteIP: remoteIP,
				Payload:  events.ProviderUnreachablePayload{Operation: "exchange", Error: err.Error()},
			})
			return nil, apperrors.NewUnauthorized(apperrors.ReasonProviderUnavailable)
		}
		return nil, apperrors.NewUnauthorized(apperrors.ReasonProviderRejected)
	}

	session, err := s.mint(identity)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTokenExchanged,
		Subject:  identity.Subject,
		Source:   string(identity.Source),
		RemoteIP: remoteIP,
		Payload:  events.TokenIssuedPayload{Role: session.Role, ExpiresAt: session.ExpiresAt},
	})
	return session, nil
}

// Refresh re-issues a session token from a still-valid local token. The
// identity and role carry over unchanged; only the issue/expiry window moves.
// Expired tokens cannot refresh; the caller must authenticate again.
func (s *AuthService) Refresh(ctx context.Context, rawToken, remoteIP string) (*Session, error) {
	claims, err := s.tokenMgr.Parse(rawToken)
	if err != nil {
		reason := apperrors.ReasonInvalidSignature
		if errors.Is(err, auth.ErrTokenExpired) {
			reason = apperrors.ReasonExpired
		}
		return nil, apperrors.NewUnauthorized(reason)
	}

	session, err := s.mintWithRole(claims.Identity(), claims.Role)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTokenRefreshed,
		Subject:  session.Identity.Subject,
		Source:   string(session.Identity.Source),
		RemoteIP: remoteIP,
		Payload:  events.TokenIssuedPayload{Role: session.Role, ExpiresAt: session.ExpiresAt},
	})
	return session, nil
}

func (s *AuthService) mint(identity domain.Identity) (*Session, error) {
	return s.mintWithRole(identity, domain.ResolveRole(identity.RawRoles))
}

func (s *AuthService) mintWithRole(identity domain.Identity, role domain.Role) (*Session, error) {
	token, expiresAt, err := s.tokenMgr.Issue(identity, role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &Session{Identity: identity, Role: role, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) publishLoginFailed(ctx context.Context, username, remoteIP string, reason apperrors.DenyReason) {
	s.publish(ctx, events.Event{
		Type:     events.EventLoginFailed,
		RemoteIP: remoteIP,
		Payload:  events.LoginFailedPayload{Username: username, Reason: string(reason)},
	})
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now()
	_ = s.dispatcher.Publish(ctx, event)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
