package idp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/areti-alliance/crm-gateway/internal/config"
	"github.com/areti-alliance/crm-gateway/internal/domain"
)

func verifierFor(t *testing.T, server *httptest.Server, timeout time.Duration) *KeycloakVerifier {
	t.Helper()
	parsed, err := url.Parse(server.URL)
	require.NoError(t, err)

	v := NewKeycloakVerifier(config.IdPConfig{
		BaseURL: "http://" + parsed.Host,
		Realm:   "areti-alliance",
	}, zap.NewNop())
	v.client.Timeout = timeout
	return v
}

func TestVerifyMapsUserinfoClaims(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.Equal(t, "/realms/areti-alliance/protocol/openid-connect/userinfo", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"sub": "kc-123",
			"email": "fgill@example.com",
			"preferred_username": "fgill",
			"given_name": "Fonda",
			"family_name": "Gill",
			"realm_access": {"roles": ["manager", "offline_access"]}
		}`))
	}))
	defer server.Close()

	identity, err := verifierFor(t, server, 2*time.Second).Verify(context.Background(), "external-token")
	require.NoError(t, err)
	require.Equal(t, "kc-123", identity.Subject)
	require.Equal(t, "Fonda Gill", identity.DisplayName)
	require.Equal(t, "fgill@example.com", identity.Email)
	require.Equal(t, []string{"manager", "offline_access"}, identity.RawRoles)
	require.Equal(t, domain.SourceExternal, identity.Source)
	require.Equal(t, "Bearer external-token", gotAuth)
}

func TestVerifyFallsBackToPreferredUsername(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"sub": "kc-9", "preferred_username": "nholder"}`))
	}))
	defer server.Close()

	identity, err := verifierFor(t, server, 2*time.Second).Verify(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, "nholder", identity.DisplayName)
	require.Equal(t, "nholder", identity.Email)
}

func TestVerifyRejectedToken(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))

		_, err := verifierFor(t, server, 2*time.Second).Verify(context.Background(), "bad-token")
		require.ErrorIs(t, err, ErrInvalidToken)
		server.Close()
	}
}

func TestVerifyUnexpectedStatusIsOutage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := verifierFor(t, server, 2*time.Second).Verify(context.Background(), "tok")
	require.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestVerifyTimeoutIsOutage(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer func() {
		close(release)
		server.Close()
	}()

	_, err := verifierFor(t, server, 50*time.Millisecond).Verify(context.Background(), "tok")
	require.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestVerifyCancellationIsOutage(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer func() {
		close(release)
		server.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := verifierFor(t, server, 5*time.Second).Verify(ctx, "tok")
	require.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestVerifyConnectionRefusedIsOutage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	_, err := verifierFor(t, server, time.Second).Verify(context.Background(), "tok")
	require.ErrorIs(t, err, ErrProviderUnavailable)
}
