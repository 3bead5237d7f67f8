package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	httptransport "github.com/areti-alliance/crm-gateway/internal/api/http"
	"github.com/areti-alliance/crm-gateway/internal/api/http/handlers"
	"github.com/areti-alliance/crm-gateway/internal/auth"
	"github.com/areti-alliance/crm-gateway/internal/config"
	"github.com/areti-alliance/crm-gateway/internal/domain"
	"github.com/areti-alliance/crm-gateway/internal/idp"
	"github.com/areti-alliance/crm-gateway/internal/observability"
	"github.com/areti-alliance/crm-gateway/internal/persistence"
	"github.com/areti-alliance/crm-gateway/internal/service"
)

const testSecret = "gateway-test-secret"

type fakeAccountRepo struct {
	accounts map[string]*domain.Account
}

func (f *fakeAccountRepo) Create(_ context.Context, account *domain.Account) error {
	account.ID = "acct-" + account.Username
	copied := *account
	f.accounts[account.Username] = &copied
	return nil
}

func (f *fakeAccountRepo) Update(_ context.Context, account *domain.Account) error {
	if _, ok := f.accounts[account.Username]; !ok {
		return pgx.ErrNoRows
	}
	copied := *account
	f.accounts[account.Username] = &copied
	return nil
}

func (f *fakeAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	for _, account := range f.accounts {
		if account.ID == id {
			return account, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAccountRepo) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	account, ok := f.accounts[username]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return account, nil
}

type fakeVerifier struct {
	identity domain.Identity
	err      error
}

func (f *fakeVerifier) Verify(context.Context, string) (domain.Identity, error) {
	if f.err != nil {
		return domain.Identity{}, f.err
	}
	return f.identity, nil
}

type fakeDriverRepo struct {
	drivers []domain.Driver
}

func (f *fakeDriverRepo) Create(_ context.Context, driver *domain.Driver) error {
	f.drivers = append(f.drivers, *driver)
	return nil
}
func (f *fakeDriverRepo) Update(context.Context, *domain.Driver) error { return nil }
func (f *fakeDriverRepo) GetByEmail(context.Context, string) (*domain.Driver, error) {
	return nil, pgx.ErrNoRows
}
func (f *fakeDriverRepo) List(context.Context, int, int) ([]domain.Driver, error) {
	return f.drivers, nil
}

type fakeRosterSource struct {
	rows []service.RosterRow
}

func (f *fakeRosterSource) Fetch(context.Context) ([]service.RosterRow, error) {
	return f.rows, nil
}

func hashFor(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newTestApp(t *testing.T, verifier idp.Verifier) (*fiber.App, *service.AuthService) {
	t.Helper()

	cfg := config.Config{Auth: config.AuthConfig{
		JWTSecret:     testSecret,
		TokenTTLHours: 24,
		BcryptCost:    bcrypt.MinCost,
	}}

	accounts := &fakeAccountRepo{accounts: map[string]*domain.Account{
		"nholder": {
			ID:           "acct-1",
			Username:     "nholder",
			Name:         "Nate Holder",
			Email:        "nholder@example.com",
			PasswordHash: hashFor(t, "admin-pass"),
			Role:         domain.RoleAdmin,
			Status:       domain.AccountStatusActive,
		},
		"fgill": {
			ID:           "acct-2",
			Username:     "fgill",
			Name:         "Fonda Gill",
			Email:        "fgill@example.com",
			PasswordHash: hashFor(t, "user-pass"),
			Role:         domain.RoleUser,
			Status:       domain.AccountStatusActive,
		},
	}}

	logger := zap.NewNop()
	authService := service.NewAuthService(cfg, service.AuthDependencies{
		AccountRepo: accounts,
		Verifier:    verifier,
		Logger:      logger,
	})

	accountService := service.NewAccountService(accounts, bcrypt.MinCost, logger)

	rosterSource := &fakeRosterSource{rows: []service.RosterRow{
		{Name: "Ada Driver", Email: "ada@example.com"},
	}}
	driverRepo := &fakeDriverRepo{drivers: []domain.Driver{{Email: "existing@example.com"}}}
	rosterService := service.NewRosterService(rosterSource, driverRepo, nil, logger)

	authorizer := auth.NewAuthorizer(authService.TokenManager(), verifier, logger)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, observability.NewMetrics(), 5*time.Second)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler("crm-gateway", "test", &persistence.Postgres{}, &persistence.Redis{}),
		Auth:           handlers.NewAuthHandler(authService),
		Accounts:       handlers.NewAccountsHandler(accountService),
		Drivers:        handlers.NewDriversHandler(driverRepo, rosterService),
		AuthMiddleware: auth.NewMiddleware(authorizer),
	})
	return app, authService
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any, token string) (*nethttp.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	decoded := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func TestLoginIssuesTokenWithStoredRole(t *testing.T) {
	app, svc := newTestApp(t, &fakeVerifier{err: idp.ErrInvalidToken})

	resp, body := doJSON(t, app, nethttp.MethodPost, "/auth/login",
		map[string]string{"username": "nholder", "password": "admin-pass"}, "")
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	claims, err := svc.TokenManager().Parse(token)
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, claims.Role)

	user := body["user"].(map[string]any)
	require.Equal(t, "admin", user["role"])
	require.Equal(t, "Nate Holder", user["name"])
}

func TestLoginFailureIsGeneric(t *testing.T) {
	app, _ := newTestApp(t, &fakeVerifier{err: idp.ErrInvalidToken})

	respWrong, bodyWrong := doJSON(t, app, nethttp.MethodPost, "/auth/login",
		map[string]string{"username": "nholder", "password": "wrong"}, "")
	respUnknown, bodyUnknown := doJSON(t, app, nethttp.MethodPost, "/auth/login",
		map[string]string{"username": "ghost", "password": "wrong"}, "")

	require.Equal(t, nethttp.StatusUnauthorized, respWrong.StatusCode)
	require.Equal(t, nethttp.StatusUnauthorized, respUnknown.StatusCode)
	// Wrong password and unknown user must be indistinguishable.
	require.Equal(t, bodyWrong, bodyUnknown)
	require.Nil(t, bodyWrong["token"])
}

func TestLoginValidation(t *testing.T) {
	app, _ := newTestApp(t, &fakeVerifier{err: idp.ErrInvalidToken})

	resp, _ := doJSON(t, app, nethttp.MethodPost, "/auth/login",
		map[string]string{"username": "nholder"}, "")
	require.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
}

func TestTokenExchange(t *testing.T) {
	app, svc := newTestApp(t, &fakeVerifier{identity: domain.Identity{
		Subject:     "kc-sub",
		DisplayName: "Areti Admin",
		Email:       "admin@example.com",
		RawRoles:    []string{"admin", "user"},
		Source:      domain.SourceExternal,
	}})

	resp, body := doJSON(t, app, nethttp.MethodPost, "/auth/token",
		map[string]string{"token": "external-token"}, "")
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])

	claims, err := svc.TokenManager().Parse(body["token"].(string))
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, claims.Role)
}

func TestTokenExchangeProviderDown(t *testing.T) {
	app, _ := newTestApp(t, &fakeVerifier{err: idp.ErrProviderUnavailable})

	resp, body := doJSON(t, app, nethttp.MethodPost, "/auth/token",
		map[string]string{"token": "anything"}, "")
	require.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
	require.Nil(t, body["token"])
}

func TestProtectedRouteLifecycle(t *testing.T) {
	app, svc := newTestApp(t, &fakeVerifier{err: idp.ErrInvalidToken})

	// Expired token is rejected.
	expiredMgr := auth.NewTokenManager(testSecret, time.Nanosecond)
	expired, _, err := expiredMgr.Issue(domain.Identity{Subject: "acct-1", Source: domain.SourceLocal}, domain.RoleAdmin)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	resp, _ := doJSON(t, app, nethttp.MethodGet, "/api/me", nil, expired)
	require.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)

	// A fresh token for the same identity succeeds.
	_, loginBody := doJSON(t, app, nethttp.MethodPost, "/auth/login",
		map[string]string{"username": "nholder", "password": "admin-pass"}, "")
	fresh := loginBody["token"].(string)

	resp, body := doJSON(t, app, nethttp.MethodGet, "/api/me", nil, fresh)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	user := body["user"].(map[string]any)
	require.Equal(t, "acct-1", user["id"])

	// And the token refreshes into a new valid session.
	resp, refreshBody := doJSON(t, app, nethttp.MethodPost, "/auth/refresh", nil, fresh)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	claims, err := svc.TokenManager().Parse(refreshBody["token"].(string))
	require.NoError(t, err)
	require.Equal(t, "acct-1", claims.Subject)
}

func TestProtectedRouteNoToken(t *testing.T) {
	app, _ := newTestApp(t, &fakeVerifier{err: idp.ErrInvalidToken})

	resp, _ := doJSON(t, app, nethttp.MethodGet, "/api/me", nil, "")
	require.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
}

func TestExternalFallbackAuthorizesRequest(t *testing.T) {
	app, _ := newTestApp(t, &fakeVerifier{identity: domain.Identity{
		Subject:     "kc-sub",
		DisplayName: "Fonda Gill",
		Email:       "fgill@example.com",
		RawRoles:    []string{"manager"},
		Source:      domain.SourceExternal,
	}})

	// The bearer value is not a locally minted token, but the provider
	// vouches for it, so the request is authorized with the external role.
	resp, body := doJSON(t, app, nethttp.MethodGet, "/api/me", nil, "externally-issued-token")
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	user := body["user"].(map[string]any)
	require.Equal(t, "manager", user["role"])
}

func TestDriverRoutesEnforceRoles(t *testing.T) {
	app, _ := newTestApp(t, &fakeVerifier{err: idp.ErrInvalidToken})

	_, adminLogin := doJSON(t, app, nethttp.MethodPost, "/auth/login",
		map[string]string{"username": "nholder", "password": "admin-pass"}, "")
	adminToken := adminLogin["token"].(string)

	_, userLogin := doJSON(t, app, nethttp.MethodPost, "/auth/login",
		map[string]string{"username": "fgill", "password": "user-pass"}, "")
	userToken := userLogin["token"].(string)

	// Plain users may not read the roster.
	resp, _ := doJSON(t, app, nethttp.MethodGet, "/api/drivers", nil, userToken)
	require.Equal(t, nethttp.StatusForbidden, resp.StatusCode)

	resp, _ = doJSON(t, app, nethttp.MethodGet, "/api/drivers", nil, adminToken)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	// Sync is admin only.
	resp, _ = doJSON(t, app, nethttp.MethodPost, "/api/drivers/sync", nil, userToken)
	require.Equal(t, nethttp.StatusForbidden, resp.StatusCode)

	resp, body := doJSON(t, app, nethttp.MethodPost, "/api/drivers/sync", nil, adminToken)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	result := body["result"].(map[string]any)
	require.Equal(t, float64(1), result["imported"])
}

func TestAccountProvisioningLifecycle(t *testing.T) {
	app, _ := newTestApp(t, &fakeVerifier{err: idp.ErrInvalidToken})

	_, adminLogin := doJSON(t, app, nethttp.MethodPost, "/auth/login",
		map[string]string{"username": "nholder", "password": "admin-pass"}, "")
	adminToken := adminLogin["token"].(string)

	_, userLogin := doJSON(t, app, nethttp.MethodPost, "/auth/login",
		map[string]string{"username": "fgill", "password": "user-pass"}, "")
	userToken := userLogin["token"].(string)

	newAccount := map[string]string{
		"username": "mreyes",
		"name":     "Mina Reyes",
		"password": "dispatch-route-7",
		"role":     "manager",
	}

	// Provisioning is admin only.
	resp, _ := doJSON(t, app, nethttp.MethodPost, "/api/accounts", newAccount, userToken)
	require.Equal(t, nethttp.StatusForbidden, resp.StatusCode)

	resp, body := doJSON(t, app, nethttp.MethodPost, "/api/accounts", newAccount, adminToken)
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode)
	created := body["account"].(map[string]any)
	accountID := created["id"].(string)
	require.Equal(t, "manager", created["role"])

	// The new account can log in with the plaintext it was provisioned with.
	resp, _ = doJSON(t, app, nethttp.MethodPost, "/auth/login",
		map[string]string{"username": "mreyes", "password": "dispatch-route-7"}, "")
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	// Suspension takes effect on the next login attempt.
	resp, _ = doJSON(t, app, nethttp.MethodPatch, "/api/accounts/"+accountID+"/status",
		map[string]string{"status": "SUSPENDED"}, adminToken)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, nethttp.MethodPost, "/auth/login",
		map[string]string{"username": "mreyes", "password": "dispatch-route-7"}, "")
	require.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
}

func TestHealthLive(t *testing.T) {
	app, _ := newTestApp(t, &fakeVerifier{err: idp.ErrInvalidToken})

	req := httptest.NewRequest(nethttp.MethodGet, "/health/live", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
}
