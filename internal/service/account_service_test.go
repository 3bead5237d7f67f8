package service

import (
	"context"
	"strconv"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/areti-alliance/crm-gateway/internal/auth"
	"github.com/areti-alliance/crm-gateway/internal/domain"
	apperrors "github.com/areti-alliance/crm-gateway/pkg/util"
)

type memAccountRepo struct {
	byUsername map[string]*domain.Account
	nextID     int
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{byUsername: make(map[string]*domain.Account)}
}

func (m *memAccountRepo) Create(_ context.Context, account *domain.Account) error {
	m.nextID++
	account.ID = "acct-" + strconv.Itoa(m.nextID)
	copied := *account
	m.byUsername[account.Username] = &copied
	return nil
}

func (m *memAccountRepo) Update(_ context.Context, account *domain.Account) error {
	if _, ok := m.byUsername[account.Username]; !ok {
		return pgx.ErrNoRows
	}
	copied := *account
	m.byUsername[account.Username] = &copied
	return nil
}

func (m *memAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	for _, account := range m.byUsername {
		if account.ID == id {
			copied := *account
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memAccountRepo) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	account, ok := m.byUsername[username]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *account
	return &copied, nil
}

func newAccountService(repo *memAccountRepo) *AccountService {
	return NewAccountService(repo, bcrypt.MinCost, zap.NewNop())
}

func TestCreateAccountHashesPassword(t *testing.T) {
	repo := newMemAccountRepo()
	svc := newAccountService(repo)

	account, err := svc.Create(context.Background(), NewAccount{
		Username: "mreyes",
		Name:     "Mina Reyes",
		Email:    "mreyes@example.com",
		Password: "dispatch-route-7",
		Role:     domain.RoleManager,
	})
	require.NoError(t, err)
	require.NotEmpty(t, account.ID)
	require.Equal(t, domain.RoleManager, account.Role)
	require.Equal(t, domain.AccountStatusActive, account.Status)
	require.NotEqual(t, "dispatch-route-7", account.PasswordHash)
	require.NoError(t, auth.ComparePassword(account.PasswordHash, "dispatch-route-7"))
}

func TestCreateAccountThenLogin(t *testing.T) {
	repo := newMemAccountRepo()
	accountSvc := newAccountService(repo)
	authSvc := newService(repo, &stubIdPVerifier{}, nil)

	_, err := accountSvc.Create(context.Background(), NewAccount{
		Username: "mreyes",
		Password: "dispatch-route-7",
	})
	require.NoError(t, err)

	session, err := authSvc.Login(context.Background(), "mreyes", "dispatch-route-7", "10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, domain.RoleUser, session.Role)
}

func TestCreateAccountDuplicateUsername(t *testing.T) {
	repo := newMemAccountRepo()
	svc := newAccountService(repo)

	_, err := svc.Create(context.Background(), NewAccount{Username: "mreyes", Password: "pw-one-two"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), NewAccount{Username: "mreyes", Password: "pw-three-four"})
	domainErr := apperrors.ToDomainError(err)
	require.Equal(t, 409, domainErr.HTTPStatus)
}

func TestCreateAccountRejectsBadRole(t *testing.T) {
	svc := newAccountService(newMemAccountRepo())

	for _, role := range []domain.Role{domain.RoleGuest, domain.Role("owner")} {
		_, err := svc.Create(context.Background(), NewAccount{
			Username: "mreyes",
			Password: "dispatch-route-7",
			Role:     role,
		})
		domainErr := apperrors.ToDomainError(err)
		require.Equal(t, 400, domainErr.HTTPStatus, "role %q", role)
	}
}

func TestCreateAccountRequiresCredentials(t *testing.T) {
	svc := newAccountService(newMemAccountRepo())

	_, err := svc.Create(context.Background(), NewAccount{Username: "mreyes"})
	domainErr := apperrors.ToDomainError(err)
	require.Equal(t, 400, domainErr.HTTPStatus)
}

func TestSetStatusSuspendsLogin(t *testing.T) {
	repo := newMemAccountRepo()
	accountSvc := newAccountService(repo)
	authSvc := newService(repo, &stubIdPVerifier{}, nil)

	account, err := accountSvc.Create(context.Background(), NewAccount{
		Username: "mreyes",
		Password: "dispatch-route-7",
	})
	require.NoError(t, err)

	updated, err := accountSvc.SetStatus(context.Background(), account.ID, domain.AccountStatusSuspended)
	require.NoError(t, err)
	require.Equal(t, domain.AccountStatusSuspended, updated.Status)

	_, err = authSvc.Login(context.Background(), "mreyes", "dispatch-route-7", "10.0.0.1")
	requireDeny(t, err, apperrors.ReasonBadCredentials)
}

func TestSetStatusUnknownAccount(t *testing.T) {
	svc := newAccountService(newMemAccountRepo())

	_, err := svc.SetStatus(context.Background(), "acct-missing", domain.AccountStatusSuspended)
	domainErr := apperrors.ToDomainError(err)
	require.Equal(t, 404, domainErr.HTTPStatus)
}

func TestSetStatusRejectsUnknownValue(t *testing.T) {
	repo := newMemAccountRepo()
	svc := newAccountService(repo)

	account, err := svc.Create(context.Background(), NewAccount{Username: "mreyes", Password: "dispatch-route-7"})
	require.NoError(t, err)

	_, err = svc.SetStatus(context.Background(), account.ID, domain.AccountStatus("PAUSED"))
	domainErr := apperrors.ToDomainError(err)
	require.Equal(t, 400, domainErr.HTTPStatus)
}
