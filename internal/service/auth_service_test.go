package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/classnest/classnest-api/internal/models"
	appErrors "github.com/classnest/classnest-api/pkg/errors"
)

type mockUserRepo struct {
	byEmail map[string]*models.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{byEmail: make(map[string]*models.User)}
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range m.byEmail {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "usr-" + user.Username
	}
	m.byEmail[user.Email] = user
	return nil
}

func (m *mockUserRepo) ReplaceUnverified(ctx context.Context, email, username, passwordHash, fullName string, role models.UserRole) (bool, error) {
	u, ok := m.byEmail[email]
	if !ok || u.Verified {
		return false, nil
	}
	u.Username = username
	u.PasswordHash = passwordHash
	u.FullName = fullName
	u.Role = role
	return true, nil
}

func (m *mockUserRepo) MarkVerified(ctx context.Context, id string) error {
	for _, u := range m.byEmail {
		if u.ID == id {
			u.Verified = true
			return nil
		}
	}
	return sql.ErrNoRows
}

// deadRedis is never reachable; code storage fails and Register degrades to a
// logged warning instead of an error.
func deadRedis() *redis.Client {
	return redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 10 * time.Millisecond})
}

func authFixture() (*AuthService, *mockUserRepo) {
	repo := newMockUserRepo()
	svc := NewAuthService(repo, deadRedis(), &mockMailer{}, nil, nil, AuthConfig{
		AccessTokenSecret: "test-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "classnest-test",
	})
	return svc, repo
}

func TestRegisterCreatesUnverifiedAccount(t *testing.T) {
	svc, repo := authFixture()

	user, err := svc.Register(context.Background(), RegisterRequest{
		Username: "alice01",
		Email:    "alice@example.com",
		Password: "supersecret",
		FullName: "Alice Teacher",
		Role:     "TEACHER",
	})
	require.NoError(t, err)
	assert.False(t, user.Verified)
	assert.Equal(t, models.RoleTeacher, user.Role)
	assert.Contains(t, repo.byEmail, "alice@example.com")
}

func TestRegisterVerifiedEmailConflicts(t *testing.T) {
	svc, repo := authFixture()
	repo.byEmail["alice@example.com"] = &models.User{ID: "u1", Email: "alice@example.com", Verified: true}

	_, err := svc.Register(context.Background(), RegisterRequest{
		Username: "alice02",
		Email:    "alice@example.com",
		Password: "supersecret",
		FullName: "Alice",
		Role:     "TEACHER",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestRegisterUnverifiedEmailReplacesCredentials(t *testing.T) {
	svc, repo := authFixture()
	repo.byEmail["alice@example.com"] = &models.User{
		ID: "u1", Email: "alice@example.com", Username: "aliceold", Verified: false,
	}

	user, err := svc.Register(context.Background(), RegisterRequest{
		Username: "alicenew",
		Email:    "alice@example.com",
		Password: "supersecret",
		FullName: "Alice",
		Role:     "STUDENT",
	})
	require.NoError(t, err)
	assert.Equal(t, "alicenew", user.Username)
	assert.False(t, user.Verified)
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	svc, _ := authFixture()

	_, err := svc.Register(context.Background(), RegisterRequest{
		Username: "bob01",
		Email:    "bob@example.com",
		Password: "supersecret",
		FullName: "Bob",
		Role:     "ADMIN",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestLoginRequiresVerifiedAccount(t *testing.T) {
	svc, repo := authFixture()
	hash, err := bcrypt.GenerateFromPassword([]byte("supersecret"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.byEmail["alice@example.com"] = &models.User{
		ID: "u1", Email: "alice@example.com", PasswordHash: string(hash), Verified: false,
	}

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "alice@example.com", Password: "supersecret"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnverifiedAccount))
}

func TestLoginIssuesValidatableToken(t *testing.T) {
	svc, repo := authFixture()
	hash, err := bcrypt.GenerateFromPassword([]byte("supersecret"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.byEmail["alice@example.com"] = &models.User{
		ID: "u1", Username: "alice01", Email: "alice@example.com",
		PasswordHash: string(hash), Role: models.RoleTeacher, Verified: true,
	}

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "alice@example.com", Password: "supersecret"})
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, repo := authFixture()
	hash, err := bcrypt.GenerateFromPassword([]byte("supersecret"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.byEmail["alice@example.com"] = &models.User{
		ID: "u1", Email: "alice@example.com", PasswordHash: string(hash), Verified: true,
	}

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "alice@example.com", Password: "nope-nope"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc, _ := authFixture()
	_, err := svc.ValidateToken("not.a.token")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}
