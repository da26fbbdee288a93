package httpapi

import (
	"context"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/v18mgazy/Ghazyy-sub002/internal/domain"
	"github.com/v18mgazy/Ghazyy-sub002/internal/store"
	"github.com/v18mgazy/Ghazyy-sub002/internal/store/memory"
)

const testSecret = "test-secret-key-with-at-least-32-chars"

func mustHashPassword(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newTestAuth(t *testing.T) (*AuthManager, *memory.Store) {
	t.Helper()
	repo := memory.New()
	ctx := context.Background()
	require.NoError(t, repo.CreateUser(ctx, domain.UserAccount{
		Username: "admin",
		Password: mustHashPassword(t, "admin-pass"),
		Role:     RoleAdmin,
		Active:   true,
	}))
	require.NoError(t, repo.CreateUser(ctx, domain.UserAccount{
		Username: "kasir01",
		Password: mustHashPassword(t, "kasir-pass"),
		Role:     RoleCashier,
		Active:   true,
	}))
	return NewAuthManager(ctx, testSecret, time.Hour, repo), repo
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	auth, _ := newTestAuth(t)

	resp, err := auth.Login(context.Background(), domain.LoginRequest{Username: " Admin ", Password: "admin-pass"})
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, resp.Role)
	assert.NotEmpty(t, resp.ExpiresAt)

	actor, err := auth.ParseToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.Actor{Username: "admin", Role: RoleAdmin}, actor)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	auth, _ := newTestAuth(t)

	_, err := auth.Login(context.Background(), domain.LoginRequest{Username: "admin", Password: "nope"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(context.Background(), domain.LoginRequest{Username: "ghost", Password: "admin-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseTokenRejectsForeignAndExpiredTokens(t *testing.T) {
	auth, _ := newTestAuth(t)

	other := NewAuthManager(context.Background(), "another-secret-key-with-32-chars!!", time.Hour, nil)
	foreign, err := other.sign("admin", RoleAdmin, time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = auth.ParseToken(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := auth.sign("admin", RoleAdmin, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	_, err = auth.ParseToken(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, staffClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{Subject: "admin", Issuer: tokenIssuer},
		Role:             RoleAdmin,
	})
	unsigned, err := none.SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = auth.ParseToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCreateStaffValidatesAndPersists(t *testing.T) {
	auth, repo := newTestAuth(t)
	ctx := context.Background()

	user, err := auth.CreateStaff(ctx, domain.StaffCreateRequest{Username: "Kasir02", Password: "long-enough"})
	require.NoError(t, err)
	assert.Equal(t, "kasir02", user.Username)
	assert.Equal(t, RoleCashier, user.Role)

	accounts, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 3)

	_, err = auth.Login(ctx, domain.LoginRequest{Username: "kasir02", Password: "long-enough"})
	require.NoError(t, err)

	_, err = auth.CreateStaff(ctx, domain.StaffCreateRequest{Username: "kasir02", Password: "long-enough"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
	_, err = auth.CreateStaff(ctx, domain.StaffCreateRequest{Username: "abc", Password: "long-enough"})
	assert.ErrorIs(t, err, store.ErrInvalidInput)
	_, err = auth.CreateStaff(ctx, domain.StaffCreateRequest{Username: "kasir03", Password: "short"})
	assert.ErrorIs(t, err, store.ErrInvalidInput)
	_, err = auth.CreateStaff(ctx, domain.StaffCreateRequest{Username: "kasir03", Password: "long-enough", Role: "owner"})
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	staff := auth.ListStaff(ctx)
	require.Len(t, staff, 3)
	assert.Equal(t, "admin", staff[0].Username)
}

func TestRefreshRehashesPlainPasswords(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	require.NoError(t, repo.CreateUser(ctx, domain.UserAccount{Username: "legacy", Password: "plain-secret", Role: RoleCashier}))

	auth := NewAuthManager(ctx, testSecret, time.Hour, repo)

	accounts, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.True(t, isPasswordHash(accounts[0].Password))

	_, err = auth.Login(ctx, domain.LoginRequest{Username: "legacy", Password: "plain-secret"})
	assert.NoError(t, err)
}
