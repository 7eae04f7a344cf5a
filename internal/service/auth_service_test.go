package service

import (
	"context"
	"testing"
	"time"

	"inventory-service/internal/auth"
	"inventory-service/internal/models"
	"inventory-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fakeStore) CreateUser(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.ID = int64(len(f.users)) + 1
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, store.ErrNoRows
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNoRows
}

func newTestAuthService(f *fakeStore) *AuthService {
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	return NewAuthService(f, tokens, 4)
}

func TestRegisterDefaultsToStaffRole(t *testing.T) {
	f := newFakeStore()
	svc := newTestAuthService(f)

	resp, err := svc.Register(context.Background(), &RegisterRequest{
		Name: "Sam", Email: "sam@example.com", Password: "secret1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)

	user, err := f.GetUserByEmail(context.Background(), "sam@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, user.Role)
	assert.NotEqual(t, "secret1", user.PasswordHash)
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	f := newFakeStore()
	svc := newTestAuthService(f)

	_, err := svc.Register(context.Background(), &RegisterRequest{
		Name: "Sam", Email: "sam@example.com", Password: "secret1", Role: "superuser",
	})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	f := newFakeStore()
	svc := newTestAuthService(f)

	_, err := svc.Register(context.Background(), &RegisterRequest{
		Name: "Sam", Email: "sam@example.com", Password: "secret1",
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), &RegisterRequest{
		Name: "Other", Email: "sam@example.com", Password: "secret2",
	})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestLogin(t *testing.T) {
	f := newFakeStore()
	svc := newTestAuthService(f)

	_, err := svc.Register(context.Background(), &RegisterRequest{
		Name: "Sam", Email: "sam@example.com", Password: "secret1", Role: models.RoleAdmin,
	})
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), &LoginRequest{
		Email: "sam@example.com", Password: "secret1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)

	_, err = svc.Login(context.Background(), &LoginRequest{
		Email: "sam@example.com", Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = svc.Login(context.Background(), &LoginRequest{
		Email: "nobody@example.com", Password: "secret1",
	})
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestResolveIdentityReflectsStoredRole(t *testing.T) {
	f := newFakeStore()
	svc := newTestAuthService(f)

	_, err := svc.Register(context.Background(), &RegisterRequest{
		Name: "Sam", Email: "sam@example.com", Password: "secret1",
	})
	require.NoError(t, err)

	user, err := f.GetUserByEmail(context.Background(), "sam@example.com")
	require.NoError(t, err)

	// Promote the account directly; the next resolved identity sees it
	// even though the token still carries the old role.
	f.mu.Lock()
	f.users[user.ID].Role = models.RoleAdmin
	f.mu.Unlock()

	identity, err := svc.ResolveIdentity(context.Background(), &auth.Claims{UserID: user.ID, Role: models.RoleStaff})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, identity.Role)
	assert.True(t, identity.IsAdmin())

	_, err = svc.ResolveIdentity(context.Background(), &auth.Claims{UserID: 999})
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}
