package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sales-api/internal/auth"
)

type fakeUserStore struct {
	byEmail map[string]auth.User
	byID    map[uuid.UUID]auth.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byEmail: make(map[string]auth.User),
		byID:    make(map[uuid.UUID]auth.User),
	}
}

func (f *fakeUserStore) CreateUser(_ context.Context, u auth.User) (auth.User, error) {
	if _, exists := f.byEmail[u.Email]; exists {
		return auth.User{}, errors.New("duplicate email")
	}
	f.byEmail[u.Email] = u
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (auth.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return auth.User{}, errors.New("not found")
	}
	return u, nil
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id uuid.UUID) (auth.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return auth.User{}, errors.New("not found")
	}
	return u, nil
}

func newTestService(t *testing.T) (*auth.Service, *fakeUserStore) {
	t.Helper()
	store := newFakeUserStore()
	svc, err := auth.NewService(auth.Config{
		Store:          store,
		Secret:         "super-secret-test-key",
		AccessTokenTTL: time.Minute,
	})
	require.NoError(t, err)
	return svc, store
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Register(ctx, "", "a@b.co", "password123")
	require.Error(t, err)

	_, err = svc.Register(ctx, "Ada", "", "password123")
	require.Error(t, err)

	_, err = svc.Register(ctx, "Ada", "a@b.co", "short")
	require.Error(t, err)
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	profile, err := svc.Register(ctx, "Ada", "ADA@Example.com", "password123")
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", profile.Email)

	result, err := svc.Login(ctx, "ada@example.com", "password123")
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.Equal(t, profile.ID, result.User.ID)

	subject, err := svc.ParseAccessToken(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, profile.ID, subject)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Register(ctx, "Ada", "ada@example.com", "password123")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ada@example.com", "wrong-password")
	require.Error(t, err)

	_, err = svc.Login(ctx, "unknown@example.com", "password123")
	require.Error(t, err)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Register(ctx, "Ada", "ada@example.com", "password123")
	require.NoError(t, err)

	issuedAt := time.Now().Add(-time.Hour)
	svc.WithNow(func() time.Time { return issuedAt })
	result, err := svc.Login(ctx, "ada@example.com", "password123")
	require.NoError(t, err)

	svc.WithNow(time.Now)
	_, err = svc.ParseAccessToken(result.AccessToken)
	require.Error(t, err)
}

func TestParseAccessTokenRejectsGarbage(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ParseAccessToken("")
	require.Error(t, err)
	_, err = svc.ParseAccessToken("not.a.token")
	require.Error(t, err)
}
