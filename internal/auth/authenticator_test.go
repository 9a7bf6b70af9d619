package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"rack-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeVerifier struct {
	identities map[string]*ExternalIdentity
	calls      int
}

func (f *fakeVerifier) VerifyToken(ctx context.Context, token string) (*ExternalIdentity, error) {
	f.calls++
	if identity, ok := f.identities[token]; ok {
		return identity, nil
	}
	return nil, errors.New("token has expired")
}

type fakeUsers struct {
	users map[string]*models.User
	err   error
}

func (f *fakeUsers) FindByExternalID(ctx context.Context, externalAuthID string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users[externalAuthID], nil
}

func newTestAuthenticator() (*Authenticator, *fakeVerifier, *fakeUsers) {
	verifier := &fakeVerifier{identities: map[string]*ExternalIdentity{
		"good":       {Subject: "ext-1", Email: "token@example.com"},
		"unprovided": {Subject: "ext-404"},
	}}
	users := &fakeUsers{users: map[string]*models.User{
		"ext-1": {Model: gorm.Model{ID: 42}, ExternalAuthID: "ext-1", Email: "grower@example.com"},
	}}
	return NewAuthenticator(verifier, users), verifier, users
}

func TestExtractCredential(t *testing.T) {
	tests := []struct {
		name   string
		target string
		header string
		want   string
	}{
		{"query token", "/ws?token=abc", "", "abc"},
		{"query token with bearer prefix", "/ws?token=Bearer%20abc", "", "abc"},
		{"authorization header", "/ws", "Bearer xyz", "xyz"},
		{"authorization header without prefix", "/ws", "xyz", "xyz"},
		{"query wins over header", "/ws?token=abc", "Bearer xyz", "abc"},
		{"none", "/ws", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.target, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, ExtractCredential(r))
		})
	}
}

func TestAuthenticateMissingSkipsVerifier(t *testing.T) {
	a, verifier, _ := newTestAuthenticator()

	_, err := a.Authenticate(context.Background(), "")

	assert.ErrorIs(t, err, ErrAuthMissing)
	assert.Equal(t, 0, verifier.calls)
}

func TestAuthenticateSuccess(t *testing.T) {
	a, _, _ := newTestAuthenticator()

	identity, err := a.Authenticate(context.Background(), "good")
	require.NoError(t, err)

	assert.Equal(t, uint(42), identity.UserID)
	assert.Equal(t, "ext-1", identity.ExternalAuthID)
	assert.Equal(t, "grower@example.com", identity.Email)
	assert.Equal(t, "42", identity.UserKey())
}

func TestAuthenticateInvalid(t *testing.T) {
	t.Run("verifier rejects", func(t *testing.T) {
		a, _, _ := newTestAuthenticator()
		_, err := a.Authenticate(context.Background(), "expired")
		assert.ErrorIs(t, err, ErrAuthInvalid)
		assert.NotContains(t, err.Error(), "expired")
	})

	t.Run("no local profile", func(t *testing.T) {
		a, _, _ := newTestAuthenticator()
		_, err := a.Authenticate(context.Background(), "unprovided")
		assert.ErrorIs(t, err, ErrAuthInvalid)
	})

	t.Run("directory failure", func(t *testing.T) {
		a, _, users := newTestAuthenticator()
		users.err = errors.New("connection refused")
		_, err := a.Authenticate(context.Background(), "good")
		assert.ErrorIs(t, err, ErrAuthInvalid)
	})
}
