package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"rack-service/internal/models"
)

var (
	ErrAuthMissing = errors.New("authentication token is required")
	ErrAuthInvalid = errors.New("invalid authentication token")
)

// UserDirectory resolves external identities to provisioned users.
// FindByExternalID returns nil, nil when no user exists.
type UserDirectory interface {
	FindByExternalID(ctx context.Context, externalAuthID string) (*models.User, error)
}

// Authenticator gates websocket handshakes.
type Authenticator struct {
	verifier IdentityVerifier
	users    UserDirectory
}

func NewAuthenticator(verifier IdentityVerifier, users UserDirectory) *Authenticator {
	return &Authenticator{verifier: verifier, users: users}
}

// ExtractCredential reads the bearer token from the token query parameter,
// then from the Authorization header.
func ExtractCredential(r *http.Request) string {
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return stripBearer(token)
	}
	return stripBearer(strings.TrimSpace(r.Header.Get("Authorization")))
}

func stripBearer(token string) string {
	if len(token) >= 7 && strings.EqualFold(token[:7], "Bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}

// Authenticate verifies raw and resolves it to a provisioned user. It only
// returns ErrAuthMissing or ErrAuthInvalid; the underlying cause is logged.
func (a *Authenticator) Authenticate(ctx context.Context, raw string) (*Identity, error) {
	if raw == "" {
		return nil, ErrAuthMissing
	}

	external, err := a.verifier.VerifyToken(ctx, raw)
	if err != nil {
		slog.Warn("Token verification failed", "error", err)
		return nil, ErrAuthInvalid
	}

	user, err := a.users.FindByExternalID(ctx, external.Subject)
	if err != nil {
		slog.Error("User lookup failed during authentication", "externalAuthID", external.Subject, "error", err)
		return nil, ErrAuthInvalid
	}
	if user == nil {
		slog.Warn("Verified identity has no local profile", "externalAuthID", external.Subject)
		return nil, ErrAuthInvalid
	}

	email := user.Email
	if email == "" {
		email = external.Email
	}
	return &Identity{
		UserID:         user.ID,
		ExternalAuthID: external.Subject,
		Email:          email,
	}, nil
}
