package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityVerifier validates a bearer token with the identity authority.
type IdentityVerifier interface {
	VerifyToken(ctx context.Context, token string) (*ExternalIdentity, error)
}

type identityClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTVerifier verifies HMAC-signed tokens issued by the identity authority.
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewJWTVerifier(secret, issuer, audience string) *JWTVerifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return &JWTVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(opts...),
	}
}

func (v *JWTVerifier) VerifyToken(ctx context.Context, token string) (*ExternalIdentity, error) {
	var claims identityClaims
	parsed, err := v.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("verify token: token is not valid")
	}
	if claims.Subject == "" {
		return nil, errors.New("verify token: missing subject")
	}
	return &ExternalIdentity{Subject: claims.Subject, Email: claims.Email}, nil
}
