package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"rack-service/internal/auth"

	"github.com/gin-gonic/gin"
)

// IdentityKey is the gin context key holding the authenticated *auth.Identity.
const IdentityKey = "identity"

type AuthMiddleware struct {
	authenticator *auth.Authenticator
}

func NewAuthMiddleware(authenticator *auth.Authenticator) *AuthMiddleware {
	return &AuthMiddleware{
		authenticator: authenticator,
	}
}

// RequireAuth rejects the request with 401 unless it carries a valid token
// for a provisioned user. The token may be in the token query parameter or
// the Authorization header.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := auth.ExtractCredential(c.Request)

		identity, err := am.authenticator.Authenticate(c.Request.Context(), raw)
		if err != nil {
			message := auth.ErrAuthInvalid.Error()
			if errors.Is(err, auth.ErrAuthMissing) {
				message = auth.ErrAuthMissing.Error()
			}
			c.Set("error", message)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
			return
		}

		c.Set(IdentityKey, identity)
		c.Next()
	}
}

// RequireOperator allows only the listed external auth ids. It must run after
// RequireAuth. With no operators configured every request is refused.
func RequireOperator(operators []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(operators))
	for _, id := range operators {
		allowed[id] = struct{}{}
	}

	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrAuthMissing.Error()})
			return
		}
		if _, ok := allowed[identity.ExternalAuthID]; !ok {
			slog.Warn("Diagnostics access denied", "userID", identity.UserID)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "operator access required"})
			return
		}
		c.Next()
	}
}

// IdentityFrom returns the identity set by RequireAuth.
func IdentityFrom(c *gin.Context) (*auth.Identity, bool) {
	value, ok := c.Get(IdentityKey)
	if !ok {
		return nil, false
	}
	identity, ok := value.(*auth.Identity)
	return identity, ok && identity != nil
}
