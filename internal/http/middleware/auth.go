package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/feridsherif/crms-frontend/internal/domain"
)

const sessionKey = "session"

// SessionParser verifies a session token.
type SessionParser interface {
	Parse(ctx context.Context, token string) (*domain.SessionCredential, error)
}

// RequireSession accepts the session cookie or an Authorization bearer
// header and stores the credential on the context.
func RequireSession(parser SessionParser, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cred, err := parser.Parse(c.Request.Context(), SessionToken(c, cookieName))
		if err != nil {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "Unauthorized request")
			return
		}
		c.Set(sessionKey, cred)
		c.Next()
	}
}

// SessionToken reads the bearer header first, then the cookie.
func SessionToken(c *gin.Context, cookieName string) string {
	if h := strings.TrimSpace(c.GetHeader("Authorization")); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
	}
	if cookieName != "" {
		if v, err := c.Cookie(cookieName); err == nil {
			return v
		}
	}
	return ""
}

// GetSession returns the credential set by RequireSession, or nil.
func GetSession(c *gin.Context) *domain.SessionCredential {
	if v, ok := c.Get(sessionKey); ok {
		if cred, ok := v.(*domain.SessionCredential); ok {
			return cred
		}
	}
	return nil
}
