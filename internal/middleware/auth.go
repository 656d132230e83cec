package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/charlesng35/teamseats/internal/auth"
	"github.com/charlesng35/teamseats/pkg/errors"
	"github.com/charlesng35/teamseats/pkg/response"
)

const (
	CtxClaimsKey    = "authClaims"
	CtxSessionKey   = "authSession"
	CtxAccountIDKey = "accountID"
)

// Auth enforces JWT authentication using the supplied JWT service and attaches
// the caller's Session to both the gin and request contexts.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		token := strings.TrimSpace(authz[7:])
		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		session, err := iauth.SessionFromClaims(claims)
		if err != nil {
			response.Error(c, errors.ErrUnauthorized.WithInternal(err))
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxSessionKey, session)
		c.Set(CtxAccountIDKey, session.AccountID)
		c.Request = c.Request.WithContext(iauth.WithSession(c.Request.Context(), session))

		c.Next()
	}
}

// SessionFrom returns the Session attached by Auth.
func SessionFrom(c *gin.Context) (iauth.Session, bool) {
	if c == nil {
		return iauth.Session{}, false
	}
	if value, ok := c.Get(CtxSessionKey); ok {
		if session, ok := value.(iauth.Session); ok {
			return session, true
		}
	}
	if c.Request != nil {
		return iauth.SessionFromContext(c.Request.Context())
	}
	return iauth.Session{}, false
}
