package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	iauth "github.com/charlesng35/teamseats/internal/auth"
	"github.com/charlesng35/teamseats/internal/middleware"
	"github.com/charlesng35/teamseats/pkg/errors"
	"github.com/charlesng35/teamseats/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// requireSession returns the authenticated session or writes a 401 response.
func requireSession(c *gin.Context) (iauth.Session, bool) {
	session, ok := middleware.SessionFrom(c)
	if !ok || session.Validate() != nil {
		response.Error(c, errors.ErrUnauthorized)
		c.Abort()
		return iauth.Session{}, false
	}
	return session, true
}
