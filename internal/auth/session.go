package auth

import (
	"context"
	"errors"
	"strings"
)

// ErrNoSession is returned when an operation requires an authenticated account.
var ErrNoSession = errors.New("auth: no active session")

// Session identifies the account a request acts on behalf of. It is built from
// verified token claims and passed explicitly to every service call.
type Session struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	SessionID string `json:"session_id,omitempty"`
}

// SessionFromClaims builds a Session from validated claims.
func SessionFromClaims(claims *Claims) (Session, error) {
	if claims == nil {
		return Session{}, ErrNoSession
	}
	session := Session{
		AccountID: strings.TrimSpace(claims.AccountID),
		Email:     strings.ToLower(strings.TrimSpace(claims.Email)),
		SessionID: claims.SessionID,
	}
	return session, session.Validate()
}

// Validate reports ErrNoSession when the session carries no account.
func (s Session) Validate() error {
	if strings.TrimSpace(s.AccountID) == "" {
		return ErrNoSession
	}
	return nil
}

type sessionKey struct{}

// WithSession stores session on ctx.
func WithSession(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// SessionFromContext returns the session stored by WithSession.
func SessionFromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	session, ok := ctx.Value(sessionKey{}).(Session)
	return session, ok
}
