package sdk

import (
	"time"
)

// SessionToken is the credential returned by a successful login. It is a
// value: a refreshed session is a new token.
type SessionToken struct {
	token   string
	expires time.Time
	failed  bool
}

// FailedSession represents the absence of a valid session.
var FailedSession = SessionToken{failed: true}

// NewSessionToken wraps a token string. A zero expiry never expires.
func NewSessionToken(token string, expires time.Time) SessionToken {
	if token == "" {
		return FailedSession
	}
	return SessionToken{token: token, expires: expires}
}

// Token returns the opaque token string, "" for FailedSession.
func (s SessionToken) Token() string {
	return s.token
}

// Expires returns the expiry, zero when the session does not expire.
func (s SessionToken) Expires() time.Time {
	return s.expires
}

// IsFailed reports whether s is the FailedSession sentinel.
func (s SessionToken) IsFailed() bool {
	return s.failed || s.token == ""
}

// IsValid reports whether s can authenticate requests right now.
func (s SessionToken) IsValid() bool {
	return s.isValidAt(time.Now())
}

func (s SessionToken) isValidAt(now time.Time) bool {
	if s.IsFailed() {
		return false
	}
	return s.expires.IsZero() || now.Before(s.expires)
}

// String hides the token for logging.
func (s SessionToken) String() string {
	if s.IsFailed() {
		return "session(failed)"
	}
	if len(s.token) <= 4 {
		return "session(****)"
	}
	return "session(" + s.token[:4] + "****)"
}
