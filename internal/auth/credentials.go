package auth

import (
	"crypto/subtle"
	"errors"
)

// ErrBadCredentials is returned when username or password do not match
var ErrBadCredentials = errors.New("invalid username or password")

// CredentialsAuth authenticates against the configured API username and
// password. The bridge is a single-operator daemon; there is no user
// database.
type CredentialsAuth struct {
	username string
	password string
}

// NewCredentialsAuth creates a new credentials authenticator
func NewCredentialsAuth(username, password string) *CredentialsAuth {
	return &CredentialsAuth{
		username: username,
		password: password,
	}
}

// Authenticate verifies username and password in constant time
func (a *CredentialsAuth) Authenticate(username, password string) (*User, error) {
	if a.password == "" {
		// No password configured - login is disabled
		return nil, ErrBadCredentials
	}

	userMatch := subtle.ConstantTimeCompare([]byte(username), []byte(a.username))
	passMatch := subtle.ConstantTimeCompare([]byte(password), []byte(a.password))
	if userMatch&passMatch != 1 {
		return nil, ErrBadCredentials
	}

	return &User{
		Username: username,
		Role:     RoleAdmin,
	}, nil
}
