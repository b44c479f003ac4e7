package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidPassword = errors.New("incorrect password")

// Authenticator checks the shared admin password.
type Authenticator struct {
	hash     []byte
	sessions *Sessions
}

// NewAuthenticator accepts either a plain password or a bcrypt hash of it.
// A hash takes precedence.
func NewAuthenticator(password, passwordHash string, sessions *Sessions) (*Authenticator, error) {
	var hash []byte
	switch {
	case passwordHash != "":
		if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
			return nil, err
		}
		hash = []byte(passwordHash)
	case password != "":
		h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		hash = h
	default:
		return nil, errors.New("admin password is not configured")
	}
	return &Authenticator{hash: hash, sessions: sessions}, nil
}

// AttemptLogin sets the admin flag on sid when entered matches. On failure
// the session is left untouched.
func (a *Authenticator) AttemptLogin(ctx context.Context, sid, entered string) error {
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(entered)); err != nil {
		return ErrInvalidPassword
	}
	return a.sessions.Set(ctx, sid, FlagAdminAuthenticated, "true")
}

// Logout clears the admin flag.
func (a *Authenticator) Logout(ctx context.Context, sid string) error {
	return a.sessions.Clear(ctx, sid, FlagAdminAuthenticated)
}
