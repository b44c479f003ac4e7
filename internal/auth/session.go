package auth

import (
	"context"

	"visitorlog/internal/store"
)

// FlagAdminAuthenticated is the session slot marking an admin login.
const FlagAdminAuthenticated = "isAdminAuthenticated"

// Sessions namespaces per-browser values inside a slot store.
type Sessions struct {
	slots store.Slots
}

// NewSessions wraps slots.
func NewSessions(slots store.Slots) *Sessions {
	return &Sessions{slots: slots}
}

func sessionKey(sid, name string) string {
	return "session:" + sid + ":" + name
}

func (s *Sessions) Get(ctx context.Context, sid, name string) (string, bool, error) {
	return s.slots.Get(ctx, sessionKey(sid, name))
}

func (s *Sessions) Set(ctx context.Context, sid, name, value string) error {
	return s.slots.Set(ctx, sessionKey(sid, name), value)
}

func (s *Sessions) Clear(ctx context.Context, sid, name string) error {
	return s.slots.Clear(ctx, sessionKey(sid, name))
}

// IsAuthenticated is true exactly when the flag holds the literal "true".
func IsAuthenticated(value string, ok bool) bool {
	return ok && value == "true"
}

// Authenticated reads the admin flag of session sid.
func (s *Sessions) Authenticated(ctx context.Context, sid string) (bool, error) {
	if sid == "" {
		return false, nil
	}
	v, ok, err := s.Get(ctx, sid, FlagAdminAuthenticated)
	if err != nil {
		return false, err
	}
	return IsAuthenticated(v, ok), nil
}
