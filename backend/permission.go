package backend

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Roles.
func AnyRole() string { return "any" }
func UserRole(id string) string { return "user:" + id }

// Permission grants.
func Read(role string) string { return grant("read", role) }
func Update(role string) string { return grant("update", role) }
func Delete(role string) string { return grant("delete", role) }
func Write(role string) string { return grant("write", role) }

func grant(action, role string) string {
	return action + `("` + role + `")`
}

// OwnerPermissions is the grant set for user-owned records: anyone may read,
// only the owner may change or remove.
func OwnerPermissions(userID string) []string {
	owner := UserRole(userID)
	return []string{
		Read(AnyRole()),
		Update(owner),
		Delete(owner),
		Write(owner),
	}
}

// UniqueID returns a new 32 character document id.
func UniqueID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

type sessionKey struct{}

// WithSession attaches a session secret to ctx. Adapters act on behalf of
// that session instead of with server credentials.
func WithSession(ctx context.Context, secret string) context.Context {
	if secret == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, secret)
}

// SessionFrom returns the session secret carried by ctx.
func SessionFrom(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(sessionKey{}).(string)
	return s, ok && s != ""
}
