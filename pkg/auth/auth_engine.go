package auth

import (
	"context"
	"net/http"
)

const (
	DefaultAccessKeyID     = "cdnadmin"
	DefaultSecretAccessKey = "cdnadmin"
)

// RoleSuperuser marks callers that see full paths in error messages.
const RoleSuperuser = "superuser"

type User struct {
	AccessKeyID string
	Role        string
}

// Elevated reports whether the user holds the superuser role.
func (u *User) Elevated() bool {
	return u != nil && u.Role == RoleSuperuser
}

type AuthEngine interface {

	// AuthenticateRequest inspects the given HTTP request for valid
	// authentication credentials. If valid, it returns a User object; otherwise, it
	// returns nil. An error is returned if there was an issue processing
	// the authentication.
	AuthenticateRequest(ctx context.Context, rq *http.Request) (*User, error)
}

type contextKey struct{}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFromContext returns the authenticated user stored in ctx, if any.
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(contextKey{}).(*User)
	return user
}

// ContextElevation answers elevation queries from the user stored in the
// request context.
type ContextElevation struct{}

func (ContextElevation) IsElevated(ctx context.Context) bool {
	return UserFromContext(ctx).Elevated()
}
