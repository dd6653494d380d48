package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
)

type BasicAuthEngine struct {
	AccessKeyID     string
	SecretAccessKey string
	Role            string
}

// NewBasicAuthEngine creates a new BasicAuthEngine with the default
// credentials. Basic auth callers are operators and get the superuser role.
func NewBasicAuthEngine() *BasicAuthEngine {
	return &BasicAuthEngine{
		AccessKeyID:     DefaultAccessKeyID,
		SecretAccessKey: DefaultSecretAccessKey,
		Role:            RoleSuperuser,
	}
}

// AuthenticateRequest checks the Authorization header for valid Basic Auth
// credentials. It returns a User object if the credentials are valid, nil otherwise.
func (e *BasicAuthEngine) AuthenticateRequest(ctx context.Context, r *http.Request) (*User, error) {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return nil, nil
	}

	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(e.AccessKeyID)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(e.SecretAccessKey)) == 1
	if !userOK || !passOK {
		return nil, nil
	}

	return &User{
		AccessKeyID: user,
		Role:        e.Role,
	}, nil
}
