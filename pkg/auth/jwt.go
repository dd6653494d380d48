package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const BearerPrefix = "Bearer "

// Claims carried by admin tokens.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTAuthEngine accepts HMAC-signed bearer tokens.
type JWTAuthEngine struct {
	secret []byte
}

func NewJWTAuthEngine(secret string) *JWTAuthEngine {
	return &JWTAuthEngine{secret: []byte(secret)}
}

// AuthenticateRequest validates the bearer token in the Authorization
// header. Requests without a bearer token are not an error.
func (e *JWTAuthEngine) AuthenticateRequest(ctx context.Context, r *http.Request) (*User, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, BearerPrefix) {
		return nil, nil
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(strings.TrimSpace(header[len(BearerPrefix):]), &claims, func(t *jwt.Token) (any, error) {
		return e.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parse bearer token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid bearer token")
	}

	return &User{
		AccessKeyID: claims.Subject,
		Role:        claims.Role,
	}, nil
}

// IssueToken signs a token for subject with the given role, valid for ttl.
func (e *JWTAuthEngine) IssueToken(subject string, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(e.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
