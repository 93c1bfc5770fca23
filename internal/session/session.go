// Package session holds the authenticated operator's identity for the
// lifetime of a console view. The session travels on a context.Context so
// callers and tests inject whatever identity they need; there is no package
// level singleton.
package session

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/clinicdesk/console/internal/authz"
)

type contextKey struct{}

// Session identifies the operator driving the console.
type Session struct {
	UserID string
	Name   string
	Role   authz.Role
	// Token is the raw bearer token forwarded to the clinic API.
	Token string
}

// Capabilities returns the scheduling capability set for the session's role.
func (s Session) Capabilities() authz.Capabilities {
	return authz.CapabilitiesFor(s.Role)
}

// Claims is the JWT payload issued by the clinic auth service.
type Claims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
	Role string `json:"role"`
}

// FromToken validates an HS256 access token and builds a Session from its
// claims. The role claim is resolved through authz.ParseRole, so a token with
// an unrecognized role yields a session with no mutation capabilities.
func FromToken(tokenStr string, secret []byte) (Session, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return Session{}, fmt.Errorf("parse access token: %w", err)
	}
	if !token.Valid {
		return Session{}, fmt.Errorf("invalid access token")
	}
	return Session{
		UserID: claims.Subject,
		Name:   claims.Name,
		Role:   authz.ParseRole(claims.Role),
		Token:  tokenStr,
	}, nil
}

// WithSession returns a context carrying the session.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session on the context. The zero Session (unknown
// role, no capabilities) is returned when none is set.
func FromContext(ctx context.Context) Session {
	s, _ := ctx.Value(contextKey{}).(Session)
	return s
}
