package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	AuthorizationHeader = "Authorization"
	Bearer              = "Bearer "
)

type (
	tokenKey struct{}
	userKey  struct{}
)

// User is the signed-in person on whose behalf the portal acts.
type User struct {
	Name string
	Role string
}

// WithToken returns a context whose outgoing API calls carry token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func Token(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

func UserFrom(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userKey{}).(User)
	return u, ok
}

// Claims is the part of the library API token the portal looks at.
type Claims struct {
	UserID string `json:"id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Inspect reads the token payload without verifying its signature.
// The API remains the only authority on whether the token is valid.
func Inspect(token string) (*Claims, error) {
	claims := new(Claims)
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Expired reports whether token carries an exp claim that is already in the past.
// Opaque tokens and tokens without exp are never considered expired.
func Expired(token string, now time.Time) bool {
	claims, err := Inspect(token)
	if err != nil || claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}
