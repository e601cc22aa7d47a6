// Package auth extracts caller credentials from incoming requests.
//
// The sessions API never authenticates callers itself. It forwards the
// bearer token, when one is presented, to the policy decision endpoint
// and lets that service decide. A request without a token is still a
// valid request; the policy input simply carries a null token.
package auth

import (
	"context"
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// BearerToken extracts the bearer token from the Authorization header.
// ok is false when the header is absent, uses a scheme other than
// Bearer, or carries a credential that does not match the token68
// grammar; a malformed credential degrades to "no token" rather than
// failing the request. The scheme match is case-insensitive per
// RFC 7235.
func BearerToken(r *http.Request) (token string, ok bool) {
	auth := r.Header.Get("Authorization")
	if len(auth) < len(bearerPrefix) {
		return "", false
	}
	if !strings.EqualFold(auth[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}

	token = strings.TrimSpace(auth[len(bearerPrefix):])
	if !isToken68(token) {
		return "", false
	}
	return token, true
}

// isToken68 reports whether s matches the token68 grammar of RFC 7235
// section 2.1: one or more of ALPHA / DIGIT / "-" / "." / "_" / "~" /
// "+" / "/", followed by any number of "=".
func isToken68(s string) bool {
	i := 0
	for i < len(s) && isToken68Char(s[i]) {
		i++
	}
	if i == 0 {
		return false
	}
	for ; i < len(s); i++ {
		if s[i] != '=' {
			return false
		}
	}
	return true
}

func isToken68Char(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '-' || c == '.' || c == '_' || c == '~' || c == '+' || c == '/'
}

// Context keys for auth.
type contextKey string

const tokenKey contextKey = "bearer_token"

// ContextWithToken stores a bearer token in the context for the
// resolvers to forward to the policy endpoint.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// TokenFromContext extracts the bearer token from the context. ok is
// false when the request carried no token.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey).(string)
	return token, ok
}
