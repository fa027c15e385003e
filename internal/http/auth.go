package http

import (
	"strings"
)

// TokenAuth maps static bearer tokens to user IDs. Tokens are configured as
// a comma-separated list of token:user pairs; unknown or missing tokens
// resolve to the anonymous user.
type TokenAuth struct {
	users map[string]string
}

// NewTokenAuth parses a "token:user,token:user" specification. Malformed
// pairs are skipped.
func NewTokenAuth(spec string) *TokenAuth {
	users := make(map[string]string)
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		token, user, ok := strings.Cut(pair, ":")
		if !ok || token == "" || user == "" {
			continue
		}
		users[token] = user
	}
	return &TokenAuth{users: users}
}

// UserID resolves an Authorization header value to a user ID. An empty
// string means anonymous.
func (a *TokenAuth) UserID(authorization string) string {
	token := strings.TrimSpace(strings.TrimPrefix(authorization, "Bearer"))
	if token == "" {
		return ""
	}
	return a.users[token]
}
