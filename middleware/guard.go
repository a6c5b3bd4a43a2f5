package middleware

import (
	"context"
	"net/http"
	"strings"

	credAuth "github.com/MrEthical07/credAuth"
)

// TokenParser verifies a bearer token. *credAuth.Engine satisfies it.
type TokenParser interface {
	ParseToken(ctx context.Context, token string) (*credAuth.TokenClaims, error)
}

var _ TokenParser = (*credAuth.Engine)(nil)

type claimsContextKey struct{}

// ClaimsFromContext returns the claims stored by Guard or Optional.
func ClaimsFromContext(ctx context.Context) (*credAuth.TokenClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*credAuth.TokenClaims)
	return claims, ok
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *credAuth.TokenClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// Guard rejects requests without a valid bearer token with 401.
func Guard(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if parser == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := parser.ParseToken(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
