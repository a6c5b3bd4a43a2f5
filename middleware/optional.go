package middleware

import "net/http"

// Optional attaches claims when a valid bearer token is present and lets every request
// through. Handlers check ClaimsFromContext themselves.
func Optional(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok || parser == nil {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := parser.ParseToken(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}
