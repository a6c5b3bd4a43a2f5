package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	credAuth "github.com/MrEthical07/credAuth"
)

type stubParser struct {
	valid string
	calls int
}

func (p *stubParser) ParseToken(_ context.Context, token string) (*credAuth.TokenClaims, error) {
	p.calls++
	if token != p.valid {
		return nil, credAuth.ErrTokenInvalid
	}
	return &credAuth.TokenClaims{AccountID: "u-1", Name: "Ada"}, nil
}

func echoClaims(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	_, _ = w.Write([]byte(claims.AccountID))
}

func TestGuard(t *testing.T) {
	parser := &stubParser{valid: "good"}
	h := Guard(parser)(http.HandlerFunc(echoClaims))

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, ""},
		{"empty token", "Bearer ", http.StatusUnauthorized, ""},
		{"invalid token", "Bearer bad", http.StatusUnauthorized, ""},
		{"valid token", "Bearer good", http.StatusOK, "u-1"},
		{"lowercase scheme", "bearer good", http.StatusOK, "u-1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			if tc.body != "" && rec.Body.String() != tc.body {
				t.Fatalf("expected body %q, got %q", tc.body, rec.Body.String())
			}
		})
	}
}

func TestGuardNilParser(t *testing.T) {
	h := Guard(nil)(http.HandlerFunc(echoClaims))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestOptional(t *testing.T) {
	parser := &stubParser{valid: "good"}
	h := Optional(parser)(http.HandlerFunc(echoClaims))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || parser.calls != 0 {
		t.Fatalf("expected pass-through without parsing, got %d after %d calls", rec.Code, parser.calls)
	}

	req.Header.Set("Authorization", "Bearer bad")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected invalid token to pass through anonymously, got %d", rec.Code)
	}

	req.Header.Set("Authorization", "Bearer good")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Body.String() != "u-1" {
		t.Fatalf("expected claims attached, got %q", rec.Body.String())
	}
}
