package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	credAuth "github.com/MrEthical07/credAuth"
	"github.com/MrEthical07/credAuth/password"
	"github.com/MrEthical07/credAuth/userstore/memory"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, points int) (*gin.Engine, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := credAuth.DefaultConfig()
	cfg.JWT.Secret = testSecret
	cfg.Password.Base = password.Config{Memory: 8192, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	cfg.Password.Strong = password.Config{Memory: 8192, Time: 2, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	cfg.Throttle.Whitelist = nil
	cfg.Throttle.BlockedDelay = 0
	cfg.Throttle.FailedDelay = 0
	if points > 0 {
		cfg.Throttle.Points = points
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := credAuth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(memory.New()).
		WithLogger(logger).
		Build()
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = engine.Close(context.Background())
		_ = rdb.Close()
	})

	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "credauth_login_success_total 0\n")
	})

	return NewRouter(engine, Options{Logger: logger, Metrics: metrics, TrustForwardedFor: true}), mr
}

func do(t *testing.T, r http.Handler, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var buf io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		buf = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "198.51.100.20:4444"
	for k, v := range header {
		req.Header[k] = v
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func registerBody(name, email, pw string) map[string]string {
	return map[string]string{"name": name, "email": email, "password": pw, "confirmPassword": pw}
}

func login(t *testing.T, r http.Handler, email, pw string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, r, http.MethodPost, "/api/users/login", map[string]string{"email": email, "password": pw}, nil)
}

func TestRegisterAndLogin(t *testing.T) {
	r, _ := newTestRouter(t, 0)

	w := do(t, r, http.MethodPost, "/api/users/register", registerBody("Alice", "alice@example.com", "correct-password"), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	require.Equal(t, "New User Alice registered successfully!", body["message"])
	user := body["user"].(map[string]any)
	require.Equal(t, "alice@example.com", user["email"])
	require.NotContains(t, w.Body.String(), "password")

	w = login(t, r, "alice@example.com", "correct-password")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode(t, w)
	require.NotEmpty(t, res["token"])
	require.Equal(t, user["id"], res["id"])
	require.Equal(t, "Alice", res["name"])
}

func TestRegisterErrors(t *testing.T) {
	r, _ := newTestRouter(t, 0)

	w := do(t, r, http.MethodPost, "/api/users/register", registerBody("Alice", "alice@example.com", "correct-password"), nil)
	require.Equal(t, http.StatusCreated, w.Code)

	cases := []struct {
		name    string
		body    any
		status  int
		message string
	}{
		{"duplicate", registerBody("Alice", "alice@example.com", "correct-password"), http.StatusUnprocessableEntity, "Email Already Exists!"},
		{"missing", map[string]string{"email": "bob@example.com"}, http.StatusUnprocessableEntity, "Fill in all fields"},
		{"short", registerBody("Bob", "bob@example.com", "short"), http.StatusUnprocessableEntity, "Password is too short!"},
		{"mismatch", map[string]string{"name": "Bob", "email": "bob@example.com", "password": "long-enough-1", "confirmPassword": "long-enough-2"}, http.StatusUnprocessableEntity, "Passwords do not match!"},
		{"malformed", "{not json", http.StatusBadRequest, "Malformed request body"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, "/api/users/register", tc.body, nil)
			require.Equal(t, tc.status, w.Code, w.Body.String())
			require.Equal(t, tc.message, decode(t, w)["message"])
		})
	}
}

func TestRegisterAcceptsPassword2(t *testing.T) {
	r, _ := newTestRouter(t, 0)

	body := map[string]string{"name": "Bob", "email": "bob@example.com", "password": "long-enough-1", "password2": "long-enough-2"}
	w := do(t, r, http.MethodPost, "/api/users/register", body, nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	require.Equal(t, "Passwords do not match!", decode(t, w)["message"])

	body["password2"] = "long-enough-1"
	w = do(t, r, http.MethodPost, "/api/users/register", body, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = login(t, r, "bob@example.com", "long-enough-1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestLoginFailuresLookAlike(t *testing.T) {
	r, _ := newTestRouter(t, 0)
	do(t, r, http.MethodPost, "/api/users/register", registerBody("Alice", "alice@example.com", "correct-password"), nil)

	wrong := login(t, r, "alice@example.com", "wrong-password")
	unknown := login(t, r, "nobody@example.com", "wrong-password")

	require.Equal(t, http.StatusUnauthorized, wrong.Code)
	require.Equal(t, http.StatusUnauthorized, unknown.Code)
	require.Equal(t, wrong.Body.String(), unknown.Body.String())
}

func TestLoginRateLimited(t *testing.T) {
	r, mr := newTestRouter(t, 2)

	for i := 0; i < 2; i++ {
		w := login(t, r, "nobody@example.com", "wrong-password")
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w := login(t, r, "nobody@example.com", "wrong-password")
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	// The throttle is keyed on the direct peer when no forwarded header is present.
	require.True(t, mr.Exists("lip:198.51.100.20"))
}

func TestClientIPFromForwardedFor(t *testing.T) {
	r, mr := newTestRouter(t, 0)

	header := http.Header{"X-Forwarded-For": {"203.0.113.9, 10.0.0.1"}}
	w := do(t, r, http.MethodPost, "/api/users/login", map[string]string{"email": "x@example.com", "password": "whatever-pw"}, header)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	require.True(t, mr.Exists("lip:203.0.113.9"))
	require.False(t, mr.Exists("lip:198.51.100.20"))
}

func TestEditUser(t *testing.T) {
	r, _ := newTestRouter(t, 0)
	do(t, r, http.MethodPost, "/api/users/register", registerBody("Alice", "alice@example.com", "correct-password"), nil)
	token := decode(t, login(t, r, "alice@example.com", "correct-password"))["token"].(string)
	auth := http.Header{"Authorization": {"Bearer " + token}}

	w := do(t, r, http.MethodPatch, "/api/users/edit-user", map[string]string{"about": "hi"}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodPatch, "/api/users/edit-user", map[string]string{"about": "hi"}, http.Header{"Authorization": {"Bearer nope"}})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodPatch, "/api/users/edit-user", map[string]string{"about": "hi"}, auth)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Equal(t, "Current Password Required for Account Update", decode(t, w)["message"])

	w = do(t, r, http.MethodPatch, "/api/users/edit-user", map[string]string{"about": "hi", "currentPassword": "wrong-password"}, auth)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Equal(t, "Current Password is Invalid.", decode(t, w)["message"])

	w = do(t, r, http.MethodPatch, "/api/users/edit-user", map[string]string{
		"currentPassword":    "correct-password",
		"newPassword":        "correct-password",
		"confirmNewPassword": "correct-password",
	}, auth)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Equal(t, "Cannot reuse current password.", decode(t, w)["message"])

	w = do(t, r, http.MethodPatch, "/api/users/edit-user", map[string]string{
		"about":              "hi",
		"currentPassword":    "correct-password",
		"newPassword":        "brand-new-password",
		"confirmNewPassword": "brand-new-password",
	}, auth)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "hi", decode(t, w)["user"].(map[string]any)["about"])

	require.Equal(t, http.StatusUnauthorized, login(t, r, "alice@example.com", "correct-password").Code)
	require.Equal(t, http.StatusOK, login(t, r, "alice@example.com", "brand-new-password").Code)
}

func TestGetUser(t *testing.T) {
	r, _ := newTestRouter(t, 0)
	w := do(t, r, http.MethodPost, "/api/users/register", registerBody("Alice", "alice@example.com", "correct-password"), nil)
	id := decode(t, w)["user"].(map[string]any)["id"].(string)

	w = do(t, r, http.MethodGet, "/api/users/"+id, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Alice", decode(t, w)["name"])

	w = do(t, r, http.MethodGet, "/api/users/missing", nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	r, _ := newTestRouter(t, 0)

	w := do(t, r, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "credauth_login_success_total")
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{credAuth.ErrPasswordTooShort, http.StatusUnprocessableEntity},
		{credAuth.ErrValidation, http.StatusUnprocessableEntity},
		{credAuth.ErrRateLimited, http.StatusTooManyRequests},
		{credAuth.ErrPersistence, http.StatusInternalServerError},
		{io.EOF, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		status, msg := statusFor(tc.err)
		require.Equal(t, tc.status, status, tc.err.Error())
		require.NotContains(t, msg, "persistence")
	}
}
