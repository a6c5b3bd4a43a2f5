package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	credAuth "github.com/MrEthical07/credAuth"
)

// Service is the engine surface the HTTP layer needs. *credAuth.Engine satisfies it.
type Service interface {
	Authenticate(ctx context.Context, email, password string) (*credAuth.AuthResult, error)
	Register(ctx context.Context, req credAuth.RegisterRequest) (*credAuth.AccountSummary, error)
	UpdateCredentials(ctx context.Context, req credAuth.UpdateRequest) (*credAuth.AccountSummary, error)
	Account(ctx context.Context, id string) (*credAuth.AccountSummary, error)
	ParseToken(ctx context.Context, token string) (*credAuth.TokenClaims, error)
}

var _ Service = (*credAuth.Engine)(nil)

// Options tunes the router.
type Options struct {
	Logger *slog.Logger
	// Metrics is mounted at GET /metrics when set.
	Metrics http.Handler
	// TrustForwardedFor takes the client IP from the first X-Forwarded-For entry.
	TrustForwardedFor bool
	// MaxBodyBytes caps JSON request bodies. Zero means 64 KiB.
	MaxBodyBytes int64
}

// Handler serves the account endpoints.
type Handler struct {
	svc    Service
	logger *slog.Logger
}

// NewRouter builds a gin engine with every route mounted.
func NewRouter(svc Service, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 64 << 10
	}

	h := &Handler{svc: svc, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))
	r.Use(clientIP(opts.TrustForwardedFor))
	r.Use(limitBody(maxBody))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	users := r.Group("/api/users")
	{
		users.POST("/register", h.Register)
		users.POST("/login", h.Login)
		users.PATCH("/edit-user", requireAuth(svc), h.EditUser)
		users.GET("/:id", h.GetUser)
	}

	return r
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "credAuth: http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"latency", time.Since(start),
			"ip", c.GetString(clientIPKey),
		)
	}
}

func limitBody(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		}
		c.Next()
	}
}
