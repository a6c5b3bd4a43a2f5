package credAuth

import (
	"context"
	"io"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/credAuth/internal/audit"
	"github.com/MrEthical07/credAuth/password"
)

// UserRecord is the persisted form of an account as the engine reads and writes it.
//
// userstore/postgres holds the reference schema.
type UserRecord struct {
	ID           string
	Name         string
	Email        string
	About        string
	PasswordHash string
	// PepperVersion is the hint recorded by the last successful verification or encode.
	PepperVersion password.PepperVersion
	// LastPasswordRehash is the zero time for accounts never re-encoded since creation.
	LastPasswordRehash time.Time
	FailedLogins       int
	IPHistory          []IPSighting
	CreatedAt          time.Time
}

// IPSighting is one address an account has logged in from.
type IPSighting struct {
	IP       string
	LastSeen time.Time
}

// UserStore persists accounts.
//
// FindByEmail and FindByID return ErrUserNotFound when nothing matches. Create assigns the
// record ID. Update loads the record with id, hands it to fn and writes every field back,
// serialised against other Updates of the same record; when fn returns an error nothing is
// written and that error is returned as is. Create and Update return ErrDuplicateEmail when
// the email belongs to another account.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*UserRecord, error)
	FindByID(ctx context.Context, id string) (*UserRecord, error)
	Create(ctx context.Context, user *UserRecord) error
	Update(ctx context.Context, id string, fn func(*UserRecord) error) error
}

// SecurityAlert is sent to an account owner when failed logins reach the threshold.
type SecurityAlert struct {
	AccountID string
	Name      string
	Email     string
	IP        string
	Failures  int
	At        time.Time
	// SiteLink is the change-password URL from AlertConfig.
	SiteLink string
}

// Notifier delivers owner-facing messages. Delivery is best-effort: errors are logged and
// counted, never returned to the caller of the engine operation.
type Notifier interface {
	SendSecurityAlert(ctx context.Context, alert SecurityAlert) error
	SendWelcome(ctx context.Context, email, name string) error
}

// AuthResult is returned by a successful Authenticate.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	AccountID string
	Name      string
	// Rehashed reports whether the stored digest was re-encoded during this login.
	Rehashed bool
}

// RegisterRequest is the input of Engine.Register.
type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// UpdateRequest is the input of Engine.UpdateCredentials. Empty optional fields keep the
// stored value; NewPassword is optional, CurrentPassword is not.
type UpdateRequest struct {
	AccountID          string `json:"-"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	About              string `json:"about"`
	CurrentPassword    string `json:"currentPassword"`
	NewPassword        string `json:"newPassword"`
	ConfirmNewPassword string `json:"confirmNewPassword"`
}

// AccountSummary is an account without any password material.
type AccountSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	About     string    `json:"about,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// TokenClaims is the verified content of a login token.
type TokenClaims struct {
	AccountID string
	Name      string
	ExpiresAt time.Time
}

// AuditEvent is one security-relevant outcome recorded by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the async dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink drops audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink writes audit events into a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON audit event per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink logs audit events through a slog.Logger.
type SlogSink = internalaudit.SlogSink

// NewChannelSink returns a ChannelSink buffering up to buffer events.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewSlogSink returns a SlogSink, using slog.Default when logger is nil.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}

// NewJSONWriterSink returns a JSONWriterSink over w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
