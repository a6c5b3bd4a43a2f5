package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MrEthical07/credAuth/internal/shadow"
	"github.com/MrEthical07/credAuth/password"
)

var errCredentialsChanged = errors.New("credentials changed concurrently")

// UpdateRequest is the flow-local profile and credential change input.
// Empty Name, Email or About keep the stored value.
type UpdateRequest struct {
	AccountID          string
	Name               string
	Email              string
	About              string
	CurrentPassword    string
	NewPassword        string
	ConfirmNewPassword string
}

// UpdateMetrics carries metric IDs needed by the update flow.
type UpdateMetrics struct {
	CredentialsUpdated int
	PasswordChanged    int
	UpdateRejected     int
}

// UpdateEvents carries audit event names used by the update flow.
type UpdateEvents struct {
	CredentialsUpdated string
	PasswordChanged    string
	UpdateRejected     string
}

// UpdateErrors carries host-level sentinel errors used by the update flow.
type UpdateErrors struct {
	EngineNotReady          error
	CurrentPasswordRequired error
	InvalidCredentials      error
	UserNotFound            error
	PasswordTooShort        error
	PasswordMismatch        error
	PasswordReuse           error
	AccountExists           error
	DuplicateEmail          error
	Persistence             error
}

// UpdateDeps captures update dependencies.
type UpdateDeps struct {
	MinPasswordLength int
	FailedDelay       time.Duration
	CurrentPepper     string
	Waiter            shadow.Waiter

	Now func() time.Time

	FindAccountByID func(context.Context, string) (*Account, error)
	FindAccount     func(context.Context, string) (*Account, error)
	UpdateAccount   func(context.Context, string, func(*Account) error) error
	Verify          func(context.Context, string, string, password.PepperVersion) (password.Match, error)
	HashBase        func(context.Context, string) (string, error)

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, error, func() map[string]string)
	Warn      func(string, ...any)

	Metrics UpdateMetrics
	Events  UpdateEvents
	Errors  UpdateErrors
}

// RunUpdateCredentials applies a profile edit after re-verifying the current password.
//
// The current password is checked against every configured pepper regardless of the stored
// hint. A new password must differ from the current one and is stored under the base profile.
func RunUpdateCredentials(ctx context.Context, req UpdateRequest, deps UpdateDeps) (*Account, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
	if deps.FindAccountByID == nil ||
		deps.FindAccount == nil ||
		deps.UpdateAccount == nil ||
		deps.Verify == nil ||
		deps.HashBase == nil {
		return nil, deps.Errors.EngineNotReady
	}

	if req.CurrentPassword == "" {
		return nil, deps.Errors.CurrentPasswordRequired
	}

	account, err := deps.FindAccountByID(ctx, req.AccountID)
	if err != nil {
		if errors.Is(err, deps.Errors.UserNotFound) {
			return nil, deps.Errors.UserNotFound
		}
		return nil, fmt.Errorf("%w: %v", deps.Errors.Persistence, err)
	}

	reject := func(reason string, err error) error {
		deps.MetricInc(deps.Metrics.UpdateRejected)
		deps.EmitAudit(ctx, deps.Events.UpdateRejected, false, account.ID, err, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return err
	}

	floor := deps.Waiter.Start(deps.FailedDelay)
	current, err := deps.Verify(ctx, account.PasswordHash, password.Prehash(req.CurrentPassword), password.PepperUnknown)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		deps.Warn("credAuth: stored password hash unusable", "account_id", account.ID, "error", err)
	}
	if !current.Matched {
		_ = floor.Wait(ctx)
		return nil, reject("current_password_invalid", deps.Errors.InvalidCredentials)
	}

	name := strings.TrimSpace(req.Name)
	about := strings.TrimSpace(req.About)
	email := NormalizeEmail(req.Email)
	if email != "" && email != account.Email {
		other, err := deps.FindAccount(ctx, email)
		switch {
		case err == nil && other.ID != account.ID:
			return nil, reject("email_taken", deps.Errors.AccountExists)
		case err != nil && !errors.Is(err, deps.Errors.UserNotFound):
			return nil, fmt.Errorf("%w: %v", deps.Errors.Persistence, err)
		}
	}

	digest := ""
	if req.NewPassword != "" {
		if req.NewPassword != req.ConfirmNewPassword {
			return nil, reject("password_mismatch", deps.Errors.PasswordMismatch)
		}
		if utf8.RuneCountInString(strings.TrimSpace(req.NewPassword)) < deps.MinPasswordLength {
			return nil, reject("password_too_short", deps.Errors.PasswordTooShort)
		}
		prehashed := password.Prehash(req.NewPassword)
		reuse, err := deps.Verify(ctx, account.PasswordHash, prehashed, password.PepperUnknown)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
		}
		if reuse.Matched {
			return nil, reject("password_reuse", deps.Errors.PasswordReuse)
		}

		digest, err = deps.HashBase(ctx, password.Apply(deps.CurrentPepper, prehashed))
		if err != nil {
			return nil, err
		}
	}

	verified := account.PasswordHash
	err = deps.UpdateAccount(ctx, account.ID, func(cur *Account) error {
		// The current password was proven against the digest read above; if another change
		// has replaced it since, that proof no longer holds.
		if cur.PasswordHash != verified {
			return errCredentialsChanged
		}
		if name != "" {
			cur.Name = name
		}
		if about != "" {
			cur.About = about
		}
		if email != "" {
			cur.Email = email
		}
		if digest != "" {
			cur.PasswordHash = digest
			cur.PepperVersion = password.PepperCurrent
			cur.LastPasswordRehash = deps.Now()
		}
		account = cur
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, errCredentialsChanged):
			return nil, reject("password_changed_concurrently", deps.Errors.InvalidCredentials)
		case deps.Errors.DuplicateEmail != nil && errors.Is(err, deps.Errors.DuplicateEmail):
			return nil, reject("email_taken", deps.Errors.AccountExists)
		}
		return nil, fmt.Errorf("%w: %v", deps.Errors.Persistence, err)
	}
	passwordChanged := digest != ""

	deps.MetricInc(deps.Metrics.CredentialsUpdated)
	deps.EmitAudit(ctx, deps.Events.CredentialsUpdated, true, account.ID, nil, nil)
	if passwordChanged {
		deps.MetricInc(deps.Metrics.PasswordChanged)
		deps.EmitAudit(ctx, deps.Events.PasswordChanged, true, account.ID, nil, nil)
	}

	out := *account
	out.PasswordHash = ""
	return &out, nil
}
