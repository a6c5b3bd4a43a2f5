package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MrEthical07/credAuth/internal/rate"
	"github.com/MrEthical07/credAuth/internal/shadow"
	"github.com/MrEthical07/credAuth/password"
)

// RegisterRequest is the flow-local registration input.
type RegisterRequest struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// RegisterMetrics carries metric IDs needed by the registration flow.
type RegisterMetrics struct {
	RegisterSuccess     int
	RegisterDuplicate   int
	RegisterRateLimited int
}

// RegisterEvents carries audit event names used by the registration flow.
type RegisterEvents struct {
	RegisterSuccess     string
	RegisterFailure     string
	RegisterDuplicate   string
	RegisterRateLimited string
}

// RegisterErrors carries host-level sentinel errors used by the registration flow.
type RegisterErrors struct {
	EngineNotReady   error
	MissingFields    error
	RateLimited      error
	AccountExists    error
	PasswordTooShort error
	PasswordMismatch error
	Persistence      error
	UserNotFound     error
	DuplicateEmail   error
}

// RegisterDeps captures registration dependencies.
type RegisterDeps struct {
	MinPasswordLength int
	BlockedDelay      time.Duration
	CurrentPepper     string
	Waiter            shadow.Waiter

	Now         func() time.Time
	ClientIP    func(context.Context) string
	Whitelisted func(string) bool
	ConsumeIP   func(context.Context, string) error

	FindAccount   func(context.Context, string) (*Account, error)
	CreateAccount func(context.Context, *Account) error
	HashBase      func(context.Context, string) (string, error)
	SendWelcome   func(email, name string)

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, error, func() map[string]string)
	Warn      func(string, ...any)

	Metrics RegisterMetrics
	Events  RegisterEvents
	Errors  RegisterErrors
}

// RunRegister validates a registration request and creates the account.
//
// A lookup that finds the email already taken spends one extra unit of the caller's IP
// budget, so enumeration through registration drains the budget twice as fast.
func RunRegister(ctx context.Context, req RegisterRequest, deps RegisterDeps) (*Account, error) {
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
	if deps.ClientIP == nil {
		deps.ClientIP = func(context.Context) string { return "" }
	}
	if deps.Whitelisted == nil {
		deps.Whitelisted = func(string) bool { return false }
	}
	if deps.SendWelcome == nil {
		deps.SendWelcome = func(string, string) {}
	}
	if deps.FindAccount == nil || deps.CreateAccount == nil || deps.HashBase == nil {
		return nil, deps.Errors.EngineNotReady
	}

	name := strings.TrimSpace(req.Name)
	email := NormalizeEmail(req.Email)
	if name == "" || email == "" || req.Password == "" {
		return nil, deps.Errors.MissingFields
	}

	ip := clientIP(deps.ClientIP(ctx))
	whitelisted := deps.Whitelisted(ip)

	consume := func() error {
		if whitelisted || deps.ConsumeIP == nil {
			return nil
		}
		err := deps.ConsumeIP(ctx, ip)
		if err == nil {
			return nil
		}
		if !errors.Is(err, rate.ErrRateLimited) {
			deps.Warn("credAuth: throttle backend unavailable", "ip", ip, "error", err)
			return fmt.Errorf("%w: %v", deps.Errors.Persistence, err)
		}
		deps.MetricInc(deps.Metrics.RegisterRateLimited)
		deps.EmitAudit(ctx, deps.Events.RegisterRateLimited, false, "", deps.Errors.RateLimited, func() map[string]string {
			return map[string]string{"ip": ip}
		})
		deps.Warn("credAuth: shadow ban, ip blocked", "ip", ip)
		_ = deps.Waiter.Wait(ctx, deps.BlockedDelay)
		return deps.Errors.RateLimited
	}

	if err := consume(); err != nil {
		return nil, err
	}

	_, err := deps.FindAccount(ctx, email)
	switch {
	case err == nil:
		if err := consume(); err != nil {
			return nil, err
		}
		deps.MetricInc(deps.Metrics.RegisterDuplicate)
		deps.EmitAudit(ctx, deps.Events.RegisterDuplicate, false, "", deps.Errors.AccountExists, func() map[string]string {
			return map[string]string{"ip": ip}
		})
		return nil, deps.Errors.AccountExists
	case !errors.Is(err, deps.Errors.UserNotFound):
		return nil, fmt.Errorf("%w: %v", deps.Errors.Persistence, err)
	}

	if utf8.RuneCountInString(strings.TrimSpace(req.Password)) < deps.MinPasswordLength {
		return nil, deps.Errors.PasswordTooShort
	}
	if req.Password != req.ConfirmPassword {
		return nil, deps.Errors.PasswordMismatch
	}

	digest, err := deps.HashBase(ctx, password.Apply(deps.CurrentPepper, password.Prehash(req.Password)))
	if err != nil {
		return nil, err
	}

	now := deps.Now()
	account := &Account{
		Name:          name,
		Email:         email,
		PasswordHash:  digest,
		PepperVersion: password.PepperCurrent,
		IPHistory:     []IPSighting{{IP: ip, LastSeen: now}},
		CreatedAt:     now,
	}
	if err := deps.CreateAccount(ctx, account); err != nil {
		if deps.Errors.DuplicateEmail != nil && errors.Is(err, deps.Errors.DuplicateEmail) {
			deps.MetricInc(deps.Metrics.RegisterDuplicate)
			return nil, deps.Errors.AccountExists
		}
		deps.EmitAudit(ctx, deps.Events.RegisterFailure, false, "", err, func() map[string]string {
			return map[string]string{"ip": ip}
		})
		return nil, fmt.Errorf("%w: %v", deps.Errors.Persistence, err)
	}

	deps.SendWelcome(account.Email, account.Name)

	deps.MetricInc(deps.Metrics.RegisterSuccess)
	deps.EmitAudit(ctx, deps.Events.RegisterSuccess, true, account.ID, nil, func() map[string]string {
		return map[string]string{"ip": ip}
	})

	out := *account
	out.PasswordHash = ""
	return &out, nil
}
