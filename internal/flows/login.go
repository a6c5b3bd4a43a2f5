package flows

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/credAuth/internal/rate"
	"github.com/MrEthical07/credAuth/internal/shadow"
	"github.com/MrEthical07/credAuth/password"
)

// LoginState names the states of the authentication state machine.
type LoginState string

const (
	StateStart               LoginState = "start"
	StateThrottleCheck       LoginState = "throttle_check"
	StateBlocked             LoginState = "blocked"
	StateVerify              LoginState = "verify"
	StateRejectUnknown       LoginState = "reject_unknown"
	StateVerifyPassword      LoginState = "verify_password"
	StateRejectBadCredential LoginState = "reject_bad_credential"
	StateAccept              LoginState = "accept"
	StateRehashIfNeeded      LoginState = "rehash_if_needed"
	StateIssueToken          LoginState = "issue_token"
)

// LoginResult is the flow-local authentication response shape.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	AccountID string
	Name      string
	State     LoginState
	Rehashed  bool
	Reasons   password.RehashReasons
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess        int
	LoginFailure        int
	LoginRateLimited    int
	LoginUnknownAccount int
	RehashPerformed     int
	RehashFailed        int
	PepperFallback      int
	SecurityAlert       int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess     string
	LoginFailure     string
	LoginRateLimited string
	PasswordRehash   string
	SecurityAlert    string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady     error
	MissingFields      error
	RateLimited        error
	InvalidCredentials error
	Persistence        error
	UserNotFound       error
}

// LoginDeps captures authentication dependencies.
type LoginDeps struct {
	BlockedDelay   time.Duration
	FailedDelay    time.Duration
	AlertThreshold int
	CurrentPepper  string
	Policy         password.RehashPolicy
	Waiter         shadow.Waiter

	Now         func() time.Time
	ClientIP    func(context.Context) string
	Whitelisted func(string) bool
	ConsumeIP   func(context.Context, string) error
	ResetIP     func(context.Context, string) error

	FindAccount func(context.Context, string) (*Account, error)
	// UpdateAccount applies a mutation to the currently stored account and persists it
	// atomically. The mutation sees the stored state, not the copy read before verification.
	UpdateAccount func(context.Context, string, func(*Account) error) error

	Verify      func(context.Context, string, string, password.PepperVersion) (password.Match, error)
	DummyVerify func(context.Context, string)
	HashStrong  func(context.Context, string) (string, error)
	IssueToken  func(id, name string) (string, time.Time, error)
	SendAlert   func(AlertNotice)

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, error, func() map[string]string)
	Warn      func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunAuthenticate executes the authentication state machine for one attempt.
//
// Unknown accounts and wrong passwords return the same error after the same delay. A
// throttled IP is held for the blocked delay before being told so.
func RunAuthenticate(ctx context.Context, email, pass string, deps LoginDeps) (*LoginResult, error) {
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
	if deps.DummyVerify == nil {
		deps.DummyVerify = func(context.Context, string) {}
	}
	if deps.SendAlert == nil {
		deps.SendAlert = func(AlertNotice) {}
	}
	if deps.FindAccount == nil ||
		deps.UpdateAccount == nil ||
		deps.Verify == nil ||
		deps.HashStrong == nil ||
		deps.IssueToken == nil {
		return nil, deps.Errors.EngineNotReady
	}

	email = NormalizeEmail(email)
	if email == "" || pass == "" {
		return nil, deps.Errors.MissingFields
	}

	ip := clientIP(deps.ClientIP(ctx))
	whitelisted := deps.Whitelisted(ip)

	// THROTTLE_CHECK
	if !whitelisted && deps.ConsumeIP != nil {
		if err := deps.ConsumeIP(ctx, ip); err != nil {
			if !errors.Is(err, rate.ErrRateLimited) {
				deps.Warn("credAuth: throttle backend unavailable", "ip", ip, "error", err)
				return nil, fmt.Errorf("%w: %v", deps.Errors.Persistence, err)
			}
			deps.MetricInc(deps.Metrics.LoginRateLimited)
			deps.EmitAudit(ctx, deps.Events.LoginRateLimited, false, "", deps.Errors.RateLimited, func() map[string]string {
				return map[string]string{"ip": ip, "state": string(StateBlocked)}
			})
			deps.Warn("credAuth: shadow ban, ip blocked", "ip", ip)
			_ = deps.Waiter.Wait(ctx, deps.BlockedDelay)
			return nil, deps.Errors.RateLimited
		}
	}

	prehashed := password.Prehash(pass)

	// VERIFY
	account, err := deps.FindAccount(ctx, email)
	if err != nil {
		if !errors.Is(err, deps.Errors.UserNotFound) {
			return nil, fmt.Errorf("%w: %v", deps.Errors.Persistence, err)
		}
		deps.DummyVerify(ctx, prehashed)
		floor := deps.Waiter.Start(deps.FailedDelay)
		deps.MetricInc(deps.Metrics.LoginUnknownAccount)
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", deps.Errors.InvalidCredentials, func() map[string]string {
			return map[string]string{"ip": ip, "state": string(StateRejectUnknown)}
		})
		_ = floor.Wait(ctx)
		return nil, deps.Errors.InvalidCredentials
	}

	// VERIFY_PASSWORD
	match, err := deps.Verify(ctx, account.PasswordHash, prehashed, account.PepperVersion)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		deps.Warn("credAuth: stored password hash unusable", "account_id", account.ID, "error", err)
	}
	if !match.Matched {
		return nil, rejectBadCredential(ctx, account, ip, whitelisted, deps)
	}

	// ACCEPT
	now := deps.Now()
	if match.Fallback {
		deps.MetricInc(deps.Metrics.PepperFallback)
	}

	// REHASH_IF_NEEDED
	// The digest is computed before the store update so the row is never held across a hash.
	reasons := deps.Policy.Evaluate(match, deps.CurrentPepper, account.PasswordHash, account.LastPasswordRehash, now)
	digest := ""
	if reasons.Any() {
		d, err := deps.HashStrong(ctx, password.Apply(deps.CurrentPepper, prehashed))
		if err != nil {
			deps.MetricInc(deps.Metrics.RehashFailed)
			deps.Warn("credAuth: password rehash failed", "account_id", account.ID, "error", err)
		} else {
			digest = d
		}
	}

	verified := account.PasswordHash
	rehashed := false
	changed := false
	err = deps.UpdateAccount(ctx, account.ID, func(cur *Account) error {
		rehashed = false
		cur.FailedLogins = 0
		cur.TouchIP(ip, now)
		// A password change committed during verification wins; its digest and pepper
		// version stay untouched.
		changed = cur.PasswordHash != verified
		if !changed {
			cur.PepperVersion = match.Version
			if digest != "" {
				cur.PasswordHash = digest
				cur.PepperVersion = password.PepperCurrent
				cur.LastPasswordRehash = now
				rehashed = true
			}
		}
		account = cur
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", deps.Errors.Persistence, err)
	}
	if changed {
		deps.Warn("credAuth: password changed during login, rehash skipped", "account_id", account.ID)
	}
	if rehashed {
		deps.MetricInc(deps.Metrics.RehashPerformed)
		deps.EmitAudit(ctx, deps.Events.PasswordRehash, true, account.ID, nil, func() map[string]string {
			return map[string]string{
				"pepper_mismatch": strconv.FormatBool(reasons.PepperMismatch),
				"weak_params":     strconv.FormatBool(reasons.WeakParams),
				"stale":           strconv.FormatBool(reasons.Stale),
			}
		})
	}

	if !whitelisted && deps.ResetIP != nil {
		if err := deps.ResetIP(ctx, ip); err != nil {
			deps.Warn("credAuth: throttle reset failed", "ip", ip, "error", err)
		}
	}

	// ISSUE_TOKEN
	token, expiresAt, err := deps.IssueToken(account.ID, account.Name)
	if err != nil {
		return nil, err
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, account.ID, nil, func() map[string]string {
		return map[string]string{"ip": ip, "state": string(StateIssueToken)}
	})

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		AccountID: account.ID,
		Name:      account.Name,
		State:     StateIssueToken,
		Rehashed:  rehashed,
		Reasons:   reasons,
	}, nil
}

func rejectBadCredential(ctx context.Context, account *Account, ip string, whitelisted bool, deps LoginDeps) error {
	floor := deps.Waiter.Start(deps.FailedDelay)

	// The counter is incremented on the stored value so concurrent failures are all counted.
	var (
		failures int
		alert    bool
	)
	count := func(cur *Account) {
		cur.FailedLogins++
		failures = cur.FailedLogins
		alert = !whitelisted && deps.AlertThreshold > 0 && failures >= deps.AlertThreshold
		if alert {
			cur.FailedLogins = 0
		}
	}
	if err := deps.UpdateAccount(ctx, account.ID, func(cur *Account) error {
		count(cur)
		account.Name, account.Email = cur.Name, cur.Email
		return nil
	}); err != nil {
		deps.Warn("credAuth: failed-login counter not persisted", "account_id", account.ID, "error", err)
		// Fall back to the copy read at lookup time so the alert still fires at the threshold.
		stale := *account
		count(&stale)
	}

	if alert {
		deps.SendAlert(AlertNotice{
			AccountID: account.ID,
			Name:      account.Name,
			Email:     account.Email,
			IP:        ip,
			Failures:  failures,
			At:        deps.Now(),
		})
		deps.MetricInc(deps.Metrics.SecurityAlert)
		deps.EmitAudit(ctx, deps.Events.SecurityAlert, false, account.ID, nil, func() map[string]string {
			return map[string]string{"ip": ip, "failures": strconv.Itoa(failures)}
		})
	}

	deps.MetricInc(deps.Metrics.LoginFailure)
	deps.EmitAudit(ctx, deps.Events.LoginFailure, false, account.ID, deps.Errors.InvalidCredentials, func() map[string]string {
		return map[string]string{"ip": ip, "state": string(StateRejectBadCredential)}
	})

	_ = floor.Wait(ctx)
	return deps.Errors.InvalidCredentials
}
