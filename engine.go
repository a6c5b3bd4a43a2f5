package credAuth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	internalaudit "github.com/MrEthical07/credAuth/internal/audit"
	"github.com/MrEthical07/credAuth/internal/flows"
	"github.com/MrEthical07/credAuth/internal/rate"
	"github.com/MrEthical07/credAuth/internal/shadow"
	"github.com/MrEthical07/credAuth/jwt"
	"github.com/MrEthical07/credAuth/password"
)

// notifyTimeout bounds one background notifier call.
const notifyTimeout = 30 * time.Second

// Engine authenticates, registers and updates accounts. It is safe for concurrent use once
// returned by Builder.Build.
type Engine struct {
	config     Config
	logger     *slog.Logger
	store      UserStore
	notifier   Notifier
	limiter    *rate.IPLimiter
	base       *password.Argon2
	strong     *password.Argon2
	pool       *password.Pool
	verifier   *password.Verifier
	policy     password.RehashPolicy
	jwtManager *jwt.Manager
	audit      *internalaudit.Dispatcher
	metrics    *Metrics
	waiter     shadow.Waiter
	clock      func() time.Time

	// dummyDigest is verified against when the email is unknown so both rejections cost the same.
	dummyDigest string

	bgMu       sync.Mutex
	background sync.WaitGroup
	closing    bool
}

// Close stops background notifier work from being scheduled, waits for what is in flight and
// drains the audit dispatcher. It returns ctx.Err() if ctx ends first.
func (e *Engine) Close(ctx context.Context) error {
	if e == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	e.bgMu.Lock()
	e.closing = true
	e.bgMu.Unlock()

	done := make(chan struct{})
	go func() {
		e.background.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return e.audit.Close(ctx)
}

// AuditDropped returns the number of audit events dropped because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) warn(msg string, args ...any) {
	e.logger.Warn(msg, args...)
}

// Account returns the summary of the account with id.
func (e *Engine) Account(ctx context.Context, id string) (*AccountSummary, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	if id == "" {
		return nil, ErrMissingFields
	}

	user, err := e.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return summaryFromRecord(user), nil
}

// ParseToken verifies a login token and returns its claims. Every failure is ErrTokenInvalid.
func (e *Engine) ParseToken(ctx context.Context, token string) (*TokenClaims, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.jwtManager.Parse(token)
	if err != nil {
		e.metricInc(MetricTokenInvalid)
		e.emitAudit(ctx, auditEventTokenRejected, false, "", ErrTokenInvalid, nil)
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	out := &TokenClaims{
		AccountID: claims.ID,
		Name:      claims.Name,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

/*
====================================
HASHING
====================================
*/

func (e *Engine) hashWith(ctx context.Context, hasher *password.Argon2, input string) (string, error) {
	var digest string
	err := e.pool.Do(ctx, func() error {
		start := time.Now()
		var hashErr error
		digest, hashErr = hasher.Hash(input)
		e.metrics.Observe(MetricHashLatency, time.Since(start))
		return hashErr
	})
	return digest, err
}

func (e *Engine) hashBase(ctx context.Context, input string) (string, error) {
	return e.hashWith(ctx, e.base, input)
}

func (e *Engine) hashStrong(ctx context.Context, input string) (string, error) {
	return e.hashWith(ctx, e.strong, input)
}

func (e *Engine) verify(ctx context.Context, digest, prehashed string, hint password.PepperVersion) (password.Match, error) {
	return e.verifier.Verify(ctx, digest, prehashed, hint)
}

func (e *Engine) dummyVerify(ctx context.Context, prehashed string) {
	if e.dummyDigest == "" {
		return
	}
	_, _ = e.verifier.Verify(ctx, e.dummyDigest, prehashed, password.PepperCurrent)
}

/*
====================================
THROTTLE
====================================
*/

func (e *Engine) whitelisted(ip string) bool {
	return e.limiter != nil && e.limiter.Whitelisted(ip)
}

func (e *Engine) consumeIP(ctx context.Context, ip string) error {
	if e.limiter == nil {
		return nil
	}
	return e.limiter.Consume(ctx, ip)
}

// RemainingAttempts reports how many more throttled attempts ip may make in the current
// window. Whitelisted addresses always report the full budget.
func (e *Engine) RemainingAttempts(ctx context.Context, ip string) (int, error) {
	if e == nil || e.limiter == nil {
		return 0, ErrEngineNotReady
	}
	ip = strings.TrimSpace(ip)
	if ip == "" {
		ip = flows.UnknownIP
	}
	if e.whitelisted(ip) {
		return e.config.Throttle.Points, nil
	}
	left, err := e.limiter.Remaining(ctx, ip)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return left, nil
}

func (e *Engine) resetIP(ctx context.Context, ip string) error {
	if e.limiter == nil {
		return nil
	}
	return e.limiter.Reset(ctx, ip)
}

/*
====================================
BACKGROUND NOTIFICATIONS
====================================
*/

// goNotify runs fn on a tracked goroutine with its own deadline, detached from the request.
func (e *Engine) goNotify(ctx context.Context, kind string, accountID string, failMetric MetricID, fn func(context.Context) error) {
	if e.notifier == nil {
		return
	}

	e.bgMu.Lock()
	if e.closing {
		e.bgMu.Unlock()
		e.warn("credAuth: engine closing, notification skipped", "kind", kind, "account_id", accountID)
		return
	}
	e.background.Add(1)
	e.bgMu.Unlock()

	auditCtx := context.WithoutCancel(ctx)
	go func() {
		defer e.background.Done()

		nctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := fn(nctx); err != nil {
			e.metricInc(failMetric)
			e.warn("credAuth: notification failed", "kind", kind, "account_id", accountID, "error", err)
			e.emitAudit(auditCtx, auditEventNotificationFailed, false, accountID, err, func() map[string]string {
				return map[string]string{"kind": kind}
			})
		}
	}()
}

func (e *Engine) sendAlert(ctx context.Context, notice flows.AlertNotice) {
	alert := SecurityAlert{
		AccountID: notice.AccountID,
		Name:      notice.Name,
		Email:     notice.Email,
		IP:        notice.IP,
		Failures:  notice.Failures,
		At:        notice.At,
		SiteLink:  e.config.Alert.SiteLink,
	}
	e.goNotify(ctx, "security_alert", notice.AccountID, MetricSecurityAlertFailed, func(nctx context.Context) error {
		return e.notifier.SendSecurityAlert(nctx, alert)
	})
}

func (e *Engine) sendWelcome(ctx context.Context, email, name string) {
	e.goNotify(ctx, "welcome", "", MetricWelcomeMailFailed, func(nctx context.Context) error {
		return e.notifier.SendWelcome(nctx, email, name)
	})
}

/*
====================================
RECORD CONVERSION
====================================
*/

func toFlowAccount(u *UserRecord) *flows.Account {
	if u == nil {
		return nil
	}
	a := &flows.Account{
		ID:                 u.ID,
		Name:               u.Name,
		Email:              u.Email,
		About:              u.About,
		PasswordHash:       u.PasswordHash,
		PepperVersion:      u.PepperVersion,
		LastPasswordRehash: u.LastPasswordRehash,
		FailedLogins:       u.FailedLogins,
		CreatedAt:          u.CreatedAt,
	}
	if len(u.IPHistory) > 0 {
		a.IPHistory = make([]flows.IPSighting, len(u.IPHistory))
		for i, s := range u.IPHistory {
			a.IPHistory[i] = flows.IPSighting{IP: s.IP, LastSeen: s.LastSeen}
		}
	}
	return a
}

func fromFlowAccount(a *flows.Account) *UserRecord {
	if a == nil {
		return nil
	}
	u := &UserRecord{
		ID:                 a.ID,
		Name:               a.Name,
		Email:              a.Email,
		About:              a.About,
		PasswordHash:       a.PasswordHash,
		PepperVersion:      a.PepperVersion,
		LastPasswordRehash: a.LastPasswordRehash,
		FailedLogins:       a.FailedLogins,
		CreatedAt:          a.CreatedAt,
	}
	if len(a.IPHistory) > 0 {
		u.IPHistory = make([]IPSighting, len(a.IPHistory))
		for i, s := range a.IPHistory {
			u.IPHistory[i] = IPSighting{IP: s.IP, LastSeen: s.LastSeen}
		}
	}
	return u
}

func summaryFromRecord(u *UserRecord) *AccountSummary {
	return &AccountSummary{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		About:     u.About,
		CreatedAt: u.CreatedAt,
	}
}

func summaryFromFlow(a *flows.Account) *AccountSummary {
	return &AccountSummary{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		About:     a.About,
		CreatedAt: a.CreatedAt,
	}
}

func (e *Engine) findAccount(ctx context.Context, email string) (*flows.Account, error) {
	user, err := e.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return toFlowAccount(user), nil
}

func (e *Engine) findAccountByID(ctx context.Context, id string) (*flows.Account, error) {
	user, err := e.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toFlowAccount(user), nil
}

// updateAccount runs fn on the freshly stored account and persists the result in one store
// Update, so concurrent logins and edits never write back a stale copy.
func (e *Engine) updateAccount(ctx context.Context, id string, fn func(*flows.Account) error) error {
	return e.store.Update(ctx, id, func(u *UserRecord) error {
		a := toFlowAccount(u)
		if err := fn(a); err != nil {
			return err
		}
		*u = *fromFlowAccount(a)
		return nil
	})
}

func (e *Engine) createAccount(ctx context.Context, a *flows.Account) error {
	user := fromFlowAccount(a)
	if err := e.store.Create(ctx, user); err != nil {
		return err
	}
	a.ID = user.ID
	if !user.CreatedAt.IsZero() {
		a.CreatedAt = user.CreatedAt
	}
	return nil
}
