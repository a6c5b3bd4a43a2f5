package credAuth

import (
	"context"
	"time"

	"github.com/MrEthical07/credAuth/internal/flows"
)

// Authenticate checks email and password and issues a login token.
//
// The caller's IP comes from WithClientIP. A blocked IP waits out the blocked delay and gets
// ErrRateLimited. An unknown email and a wrong password both return ErrInvalidCredentials
// after the same minimum delay. A successful login resets the IP budget and the failure
// counter, and re-encodes the stored digest when the rehash policy asks for it.
//
//	Flow: throttle check → verify → accept → rehash if needed → issue token
func (e *Engine) Authenticate(ctx context.Context, email, pass string) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	deps := e.loginFlowDeps()
	deps.SendAlert = func(notice flows.AlertNotice) {
		e.sendAlert(ctx, notice)
	}

	res, err := flows.RunAuthenticate(ctx, email, pass, deps)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		AccountID: res.AccountID,
		Name:      res.Name,
		Rehashed:  res.Rehashed,
	}, nil
}

func (e *Engine) loginFlowDeps() flows.LoginDeps {
	deps := flows.LoginDeps{
		BlockedDelay:   e.config.Throttle.BlockedDelay,
		FailedDelay:    e.config.Throttle.FailedDelay,
		AlertThreshold: e.config.Alert.FailedLoginThreshold,
		CurrentPepper:  e.config.Pepper.Current,
		Policy:         e.policy,
		Waiter:         e.waiter,
		Now:            e.now,
		ClientIP:       clientIPFromContext,
		Whitelisted:    e.whitelisted,
		ConsumeIP:      e.consumeIP,
		ResetIP:        e.resetIP,
		Verify:         e.verify,
		DummyVerify:    e.dummyVerify,
		HashStrong:     e.hashStrong,
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		EmitAudit: e.emitAudit,
		Warn:      e.warn,
		Metrics: flows.LoginMetrics{
			LoginSuccess:        int(MetricLoginSuccess),
			LoginFailure:        int(MetricLoginFailure),
			LoginRateLimited:    int(MetricLoginRateLimited),
			LoginUnknownAccount: int(MetricLoginUnknownAccount),
			RehashPerformed:     int(MetricRehashPerformed),
			RehashFailed:        int(MetricRehashFailed),
			PepperFallback:      int(MetricPepperFallback),
			SecurityAlert:       int(MetricSecurityAlertTriggered),
		},
		Events: flows.LoginEvents{
			LoginSuccess:     auditEventLoginSuccess,
			LoginFailure:     auditEventLoginFailure,
			LoginRateLimited: auditEventLoginRateLimited,
			PasswordRehash:   auditEventPasswordRehash,
			SecurityAlert:    auditEventSecurityAlert,
		},
		Errors: flows.LoginErrors{
			EngineNotReady:     ErrEngineNotReady,
			MissingFields:      ErrMissingFields,
			RateLimited:        ErrRateLimited,
			InvalidCredentials: ErrInvalidCredentials,
			Persistence:        ErrPersistence,
			UserNotFound:       ErrUserNotFound,
		},
	}

	if e.store != nil {
		deps.FindAccount = e.findAccount
		deps.UpdateAccount = e.updateAccount
	}
	if e.jwtManager != nil {
		deps.IssueToken = func(id, name string) (string, time.Time, error) {
			return e.jwtManager.Issue(id, name)
		}
	}

	return deps
}
