package credAuth

import (
	"context"

	"github.com/MrEthical07/credAuth/internal/flows"
)

// Register creates an account under the base Argon2id profile and the current pepper.
//
// Registration spends the caller's IP budget like a login does; naming an email that is
// already taken spends it twice. A welcome message is sent in the background.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*AccountSummary, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	deps := e.registerFlowDeps()
	deps.SendWelcome = func(email, name string) {
		e.sendWelcome(ctx, email, name)
	}

	account, err := flows.RunRegister(ctx, flows.RegisterRequest{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	}, deps)
	if err != nil {
		return nil, err
	}
	return summaryFromFlow(account), nil
}

func (e *Engine) registerFlowDeps() flows.RegisterDeps {
	deps := flows.RegisterDeps{
		MinPasswordLength: e.config.Password.MinLength,
		BlockedDelay:      e.config.Throttle.BlockedDelay,
		CurrentPepper:     e.config.Pepper.Current,
		Waiter:            e.waiter,
		Now:               e.now,
		ClientIP:          clientIPFromContext,
		Whitelisted:       e.whitelisted,
		ConsumeIP:         e.consumeIP,
		HashBase:          e.hashBase,
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		EmitAudit: e.emitAudit,
		Warn:      e.warn,
		Metrics: flows.RegisterMetrics{
			RegisterSuccess:     int(MetricRegisterSuccess),
			RegisterDuplicate:   int(MetricRegisterDuplicate),
			RegisterRateLimited: int(MetricRegisterRateLimited),
		},
		Events: flows.RegisterEvents{
			RegisterSuccess:     auditEventAccountCreated,
			RegisterFailure:     auditEventAccountCreateFailure,
			RegisterDuplicate:   auditEventAccountDuplicate,
			RegisterRateLimited: auditEventRegisterRateLimited,
		},
		Errors: flows.RegisterErrors{
			EngineNotReady:   ErrEngineNotReady,
			MissingFields:    ErrMissingFields,
			RateLimited:      ErrRateLimited,
			AccountExists:    ErrAccountExists,
			PasswordTooShort: ErrPasswordTooShort,
			PasswordMismatch: ErrPasswordMismatch,
			Persistence:      ErrPersistence,
			UserNotFound:     ErrUserNotFound,
			DuplicateEmail:   ErrDuplicateEmail,
		},
	}

	if e.store != nil {
		deps.FindAccount = e.findAccount
		deps.CreateAccount = e.createAccount
	}

	return deps
}
