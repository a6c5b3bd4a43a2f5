package credAuth

import (
	"context"

	"github.com/MrEthical07/credAuth/internal/flows"
)

// UpdateCredentials edits the profile of req.AccountID after re-verifying the current
// password against every configured pepper.
//
// A new password must match its confirmation, meet the minimum length and differ from the
// current one. It is stored under the base profile with the current pepper.
func (e *Engine) UpdateCredentials(ctx context.Context, req UpdateRequest) (*AccountSummary, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if req.AccountID == "" {
		return nil, ErrMissingFields
	}

	account, err := flows.RunUpdateCredentials(ctx, flows.UpdateRequest{
		AccountID:          req.AccountID,
		Name:               req.Name,
		Email:              req.Email,
		About:              req.About,
		CurrentPassword:    req.CurrentPassword,
		NewPassword:        req.NewPassword,
		ConfirmNewPassword: req.ConfirmNewPassword,
	}, e.updateFlowDeps())
	if err != nil {
		return nil, err
	}
	return summaryFromFlow(account), nil
}

func (e *Engine) updateFlowDeps() flows.UpdateDeps {
	deps := flows.UpdateDeps{
		MinPasswordLength: e.config.Password.MinLength,
		FailedDelay:       e.config.Throttle.FailedDelay,
		CurrentPepper:     e.config.Pepper.Current,
		Waiter:            e.waiter,
		Now:               e.now,
		Verify:            e.verify,
		HashBase:          e.hashBase,
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		EmitAudit: e.emitAudit,
		Warn:      e.warn,
		Metrics: flows.UpdateMetrics{
			CredentialsUpdated: int(MetricCredentialsUpdated),
			PasswordChanged:    int(MetricPasswordChanged),
			UpdateRejected:     int(MetricCredentialsUpdateRejected),
		},
		Events: flows.UpdateEvents{
			CredentialsUpdated: auditEventCredentialsUpdated,
			PasswordChanged:    auditEventPasswordChanged,
			UpdateRejected:     auditEventCredentialsRejected,
		},
		Errors: flows.UpdateErrors{
			EngineNotReady:          ErrEngineNotReady,
			CurrentPasswordRequired: ErrCurrentPasswordRequired,
			InvalidCredentials:      ErrInvalidCredentials,
			UserNotFound:            ErrUserNotFound,
			PasswordTooShort:        ErrPasswordTooShort,
			PasswordMismatch:        ErrPasswordMismatch,
			PasswordReuse:           ErrPasswordReuse,
			AccountExists:           ErrAccountExists,
			DuplicateEmail:          ErrDuplicateEmail,
			Persistence:             ErrPersistence,
		},
	}

	if e.store != nil {
		deps.FindAccountByID = e.findAccountByID
		deps.FindAccount = e.findAccount
		deps.UpdateAccount = e.updateAccount
	}

	return deps
}
