package internaldefs

import (
	credAuth "github.com/MrEthical07/credAuth"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   credAuth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   credAuth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter.
var CounterDefs = []CounterDef{
	{ID: credAuth.MetricLoginSuccess, Name: "credauth_login_success_total", Help: "Logins that issued a token."},
	{ID: credAuth.MetricLoginFailure, Name: "credauth_login_failure_total", Help: "Rejected login attempts, unknown accounts included."},
	{ID: credAuth.MetricLoginRateLimited, Name: "credauth_login_rate_limited_total", Help: "Login attempts refused by the IP budget."},
	{ID: credAuth.MetricLoginUnknownAccount, Name: "credauth_login_unknown_account_total", Help: "Login attempts naming an unknown email."},
	{ID: credAuth.MetricRehashPerformed, Name: "credauth_rehash_performed_total", Help: "Password digests re-encoded on login."},
	{ID: credAuth.MetricRehashFailed, Name: "credauth_rehash_failed_total", Help: "Re-encodes that failed and were skipped."},
	{ID: credAuth.MetricPepperFallback, Name: "credauth_pepper_fallback_total", Help: "Matches found only after the hinted pepper missed."},
	{ID: credAuth.MetricSecurityAlertTriggered, Name: "credauth_security_alert_total", Help: "Accounts that reached the failed-login threshold."},
	{ID: credAuth.MetricSecurityAlertFailed, Name: "credauth_security_alert_failed_total", Help: "Security alerts the notifier could not deliver."},
	{ID: credAuth.MetricWelcomeMailFailed, Name: "credauth_welcome_mail_failed_total", Help: "Welcome mails the notifier could not deliver."},
	{ID: credAuth.MetricRegisterSuccess, Name: "credauth_register_success_total", Help: "Created accounts."},
	{ID: credAuth.MetricRegisterDuplicate, Name: "credauth_register_duplicate_total", Help: "Registrations refused for an existing email."},
	{ID: credAuth.MetricRegisterRateLimited, Name: "credauth_register_rate_limited_total", Help: "Registrations refused by the IP budget."},
	{ID: credAuth.MetricCredentialsUpdated, Name: "credauth_credentials_updated_total", Help: "Accepted profile edits."},
	{ID: credAuth.MetricPasswordChanged, Name: "credauth_password_changed_total", Help: "Profile edits that replaced the password."},
	{ID: credAuth.MetricCredentialsUpdateRejected, Name: "credauth_credentials_update_rejected_total", Help: "Refused profile edits."},
	{ID: credAuth.MetricTokenInvalid, Name: "credauth_token_invalid_total", Help: "Bearer tokens that failed verification."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: credAuth.MetricHashLatency, Name: "credauth_hash_latency_seconds", Help: "Argon2 encode latency."},
}

// HistogramBounds are the upper bounds of the engine buckets, in seconds.
var HistogramBounds = []string{
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"+Inf",
}

// HistogramBoundSuffix names each bucket in exporters that cannot carry labels.
var HistogramBoundSuffix = []string{
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the engine bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into the running totals exporters expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
