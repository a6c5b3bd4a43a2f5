package credAuth

import (
	"github.com/MrEthical07/credAuth/internal/security"
	"github.com/MrEthical07/credAuth/password"
)

// SecurityReport summarises the effective hardening posture of an Engine.
type SecurityReport = security.Report

// PasswordProfileReport is the cost of one Argon2id profile.
type PasswordProfileReport = security.ProfileReport

// SecurityReport derives the posture report from the engine's configuration.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	return security.BuildReport(security.ReportInput{
		SigningAlgorithm:    e.config.JWT.SigningMethod,
		AccessTTL:           e.config.JWT.AccessTTL,
		Base:                profileReport(e.config.Password.Base),
		Strong:              profileReport(e.config.Password.Strong),
		RotationPeriod:      e.policy.Period,
		CurrentPepperSet:    e.config.Pepper.Current != "",
		OldPepperCount:      len(e.config.Pepper.Olds),
		ThrottleEnabled:     e.config.Throttle.Enabled,
		ThrottlePoints:      e.config.Throttle.Points,
		WhitelistEntries:    len(e.config.Throttle.Whitelist),
		BlockedDelay:        e.config.Throttle.BlockedDelay,
		FailedDelay:         e.config.Throttle.FailedDelay,
		AlertThreshold:      e.config.Alert.FailedLoginThreshold,
		NotifierConfigured:  e.notifier != nil,
		MinPasswordLength:   e.config.Password.MinLength,
		AuditEnabled:        e.config.Audit.Enabled,
		MetricsEnabled:      e.config.Metrics.Enabled,
		MaxConcurrentHashes: e.config.Password.MaxConcurrentHashes,
	})
}

func profileReport(c password.Config) PasswordProfileReport {
	return PasswordProfileReport{
		Memory:      c.Memory,
		Time:        c.Time,
		Parallelism: c.Parallelism,
		SaltLength:  c.SaltLength,
		KeyLength:   c.KeyLength,
	}
}
