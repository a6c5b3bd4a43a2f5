package security

import "time"

// ProfileReport is the cost of one Argon2id profile.
type ProfileReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Report summarises the effective hardening posture of an engine.
type Report struct {
	SigningAlgorithm   string
	AccessTTL          time.Duration
	BaseProfile        ProfileReport
	StrongProfile      ProfileReport
	UpgradeOnLogin     bool
	RotationPeriod     time.Duration
	PepperEnabled      bool
	OldPepperCount     int
	ThrottleActive     bool
	ThrottlePoints     int
	WhitelistEntries   int
	ShadowDelayActive  bool
	AlertThreshold     int
	AlertsActive       bool
	MinPasswordLength  int
	AuditEnabled       bool
	MetricsEnabled     bool
	MaxConcurrentHash  int
	FailureFloorActive bool
}

// ReportInput is the flattened configuration a Report is derived from.
type ReportInput struct {
	SigningAlgorithm    string
	AccessTTL           time.Duration
	Base                ProfileReport
	Strong              ProfileReport
	RotationPeriod      time.Duration
	CurrentPepperSet    bool
	OldPepperCount      int
	ThrottleEnabled     bool
	ThrottlePoints      int
	WhitelistEntries    int
	BlockedDelay        time.Duration
	FailedDelay         time.Duration
	AlertThreshold      int
	NotifierConfigured  bool
	MinPasswordLength   int
	AuditEnabled        bool
	MetricsEnabled      bool
	MaxConcurrentHashes int
}

// BuildReport derives a Report from input.
func BuildReport(input ReportInput) Report {
	upgrade := input.Strong.Memory > input.Base.Memory ||
		input.Strong.Time > input.Base.Time ||
		input.Strong.Parallelism > input.Base.Parallelism ||
		input.Strong.KeyLength > input.Base.KeyLength

	return Report{
		SigningAlgorithm:   input.SigningAlgorithm,
		AccessTTL:          input.AccessTTL,
		BaseProfile:        input.Base,
		StrongProfile:      input.Strong,
		UpgradeOnLogin:     upgrade || input.RotationPeriod > 0,
		RotationPeriod:     input.RotationPeriod,
		PepperEnabled:      input.CurrentPepperSet,
		OldPepperCount:     input.OldPepperCount,
		ThrottleActive:     input.ThrottleEnabled && input.ThrottlePoints > 0,
		ThrottlePoints:     input.ThrottlePoints,
		WhitelistEntries:   input.WhitelistEntries,
		ShadowDelayActive:  input.ThrottleEnabled && input.BlockedDelay > 0,
		AlertThreshold:     input.AlertThreshold,
		AlertsActive:       input.AlertThreshold > 0 && input.NotifierConfigured,
		MinPasswordLength:  input.MinPasswordLength,
		AuditEnabled:       input.AuditEnabled,
		MetricsEnabled:     input.MetricsEnabled,
		MaxConcurrentHash:  input.MaxConcurrentHashes,
		FailureFloorActive: input.FailedDelay > 0,
	}
}
