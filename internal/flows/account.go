package flows

import (
	"strings"
	"time"

	"github.com/MrEthical07/credAuth/password"
)

// Account is the flow-local view of a stored user record.
type Account struct {
	ID                 string
	Name               string
	Email              string
	About              string
	PasswordHash       string
	PepperVersion      password.PepperVersion
	LastPasswordRehash time.Time
	FailedLogins       int
	IPHistory          []IPSighting
	CreatedAt          time.Time
}

// IPSighting is one entry of an account's known-address history.
type IPSighting struct {
	IP       string
	LastSeen time.Time
}

// TouchIP refreshes LastSeen for ip, appending a new sighting if ip is unknown.
func (a *Account) TouchIP(ip string, now time.Time) {
	for i := range a.IPHistory {
		if a.IPHistory[i].IP == ip {
			a.IPHistory[i].LastSeen = now
			return
		}
	}
	a.IPHistory = append(a.IPHistory, IPSighting{IP: ip, LastSeen: now})
}

// AlertNotice is what a failure-threshold alert needs to reach the account owner.
type AlertNotice struct {
	AccountID string
	Name      string
	Email     string
	IP        string
	Failures  int
	At        time.Time
}

// NormalizeEmail lower-cases and trims an address for lookup and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UnknownIP is used as the throttle key when no client address is available.
const UnknownIP = "unknown"

func clientIP(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return UnknownIP
	}
	return raw
}
