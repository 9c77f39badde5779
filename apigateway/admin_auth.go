package gateway

import (
	"crypto/subtle"
	"strings"
)

// AdminAuthConfig holds the single curated admin credential pair. Admin
// identities are configuration, not rows in the user table.
type AdminAuthConfig struct {
	Email    string
	Password string
}

// Configured reports whether an admin credential pair was provided at all.
// An unconfigured admin area rejects every login rather than admitting one.
func (cfg AdminAuthConfig) Configured() bool {
	return cfg.Email != "" && cfg.Password != ""
}

// Check validates a submitted credential pair. Both comparisons run in
// constant time and both always run, so response timing reveals neither
// which field was wrong nor whether the email matched.
func (cfg AdminAuthConfig) Check(email, password string) bool {
	if !cfg.Configured() {
		return false
	}
	emailOK := subtle.ConstantTimeCompare(
		[]byte(strings.ToLower(strings.TrimSpace(email))),
		[]byte(strings.ToLower(cfg.Email)),
	) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(cfg.Password)) == 1
	return emailOK && passOK
}
