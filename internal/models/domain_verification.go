package models

import (
	"time"
)

// Verification methods
const (
	VerificationMethodDNS  = "dns"
	VerificationMethodFile = "file"
)

// Verification check outcomes. None of the failure outcomes mutate stored
// state, so repeated checks are always safe.
const (
	OutcomeVerified = "verified"
	OutcomeNotFound = "not_found"
	OutcomeExpired  = "expired"
	OutcomeMismatch = "dns_mismatch"
)

// DefaultVerificationWindow is how long a challenge stays valid.
const DefaultVerificationWindow = 7 * 24 * time.Hour

// DomainVerification is one challenge for a (tenant, domain) pair. A domain
// maps to at most one tenant at a time.
type DomainVerification struct {
	ID         string     `json:"id"`
	TenantID   string     `json:"tenant_id"`
	Domain     string     `json:"domain"`
	Method     string     `json:"method"`
	Token      string     `json:"-"`
	Verified   bool       `json:"verified"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
}

// Expired reports whether the challenge window has closed at the given time.
// A verified record never expires.
func (d *DomainVerification) Expired(now time.Time) bool {
	return !d.Verified && now.After(d.ExpiresAt)
}

// VerificationInstructions tells the domain owner what to publish.
type VerificationInstructions struct {
	Method      string `json:"method"`
	DNSHost     string `json:"dns_host,omitempty"`
	DNSValue    string `json:"dns_value,omitempty"`
	FilePath    string `json:"file_path,omitempty"`
	FileContent string `json:"file_content,omitempty"`
}

// VerificationChallenge is returned when a verification is initiated.
type VerificationChallenge struct {
	Domain             string                   `json:"domain"`
	VerificationToken  string                   `json:"verification_token"`
	VerificationMethod string                   `json:"verification_method"`
	ExpiresAt          time.Time                `json:"expires_at"`
	Instructions       VerificationInstructions `json:"instructions"`
}

// VerificationCheck is the result of a verification attempt or status query.
type VerificationCheck struct {
	Domain       string                    `json:"domain"`
	Outcome      string                    `json:"outcome"`
	IsVerified   bool                      `json:"is_verified"`
	VerifiedAt   *time.Time                `json:"verified_at,omitempty"`
	Message      string                    `json:"message,omitempty"`
	Instructions *VerificationInstructions `json:"instructions,omitempty"`
}
