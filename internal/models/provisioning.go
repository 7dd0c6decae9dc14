package models

import (
	"time"
)

// Step log severity levels
const (
	StepLevelInfo    = "Info"
	StepLevelWarning = "Warning"
	StepLevelError   = "Error"
)

// Provisioning pipeline step names
const (
	StepValidate     = "Validate"
	StepTenantID     = "TenantID"
	StepResources    = "Resources"
	StepRender       = "Render"
	StepDeploy       = "Deploy"
	StepWaitDatabase = "WaitDatabase"
	StepWaitAPI      = "WaitAPI"
	StepWaitWeb      = "WaitWeb"
	StepFinalize     = "Finalize"
	StepComplete     = "Complete"
)

// StepLogEntry is one ordered record in a provisioning result. The log is the
// audit trail for partial failures and is returned verbatim even on failure.
type StepLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Step      string    `json:"step"`
	Message   string    `json:"message"`
}

// ProvisioningRequest describes a tenant to create or update.
type ProvisioningRequest struct {
	TenantID              string            `json:"tenant_id,omitempty"` // optional; derived from company name if empty
	CompanyName           string            `json:"company_name"`
	OwnerEmail            string            `json:"owner_email"`
	OwnerName             string            `json:"owner_name"`
	Tier                  string            `json:"tier"`
	CustomDomain          string            `json:"custom_domain,omitempty"`
	Overrides             TierOverrides     `json:"overrides,omitempty"`
	ExtraEnv              map[string]string `json:"extra_env,omitempty"`
	BillingCustomerID     string            `json:"billing_customer_id,omitempty"`
	BillingSubscriptionID string            `json:"billing_subscription_id,omitempty"`
}

// ProvisioningResult is the outcome of a provision or update run.
type ProvisioningResult struct {
	Success            bool               `json:"success"`
	TenantID           string             `json:"tenant_id,omitempty"`
	Namespace          string             `json:"namespace,omitempty"`
	ReleaseName        string             `json:"release_name,omitempty"`
	TenantURL          string             `json:"tenant_url,omitempty"`
	APIURL             string             `json:"api_url,omitempty"`
	AdminUsername      string             `json:"admin_username,omitempty"`
	AdminPassword      string             `json:"admin_password,omitempty"`
	DBConnectionString string             `json:"db_connection_string,omitempty"`
	Limits             TierResourceLimits `json:"limits"`
	ExpiresAt          *time.Time         `json:"expires_at,omitempty"`
	ValidationErrors   []string           `json:"validation_errors,omitempty"`
	Error              string             `json:"error,omitempty"`
	Steps              []StepLogEntry     `json:"steps"`
}

// Log appends an ordered entry to the result's step log.
func (r *ProvisioningResult) Log(level, step, message string) {
	r.Steps = append(r.Steps, StepLogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Step:      step,
		Message:   message,
	})
}

// LastStep returns the most recent log entry, or nil for an empty log.
func (r *ProvisioningResult) LastStep() *StepLogEntry {
	if len(r.Steps) == 0 {
		return nil
	}
	return &r.Steps[len(r.Steps)-1]
}
