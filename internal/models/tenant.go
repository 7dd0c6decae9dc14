package models

import (
	"time"
)

// Tenant lifecycle status constants
const (
	TenantStatusTrial     = "trial"
	TenantStatusActive    = "active"
	TenantStatusSuspended = "suspended"
	TenantStatusCancelled = "cancelled"
)

// Subscription tier constants
const (
	TierFree     = "free"
	TierStandard = "standard"
	TierGrowth   = "growth"
	TierScale    = "scale"
	TierTeam     = "team"
	TierLifetime = "lifetime"
	TierDemo     = "demo"
)

// Metadata keys written by lifecycle operations
const (
	MetaSuspendReason = "suspend_reason"
	MetaSuspendedAt   = "suspended_at"
)

// Tenant is one customer's deployment instance. Namespace and
// DBConnectionString are set together on successful provisioning or not at
// all; a shared-mode tenant carries the shared namespace name.
type Tenant struct {
	ID                    string            `json:"id"`
	TenantID              string            `json:"tenant_id"` // immutable slug, globally unique
	CompanyName           string            `json:"company_name"`
	OwnerEmail            string            `json:"owner_email"`
	OwnerName             string            `json:"owner_name"`
	Tier                  string            `json:"tier"`
	Status                string            `json:"status"`
	Namespace             string            `json:"namespace,omitempty"`
	DBConnectionString    string            `json:"-"`
	CustomDomain          *string           `json:"custom_domain,omitempty"`
	DomainVerified        bool              `json:"domain_verified"`
	BillingCustomerID     *string           `json:"billing_customer_id,omitempty"`
	BillingSubscriptionID *string           `json:"billing_subscription_id,omitempty"`
	Metadata              map[string]string `json:"metadata,omitempty"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
	TrialEndsAt           *time.Time        `json:"trial_ends_at,omitempty"`
}

// KnownTier reports whether tier is a recognized subscription tier.
func KnownTier(tier string) bool {
	switch tier {
	case TierFree, TierStandard, TierGrowth, TierScale, TierTeam, TierLifetime, TierDemo:
		return true
	}
	return false
}
