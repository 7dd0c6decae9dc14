package models

import (
	"time"
)

// TenantLog represents one lifecycle audit entry for a tenant.
type TenantLog struct {
	ID        string                 `json:"id"`
	TenantID  string                 `json:"tenant_id"`
	Action    string                 `json:"action"`
	Status    string                 `json:"status"`
	Message   string                 `json:"message"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// SuspendRequest suspends a tenant with an operator-supplied reason.
type SuspendRequest struct {
	TenantID string `json:"tenant_id"`
	Reason   string `json:"reason"`
}

// MigrateRequest is the single-tenant migration request body.
type MigrateRequest struct {
	TenantID   string `json:"tenant_id"`
	TargetMode string `json:"target_mode"` // "shared" or "dedicated"
	TargetTier string `json:"target_tier,omitempty"`
}

// BulkMigrateRequest migrates multiple tenants to shared mode sequentially.
type BulkMigrateRequest struct {
	TenantIDs []string `json:"tenant_ids"`
}

// InitiateDomainRequest starts a custom-domain verification.
type InitiateDomainRequest struct {
	TenantID string `json:"tenant_id"`
	Domain   string `json:"domain"`
	Method   string `json:"method"` // "dns" or "file"
}
