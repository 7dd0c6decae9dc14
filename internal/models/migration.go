package models

import (
	"fmt"
	"time"
)

// Deployment mode as detected by probing cluster and shared-database state.
const (
	ModeDedicated = "dedicated"
	ModeShared    = "shared"
	ModeMixed     = "mixed"
	ModeNone      = "none"
)

// MigrationEligibility is the result of probing a tenant's current deployment
// mode. A "mixed" detection is never auto-migrated.
type MigrationEligibility struct {
	TenantID    string   `json:"tenant_id"`
	CurrentMode string   `json:"current_mode"`
	CanMigrate  bool     `json:"can_migrate"`
	Reason      string   `json:"reason,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

// MigrationResult records one tenant migration attempt. Steps is the only
// record of how far the migration got; completed steps are never undone.
type MigrationResult struct {
	TenantID    string    `json:"tenant_id"`
	Success     bool      `json:"success"`
	SourceMode  string    `json:"source_mode"`
	TargetMode  string    `json:"target_mode"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Steps       []string  `json:"steps"`
	Error       string    `json:"error,omitempty"`
}

// Step appends a human-readable step description.
func (r *MigrationResult) Step(format string, args ...interface{}) {
	r.Steps = append(r.Steps, fmt.Sprintf(format, args...))
}

// BulkMigrationResult aggregates sequential per-tenant migrations.
type BulkMigrationResult struct {
	Total      int                `json:"total"`
	Successful int                `json:"successful"`
	Failed     int                `json:"failed"`
	Results    []*MigrationResult `json:"results"`
}
