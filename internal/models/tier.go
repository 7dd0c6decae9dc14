package models

// TierResourceLimits is the resource envelope resolved from a subscription
// tier, optionally adjusted by per-request overrides.
type TierResourceLimits struct {
	DBInstances   int  `json:"db_instances"`
	DBStorageGB   int  `json:"db_storage_gb"`
	APIReplicas   int  `json:"api_replicas"`
	WebReplicas   int  `json:"web_replicas"`
	MechanicLimit int  `json:"mechanic_limit"`
	BackupEnabled bool `json:"backup_enabled"`
	TrialDays     int  `json:"trial_days,omitempty"` // 0 = no trial
}

// TierOverrides adjusts individual envelope values per request.
// Zero means "use the tier value".
type TierOverrides struct {
	DBInstances   int `json:"db_instances,omitempty"`
	DBStorageGB   int `json:"db_storage_gb,omitempty"`
	APIReplicas   int `json:"api_replicas,omitempty"`
	WebReplicas   int `json:"web_replicas,omitempty"`
	MechanicLimit int `json:"mechanic_limit,omitempty"`
}
