package service

import (
	"fmt"

	"github.com/wenwu/saas-platform/tenant-service/internal/models"
)

// Hard caps applied to per-request overrides regardless of tier.
const (
	maxDBInstances   = 5
	maxDBStorageGB   = 500
	maxReplicas      = 10
	maxMechanicLimit = 500
)

// CalculateTierLimits maps a subscription tier to its resource envelope.
// Overrides may only raise values, and are clamped to the hard caps; an
// unknown tier is an error.
func CalculateTierLimits(tier string, overrides models.TierOverrides) (models.TierResourceLimits, error) {
	var limits models.TierResourceLimits

	switch tier {
	case models.TierFree:
		limits = models.TierResourceLimits{DBInstances: 1, DBStorageGB: 5, APIReplicas: 1, WebReplicas: 1, MechanicLimit: 2}
	case models.TierStandard:
		limits = models.TierResourceLimits{DBInstances: 1, DBStorageGB: 10, APIReplicas: 1, WebReplicas: 1, MechanicLimit: 5, BackupEnabled: true}
	case models.TierGrowth:
		limits = models.TierResourceLimits{DBInstances: 2, DBStorageGB: 20, APIReplicas: 2, WebReplicas: 1, MechanicLimit: 10, BackupEnabled: true}
	case models.TierScale:
		limits = models.TierResourceLimits{DBInstances: 3, DBStorageGB: 50, APIReplicas: 3, WebReplicas: 2, MechanicLimit: 25, BackupEnabled: true}
	case models.TierTeam:
		limits = models.TierResourceLimits{DBInstances: 2, DBStorageGB: 20, APIReplicas: 2, WebReplicas: 2, MechanicLimit: 15, BackupEnabled: true}
	case models.TierLifetime:
		limits = models.TierResourceLimits{DBInstances: 1, DBStorageGB: 10, APIReplicas: 1, WebReplicas: 1, MechanicLimit: 5, BackupEnabled: true}
	case models.TierDemo:
		limits = models.TierResourceLimits{DBInstances: 1, DBStorageGB: 5, APIReplicas: 1, WebReplicas: 1, MechanicLimit: 3, TrialDays: 14}
	default:
		return models.TierResourceLimits{}, fmt.Errorf("unknown subscription tier: %q", tier)
	}

	limits.DBInstances = applyOverride(limits.DBInstances, overrides.DBInstances, maxDBInstances)
	limits.DBStorageGB = applyOverride(limits.DBStorageGB, overrides.DBStorageGB, maxDBStorageGB)
	limits.APIReplicas = applyOverride(limits.APIReplicas, overrides.APIReplicas, maxReplicas)
	limits.WebReplicas = applyOverride(limits.WebReplicas, overrides.WebReplicas, maxReplicas)
	limits.MechanicLimit = applyOverride(limits.MechanicLimit, overrides.MechanicLimit, maxMechanicLimit)

	return limits, nil
}

// applyOverride keeps the tier value as the floor and the hard cap as the
// ceiling; zero means no override.
func applyOverride(tierValue, override, ceiling int) int {
	if override <= tierValue {
		return tierValue
	}
	if override > ceiling {
		return ceiling
	}
	return override
}
