package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wenwu/saas-platform/tenant-service/internal/models"
)

func TestCalculateTierLimits(t *testing.T) {
	tests := map[string]struct {
		tier      string
		overrides models.TierOverrides
		want      models.TierResourceLimits
	}{
		"free": {
			tier: models.TierFree,
			want: models.TierResourceLimits{DBInstances: 1, DBStorageGB: 5, APIReplicas: 1, WebReplicas: 1, MechanicLimit: 2},
		},
		"standard": {
			tier: models.TierStandard,
			want: models.TierResourceLimits{DBInstances: 1, DBStorageGB: 10, APIReplicas: 1, WebReplicas: 1, MechanicLimit: 5, BackupEnabled: true},
		},
		"growth": {
			tier: models.TierGrowth,
			want: models.TierResourceLimits{DBInstances: 2, DBStorageGB: 20, APIReplicas: 2, WebReplicas: 1, MechanicLimit: 10, BackupEnabled: true},
		},
		"scale": {
			tier: models.TierScale,
			want: models.TierResourceLimits{DBInstances: 3, DBStorageGB: 50, APIReplicas: 3, WebReplicas: 2, MechanicLimit: 25, BackupEnabled: true},
		},
		"team": {
			tier: models.TierTeam,
			want: models.TierResourceLimits{DBInstances: 2, DBStorageGB: 20, APIReplicas: 2, WebReplicas: 2, MechanicLimit: 15, BackupEnabled: true},
		},
		"lifetime": {
			tier: models.TierLifetime,
			want: models.TierResourceLimits{DBInstances: 1, DBStorageGB: 10, APIReplicas: 1, WebReplicas: 1, MechanicLimit: 5, BackupEnabled: true},
		},
		"demo gets trial days": {
			tier: models.TierDemo,
			want: models.TierResourceLimits{DBInstances: 1, DBStorageGB: 5, APIReplicas: 1, WebReplicas: 1, MechanicLimit: 3, TrialDays: 14},
		},
		"override raises storage": {
			tier:      models.TierStandard,
			overrides: models.TierOverrides{DBStorageGB: 40},
			want:      models.TierResourceLimits{DBInstances: 1, DBStorageGB: 40, APIReplicas: 1, WebReplicas: 1, MechanicLimit: 5, BackupEnabled: true},
		},
		"override below tier value is ignored": {
			tier:      models.TierScale,
			overrides: models.TierOverrides{APIReplicas: 1, DBStorageGB: 10},
			want:      models.TierResourceLimits{DBInstances: 3, DBStorageGB: 50, APIReplicas: 3, WebReplicas: 2, MechanicLimit: 25, BackupEnabled: true},
		},
		"override clamped to hard caps": {
			tier:      models.TierScale,
			overrides: models.TierOverrides{DBInstances: 50, DBStorageGB: 9000, APIReplicas: 99, MechanicLimit: 10000},
			want:      models.TierResourceLimits{DBInstances: 5, DBStorageGB: 500, APIReplicas: 10, WebReplicas: 2, MechanicLimit: 500, BackupEnabled: true},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := CalculateTierLimits(tc.tier, tc.overrides)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCalculateTierLimitsUnknownTier(t *testing.T) {
	_, err := CalculateTierLimits("platinum", models.TierOverrides{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "platinum")
}

func TestOnlyDemoGetsTrialDays(t *testing.T) {
	for _, tier := range []string{
		models.TierFree, models.TierStandard, models.TierGrowth,
		models.TierScale, models.TierTeam, models.TierLifetime,
	} {
		limits, err := CalculateTierLimits(tier, models.TierOverrides{})
		require.NoError(t, err)
		assert.Zero(t, limits.TrialDays, "tier %s must not carry trial days", tier)
	}
}
