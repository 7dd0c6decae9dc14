package service

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wenwu/saas-platform/tenant-service/internal/config"
	"github.com/wenwu/saas-platform/tenant-service/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{
		Platform: config.PlatformConfig{
			BaseDomain:           "garagehub.app",
			ProductSlug:          "garagehub",
			DefaultAdminUser:     "admin",
			DefaultAdminPassword: "test-admin-password",
			SharedNamespace:      "garagehub-shared",
			SharedForwardHost:    "garagehub-api.garagehub-shared.svc",
			SharedForwardPort:    8080,
			DedicatedForwardPort: 8080,
		},
		Registry: config.RegistryConfig{
			Server:   "registry.garagehub.app",
			APIImage: "garagehub-api",
			WebImage: "garagehub-web",
			Tag:      "v1.4.2",
		},
		Helm: config.HelmConfig{
			Binary:          "helm",
			Chart:           "./charts/garagehub-tenant",
			DeployTimeout:   10 * time.Minute,
			DatabaseTimeout: 5 * time.Minute,
			WorkloadTimeout: 3 * time.Minute,
			PollInterval:    time.Millisecond,
		},
		DNS: config.DNSConfig{
			Zone:   "zone-1",
			Target: "edge.garagehub.app",
		},
	}
}

func TestBuildDescriptor(t *testing.T) {
	cfg := testConfig()
	req := &models.ProvisioningRequest{
		CompanyName: "Acme Auto",
		OwnerEmail:  "owner@acme.example",
		Tier:        models.TierGrowth,
		ExtraEnv:    map[string]string{"FEATURE_B": "on", "FEATURE_A": "off"},
	}
	limits, err := CalculateTierLimits(models.TierGrowth, models.TierOverrides{})
	require.NoError(t, err)

	got := BuildDescriptor(cfg, req, "acme-auto-x1y2z3", limits)

	want := &models.DeploymentDescriptor{
		TenantID:    "acme-auto-x1y2z3",
		CompanyName: "Acme Auto",
		Host:        "acme-auto-x1y2z3.garagehub.app",
		Database: models.DescriptorDatabase{
			Instances:     2,
			StorageSize:   "20Gi",
			BackupEnabled: true,
		},
		API: models.DescriptorWorkload{
			Replicas: 2,
			Image:    "registry.garagehub.app/garagehub-api",
			Tag:      "v1.4.2",
		},
		Web: models.DescriptorWorkload{
			Replicas: 1,
			Image:    "registry.garagehub.app/garagehub-web",
			Tag:      "v1.4.2",
		},
		SeatLimit: 10,
		ExtraEnv: []models.EnvEntry{
			{Name: "FEATURE_A", Value: "off"},
			{Name: "FEATURE_B", Value: "on"},
		},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("descriptor mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildDescriptorCustomDomainWins(t *testing.T) {
	cfg := testConfig()
	req := &models.ProvisioningRequest{
		CompanyName:  "Acme Auto",
		Tier:         models.TierStandard,
		CustomDomain: "service.acmeauto.com",
	}
	limits, err := CalculateTierLimits(models.TierStandard, models.TierOverrides{})
	require.NoError(t, err)

	got := BuildDescriptor(cfg, req, "acme-auto-x1y2z3", limits)
	assert.Equal(t, "service.acmeauto.com", got.Host)
}

func TestBuildDescriptorDemoFlags(t *testing.T) {
	cfg := testConfig()
	limits, err := CalculateTierLimits(models.TierDemo, models.TierOverrides{})
	require.NoError(t, err)

	got := BuildDescriptor(cfg, &models.ProvisioningRequest{CompanyName: "Demo Shop", Tier: models.TierDemo}, "demo-shop-abc123", limits)
	assert.True(t, got.Demo)
	assert.Equal(t, 14, got.TrialDays)

	limits, err = CalculateTierLimits(models.TierStandard, models.TierOverrides{})
	require.NoError(t, err)
	got = BuildDescriptor(cfg, &models.ProvisioningRequest{CompanyName: "Real Shop", Tier: models.TierStandard}, "real-shop-abc123", limits)
	assert.False(t, got.Demo)
	assert.Zero(t, got.TrialDays)
}

func TestBuildDescriptorBilling(t *testing.T) {
	cfg := testConfig()
	limits, err := CalculateTierLimits(models.TierScale, models.TierOverrides{})
	require.NoError(t, err)

	got := BuildDescriptor(cfg, &models.ProvisioningRequest{
		CompanyName:           "Acme Auto",
		Tier:                  models.TierScale,
		BillingCustomerID:     "cus_123",
		BillingSubscriptionID: "sub_456",
	}, "acme-auto-x1y2z3", limits)

	require.NotNil(t, got.Billing)
	assert.Equal(t, "cus_123", got.Billing.CustomerID)
	assert.Equal(t, "sub_456", got.Billing.SubscriptionID)
}

func TestTenantNamespace(t *testing.T) {
	assert.Equal(t, "tenant-acme-auto-x1y2z3", TenantNamespace("acme-auto-x1y2z3"))
}
