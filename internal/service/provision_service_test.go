package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wenwu/saas-platform/tenant-service/internal/models"
	"github.com/wenwu/saas-platform/tenant-service/internal/poll"
)

type provisionFixture struct {
	svc       *ProvisionService
	cluster   *fakeCluster
	charts    *fakeCharts
	proxy     *fakeProxy
	dns       *fakeDNS
	store     *fakeTenantStore
	lifecycle *fakeLifecycle
}

func newProvisionFixture() *provisionFixture {
	cfg := testConfig()
	cfg.Helm.DatabaseTimeout = 10 * time.Millisecond
	cfg.Helm.WorkloadTimeout = 10 * time.Millisecond

	f := &provisionFixture{
		cluster:   newFakeCluster(),
		charts:    newFakeCharts(),
		proxy:     newFakeProxy(),
		dns:       newFakeDNS(),
		store:     newFakeTenantStore(),
		lifecycle: &fakeLifecycle{},
	}
	f.svc = NewProvisionService(cfg, f.store, f.lifecycle, f.cluster, f.charts, f.proxy, f.dns,
		poll.New(time.Millisecond), zap.NewNop())
	return f
}

func TestProvisionUnknownTierHasNoSideEffects(t *testing.T) {
	f := newProvisionFixture()

	result := f.svc.Provision(context.Background(), &models.ProvisioningRequest{
		CompanyName: "Acme Auto",
		Tier:        "platinum",
	})

	assert.False(t, result.Success)
	require.NotEmpty(t, result.ValidationErrors)
	assert.Contains(t, result.ValidationErrors[0], "platinum")

	// Validation failures must not touch any collaborator.
	assert.Zero(t, f.cluster.calls)
	assert.Zero(t, f.charts.calls)
	assert.Empty(t, f.store.tenants)
	assert.Empty(t, f.proxy.tenantHosts)
}

func TestProvisionCollectsAllValidationErrors(t *testing.T) {
	f := newProvisionFixture()

	result := f.svc.Provision(context.Background(), &models.ProvisioningRequest{
		Tier:         "platinum",
		CustomDomain: "not a domain",
	})

	assert.False(t, result.Success)
	assert.Len(t, result.ValidationErrors, 3)
}

func TestProvisionDemoTenantEndToEnd(t *testing.T) {
	f := newProvisionFixture()

	result := f.svc.Provision(context.Background(), &models.ProvisioningRequest{
		CompanyName: "Acme Auto",
		OwnerEmail:  "owner@acme.example",
		OwnerName:   "Pat Acme",
		Tier:        models.TierDemo,
	})

	require.True(t, result.Success, "error: %s", result.Error)
	assert.True(t, strings.HasPrefix(result.TenantID, "acme-auto-"), "got %q", result.TenantID)
	assert.Equal(t, "tenant-"+result.TenantID, result.Namespace)
	assert.Equal(t, "https://"+result.TenantID+".garagehub.app", result.TenantURL)
	require.NotNil(t, result.ExpiresAt, "demo tenants must carry a trial expiry")

	last := result.LastStep()
	require.NotNil(t, last)
	assert.Equal(t, models.StepComplete, last.Step)
	assert.Equal(t, models.StepLevelInfo, last.Level)

	// Chart deployed with rendered values.
	desc := f.charts.installed[result.TenantID]
	require.NotNil(t, desc)
	assert.True(t, desc.Demo)

	// Edge routing configured.
	assert.Contains(t, f.proxy.tenantHosts, result.TenantID)
	assert.Equal(t, "edge.garagehub.app", f.dns.records[result.TenantID])

	// Admin credentials stored in the tenant namespace.
	assert.Contains(t, f.cluster.secrets, result.Namespace+"/"+result.TenantID+"-admin-credentials")

	// Tenant row persisted with namespace and connection string together.
	tenant := f.store.tenants[result.TenantID]
	require.NotNil(t, tenant)
	assert.Equal(t, models.TenantStatusTrial, tenant.Status)
	assert.Equal(t, result.Namespace, tenant.Namespace)
	assert.NotEmpty(t, tenant.DBConnectionString)
	require.NotNil(t, tenant.TrialEndsAt)
}

func TestProvisionNonDemoTenantHasNoExpiry(t *testing.T) {
	f := newProvisionFixture()

	result := f.svc.Provision(context.Background(), &models.ProvisioningRequest{
		CompanyName: "Acme Auto",
		Tier:        models.TierStandard,
	})

	require.True(t, result.Success, "error: %s", result.Error)
	assert.Nil(t, result.ExpiresAt)
	assert.Equal(t, models.TenantStatusActive, f.store.tenants[result.TenantID].Status)
}

func TestProvisionKnownTenantUpdatesExistingRow(t *testing.T) {
	f := newProvisionFixture()
	f.store.tenants["acme-auto-x1y2z3"] = &models.Tenant{
		ID:                 "row-1",
		TenantID:           "acme-auto-x1y2z3",
		CompanyName:        "Acme Auto",
		Tier:               models.TierStandard,
		Status:             models.TenantStatusActive,
		Namespace:          "garagehub-shared",
		DBConnectionString: "postgres://shared/tenant_acme-auto-x1y2z3",
	}

	result := f.svc.Provision(context.Background(), &models.ProvisioningRequest{
		TenantID:    "acme-auto-x1y2z3",
		CompanyName: "Acme Auto",
		Tier:        models.TierGrowth,
	})

	require.True(t, result.Success, "error: %s", result.Error)

	require.Len(t, f.store.tenants, 1, "re-provisioning must not insert a second row")
	tenant := f.store.tenants["acme-auto-x1y2z3"]
	assert.Equal(t, "row-1", tenant.ID)
	assert.Equal(t, "tenant-acme-auto-x1y2z3", tenant.Namespace)
	assert.Equal(t, models.TierGrowth, tenant.Tier)
	assert.Contains(t, tenant.DBConnectionString, "tenant-acme-auto-x1y2z3")
}

func TestProvisionWebNotReadyIsWarningOnly(t *testing.T) {
	f := newProvisionFixture()
	f.cluster.notReady[componentWeb] = true

	result := f.svc.Provision(context.Background(), &models.ProvisioningRequest{
		CompanyName: "Acme Auto",
		Tier:        models.TierStandard,
	})

	require.True(t, result.Success, "error: %s", result.Error)

	var warned bool
	for _, step := range result.Steps {
		if step.Step == models.StepWaitWeb && step.Level == models.StepLevelWarning {
			warned = true
		}
	}
	assert.True(t, warned, "expected a warning step for the web workload")
}

func TestProvisionAPINotReadyIsFatal(t *testing.T) {
	f := newProvisionFixture()
	f.cluster.notReady[componentAPI] = true

	result := f.svc.Provision(context.Background(), &models.ProvisioningRequest{
		CompanyName: "Acme Auto",
		Tier:        models.TierStandard,
	})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "api workload")
	assert.Empty(t, f.store.tenants, "no tenant row on failed provision")
}

func TestProvisionDeployFailurePreservesStepLog(t *testing.T) {
	f := newProvisionFixture()
	f.charts.installErr = errors.New("chart render exploded")

	result := f.svc.Provision(context.Background(), &models.ProvisioningRequest{
		CompanyName: "Acme Auto",
		Tier:        models.TierGrowth,
	})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "chart render exploded")

	// Everything up to and including the failed deploy step is on record.
	steps := make([]string, 0, len(result.Steps))
	for _, s := range result.Steps {
		steps = append(steps, s.Step)
	}
	assert.Equal(t, []string{
		models.StepValidate, models.StepTenantID, models.StepResources,
		models.StepRender, models.StepDeploy,
	}, steps)

	last := result.LastStep()
	require.NotNil(t, last)
	assert.Equal(t, models.StepLevelError, last.Level)

	// Failure is audited; nothing rolled back, nothing persisted.
	require.NotEmpty(t, f.lifecycle.entries)
	assert.Equal(t, "provision_failed", f.lifecycle.entries[0].action)
	assert.Empty(t, f.store.tenants)
}

func TestProvisionSuppliedTenantIDConflict(t *testing.T) {
	f := newProvisionFixture()
	f.cluster.namespaces["tenant-acme-auto"] = true

	result := f.svc.Provision(context.Background(), &models.ProvisioningRequest{
		TenantID:    "acme-auto",
		CompanyName: "Acme Auto",
		Tier:        models.TierStandard,
	})

	assert.False(t, result.Success)
	require.NotEmpty(t, result.ValidationErrors)
	assert.Contains(t, result.ValidationErrors[0], "already in use")
	assert.Empty(t, f.charts.installed)
}

func TestProvisionCancelledContext(t *testing.T) {
	f := newProvisionFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := f.svc.Provision(ctx, &models.ProvisioningRequest{
		CompanyName: "Acme Auto",
		Tier:        models.TierStandard,
	})

	assert.False(t, result.Success)
	assert.Equal(t, "operation cancelled", result.Error)
	assert.Empty(t, f.store.tenants)
}

func TestUpdateRequiresTenantID(t *testing.T) {
	f := newProvisionFixture()

	result := f.svc.Update(context.Background(), &models.ProvisioningRequest{
		Tier: models.TierGrowth,
	})

	assert.False(t, result.Success)
	require.NotEmpty(t, result.ValidationErrors)
	assert.Contains(t, result.ValidationErrors[0], "tenant_id is required")
}

func TestUpdateChangesTier(t *testing.T) {
	f := newProvisionFixture()
	f.store.tenants["acme-auto-x1y2z3"] = &models.Tenant{
		TenantID:  "acme-auto-x1y2z3",
		Tier:      models.TierStandard,
		Status:    models.TenantStatusActive,
		Namespace: "tenant-acme-auto-x1y2z3",
	}

	result := f.svc.Update(context.Background(), &models.ProvisioningRequest{
		TenantID: "acme-auto-x1y2z3",
		Tier:     models.TierScale,
	})

	require.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, models.TierScale, f.store.tenants["acme-auto-x1y2z3"].Tier)

	desc := f.charts.installed["acme-auto-x1y2z3"]
	require.NotNil(t, desc)
	assert.Equal(t, 3, desc.API.Replicas)
}
