package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wenwu/saas-platform/tenant-service/internal/config"
	"github.com/wenwu/saas-platform/tenant-service/internal/models"
)

// Provisioner is the slice of the provisioning orchestrator the migration
// engine needs to stand up a dedicated deployment.
type Provisioner interface {
	Provision(ctx context.Context, req *models.ProvisioningRequest) *models.ProvisioningResult
}

// MigrationService moves tenants between shared and dedicated deployment
// modes. Step failures abort the remaining steps but never undo completed
// ones; MigrationResult.Steps is the only record of how far a run got.
type MigrationService struct {
	cfg         *config.Config
	tenants     TenantStore
	lifecycle   LifecycleLog
	cluster     ClusterClient
	dbadmin     DatabaseProvisioner
	proxy       ProxyClient
	provisioner Provisioner
	logger      *zap.Logger
}

// NewMigrationService creates a new migration orchestrator.
func NewMigrationService(
	cfg *config.Config,
	tenants TenantStore,
	lifecycle LifecycleLog,
	cluster ClusterClient,
	dbadmin DatabaseProvisioner,
	proxy ProxyClient,
	provisioner Provisioner,
	logger *zap.Logger,
) *MigrationService {
	return &MigrationService{
		cfg:         cfg,
		tenants:     tenants,
		lifecycle:   lifecycle,
		cluster:     cluster,
		dbadmin:     dbadmin,
		proxy:       proxy,
		provisioner: provisioner,
		logger:      logger,
	}
}

// CheckEligibility detects the tenant's current deployment mode by probing
// for a dedicated namespace and a shared-cluster database. Resources in both
// modes at once ("mixed") always require manual intervention.
func (s *MigrationService) CheckEligibility(ctx context.Context, tenantID string) (*models.MigrationEligibility, error) {
	nsExists, err := s.cluster.NamespaceExists(ctx, TenantNamespace(tenantID))
	if err != nil {
		return nil, fmt.Errorf("probe namespace: %w", err)
	}
	dbExists, err := s.dbadmin.Exists(ctx, tenantID, DatabaseOptions{})
	if err != nil {
		return nil, fmt.Errorf("probe shared database: %w", err)
	}

	elig := &models.MigrationEligibility{TenantID: tenantID}
	switch {
	case nsExists && dbExists:
		elig.CurrentMode = models.ModeMixed
		elig.Reason = "resources exist in both dedicated and shared modes; manual intervention required"
		elig.Warnings = append(elig.Warnings,
			"remove the unused deployment before requesting a migration")
	case nsExists:
		elig.CurrentMode = models.ModeDedicated
		elig.CanMigrate = true
		elig.Warnings = append(elig.Warnings,
			"data is not migrated; the shared database starts from the template")
	case dbExists:
		elig.CurrentMode = models.ModeShared
		elig.CanMigrate = true
		elig.Warnings = append(elig.Warnings,
			"data is not migrated; the dedicated database starts from the template")
	default:
		elig.CurrentMode = models.ModeNone
		elig.Reason = "no dedicated namespace and no shared database found"
	}
	return elig, nil
}

// MigrateToShared moves a dedicated tenant onto the shared deployment. The
// tenant database is recreated from the template on the shared cluster; data
// is not streamed between databases.
func (s *MigrationService) MigrateToShared(ctx context.Context, tenantID string) *models.MigrationResult {
	result := &models.MigrationResult{
		TenantID:   tenantID,
		SourceMode: models.ModeDedicated,
		TargetMode: models.ModeShared,
		StartedAt:  time.Now().UTC(),
	}

	elig, err := s.CheckEligibility(ctx, tenantID)
	if err != nil {
		return s.fail(ctx, result, fmt.Sprintf("eligibility check failed: %v", err))
	}
	result.SourceMode = elig.CurrentMode
	if !elig.CanMigrate || elig.CurrentMode != models.ModeDedicated {
		return s.fail(ctx, result, fmt.Sprintf("tenant is %s, not eligible for migration to shared: %s",
			elig.CurrentMode, elig.Reason))
	}
	result.Step("eligibility confirmed: tenant is in dedicated mode")

	if ctx.Err() != nil {
		return s.fail(ctx, result, "migration cancelled before database provisioning")
	}

	tenant, err := s.tenants.GetByTenantID(ctx, tenantID)
	if err != nil {
		return s.fail(ctx, result, fmt.Sprintf("load tenant record: %v", err))
	}

	conn, err := s.dbadmin.Provision(ctx, tenantID, DatabaseOptions{
		OwnerEmail: tenant.OwnerEmail,
		OwnerName:  tenant.OwnerName,
	})
	if err != nil {
		return s.fail(ctx, result, fmt.Sprintf("provision shared database: %v", err))
	}
	result.Step("provisioned tenant database from template on shared cluster")
	result.Step("warning: data was not migrated; the shared database starts from the template")

	if err := s.proxy.EnsureTenantHost(ctx, tenantID, s.cfg.Platform.SharedForwardHost, s.cfg.Platform.SharedForwardPort); err != nil {
		return s.fail(ctx, result, fmt.Sprintf("re-point proxy to shared deployment: %v", err))
	}
	result.Step("proxy host re-pointed to shared deployment")

	if err := s.cluster.DeleteNamespace(ctx, TenantNamespace(tenantID)); err != nil {
		return s.fail(ctx, result, fmt.Sprintf("delete dedicated namespace: %v", err))
	}
	result.Step("deleted dedicated namespace %s", TenantNamespace(tenantID))

	tenant.Namespace = s.cfg.Platform.SharedNamespace
	tenant.DBConnectionString = conn
	tenant.UpdatedAt = time.Now().UTC()
	if err := s.tenants.Update(ctx, tenant); err != nil {
		return s.fail(ctx, result, fmt.Sprintf("update tenant record: %v", err))
	}
	result.Step("tenant record updated to shared mode")

	result.Success = true
	result.CompletedAt = time.Now().UTC()
	s.audit(ctx, tenantID, "migrated_to_shared", "active", "tenant migrated to shared deployment")
	return result
}

// MigrateToDedicated moves a shared tenant into its own namespace by running
// the full provisioning pipeline, re-pointing the proxy, then dropping the
// shared-cluster database.
func (s *MigrationService) MigrateToDedicated(ctx context.Context, tenantID, targetTier string) *models.MigrationResult {
	result := &models.MigrationResult{
		TenantID:   tenantID,
		SourceMode: models.ModeShared,
		TargetMode: models.ModeDedicated,
		StartedAt:  time.Now().UTC(),
	}

	elig, err := s.CheckEligibility(ctx, tenantID)
	if err != nil {
		return s.fail(ctx, result, fmt.Sprintf("eligibility check failed: %v", err))
	}
	result.SourceMode = elig.CurrentMode
	if !elig.CanMigrate || elig.CurrentMode != models.ModeShared {
		return s.fail(ctx, result, fmt.Sprintf("tenant is %s, not eligible for migration to dedicated: %s",
			elig.CurrentMode, elig.Reason))
	}
	result.Step("eligibility confirmed: tenant is in shared mode")

	tenant, err := s.tenants.GetByTenantID(ctx, tenantID)
	if err != nil {
		return s.fail(ctx, result, fmt.Sprintf("load tenant record: %v", err))
	}

	tier := targetTier
	if tier == "" {
		tier = tenant.Tier
	}

	if ctx.Err() != nil {
		return s.fail(ctx, result, "migration cancelled before provisioning")
	}

	pres := s.provisioner.Provision(ctx, &models.ProvisioningRequest{
		TenantID:    tenantID,
		CompanyName: tenant.CompanyName,
		OwnerEmail:  tenant.OwnerEmail,
		OwnerName:   tenant.OwnerName,
		Tier:        tier,
	})
	if !pres.Success {
		return s.fail(ctx, result, fmt.Sprintf("dedicated provisioning failed: %s", pres.Error))
	}
	result.Step("provisioned dedicated deployment in namespace %s", pres.Namespace)

	forwardHost := fmt.Sprintf("%s-api.%s.svc", tenantID, pres.Namespace)
	if err := s.proxy.EnsureTenantHost(ctx, tenantID, forwardHost, s.cfg.Platform.DedicatedForwardPort); err != nil {
		return s.fail(ctx, result, fmt.Sprintf("re-point proxy to dedicated deployment: %v", err))
	}
	result.Step("proxy host re-pointed to dedicated deployment")

	if err := s.dbadmin.Delete(ctx, tenantID, DatabaseOptions{}); err != nil {
		return s.fail(ctx, result, fmt.Sprintf("drop shared database: %v", err))
	}
	result.Step("dropped tenant database on shared cluster")

	tenant.Tier = tier
	tenant.Namespace = pres.Namespace
	if pres.DBConnectionString != "" {
		tenant.DBConnectionString = pres.DBConnectionString
	}
	tenant.UpdatedAt = time.Now().UTC()
	if err := s.tenants.Update(ctx, tenant); err != nil {
		return s.fail(ctx, result, fmt.Sprintf("update tenant record: %v", err))
	}
	result.Step("tenant record updated to dedicated mode")

	result.Success = true
	result.CompletedAt = time.Now().UTC()
	s.audit(ctx, tenantID, "migrated_to_dedicated", "active", "tenant migrated to dedicated deployment")
	return result
}

// BulkMigrateToShared migrates tenants strictly sequentially to bound load on
// the shared cluster and proxy API. Individual failures do not abort the
// batch; cancellation is honored between tenants, never mid-migration.
func (s *MigrationService) BulkMigrateToShared(ctx context.Context, tenantIDs []string) *models.BulkMigrationResult {
	out := &models.BulkMigrationResult{Total: len(tenantIDs)}

	for i, tenantID := range tenantIDs {
		if ctx.Err() != nil {
			for _, remaining := range tenantIDs[i:] {
				r := &models.MigrationResult{
					TenantID:    remaining,
					SourceMode:  models.ModeDedicated,
					TargetMode:  models.ModeShared,
					StartedAt:   time.Now().UTC(),
					CompletedAt: time.Now().UTC(),
					Error:       "bulk migration cancelled",
				}
				out.Results = append(out.Results, r)
				out.Failed++
			}
			break
		}

		result := s.MigrateToShared(ctx, tenantID)
		out.Results = append(out.Results, result)
		if result.Success {
			out.Successful++
		} else {
			out.Failed++
		}
	}

	s.logger.Info("bulk migration finished",
		zap.Int("total", out.Total),
		zap.Int("successful", out.Successful),
		zap.Int("failed", out.Failed),
	)
	return out
}

func (s *MigrationService) fail(ctx context.Context, result *models.MigrationResult, msg string) *models.MigrationResult {
	result.Error = msg
	result.CompletedAt = time.Now().UTC()
	s.logger.Warn("migration failed",
		zap.String("tenant_id", result.TenantID),
		zap.String("target_mode", result.TargetMode),
		zap.String("error", msg),
	)
	s.audit(ctx, result.TenantID, "migration_failed", "failed", msg)
	return result
}

func (s *MigrationService) audit(ctx context.Context, tenantID, action, status, message string) {
	if s.lifecycle == nil {
		return
	}
	if err := s.lifecycle.LogAction(ctx, tenantID, action, status, message); err != nil {
		s.logger.Warn("failed to record lifecycle log",
			zap.String("tenant_id", tenantID), zap.String("action", action), zap.Error(err))
	}
}
