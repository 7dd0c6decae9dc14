package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wenwu/saas-platform/tenant-service/internal/config"
	"github.com/wenwu/saas-platform/tenant-service/internal/models"
	"github.com/wenwu/saas-platform/tenant-service/internal/repository"
)

// TenantService handles tenant lifecycle transitions after provisioning:
// suspension, resumption, and full deprovisioning.
type TenantService struct {
	cfg       *config.Config
	tenants   TenantStore
	lifecycle LifecycleLog
	cluster   ClusterClient
	charts    ChartClient
	dbadmin   DatabaseProvisioner
	proxy     ProxyClient
	dns       DNSClient
	logger    *zap.Logger
}

// NewTenantService creates a new tenant lifecycle service.
func NewTenantService(
	cfg *config.Config,
	tenants TenantStore,
	lifecycle LifecycleLog,
	cluster ClusterClient,
	charts ChartClient,
	dbadmin DatabaseProvisioner,
	proxy ProxyClient,
	dns DNSClient,
	logger *zap.Logger,
) *TenantService {
	return &TenantService{
		cfg:       cfg,
		tenants:   tenants,
		lifecycle: lifecycle,
		cluster:   cluster,
		charts:    charts,
		dbadmin:   dbadmin,
		proxy:     proxy,
		dns:       dns,
		logger:    logger,
	}
}

// Get returns a tenant by its identifier.
func (s *TenantService) Get(ctx context.Context, tenantID string) (*models.Tenant, error) {
	return s.tenants.GetByTenantID(ctx, tenantID)
}

// List returns all tenants.
func (s *TenantService) List(ctx context.Context) ([]*models.Tenant, error) {
	return s.tenants.List(ctx)
}

// Suspend stops serving a tenant without destroying anything. Dedicated
// workloads are scaled to zero; shared tenants lose their proxy route.
// Suspending a suspended tenant is a no-op.
func (s *TenantService) Suspend(ctx context.Context, tenantID, reason string) error {
	tenant, err := s.tenants.GetByTenantID(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("load tenant: %w", err)
	}
	if tenant.Status == models.TenantStatusSuspended {
		return nil
	}

	if tenant.Namespace == s.cfg.Platform.SharedNamespace {
		if err := s.proxy.DeleteTenantHost(ctx, tenantID); err != nil {
			return fmt.Errorf("remove proxy host: %w", err)
		}
	} else {
		names, err := s.cluster.ListDeployments(ctx, tenant.Namespace)
		if err != nil {
			return fmt.Errorf("list deployments: %w", err)
		}
		for _, name := range names {
			if err := s.cluster.ScaleDeployment(ctx, tenant.Namespace, name, 0); err != nil {
				return fmt.Errorf("scale down %s: %w", name, err)
			}
		}
	}

	tenant.Status = models.TenantStatusSuspended
	if tenant.Metadata == nil {
		tenant.Metadata = map[string]string{}
	}
	tenant.Metadata[models.MetaSuspendReason] = reason
	tenant.Metadata[models.MetaSuspendedAt] = time.Now().UTC().Format(time.RFC3339)
	tenant.UpdatedAt = time.Now().UTC()
	if err := s.tenants.Update(ctx, tenant); err != nil {
		return fmt.Errorf("update tenant record: %w", err)
	}

	s.audit(ctx, tenantID, "suspended", models.TenantStatusSuspended, reason)
	s.logger.Info("tenant suspended",
		zap.String("tenant_id", tenantID), zap.String("reason", reason))
	return nil
}

// Resume reverses a suspension. Dedicated workloads are scaled back to the
// tier's configured replica counts.
func (s *TenantService) Resume(ctx context.Context, tenantID string) error {
	tenant, err := s.tenants.GetByTenantID(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("load tenant: %w", err)
	}
	if tenant.Status != models.TenantStatusSuspended {
		return fmt.Errorf("tenant %s is %s, not suspended", tenantID, tenant.Status)
	}

	if tenant.Namespace == s.cfg.Platform.SharedNamespace {
		if err := s.proxy.EnsureTenantHost(ctx, tenantID,
			s.cfg.Platform.SharedForwardHost, s.cfg.Platform.SharedForwardPort); err != nil {
			return fmt.Errorf("restore proxy host: %w", err)
		}
	} else {
		limits, err := CalculateTierLimits(tenant.Tier, models.TierOverrides{})
		if err != nil {
			return fmt.Errorf("resolve tier limits: %w", err)
		}
		replicas := map[string]int32{
			tenantID + "-api": int32(limits.APIReplicas),
			tenantID + "-web": int32(limits.WebReplicas),
		}
		names, err := s.cluster.ListDeployments(ctx, tenant.Namespace)
		if err != nil {
			return fmt.Errorf("list deployments: %w", err)
		}
		for _, name := range names {
			want, ok := replicas[name]
			if !ok {
				want = 1
			}
			if err := s.cluster.ScaleDeployment(ctx, tenant.Namespace, name, want); err != nil {
				return fmt.Errorf("scale up %s: %w", name, err)
			}
		}
	}

	tenant.Status = models.TenantStatusActive
	delete(tenant.Metadata, models.MetaSuspendReason)
	delete(tenant.Metadata, models.MetaSuspendedAt)
	tenant.UpdatedAt = time.Now().UTC()
	if err := s.tenants.Update(ctx, tenant); err != nil {
		return fmt.Errorf("update tenant record: %w", err)
	}

	s.audit(ctx, tenantID, "resumed", models.TenantStatusActive, "tenant resumed")
	s.logger.Info("tenant resumed", zap.String("tenant_id", tenantID))
	return nil
}

// Deprovision destroys every resource belonging to a tenant. Each teardown
// step is attempted even if earlier ones fail; the first error is returned
// after everything has been tried. The tenant row is only removed when all
// steps succeeded.
func (s *TenantService) Deprovision(ctx context.Context, tenantID string) error {
	tenant, err := s.tenants.GetByTenantID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("tenant %s not found", tenantID)
		}
		return fmt.Errorf("load tenant: %w", err)
	}

	var firstErr error
	record := func(step string, err error) {
		if err == nil {
			return
		}
		s.logger.Warn("deprovision step failed",
			zap.String("tenant_id", tenantID), zap.String("step", step), zap.Error(err))
		if firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", step, err)
		}
	}

	if tenant.Namespace == s.cfg.Platform.SharedNamespace {
		record("drop shared database", s.dbadmin.Delete(ctx, tenantID, DatabaseOptions{}))
	} else {
		record("uninstall release", s.charts.Uninstall(ctx, tenantID, tenant.Namespace))
		record("delete namespace", s.cluster.DeleteNamespace(ctx, tenant.Namespace))
	}

	record("delete proxy host", s.proxy.DeleteTenantHost(ctx, tenantID))
	record("delete dns record", s.dns.DeleteCNAME(ctx, tenantID))

	if tenant.CustomDomain != nil {
		record("delete custom domain host", s.proxy.DeleteCustomDomainHost(ctx, *tenant.CustomDomain))
	}

	if firstErr != nil {
		s.audit(ctx, tenantID, "deprovision_failed", "failed", firstErr.Error())
		return firstErr
	}

	if err := s.tenants.Delete(ctx, tenantID); err != nil {
		return fmt.Errorf("delete tenant record: %w", err)
	}

	s.audit(ctx, tenantID, "deprovisioned", models.TenantStatusCancelled, "tenant deprovisioned")
	s.logger.Info("tenant deprovisioned", zap.String("tenant_id", tenantID))
	return nil
}

func (s *TenantService) audit(ctx context.Context, tenantID, action, status, message string) {
	if s.lifecycle == nil {
		return
	}
	if err := s.lifecycle.LogAction(ctx, tenantID, action, status, message); err != nil {
		s.logger.Warn("failed to record lifecycle log",
			zap.String("tenant_id", tenantID), zap.String("action", action), zap.Error(err))
	}
}
