package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/wenwu/saas-platform/tenant-service/internal/config"
	"github.com/wenwu/saas-platform/tenant-service/internal/models"
	"github.com/wenwu/saas-platform/tenant-service/internal/poll"
	"github.com/wenwu/saas-platform/tenant-service/internal/repository"
)

// Pod selector labels stamped on tenant workloads by the chart.
const (
	labelInstance  = "app.kubernetes.io/instance"
	labelComponent = "app.kubernetes.io/component"

	componentDatabase = "postgres"
	componentAPI      = "api"
	componentWeb      = "web"
)

// ProvisionService drives the end-to-end create/update sequence for one
// tenant. Failures after the first side effect are not rolled back; cleanup
// is an explicit deprovision call.
type ProvisionService struct {
	cfg       *config.Config
	tenants   TenantStore
	lifecycle LifecycleLog
	cluster   ClusterClient
	charts    ChartClient
	proxy     ProxyClient
	dns       DNSClient
	poller    *poll.Poller
	logger    *zap.Logger
}

// NewProvisionService creates a new provisioning orchestrator.
func NewProvisionService(
	cfg *config.Config,
	tenants TenantStore,
	lifecycle LifecycleLog,
	cluster ClusterClient,
	charts ChartClient,
	proxy ProxyClient,
	dns DNSClient,
	poller *poll.Poller,
	logger *zap.Logger,
) *ProvisionService {
	return &ProvisionService{
		cfg:       cfg,
		tenants:   tenants,
		lifecycle: lifecycle,
		cluster:   cluster,
		charts:    charts,
		proxy:     proxy,
		dns:       dns,
		poller:    poller,
		logger:    logger,
	}
}

// Provision runs the full pipeline: validate, allocate identifier, render,
// deploy, wait for readiness, finalize. The returned result carries the
// ordered step log even on failure.
func (s *ProvisionService) Provision(ctx context.Context, req *models.ProvisioningRequest) *models.ProvisioningResult {
	result := &models.ProvisioningResult{}
	result.Log(models.StepLevelInfo, models.StepValidate, "validating provisioning request")

	if errs := s.validate(ctx, req, false); len(errs) > 0 {
		result.ValidationErrors = errs
		result.Error = "validation failed"
		result.Log(models.StepLevelError, models.StepValidate, strings.Join(errs, "; "))
		return result
	}

	tenantID := req.TenantID
	if tenantID == "" {
		tenantID = GenerateTenantID(req.CompanyName)
		result.Log(models.StepLevelInfo, models.StepTenantID,
			fmt.Sprintf("derived tenant id %q from company name", tenantID))
	} else {
		result.Log(models.StepLevelInfo, models.StepTenantID,
			fmt.Sprintf("using caller-supplied tenant id %q", tenantID))
	}
	result.TenantID = tenantID
	result.Namespace = TenantNamespace(tenantID)
	result.ReleaseName = tenantID

	limits, err := CalculateTierLimits(req.Tier, req.Overrides)
	if err != nil {
		// validated above; kept as a guard
		result.Error = err.Error()
		result.Log(models.StepLevelError, models.StepResources, err.Error())
		return result
	}
	result.Limits = limits
	result.Log(models.StepLevelInfo, models.StepResources,
		fmt.Sprintf("resolved %s tier envelope: %d db instance(s), %dGi storage, %d api / %d web replicas",
			req.Tier, limits.DBInstances, limits.DBStorageGB, limits.APIReplicas, limits.WebReplicas))

	desc := BuildDescriptor(s.cfg, req, tenantID, limits)
	result.Log(models.StepLevelInfo, models.StepRender,
		fmt.Sprintf("rendered deployment descriptor for host %s", desc.Host))

	if s.cancelled(ctx, result) {
		return result
	}

	out, err := s.charts.InstallOrUpgrade(ctx, tenantID, result.Namespace, desc, s.cfg.Helm.DeployTimeout)
	if err != nil {
		// The namespace and any partially created resources are left in
		// place for inspection or an explicit deprovision call.
		result.Error = fmt.Sprintf("deployment failed: %v", err)
		result.Log(models.StepLevelError, models.StepDeploy, result.Error)
		s.audit(ctx, tenantID, "provision_failed", "failed", result.Error)
		return result
	}
	result.Log(models.StepLevelInfo, models.StepDeploy,
		fmt.Sprintf("chart release %s deployed to namespace %s", tenantID, result.Namespace))
	s.logger.Debug("chart tool output", zap.String("tenant_id", tenantID), zap.String("output", out))

	if s.cancelled(ctx, result) {
		return result
	}

	if !s.waitForPods(ctx, result.Namespace, tenantID, componentDatabase, limits.DBInstances, s.cfg.Helm.DatabaseTimeout) {
		result.Error = fmt.Sprintf("database cluster did not become ready within %s", s.cfg.Helm.DatabaseTimeout)
		result.Log(models.StepLevelError, models.StepWaitDatabase, result.Error)
		s.audit(ctx, tenantID, "provision_failed", "failed", result.Error)
		return result
	}
	result.Log(models.StepLevelInfo, models.StepWaitDatabase,
		fmt.Sprintf("database cluster ready with %d instance(s)", limits.DBInstances))

	if s.cancelled(ctx, result) {
		return result
	}

	if !s.waitForPods(ctx, result.Namespace, tenantID, componentAPI, limits.APIReplicas, s.cfg.Helm.WorkloadTimeout) {
		result.Error = fmt.Sprintf("api workload did not become ready within %s", s.cfg.Helm.WorkloadTimeout)
		result.Log(models.StepLevelError, models.StepWaitAPI, result.Error)
		s.audit(ctx, tenantID, "provision_failed", "failed", result.Error)
		return result
	}
	result.Log(models.StepLevelInfo, models.StepWaitAPI, "api workload ready")

	// Web readiness is best-effort: a slow frontend rollout should not fail
	// the whole provisioning run.
	if !s.waitForPods(ctx, result.Namespace, tenantID, componentWeb, limits.WebReplicas, s.cfg.Helm.WorkloadTimeout) {
		result.Log(models.StepLevelWarning, models.StepWaitWeb,
			fmt.Sprintf("web workload not ready within %s; continuing", s.cfg.Helm.WorkloadTimeout))
	} else {
		result.Log(models.StepLevelInfo, models.StepWaitWeb, "web workload ready")
	}

	if err := s.finalize(ctx, req, tenantID, limits, result); err != nil {
		result.Error = err.Error()
		result.Log(models.StepLevelError, models.StepFinalize, err.Error())
		s.audit(ctx, tenantID, "provision_failed", "failed", result.Error)
		return result
	}

	result.Success = true
	result.Log(models.StepLevelInfo, models.StepComplete, "provisioning complete")
	s.audit(ctx, tenantID, "provisioned", "active", "tenant provisioned at "+result.TenantURL)
	return result
}

// Update re-renders the full descriptor and resubmits it in upgrade mode.
// Readiness waits are skipped; resources that changed shape roll out under
// the deployment tool's own supervision.
func (s *ProvisionService) Update(ctx context.Context, req *models.ProvisioningRequest) *models.ProvisioningResult {
	result := &models.ProvisioningResult{}
	result.Log(models.StepLevelInfo, models.StepValidate, "validating update request")

	if req.TenantID == "" {
		result.ValidationErrors = []string{"tenant_id is required for updates"}
		result.Error = "validation failed"
		result.Log(models.StepLevelError, models.StepValidate, result.Error)
		return result
	}

	if errs := s.validate(ctx, req, true); len(errs) > 0 {
		result.ValidationErrors = errs
		result.Error = "validation failed"
		result.Log(models.StepLevelError, models.StepValidate, strings.Join(errs, "; "))
		return result
	}

	tenant, err := s.tenants.GetByTenantID(ctx, req.TenantID)
	if err != nil {
		result.Error = fmt.Sprintf("tenant %s not found: %v", req.TenantID, err)
		result.Log(models.StepLevelError, models.StepValidate, result.Error)
		return result
	}

	result.TenantID = tenant.TenantID
	result.Namespace = tenant.Namespace
	result.ReleaseName = tenant.TenantID

	limits, err := CalculateTierLimits(req.Tier, req.Overrides)
	if err != nil {
		result.Error = err.Error()
		result.Log(models.StepLevelError, models.StepResources, err.Error())
		return result
	}
	result.Limits = limits
	result.Log(models.StepLevelInfo, models.StepResources,
		fmt.Sprintf("resolved %s tier envelope for update", req.Tier))

	desc := BuildDescriptor(s.cfg, req, tenant.TenantID, limits)
	result.Log(models.StepLevelInfo, models.StepRender, "re-rendered deployment descriptor")

	if _, err := s.charts.InstallOrUpgrade(ctx, tenant.TenantID, tenant.Namespace, desc, s.cfg.Helm.DeployTimeout); err != nil {
		result.Error = fmt.Sprintf("upgrade failed: %v", err)
		result.Log(models.StepLevelError, models.StepDeploy, result.Error)
		s.audit(ctx, tenant.TenantID, "update_failed", "failed", result.Error)
		return result
	}
	result.Log(models.StepLevelInfo, models.StepDeploy, "chart release upgraded")

	tenant.Tier = req.Tier
	tenant.UpdatedAt = time.Now().UTC()
	if err := s.tenants.Update(ctx, tenant); err != nil {
		result.Error = fmt.Sprintf("update tenant record: %v", err)
		result.Log(models.StepLevelError, models.StepFinalize, result.Error)
		return result
	}

	result.TenantURL = "https://" + TenantHost(s.cfg, tenant.TenantID, req.CustomDomain)
	result.APIURL = result.TenantURL + "/api"
	result.Success = true
	result.Log(models.StepLevelInfo, models.StepComplete, "update complete")
	s.audit(ctx, tenant.TenantID, "updated", "active", "tenant updated to tier "+req.Tier)
	return result
}

// validate collects every request problem before any side effect occurs.
// Static checks run first; collaborator reachability is only probed once the
// request itself is well-formed.
func (s *ProvisionService) validate(ctx context.Context, req *models.ProvisioningRequest, upgrade bool) []string {
	var merr *multierror.Error

	if req.CompanyName == "" && req.TenantID == "" {
		merr = multierror.Append(merr, fmt.Errorf("company_name is required when no tenant_id is supplied"))
	}
	if !models.KnownTier(req.Tier) {
		merr = multierror.Append(merr, fmt.Errorf("unknown subscription tier: %q", req.Tier))
	}
	if req.TenantID != "" && !ValidTenantID(req.TenantID) {
		merr = multierror.Append(merr, fmt.Errorf("tenant id %q must match ^[a-z0-9][a-z0-9-]*[a-z0-9]$", req.TenantID))
	}
	if req.CustomDomain != "" && !ValidDomain(req.CustomDomain) {
		merr = multierror.Append(merr, fmt.Errorf("custom domain %q is not a valid domain name", req.CustomDomain))
	}

	if merr.ErrorOrNil() != nil {
		return errorStrings(merr)
	}

	if err := s.cluster.Reachable(ctx); err != nil {
		merr = multierror.Append(merr, fmt.Errorf("cluster unreachable: %w", err))
	}
	if err := s.charts.Available(ctx); err != nil {
		merr = multierror.Append(merr, fmt.Errorf("deployment tool unavailable: %w", err))
	}

	if merr.ErrorOrNil() != nil {
		return errorStrings(merr)
	}

	if req.TenantID != "" && !upgrade {
		exists, err := s.cluster.NamespaceExists(ctx, TenantNamespace(req.TenantID))
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("check namespace: %w", err))
		} else if exists {
			merr = multierror.Append(merr, fmt.Errorf("tenant id %q is already in use", req.TenantID))
		}
	}

	return errorStrings(merr)
}

// finalize computes URLs and credentials, ensures edge routing, and persists
// the tenant record. Namespace and connection string are stored together.
func (s *ProvisionService) finalize(ctx context.Context, req *models.ProvisioningRequest, tenantID string, limits models.TierResourceLimits, result *models.ProvisioningResult) error {
	host := TenantHost(s.cfg, tenantID, req.CustomDomain)
	result.TenantURL = "https://" + host
	result.APIURL = result.TenantURL + "/api"
	result.AdminUsername = s.cfg.Platform.DefaultAdminUser
	result.AdminPassword = s.cfg.Platform.DefaultAdminPassword

	credentials := map[string][]byte{
		"username": []byte(result.AdminUsername),
		"password": []byte(result.AdminPassword),
	}
	if err := s.cluster.CreateSecret(ctx, result.Namespace, tenantID+"-admin-credentials", credentials); err != nil {
		return fmt.Errorf("store admin credentials: %w", err)
	}

	forwardHost := fmt.Sprintf("%s-api.%s.svc", tenantID, result.Namespace)
	if err := s.proxy.EnsureTenantHost(ctx, tenantID, forwardHost, s.cfg.Platform.DedicatedForwardPort); err != nil {
		return fmt.Errorf("configure proxy host: %w", err)
	}
	if err := s.dns.EnsureCNAME(ctx, tenantID, s.cfg.DNS.Target); err != nil {
		return fmt.Errorf("configure dns record: %w", err)
	}
	result.Log(models.StepLevelInfo, models.StepFinalize,
		fmt.Sprintf("edge routing configured for %s", host))

	now := time.Now().UTC()
	status := models.TenantStatusActive
	if req.Tier == models.TierDemo && limits.TrialDays > 0 {
		expires := now.AddDate(0, 0, limits.TrialDays)
		result.ExpiresAt = &expires
		status = models.TenantStatusTrial
	}
	result.DBConnectionString = s.dedicatedConnectionString(tenantID, result.Namespace)

	existing, err := s.tenants.GetByTenantID(ctx, tenantID)
	switch {
	case err == nil:
		// Re-provisioning a known tenant (a migration to dedicated mode,
		// or a retry after a partial failure) re-points the existing record
		// instead of inserting a second row.
		existing.Tier = req.Tier
		existing.Status = status
		existing.Namespace = result.Namespace
		existing.DBConnectionString = result.DBConnectionString
		existing.TrialEndsAt = result.ExpiresAt
		existing.UpdatedAt = now
		if req.CustomDomain != "" {
			domain := req.CustomDomain
			existing.CustomDomain = &domain
		}
		if err := s.tenants.Update(ctx, existing); err != nil {
			return fmt.Errorf("update tenant record: %w", err)
		}
	case errors.Is(err, repository.ErrNotFound):
		tenant := &models.Tenant{
			ID:                 uuid.New().String(),
			TenantID:           tenantID,
			CompanyName:        req.CompanyName,
			OwnerEmail:         req.OwnerEmail,
			OwnerName:          req.OwnerName,
			Tier:               req.Tier,
			Status:             status,
			Namespace:          result.Namespace,
			DBConnectionString: result.DBConnectionString,
			CreatedAt:          now,
			UpdatedAt:          now,
			TrialEndsAt:        result.ExpiresAt,
		}
		if req.CustomDomain != "" {
			domain := req.CustomDomain
			tenant.CustomDomain = &domain
		}
		if req.BillingCustomerID != "" {
			v := req.BillingCustomerID
			tenant.BillingCustomerID = &v
		}
		if req.BillingSubscriptionID != "" {
			v := req.BillingSubscriptionID
			tenant.BillingSubscriptionID = &v
		}
		if err := s.tenants.Create(ctx, tenant); err != nil {
			return fmt.Errorf("persist tenant record: %w", err)
		}
	default:
		return fmt.Errorf("load tenant record: %w", err)
	}
	return nil
}

func (s *ProvisionService) dedicatedConnectionString(tenantID, namespace string) string {
	return fmt.Sprintf("postgres://%s@%s-db.%s.svc:5432/%s",
		s.cfg.Platform.ProductSlug, tenantID, namespace, s.cfg.Platform.ProductSlug)
}

func (s *ProvisionService) waitForPods(ctx context.Context, namespace, tenantID, component string, want int, timeout time.Duration) bool {
	selector := map[string]string{
		labelInstance:  tenantID,
		labelComponent: component,
	}
	return s.poller.Wait(ctx, timeout, func(ctx context.Context) (bool, error) {
		return s.cluster.PodsReady(ctx, namespace, selector, want)
	})
}

func (s *ProvisionService) cancelled(ctx context.Context, result *models.ProvisioningResult) bool {
	if ctx.Err() == nil {
		return false
	}
	result.Error = "operation cancelled"
	result.Log(models.StepLevelError, models.StepComplete,
		"cancelled; already-created resources are left in place")
	return true
}

func (s *ProvisionService) audit(ctx context.Context, tenantID, action, status, message string) {
	if s.lifecycle == nil {
		return
	}
	if err := s.lifecycle.LogAction(ctx, tenantID, action, status, message); err != nil {
		s.logger.Warn("failed to record lifecycle log",
			zap.String("tenant_id", tenantID), zap.String("action", action), zap.Error(err))
	}
}

func errorStrings(merr *multierror.Error) []string {
	if merr.ErrorOrNil() == nil {
		return nil
	}
	out := make([]string, 0, len(merr.Errors))
	for _, err := range merr.Errors {
		out = append(out, err.Error())
	}
	return out
}
