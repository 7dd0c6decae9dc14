package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wenwu/saas-platform/tenant-service/internal/models"
	"github.com/wenwu/saas-platform/tenant-service/internal/repository"
	"github.com/wenwu/saas-platform/tenant-service/internal/service"
)

type Handler struct {
	provisionService *service.ProvisionService
	migrationService *service.MigrationService
	domainService    *service.DomainService
	tenantService    *service.TenantService
	logRepo          *repository.LogRepository
}

func NewHandler(
	provisionService *service.ProvisionService,
	migrationService *service.MigrationService,
	domainService *service.DomainService,
	tenantService *service.TenantService,
	logRepo *repository.LogRepository,
) *Handler {
	return &Handler{
		provisionService: provisionService,
		migrationService: migrationService,
		domainService:    domainService,
		tenantService:    tenantService,
		logRepo:          logRepo,
	}
}

// ==================== Provisioning Handlers ====================

// Provision handles tenant provisioning requests from the billing service.
// The full step log is returned regardless of outcome.
func (h *Handler) Provision(c *gin.Context) {
	var req models.ProvisioningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.provisionService.Provision(c.Request.Context(), &req)
	c.JSON(provisionStatus(result), result)
}

// Update handles tier or configuration changes for an existing tenant.
func (h *Handler) Update(c *gin.Context) {
	var req models.ProvisioningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.provisionService.Update(c.Request.Context(), &req)
	c.JSON(provisionStatus(result), result)
}

func provisionStatus(result *models.ProvisioningResult) int {
	switch {
	case result.Success:
		return http.StatusOK
	case len(result.ValidationErrors) > 0:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Deprovision destroys all resources for a tenant.
func (h *Handler) Deprovision(c *gin.Context) {
	tenantID := c.Param("tenant_id")

	if err := h.tenantService.Deprovision(c.Request.Context(), tenantID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tenant_id": tenantID, "status": "deprovisioned"})
}

// ==================== Lifecycle Handlers ====================

// Suspend stops serving a tenant.
func (h *Handler) Suspend(c *gin.Context) {
	var req models.SuspendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.tenantService.Suspend(c.Request.Context(), req.TenantID, req.Reason); err != nil {
		c.JSON(tenantErrStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tenant_id": req.TenantID, "status": models.TenantStatusSuspended})
}

// Resume reverses a suspension.
func (h *Handler) Resume(c *gin.Context) {
	tenantID := c.Param("tenant_id")

	if err := h.tenantService.Resume(c.Request.Context(), tenantID); err != nil {
		c.JSON(tenantErrStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tenant_id": tenantID, "status": models.TenantStatusActive})
}

// GetTenant returns a tenant record.
func (h *Handler) GetTenant(c *gin.Context) {
	tenant, err := h.tenantService.Get(c.Request.Context(), c.Param("tenant_id"))
	if err != nil {
		c.JSON(tenantErrStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tenant)
}

// ListTenants returns all tenant records.
func (h *Handler) ListTenants(c *gin.Context) {
	tenants, err := h.tenantService.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tenants": tenants, "count": len(tenants)})
}

// GetTenantLogs returns recent lifecycle log entries for a tenant.
func (h *Handler) GetTenantLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	logs, err := h.logRepo.GetByTenantID(c.Request.Context(), c.Param("tenant_id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs, "count": len(logs)})
}

// ==================== Migration Handlers ====================

// GetMigrationEligibility reports the tenant's deployment mode and whether it
// can migrate.
func (h *Handler) GetMigrationEligibility(c *gin.Context) {
	elig, err := h.migrationService.CheckEligibility(c.Request.Context(), c.Param("tenant_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, elig)
}

// Migrate moves one tenant between shared and dedicated modes.
func (h *Handler) Migrate(c *gin.Context) {
	var req models.MigrateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var result *models.MigrationResult
	switch req.TargetMode {
	case models.ModeShared:
		result = h.migrationService.MigrateToShared(c.Request.Context(), req.TenantID)
	case models.ModeDedicated:
		result = h.migrationService.MigrateToDedicated(c.Request.Context(), req.TenantID, req.TargetTier)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "target_mode must be shared or dedicated"})
		return
	}

	if !result.Success {
		c.JSON(http.StatusInternalServerError, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// BulkMigrate migrates multiple tenants to shared mode sequentially.
func (h *Handler) BulkMigrate(c *gin.Context) {
	var req models.BulkMigrateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.TenantIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_ids required"})
		return
	}

	result := h.migrationService.BulkMigrateToShared(c.Request.Context(), req.TenantIDs)
	c.JSON(http.StatusOK, result)
}

// ==================== Custom Domain Handlers ====================

// InitiateDomainVerification starts a custom-domain ownership challenge.
func (h *Handler) InitiateDomainVerification(c *gin.Context) {
	var req models.InitiateDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	challenge, err := h.domainService.InitiateVerification(c.Request.Context(), req.TenantID, req.Domain, req.Method)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, challenge)
}

// VerifyDomain checks the published challenge and activates routing on
// success. Safe to call repeatedly.
func (h *Handler) VerifyDomain(c *gin.Context) {
	tenantID := c.Query("tenant_id")
	domain := c.Param("domain")

	check, err := h.domainService.Verify(c.Request.Context(), tenantID, domain)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, check)
}

// GetDomainStatus reports the verification state without external lookups.
func (h *Handler) GetDomainStatus(c *gin.Context) {
	tenantID := c.Query("tenant_id")
	domain := c.Param("domain")

	check, err := h.domainService.Status(c.Request.Context(), tenantID, domain)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, check)
}

// RemoveDomain detaches a custom domain and tears down its routing.
func (h *Handler) RemoveDomain(c *gin.Context) {
	tenantID := c.Query("tenant_id")
	domain := c.Param("domain")

	if err := h.domainService.Remove(c.Request.Context(), tenantID, domain); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"domain": domain, "status": "removed"})
}

func tenantErrStatus(err error) int {
	if errors.Is(err, repository.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
