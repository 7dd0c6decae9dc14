package service

import (
	"fmt"
	"sort"

	"github.com/wenwu/saas-platform/tenant-service/internal/config"
	"github.com/wenwu/saas-platform/tenant-service/internal/models"
)

// TenantNamespace returns the dedicated namespace name for a tenant.
func TenantNamespace(tenantID string) string {
	return "tenant-" + tenantID
}

// TenantHost returns the host a tenant is served on: the custom domain when
// present, the platform subdomain otherwise.
func TenantHost(cfg *config.Config, tenantID, customDomain string) string {
	if customDomain != "" {
		return customDomain
	}
	return tenantID + "." + cfg.Platform.BaseDomain
}

// BuildDescriptor renders the chart values document for a provisioning
// request and its resolved resource envelope. Pure; no I/O.
func BuildDescriptor(cfg *config.Config, req *models.ProvisioningRequest, tenantID string, limits models.TierResourceLimits) *models.DeploymentDescriptor {
	desc := &models.DeploymentDescriptor{
		TenantID:    tenantID,
		CompanyName: req.CompanyName,
		Host:        TenantHost(cfg, tenantID, req.CustomDomain),
		Database: models.DescriptorDatabase{
			Instances:     limits.DBInstances,
			StorageSize:   fmt.Sprintf("%dGi", limits.DBStorageGB),
			BackupEnabled: limits.BackupEnabled,
		},
		API: models.DescriptorWorkload{
			Replicas: limits.APIReplicas,
			Image:    cfg.Registry.Server + "/" + cfg.Registry.APIImage,
			Tag:      cfg.Registry.Tag,
		},
		Web: models.DescriptorWorkload{
			Replicas: limits.WebReplicas,
			Image:    cfg.Registry.Server + "/" + cfg.Registry.WebImage,
			Tag:      cfg.Registry.Tag,
		},
		SeatLimit: limits.MechanicLimit,
	}

	if req.Tier == models.TierDemo {
		desc.Demo = true
		desc.TrialDays = limits.TrialDays
	}

	if len(req.ExtraEnv) > 0 {
		names := make([]string, 0, len(req.ExtraEnv))
		for name := range req.ExtraEnv {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			desc.ExtraEnv = append(desc.ExtraEnv, models.EnvEntry{Name: name, Value: req.ExtraEnv[name]})
		}
	}

	if req.BillingCustomerID != "" || req.BillingSubscriptionID != "" {
		desc.Billing = &models.DescriptorBilling{
			CustomerID:     req.BillingCustomerID,
			SubscriptionID: req.BillingSubscriptionID,
		}
	}

	return desc
}
