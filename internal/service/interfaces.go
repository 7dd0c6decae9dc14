package service

import (
	"context"
	"time"

	"github.com/wenwu/saas-platform/tenant-service/internal/models"
)

// ClusterClient is the orchestration-cluster boundary. Implementations must
// be idempotent where noted so check-then-act sequences can be retried.
type ClusterClient interface {
	// Reachable probes the cluster API before any side effect is attempted.
	Reachable(ctx context.Context) error

	NamespaceExists(ctx context.Context, name string) (bool, error)
	// CreateNamespace is a no-op if the namespace already exists.
	CreateNamespace(ctx context.Context, name string) error
	// DeleteNamespace is a no-op if the namespace is already gone.
	DeleteNamespace(ctx context.Context, name string) error

	// PodsReady reports whether at least want pods matching the selector are
	// running with all containers ready.
	PodsReady(ctx context.Context, namespace string, selector map[string]string, want int) (bool, error)

	ScaleDeployment(ctx context.Context, namespace, name string, replicas int32) error
	ListDeployments(ctx context.Context, namespace string) ([]string, error)

	CreateSecret(ctx context.Context, namespace, name string, data map[string][]byte) error
	DeleteSecret(ctx context.Context, namespace, name string) error

	GetIngressHosts(ctx context.Context, namespace, name string) ([]string, error)
	// ReplaceIngressHosts rebuilds one routing rule and one TLS entry per
	// host and replaces the rule set atomically.
	ReplaceIngressHosts(ctx context.Context, namespace, name string, hosts []string) error
}

// ChartClient drives the chart-based deployment tool.
type ChartClient interface {
	Available(ctx context.Context) error
	// InstallOrUpgrade installs the release if absent, upgrades otherwise.
	// Returns the tool's raw output.
	InstallOrUpgrade(ctx context.Context, release, namespace string, values *models.DeploymentDescriptor, timeout time.Duration) (string, error)
	Uninstall(ctx context.Context, release, namespace string) error
	Status(ctx context.Context, release, namespace string) (string, error)
	List(ctx context.Context, namespace string) ([]string, error)
}

// DatabaseOptions targets a specific database host; the zero value means the
// configured shared cluster.
type DatabaseOptions struct {
	Host       string
	Port       int
	OwnerEmail string
	OwnerName  string
}

// DatabaseProvisioner manages per-tenant databases cloned from the template.
type DatabaseProvisioner interface {
	// Provision creates the tenant database from the template and returns its
	// connection string. Provisioning an existing database is a no-op.
	Provision(ctx context.Context, tenantID string, opts DatabaseOptions) (string, error)
	Delete(ctx context.Context, tenantID string, opts DatabaseOptions) error
	Exists(ctx context.Context, tenantID string, opts DatabaseOptions) (bool, error)
}

// ProxyClient manages reverse-proxy routing hosts.
type ProxyClient interface {
	// EnsureTenantHost creates the tenant subdomain host if absent, or
	// re-points its forward target otherwise.
	EnsureTenantHost(ctx context.Context, tenantID, forwardHost string, forwardPort int) error
	DeleteTenantHost(ctx context.Context, tenantID string) error
	// EnsureCustomDomainHost creates a routing host for a verified custom
	// domain with automatic certificate issuance.
	EnsureCustomDomainHost(ctx context.Context, domain, forwardHost string, forwardPort int) error
	DeleteCustomDomainHost(ctx context.Context, domain string) error
}

// DNSClient manages the tenant subdomain CNAME records at the registrar.
type DNSClient interface {
	EnsureCNAME(ctx context.Context, name, target string) error
	DeleteCNAME(ctx context.Context, name string) error
	CNAMEExists(ctx context.Context, name string) (bool, error)
}

// DomainResolver performs the outbound lookups used by domain verification.
type DomainResolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
	FetchFile(ctx context.Context, url string) (string, error)
}

// TenantStore persists tenant records.
type TenantStore interface {
	Create(ctx context.Context, t *models.Tenant) error
	GetByTenantID(ctx context.Context, tenantID string) (*models.Tenant, error)
	GetByDomain(ctx context.Context, domain string) (*models.Tenant, error)
	Update(ctx context.Context, t *models.Tenant) error
	Delete(ctx context.Context, tenantID string) error
	List(ctx context.Context) ([]*models.Tenant, error)
}

// DomainStore persists domain verification records.
type DomainStore interface {
	Create(ctx context.Context, v *models.DomainVerification) error
	GetByDomain(ctx context.Context, domain string) (*models.DomainVerification, error)
	Update(ctx context.Context, v *models.DomainVerification) error
	Delete(ctx context.Context, tenantID, domain string) error
}

// LifecycleLog is the append-only tenant audit trail.
type LifecycleLog interface {
	LogAction(ctx context.Context, tenantID, action, status, message string) error
}
