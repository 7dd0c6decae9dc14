package service

import (
	"context"
	"fmt"
	"time"

	"github.com/wenwu/saas-platform/tenant-service/internal/models"
	"github.com/wenwu/saas-platform/tenant-service/internal/repository"
)

// ---- cluster ----

type fakeCluster struct {
	calls        int
	reachableErr error
	namespaces   map[string]bool
	notReady     map[string]bool // component -> pods never ready
	deployments  map[string][]string
	scaled       map[string]int32
	secrets      map[string]map[string][]byte
	ingressHosts map[string][]string
	deletedNS    []string
}

func newFakeCluster() *fakeCluster {
	return &fakeCluster{
		namespaces:   map[string]bool{},
		notReady:     map[string]bool{},
		deployments:  map[string][]string{},
		scaled:       map[string]int32{},
		secrets:      map[string]map[string][]byte{},
		ingressHosts: map[string][]string{},
	}
}

func (f *fakeCluster) Reachable(ctx context.Context) error {
	f.calls++
	return f.reachableErr
}

func (f *fakeCluster) NamespaceExists(ctx context.Context, name string) (bool, error) {
	f.calls++
	return f.namespaces[name], nil
}

func (f *fakeCluster) CreateNamespace(ctx context.Context, name string) error {
	f.calls++
	f.namespaces[name] = true
	return nil
}

func (f *fakeCluster) DeleteNamespace(ctx context.Context, name string) error {
	f.calls++
	delete(f.namespaces, name)
	f.deletedNS = append(f.deletedNS, name)
	return nil
}

func (f *fakeCluster) PodsReady(ctx context.Context, namespace string, selector map[string]string, want int) (bool, error) {
	f.calls++
	return !f.notReady[selector[labelComponent]], nil
}

func (f *fakeCluster) ScaleDeployment(ctx context.Context, namespace, name string, replicas int32) error {
	f.calls++
	f.scaled[namespace+"/"+name] = replicas
	return nil
}

func (f *fakeCluster) ListDeployments(ctx context.Context, namespace string) ([]string, error) {
	f.calls++
	return f.deployments[namespace], nil
}

func (f *fakeCluster) CreateSecret(ctx context.Context, namespace, name string, data map[string][]byte) error {
	f.calls++
	f.secrets[namespace+"/"+name] = data
	return nil
}

func (f *fakeCluster) DeleteSecret(ctx context.Context, namespace, name string) error {
	f.calls++
	delete(f.secrets, namespace+"/"+name)
	return nil
}

func (f *fakeCluster) GetIngressHosts(ctx context.Context, namespace, name string) ([]string, error) {
	f.calls++
	return f.ingressHosts[namespace+"/"+name], nil
}

func (f *fakeCluster) ReplaceIngressHosts(ctx context.Context, namespace, name string, hosts []string) error {
	f.calls++
	f.ingressHosts[namespace+"/"+name] = hosts
	return nil
}

// ---- charts ----

type fakeCharts struct {
	calls        int
	installErr   error
	availableErr error
	installed    map[string]*models.DeploymentDescriptor
	uninstalled  []string
}

func newFakeCharts() *fakeCharts {
	return &fakeCharts{installed: map[string]*models.DeploymentDescriptor{}}
}

func (f *fakeCharts) Available(ctx context.Context) error {
	f.calls++
	return f.availableErr
}

func (f *fakeCharts) InstallOrUpgrade(ctx context.Context, release, namespace string, values *models.DeploymentDescriptor, timeout time.Duration) (string, error) {
	f.calls++
	if f.installErr != nil {
		return "", f.installErr
	}
	f.installed[release] = values
	return "Release " + release + " has been upgraded", nil
}

func (f *fakeCharts) Uninstall(ctx context.Context, release, namespace string) error {
	f.calls++
	f.uninstalled = append(f.uninstalled, release)
	return nil
}

func (f *fakeCharts) Status(ctx context.Context, release, namespace string) (string, error) {
	f.calls++
	return "deployed", nil
}

func (f *fakeCharts) List(ctx context.Context, namespace string) ([]string, error) {
	f.calls++
	return nil, nil
}

// ---- shared database provisioner ----

type fakeDBAdmin struct {
	databases    map[string]bool
	provisionErr error
	provisioned  []string
	deleted      []string
}

func newFakeDBAdmin() *fakeDBAdmin {
	return &fakeDBAdmin{databases: map[string]bool{}}
}

func (f *fakeDBAdmin) Provision(ctx context.Context, tenantID string, opts DatabaseOptions) (string, error) {
	if f.provisionErr != nil {
		return "", f.provisionErr
	}
	f.databases[tenantID] = true
	f.provisioned = append(f.provisioned, tenantID)
	return "postgres://shared/tenant_" + tenantID, nil
}

func (f *fakeDBAdmin) Delete(ctx context.Context, tenantID string, opts DatabaseOptions) error {
	delete(f.databases, tenantID)
	f.deleted = append(f.deleted, tenantID)
	return nil
}

func (f *fakeDBAdmin) Exists(ctx context.Context, tenantID string, opts DatabaseOptions) (bool, error) {
	return f.databases[tenantID], nil
}

// ---- proxy ----

type fakeProxy struct {
	tenantHosts map[string]string // tenantID -> forwardHost:port
	domainHosts map[string]string
}

func newFakeProxy() *fakeProxy {
	return &fakeProxy{tenantHosts: map[string]string{}, domainHosts: map[string]string{}}
}

func (f *fakeProxy) EnsureTenantHost(ctx context.Context, tenantID, forwardHost string, forwardPort int) error {
	f.tenantHosts[tenantID] = fmt.Sprintf("%s:%d", forwardHost, forwardPort)
	return nil
}

func (f *fakeProxy) DeleteTenantHost(ctx context.Context, tenantID string) error {
	delete(f.tenantHosts, tenantID)
	return nil
}

func (f *fakeProxy) EnsureCustomDomainHost(ctx context.Context, domain, forwardHost string, forwardPort int) error {
	f.domainHosts[domain] = fmt.Sprintf("%s:%d", forwardHost, forwardPort)
	return nil
}

func (f *fakeProxy) DeleteCustomDomainHost(ctx context.Context, domain string) error {
	delete(f.domainHosts, domain)
	return nil
}

// ---- dns ----

type fakeDNS struct {
	records map[string]string
}

func newFakeDNS() *fakeDNS {
	return &fakeDNS{records: map[string]string{}}
}

func (f *fakeDNS) EnsureCNAME(ctx context.Context, name, target string) error {
	f.records[name] = target
	return nil
}

func (f *fakeDNS) DeleteCNAME(ctx context.Context, name string) error {
	delete(f.records, name)
	return nil
}

func (f *fakeDNS) CNAMEExists(ctx context.Context, name string) (bool, error) {
	_, ok := f.records[name]
	return ok, nil
}

// ---- resolver ----

type fakeResolver struct {
	txt   map[string][]string
	files map[string]string
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{txt: map[string][]string{}, files: map[string]string{}}
}

func (f *fakeResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	values, ok := f.txt[name]
	if !ok {
		return nil, fmt.Errorf("no such host %s", name)
	}
	return values, nil
}

func (f *fakeResolver) FetchFile(ctx context.Context, url string) (string, error) {
	body, ok := f.files[url]
	if !ok {
		return "", fmt.Errorf("404 for %s", url)
	}
	return body, nil
}

// ---- stores ----

type fakeTenantStore struct {
	tenants   map[string]*models.Tenant
	updateErr error
}

func newFakeTenantStore(tenants ...*models.Tenant) *fakeTenantStore {
	s := &fakeTenantStore{tenants: map[string]*models.Tenant{}}
	for _, t := range tenants {
		s.tenants[t.TenantID] = t
	}
	return s
}

func (f *fakeTenantStore) Create(ctx context.Context, t *models.Tenant) error {
	if _, ok := f.tenants[t.TenantID]; ok {
		return fmt.Errorf("tenant %s already exists", t.TenantID)
	}
	f.tenants[t.TenantID] = t
	return nil
}

func (f *fakeTenantStore) GetByTenantID(ctx context.Context, tenantID string) (*models.Tenant, error) {
	t, ok := f.tenants[tenantID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return t, nil
}

func (f *fakeTenantStore) GetByDomain(ctx context.Context, domain string) (*models.Tenant, error) {
	for _, t := range f.tenants {
		if t.CustomDomain != nil && *t.CustomDomain == domain {
			return t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeTenantStore) Update(ctx context.Context, t *models.Tenant) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.tenants[t.TenantID]; !ok {
		return repository.ErrNotFound
	}
	f.tenants[t.TenantID] = t
	return nil
}

func (f *fakeTenantStore) Delete(ctx context.Context, tenantID string) error {
	delete(f.tenants, tenantID)
	return nil
}

func (f *fakeTenantStore) List(ctx context.Context) ([]*models.Tenant, error) {
	out := make([]*models.Tenant, 0, len(f.tenants))
	for _, t := range f.tenants {
		out = append(out, t)
	}
	return out, nil
}

type fakeDomainStore struct {
	records map[string]*models.DomainVerification
}

func newFakeDomainStore() *fakeDomainStore {
	return &fakeDomainStore{records: map[string]*models.DomainVerification{}}
}

func (f *fakeDomainStore) Create(ctx context.Context, v *models.DomainVerification) error {
	f.records[v.Domain] = v
	return nil
}

func (f *fakeDomainStore) GetByDomain(ctx context.Context, domain string) (*models.DomainVerification, error) {
	v, ok := f.records[domain]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return v, nil
}

func (f *fakeDomainStore) Update(ctx context.Context, v *models.DomainVerification) error {
	f.records[v.Domain] = v
	return nil
}

func (f *fakeDomainStore) Delete(ctx context.Context, tenantID, domain string) error {
	delete(f.records, domain)
	return nil
}

// ---- lifecycle log ----

type auditEntry struct {
	tenantID, action, status, message string
}

type fakeLifecycle struct {
	entries []auditEntry
}

func (f *fakeLifecycle) LogAction(ctx context.Context, tenantID, action, status, message string) error {
	f.entries = append(f.entries, auditEntry{tenantID, action, status, message})
	return nil
}
