package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"github.com/wenwu/saas-platform/tenant-service/internal/config"
	"github.com/wenwu/saas-platform/tenant-service/internal/models"
	"github.com/wenwu/saas-platform/tenant-service/internal/repository"
)

// DomainService manages custom-domain ownership verification and routing.
type DomainService struct {
	cfg      *config.Config
	tenants  TenantStore
	domains  DomainStore
	cluster  ClusterClient
	proxy    ProxyClient
	resolver DomainResolver
	clock    clock.PassiveClock
	logger   *zap.Logger
}

// NewDomainService creates a new domain verification service.
func NewDomainService(
	cfg *config.Config,
	tenants TenantStore,
	domains DomainStore,
	cluster ClusterClient,
	proxy ProxyClient,
	resolver DomainResolver,
	logger *zap.Logger,
) *DomainService {
	return &DomainService{
		cfg:      cfg,
		tenants:  tenants,
		domains:  domains,
		cluster:  cluster,
		proxy:    proxy,
		resolver: resolver,
		clock:    clock.RealClock{},
		logger:   logger,
	}
}

// WithClock replaces the service clock. Used by tests to control expiry.
func (s *DomainService) WithClock(c clock.PassiveClock) *DomainService {
	s.clock = c
	return s
}

// InitiateVerification issues a challenge for a tenant to prove ownership of
// a domain. Re-initiating for the same tenant rotates the token and resets
// the window; a domain verified by another tenant cannot be claimed.
func (s *DomainService) InitiateVerification(ctx context.Context, tenantID, domain, method string) (*models.VerificationChallenge, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if !ValidDomain(domain) {
		return nil, fmt.Errorf("invalid domain %q", domain)
	}
	if strings.HasSuffix(domain, "."+s.cfg.Platform.BaseDomain) || domain == s.cfg.Platform.BaseDomain {
		return nil, fmt.Errorf("domain %q is on the platform base domain and cannot be claimed", domain)
	}
	if method != models.VerificationMethodDNS && method != models.VerificationMethodFile {
		return nil, fmt.Errorf("unknown verification method %q", method)
	}

	tenant, err := s.tenants.GetByTenantID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load tenant: %w", err)
	}

	if owner, err := s.tenants.GetByDomain(ctx, domain); err == nil && owner.TenantID != tenantID {
		return nil, fmt.Errorf("domain %q is already bound to another tenant", domain)
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check domain binding: %w", err)
	}

	token, err := newVerificationToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	now := s.clock.Now().UTC()
	record := &models.DomainVerification{
		ID:        uuid.New().String(),
		TenantID:  tenant.TenantID,
		Domain:    domain,
		Method:    method,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(models.DefaultVerificationWindow),
	}

	existing, err := s.domains.GetByDomain(ctx, domain)
	switch {
	case err == nil:
		if existing.TenantID != tenantID {
			if existing.Verified {
				return nil, fmt.Errorf("domain %q is already verified by another tenant", domain)
			}
			// Abandoned challenge from another tenant; the new claim wins.
			if err := s.domains.Delete(ctx, existing.TenantID, domain); err != nil {
				return nil, fmt.Errorf("replace stale challenge: %w", err)
			}
			if err := s.domains.Create(ctx, record); err != nil {
				return nil, fmt.Errorf("store challenge: %w", err)
			}
		} else {
			record.ID = existing.ID
			if err := s.domains.Update(ctx, record); err != nil {
				return nil, fmt.Errorf("rotate challenge: %w", err)
			}
		}
	case errors.Is(err, repository.ErrNotFound):
		if err := s.domains.Create(ctx, record); err != nil {
			return nil, fmt.Errorf("store challenge: %w", err)
		}
	default:
		return nil, fmt.Errorf("load challenge: %w", err)
	}

	s.logger.Info("domain verification initiated",
		zap.String("tenant_id", tenantID),
		zap.String("domain", domain),
		zap.String("method", method),
	)

	return &models.VerificationChallenge{
		Domain:             domain,
		VerificationToken:  token,
		VerificationMethod: method,
		ExpiresAt:          record.ExpiresAt,
		Instructions:       s.instructions(record),
	}, nil
}

// Verify checks the published challenge and, on success, activates routing
// for the domain. Failed checks never mutate state, so Verify can be polled.
// Verifying an already verified domain returns success without re-checking.
func (s *DomainService) Verify(ctx context.Context, tenantID, domain string) (*models.VerificationCheck, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))

	record, err := s.domains.GetByDomain(ctx, domain)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("no verification in progress for %q", domain)
		}
		return nil, fmt.Errorf("load challenge: %w", err)
	}
	if record.TenantID != tenantID {
		return nil, fmt.Errorf("verification for %q belongs to another tenant", domain)
	}

	if record.Verified {
		return &models.VerificationCheck{
			Domain:     domain,
			Outcome:    models.OutcomeVerified,
			IsVerified: true,
			VerifiedAt: record.VerifiedAt,
			Message:    "domain is already verified",
		}, nil
	}

	if record.Expired(s.clock.Now()) {
		inst := s.instructions(record)
		return &models.VerificationCheck{
			Domain:       domain,
			Outcome:      models.OutcomeExpired,
			Message:      "the verification window has closed; initiate a new verification",
			Instructions: &inst,
		}, nil
	}

	outcome, detail := s.checkChallenge(ctx, record)
	if outcome != models.OutcomeVerified {
		inst := s.instructions(record)
		return &models.VerificationCheck{
			Domain:       domain,
			Outcome:      outcome,
			Message:      detail,
			Instructions: &inst,
		}, nil
	}

	if err := s.activate(ctx, record); err != nil {
		return nil, err
	}

	return &models.VerificationCheck{
		Domain:     domain,
		Outcome:    models.OutcomeVerified,
		IsVerified: true,
		VerifiedAt: record.VerifiedAt,
		Message:    "domain verified and routing configured",
	}, nil
}

// Status reports the current verification state without performing lookups.
func (s *DomainService) Status(ctx context.Context, tenantID, domain string) (*models.VerificationCheck, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))

	record, err := s.domains.GetByDomain(ctx, domain)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("no verification in progress for %q", domain)
		}
		return nil, fmt.Errorf("load challenge: %w", err)
	}
	if record.TenantID != tenantID {
		return nil, fmt.Errorf("verification for %q belongs to another tenant", domain)
	}

	check := &models.VerificationCheck{Domain: domain}
	switch {
	case record.Verified:
		check.Outcome = models.OutcomeVerified
		check.IsVerified = true
		check.VerifiedAt = record.VerifiedAt
	case record.Expired(s.clock.Now()):
		check.Outcome = models.OutcomeExpired
		check.Message = "the verification window has closed; initiate a new verification"
	default:
		inst := s.instructions(record)
		check.Outcome = models.OutcomeNotFound
		check.Message = "verification pending"
		check.Instructions = &inst
	}
	return check, nil
}

// Remove detaches a custom domain from its tenant and tears down its routing.
func (s *DomainService) Remove(ctx context.Context, tenantID, domain string) error {
	domain = strings.ToLower(strings.TrimSpace(domain))

	tenant, err := s.tenants.GetByTenantID(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("load tenant: %w", err)
	}

	// Ownership is established before any routing is torn down.
	record, err := s.domains.GetByDomain(ctx, domain)
	switch {
	case err == nil:
		if record.TenantID != tenantID {
			return fmt.Errorf("verification for %q belongs to another tenant", domain)
		}
	case errors.Is(err, repository.ErrNotFound):
		if tenant.CustomDomain == nil || *tenant.CustomDomain != domain {
			return fmt.Errorf("domain %q is not attached to tenant %s", domain, tenantID)
		}
	default:
		return fmt.Errorf("load challenge: %w", err)
	}

	if err := s.proxy.DeleteCustomDomainHost(ctx, domain); err != nil {
		s.logger.Warn("failed to delete custom domain proxy host",
			zap.String("domain", domain), zap.Error(err))
	}

	if tenant.Namespace != s.cfg.Platform.SharedNamespace {
		if err := s.removeIngressHost(ctx, tenant, domain); err != nil {
			s.logger.Warn("failed to remove ingress host",
				zap.String("domain", domain), zap.Error(err))
		}
	}

	if tenant.CustomDomain != nil && *tenant.CustomDomain == domain {
		tenant.CustomDomain = nil
		tenant.DomainVerified = false
		tenant.UpdatedAt = time.Now().UTC()
		if err := s.tenants.Update(ctx, tenant); err != nil {
			return fmt.Errorf("update tenant record: %w", err)
		}
	}

	if err := s.domains.Delete(ctx, tenantID, domain); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("delete verification record: %w", err)
	}

	s.logger.Info("custom domain removed",
		zap.String("tenant_id", tenantID), zap.String("domain", domain))
	return nil
}

func (s *DomainService) checkChallenge(ctx context.Context, record *models.DomainVerification) (string, string) {
	switch record.Method {
	case models.VerificationMethodDNS:
		return s.checkDNS(ctx, record)
	case models.VerificationMethodFile:
		return s.checkFile(ctx, record)
	default:
		return models.OutcomeNotFound, fmt.Sprintf("unknown verification method %q", record.Method)
	}
}

func (s *DomainService) checkDNS(ctx context.Context, record *models.DomainVerification) (string, string) {
	host := s.challengeHost(record.Domain)
	values, err := s.resolver.LookupTXT(ctx, host)
	if err != nil || len(values) == 0 {
		return models.OutcomeNotFound, fmt.Sprintf("no TXT record found at %s", host)
	}

	expected := s.cfg.Platform.ProductSlug + "-verification=" + record.Token
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == record.Token || v == expected {
			return models.OutcomeVerified, ""
		}
	}
	return models.OutcomeMismatch, fmt.Sprintf("TXT record at %s does not match the verification token", host)
}

func (s *DomainService) checkFile(ctx context.Context, record *models.DomainVerification) (string, string) {
	url := fmt.Sprintf("https://%s%s", record.Domain, s.challengePath())
	body, err := s.resolver.FetchFile(ctx, url)
	if err != nil {
		return models.OutcomeNotFound, fmt.Sprintf("could not fetch %s", url)
	}
	if strings.TrimSpace(body) != record.Token {
		return models.OutcomeMismatch, fmt.Sprintf("content of %s does not match the verification token", url)
	}
	return models.OutcomeVerified, ""
}

// activate marks the challenge verified and wires routing: the tenant record
// gains the domain, the tenant ingress serves it, and the edge proxy routes
// it with certificate issuance.
func (s *DomainService) activate(ctx context.Context, record *models.DomainVerification) error {
	tenant, err := s.tenants.GetByTenantID(ctx, record.TenantID)
	if err != nil {
		return fmt.Errorf("load tenant: %w", err)
	}

	now := s.clock.Now().UTC()
	record.Verified = true
	record.VerifiedAt = &now
	if err := s.domains.Update(ctx, record); err != nil {
		return fmt.Errorf("mark challenge verified: %w", err)
	}

	tenant.CustomDomain = &record.Domain
	tenant.DomainVerified = true
	tenant.UpdatedAt = time.Now().UTC()
	if err := s.tenants.Update(ctx, tenant); err != nil {
		return fmt.Errorf("update tenant record: %w", err)
	}

	if tenant.Namespace != s.cfg.Platform.SharedNamespace {
		if err := s.addIngressHost(ctx, tenant, record.Domain); err != nil {
			return fmt.Errorf("add ingress host: %w", err)
		}
	}

	forwardHost, forwardPort := s.forwardTarget(tenant)
	if err := s.proxy.EnsureCustomDomainHost(ctx, record.Domain, forwardHost, forwardPort); err != nil {
		return fmt.Errorf("create proxy host: %w", err)
	}

	s.logger.Info("custom domain verified",
		zap.String("tenant_id", record.TenantID),
		zap.String("domain", record.Domain),
		zap.String("method", record.Method),
	)
	return nil
}

func (s *DomainService) addIngressHost(ctx context.Context, tenant *models.Tenant, domain string) error {
	name := tenant.TenantID + "-web"
	hosts, err := s.cluster.GetIngressHosts(ctx, tenant.Namespace, name)
	if err != nil {
		return err
	}
	for _, h := range hosts {
		if h == domain {
			return nil
		}
	}
	return s.cluster.ReplaceIngressHosts(ctx, tenant.Namespace, name, append(hosts, domain))
}

func (s *DomainService) removeIngressHost(ctx context.Context, tenant *models.Tenant, domain string) error {
	name := tenant.TenantID + "-web"
	hosts, err := s.cluster.GetIngressHosts(ctx, tenant.Namespace, name)
	if err != nil {
		return err
	}
	kept := hosts[:0]
	for _, h := range hosts {
		if h != domain {
			kept = append(kept, h)
		}
	}
	if len(kept) == len(hosts) {
		return nil
	}
	return s.cluster.ReplaceIngressHosts(ctx, tenant.Namespace, name, kept)
}

func (s *DomainService) forwardTarget(tenant *models.Tenant) (string, int) {
	if tenant.Namespace == s.cfg.Platform.SharedNamespace {
		return s.cfg.Platform.SharedForwardHost, s.cfg.Platform.SharedForwardPort
	}
	return fmt.Sprintf("%s-web.%s.svc", tenant.TenantID, tenant.Namespace), s.cfg.Platform.DedicatedForwardPort
}

func (s *DomainService) challengeHost(domain string) string {
	return fmt.Sprintf("_%s-verify.%s", s.cfg.Platform.ProductSlug, domain)
}

func (s *DomainService) challengePath() string {
	return fmt.Sprintf("/.well-known/%s-verification.txt", s.cfg.Platform.ProductSlug)
}

func (s *DomainService) instructions(record *models.DomainVerification) models.VerificationInstructions {
	inst := models.VerificationInstructions{Method: record.Method}
	switch record.Method {
	case models.VerificationMethodDNS:
		inst.DNSHost = s.challengeHost(record.Domain)
		inst.DNSValue = s.cfg.Platform.ProductSlug + "-verification=" + record.Token
	case models.VerificationMethodFile:
		inst.FilePath = s.challengePath()
		inst.FileContent = record.Token
	}
	return inst
}

func newVerificationToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
