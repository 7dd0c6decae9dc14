package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/wenwu/saas-platform/tenant-service/internal/config"
)

// ProxyClient manages routing hosts on the edge reverse proxy. The proxy API
// issues short-lived bearer tokens from an identity/secret pair.
type ProxyClient struct {
	http       *resty.Client
	identity   string
	secret     string
	baseDomain string
	logger     *zap.Logger

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

type proxyTokenResponse struct {
	Token   string `json:"token"`
	Expires string `json:"expires"`
}

type proxyHost struct {
	ID            int      `json:"id,omitempty"`
	DomainNames   []string `json:"domain_names"`
	ForwardScheme string   `json:"forward_scheme"`
	ForwardHost   string   `json:"forward_host"`
	ForwardPort   int      `json:"forward_port"`
	CertificateID any      `json:"certificate_id,omitempty"`
	SSLForced     bool     `json:"ssl_forced"`
	BlockExploits bool     `json:"block_exploits"`
}

// NewProxyClient creates a new proxy client.
func NewProxyClient(cfg config.ProxyConfig, baseDomain string, logger *zap.Logger) *ProxyClient {
	httpClient := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(30 * time.Second).
		SetRetryCount(2)

	return &ProxyClient{
		http:       httpClient,
		identity:   cfg.Identity,
		secret:     cfg.Secret,
		baseDomain: baseDomain,
		logger:     logger,
	}
}

// EnsureTenantHost creates or re-points the routing host for a tenant's
// platform subdomain.
func (p *ProxyClient) EnsureTenantHost(ctx context.Context, tenantID, forwardHost string, forwardPort int) error {
	return p.ensureHost(ctx, fmt.Sprintf("%s.%s", tenantID, p.baseDomain), forwardHost, forwardPort)
}

// DeleteTenantHost removes a tenant's subdomain routing host.
func (p *ProxyClient) DeleteTenantHost(ctx context.Context, tenantID string) error {
	return p.deleteHost(ctx, fmt.Sprintf("%s.%s", tenantID, p.baseDomain))
}

// EnsureCustomDomainHost creates or re-points the routing host for a verified
// custom domain. Certificate issuance is requested on creation.
func (p *ProxyClient) EnsureCustomDomainHost(ctx context.Context, domain, forwardHost string, forwardPort int) error {
	return p.ensureHost(ctx, domain, forwardHost, forwardPort)
}

// DeleteCustomDomainHost removes a custom domain's routing host.
func (p *ProxyClient) DeleteCustomDomainHost(ctx context.Context, domain string) error {
	return p.deleteHost(ctx, domain)
}

func (p *ProxyClient) ensureHost(ctx context.Context, domain, forwardHost string, forwardPort int) error {
	token, err := p.authToken(ctx)
	if err != nil {
		return err
	}

	existing, err := p.findHost(ctx, token, domain)
	if err != nil {
		return err
	}

	body := proxyHost{
		DomainNames:   []string{domain},
		ForwardScheme: "http",
		ForwardHost:   forwardHost,
		ForwardPort:   forwardPort,
		CertificateID: "new",
		SSLForced:     true,
		BlockExploits: true,
	}

	if existing != nil {
		// Keep the issued certificate when re-pointing.
		body.CertificateID = existing.CertificateID
		resp, err := p.http.R().
			SetContext(ctx).
			SetAuthToken(token).
			SetBody(body).
			Put(fmt.Sprintf("/api/nginx/proxy-hosts/%d", existing.ID))
		if err != nil {
			return fmt.Errorf("update proxy host %s: %w", domain, err)
		}
		if resp.IsError() {
			return fmt.Errorf("update proxy host %s: %s: %s", domain, resp.Status(), resp.String())
		}
		p.logger.Info("re-pointed proxy host",
			zap.String("domain", domain), zap.String("forward_host", forwardHost))
		return nil
	}

	resp, err := p.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(body).
		Post("/api/nginx/proxy-hosts")
	if err != nil {
		return fmt.Errorf("create proxy host %s: %w", domain, err)
	}
	if resp.IsError() {
		return fmt.Errorf("create proxy host %s: %s: %s", domain, resp.Status(), resp.String())
	}

	p.logger.Info("created proxy host",
		zap.String("domain", domain), zap.String("forward_host", forwardHost))
	return nil
}

func (p *ProxyClient) deleteHost(ctx context.Context, domain string) error {
	token, err := p.authToken(ctx)
	if err != nil {
		return err
	}

	existing, err := p.findHost(ctx, token, domain)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}

	resp, err := p.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		Delete(fmt.Sprintf("/api/nginx/proxy-hosts/%d", existing.ID))
	if err != nil {
		return fmt.Errorf("delete proxy host %s: %w", domain, err)
	}
	if resp.IsError() {
		return fmt.Errorf("delete proxy host %s: %s: %s", domain, resp.Status(), resp.String())
	}
	return nil
}

func (p *ProxyClient) findHost(ctx context.Context, token, domain string) (*proxyHost, error) {
	var hosts []proxyHost
	resp, err := p.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&hosts).
		Get("/api/nginx/proxy-hosts")
	if err != nil {
		return nil, fmt.Errorf("list proxy hosts: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list proxy hosts: %s: %s", resp.Status(), resp.String())
	}

	for i := range hosts {
		for _, d := range hosts[i].DomainNames {
			if d == domain {
				return &hosts[i], nil
			}
		}
	}
	return nil, nil
}

func (p *ProxyClient) authToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && time.Now().Before(p.tokenExp) {
		return p.token, nil
	}

	var result proxyTokenResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"identity": p.identity, "secret": p.secret}).
		SetResult(&result).
		Post("/api/tokens")
	if err != nil {
		return "", fmt.Errorf("proxy auth: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("proxy auth: %s: %s", resp.Status(), resp.String())
	}
	if result.Token == "" {
		return "", fmt.Errorf("proxy auth: empty token in response")
	}

	p.token = result.Token
	p.tokenExp = time.Now().Add(50 * time.Minute)
	return p.token, nil
}
