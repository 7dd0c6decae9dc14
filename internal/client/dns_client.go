package client

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/wenwu/saas-platform/tenant-service/internal/config"
)

// DNSClient manages tenant subdomain CNAME records through the registrar API.
type DNSClient struct {
	http   *resty.Client
	zone   string
	logger *zap.Logger
}

type dnsRecord struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
	Proxied bool   `json:"proxied"`
}

type dnsListResponse struct {
	Result []dnsRecord `json:"result"`
}

// NewDNSClient creates a new registrar DNS client.
func NewDNSClient(cfg config.DNSConfig, logger *zap.Logger) *DNSClient {
	httpClient := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetAuthToken(cfg.APIKey)

	return &DNSClient{http: httpClient, zone: cfg.Zone, logger: logger}
}

// EnsureCNAME creates or updates the CNAME record for a subdomain.
func (d *DNSClient) EnsureCNAME(ctx context.Context, name, target string) error {
	existing, err := d.find(ctx, name)
	if err != nil {
		return err
	}

	record := dnsRecord{Type: "CNAME", Name: name, Content: target, TTL: 300, Proxied: false}

	if existing != nil {
		if existing.Content == target {
			return nil
		}
		resp, err := d.http.R().
			SetContext(ctx).
			SetBody(record).
			Put(fmt.Sprintf("/zones/%s/dns_records/%s", d.zone, existing.ID))
		if err != nil {
			return fmt.Errorf("update cname %s: %w", name, err)
		}
		if resp.IsError() {
			return fmt.Errorf("update cname %s: %s: %s", name, resp.Status(), resp.String())
		}
		return nil
	}

	resp, err := d.http.R().
		SetContext(ctx).
		SetBody(record).
		Post(fmt.Sprintf("/zones/%s/dns_records", d.zone))
	if err != nil {
		return fmt.Errorf("create cname %s: %w", name, err)
	}
	if resp.IsError() {
		return fmt.Errorf("create cname %s: %s: %s", name, resp.Status(), resp.String())
	}

	d.logger.Info("created cname record",
		zap.String("name", name), zap.String("target", target))
	return nil
}

// DeleteCNAME removes the CNAME record for a subdomain if present.
func (d *DNSClient) DeleteCNAME(ctx context.Context, name string) error {
	existing, err := d.find(ctx, name)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}

	resp, err := d.http.R().
		SetContext(ctx).
		Delete(fmt.Sprintf("/zones/%s/dns_records/%s", d.zone, existing.ID))
	if err != nil {
		return fmt.Errorf("delete cname %s: %w", name, err)
	}
	if resp.IsError() {
		return fmt.Errorf("delete cname %s: %s: %s", name, resp.Status(), resp.String())
	}
	return nil
}

// CNAMEExists reports whether a CNAME record exists for the subdomain.
func (d *DNSClient) CNAMEExists(ctx context.Context, name string) (bool, error) {
	existing, err := d.find(ctx, name)
	if err != nil {
		return false, err
	}
	return existing != nil, nil
}

func (d *DNSClient) find(ctx context.Context, name string) (*dnsRecord, error) {
	var result dnsListResponse
	resp, err := d.http.R().
		SetContext(ctx).
		SetQueryParam("type", "CNAME").
		SetQueryParam("name", name).
		SetResult(&result).
		Get(fmt.Sprintf("/zones/%s/dns_records", d.zone))
	if err != nil {
		return nil, fmt.Errorf("list dns records: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list dns records: %s: %s", resp.Status(), resp.String())
	}

	for i := range result.Result {
		if result.Result[i].Name == name {
			return &result.Result[i], nil
		}
	}
	return nil, nil
}
