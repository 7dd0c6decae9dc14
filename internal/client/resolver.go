package client

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/go-resty/resty/v2"
)

// Resolver performs the outbound lookups used by domain verification: TXT
// queries against live DNS and HTTPS fetches of the challenge file.
type Resolver struct {
	dns  *net.Resolver
	http *resty.Client
}

// NewResolver creates a resolver using the system DNS configuration.
func NewResolver() *Resolver {
	return &Resolver{
		dns: net.DefaultResolver,
		http: resty.New().
			SetTimeout(10 * time.Second).
			SetRedirectPolicy(resty.FlexibleRedirectPolicy(3)),
	}
}

// LookupTXT returns the TXT record values published at name.
func (r *Resolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	values, err := r.dns.LookupTXT(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("lookup txt %s: %w", name, err)
	}
	return values, nil
}

// FetchFile retrieves the challenge file body from url.
func (r *Resolver) FetchFile(ctx context.Context, url string) (string, error) {
	resp, err := r.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("fetch %s: %s", url, resp.Status())
	}
	return resp.String(), nil
}
