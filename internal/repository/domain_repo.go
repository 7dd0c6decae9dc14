package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wenwu/saas-platform/tenant-service/internal/models"
)

type DomainRepository struct {
	pool *pgxpool.Pool
}

func NewDomainRepository(pool *pgxpool.Pool) *DomainRepository {
	return &DomainRepository{pool: pool}
}

// Create creates a new domain verification record
func (r *DomainRepository) Create(ctx context.Context, v *models.DomainVerification) error {
	query := `
		INSERT INTO tenancy.domain_verifications (
			id, tenant_id, domain, method, token, verified, expires_at, verified_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		v.ID, v.TenantID, v.Domain, v.Method, v.Token, v.Verified, v.ExpiresAt, v.VerifiedAt,
	)
	if err != nil {
		return fmt.Errorf("insert domain verification: %w", err)
	}

	return nil
}

// GetByDomain retrieves the verification record for a domain
func (r *DomainRepository) GetByDomain(ctx context.Context, domain string) (*models.DomainVerification, error) {
	query := `
		SELECT id, tenant_id, domain, method, token, verified, created_at, expires_at, verified_at
		FROM tenancy.domain_verifications
		WHERE domain = $1
	`

	v := &models.DomainVerification{}
	err := r.pool.QueryRow(ctx, query, domain).Scan(
		&v.ID, &v.TenantID, &v.Domain, &v.Method, &v.Token, &v.Verified,
		&v.CreatedAt, &v.ExpiresAt, &v.VerifiedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan domain verification: %w", err)
	}
	return v, nil
}

// Update updates a domain verification record
func (r *DomainRepository) Update(ctx context.Context, v *models.DomainVerification) error {
	query := `
		UPDATE tenancy.domain_verifications SET
			tenant_id = $1,
			method = $2,
			token = $3,
			verified = $4,
			expires_at = $5,
			verified_at = $6
		WHERE id = $7
	`

	_, err := r.pool.Exec(ctx, query,
		v.TenantID, v.Method, v.Token, v.Verified, v.ExpiresAt, v.VerifiedAt, v.ID,
	)
	if err != nil {
		return fmt.Errorf("update domain verification: %w", err)
	}

	return nil
}

// Delete removes the verification record for a (tenant, domain) pair
func (r *DomainRepository) Delete(ctx context.Context, tenantID, domain string) error {
	query := `DELETE FROM tenancy.domain_verifications WHERE tenant_id = $1 AND domain = $2`
	_, err := r.pool.Exec(ctx, query, tenantID, domain)
	if err != nil {
		return fmt.Errorf("delete domain verification: %w", err)
	}
	return nil
}
