package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wenwu/saas-platform/tenant-service/internal/models"
)

var ErrNotFound = errors.New("not found")

type TenantRepository struct {
	pool *pgxpool.Pool
}

func NewTenantRepository(pool *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{pool: pool}
}

// Create creates a new tenant
func (r *TenantRepository) Create(ctx context.Context, t *models.Tenant) error {
	query := `
		INSERT INTO tenancy.tenants (
			id, tenant_id, company_name, owner_email, owner_name, tier, status,
			namespace, db_connection_string, custom_domain, domain_verified,
			billing_customer_id, billing_subscription_id, metadata, trial_ends_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
	`

	_, err := r.pool.Exec(ctx, query,
		t.ID, t.TenantID, t.CompanyName, t.OwnerEmail, t.OwnerName, t.Tier, t.Status,
		t.Namespace, t.DBConnectionString, t.CustomDomain, t.DomainVerified,
		t.BillingCustomerID, t.BillingSubscriptionID, t.Metadata, t.TrialEndsAt,
	)
	if err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}

	return nil
}

// GetByTenantID retrieves a tenant by its slug
func (r *TenantRepository) GetByTenantID(ctx context.Context, tenantID string) (*models.Tenant, error) {
	query := `
		SELECT id, tenant_id, company_name, owner_email, owner_name, tier, status,
			   namespace, db_connection_string, custom_domain, domain_verified,
			   billing_customer_id, billing_subscription_id, metadata,
			   created_at, updated_at, trial_ends_at
		FROM tenancy.tenants
		WHERE tenant_id = $1
	`

	return r.scanTenant(r.pool.QueryRow(ctx, query, tenantID))
}

// GetByDomain retrieves the tenant bound to a custom domain
func (r *TenantRepository) GetByDomain(ctx context.Context, domain string) (*models.Tenant, error) {
	query := `
		SELECT id, tenant_id, company_name, owner_email, owner_name, tier, status,
			   namespace, db_connection_string, custom_domain, domain_verified,
			   billing_customer_id, billing_subscription_id, metadata,
			   created_at, updated_at, trial_ends_at
		FROM tenancy.tenants
		WHERE custom_domain = $1
	`

	return r.scanTenant(r.pool.QueryRow(ctx, query, domain))
}

// List retrieves all tenants
func (r *TenantRepository) List(ctx context.Context) ([]*models.Tenant, error) {
	query := `
		SELECT id, tenant_id, company_name, owner_email, owner_name, tier, status,
			   namespace, db_connection_string, custom_domain, domain_verified,
			   billing_customer_id, billing_subscription_id, metadata,
			   created_at, updated_at, trial_ends_at
		FROM tenancy.tenants
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		t, err := r.scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}

	return tenants, rows.Err()
}

// Update updates a tenant
func (r *TenantRepository) Update(ctx context.Context, t *models.Tenant) error {
	query := `
		UPDATE tenancy.tenants SET
			company_name = $1,
			owner_email = $2,
			owner_name = $3,
			tier = $4,
			status = $5,
			namespace = $6,
			db_connection_string = $7,
			custom_domain = $8,
			domain_verified = $9,
			billing_customer_id = $10,
			billing_subscription_id = $11,
			metadata = $12,
			trial_ends_at = $13,
			updated_at = NOW()
		WHERE tenant_id = $14
	`

	_, err := r.pool.Exec(ctx, query,
		t.CompanyName, t.OwnerEmail, t.OwnerName, t.Tier, t.Status,
		t.Namespace, t.DBConnectionString, t.CustomDomain, t.DomainVerified,
		t.BillingCustomerID, t.BillingSubscriptionID, t.Metadata, t.TrialEndsAt,
		t.TenantID,
	)
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}

	return nil
}

// Delete removes a tenant row
func (r *TenantRepository) Delete(ctx context.Context, tenantID string) error {
	query := `DELETE FROM tenancy.tenants WHERE tenant_id = $1`
	_, err := r.pool.Exec(ctx, query, tenantID)
	if err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}
	return nil
}

func (r *TenantRepository) scanTenant(row pgx.Row) (*models.Tenant, error) {
	t := &models.Tenant{}
	err := row.Scan(
		&t.ID, &t.TenantID, &t.CompanyName, &t.OwnerEmail, &t.OwnerName, &t.Tier, &t.Status,
		&t.Namespace, &t.DBConnectionString, &t.CustomDomain, &t.DomainVerified,
		&t.BillingCustomerID, &t.BillingSubscriptionID, &t.Metadata,
		&t.CreatedAt, &t.UpdatedAt, &t.TrialEndsAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan tenant: %w", err)
	}
	return t, nil
}
