package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/wenwu/saas-platform/tenant-service/internal/config"
	"github.com/wenwu/saas-platform/tenant-service/internal/service"
)

const connectRetries = 4

// DBAdminClient provisions per-tenant databases by cloning the product
// template database. The zero DatabaseOptions target the configured shared
// cluster; dedicated provisioning passes the in-namespace host instead.
type DBAdminClient struct {
	shared   config.SharedDatabaseConfig
	platform config.PlatformConfig
	logger   *zap.Logger
}

// NewDBAdminClient creates a new database provisioner.
func NewDBAdminClient(shared config.SharedDatabaseConfig, platform config.PlatformConfig, logger *zap.Logger) *DBAdminClient {
	return &DBAdminClient{shared: shared, platform: platform, logger: logger}
}

// DatabaseName maps a tenant identifier to its database name.
func DatabaseName(tenantID string) string {
	return "tenant_" + strings.ReplaceAll(tenantID, "-", "_")
}

// Provision clones the template database for a tenant and seeds its admin
// account. Provisioning an existing database only returns its connection
// string.
func (d *DBAdminClient) Provision(ctx context.Context, tenantID string, opts service.DatabaseOptions) (string, error) {
	host, port := d.target(opts)
	dbName := DatabaseName(tenantID)

	conn, err := d.connect(ctx, host, port, "postgres")
	if err != nil {
		return "", err
	}
	defer conn.Close(ctx)

	exists, err := databaseExists(ctx, conn, dbName)
	if err != nil {
		return "", err
	}
	if !exists {
		// Template clones require no other connections to the template.
		query := fmt.Sprintf("CREATE DATABASE %s TEMPLATE %s",
			pgx.Identifier{dbName}.Sanitize(), pgx.Identifier{d.shared.TemplateDB}.Sanitize())
		if _, err := conn.Exec(ctx, query); err != nil {
			return "", fmt.Errorf("create database %s: %w", dbName, err)
		}
		d.logger.Info("created tenant database",
			zap.String("tenant_id", tenantID), zap.String("database", dbName), zap.String("host", host))

		if err := d.seedAdmin(ctx, host, port, dbName, opts); err != nil {
			return "", err
		}
	}

	return d.connectionString(host, port, dbName), nil
}

// Delete drops a tenant database, severing live connections first.
func (d *DBAdminClient) Delete(ctx context.Context, tenantID string, opts service.DatabaseOptions) error {
	host, port := d.target(opts)
	dbName := DatabaseName(tenantID)

	conn, err := d.connect(ctx, host, port, "postgres")
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	query := fmt.Sprintf("DROP DATABASE IF EXISTS %s WITH (FORCE)", pgx.Identifier{dbName}.Sanitize())
	if _, err := conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("drop database %s: %w", dbName, err)
	}

	d.logger.Info("dropped tenant database",
		zap.String("tenant_id", tenantID), zap.String("database", dbName), zap.String("host", host))
	return nil
}

// Exists reports whether the tenant database exists.
func (d *DBAdminClient) Exists(ctx context.Context, tenantID string, opts service.DatabaseOptions) (bool, error) {
	host, port := d.target(opts)

	conn, err := d.connect(ctx, host, port, "postgres")
	if err != nil {
		return false, err
	}
	defer conn.Close(ctx)

	return databaseExists(ctx, conn, DatabaseName(tenantID))
}

// seedAdmin rewrites the template's placeholder admin account with the tenant
// owner's identity and a fresh password hash.
func (d *DBAdminClient) seedAdmin(ctx context.Context, host string, port int, dbName string, opts service.DatabaseOptions) error {
	conn, err := d.connect(ctx, host, port, dbName)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	hash, err := bcrypt.GenerateFromPassword([]byte(d.platform.DefaultAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	query := `UPDATE users SET email = $1, name = $2, password_hash = $3, updated_at = NOW() WHERE username = $4`
	tag, err := conn.Exec(ctx, query, opts.OwnerEmail, opts.OwnerName, string(hash), d.platform.DefaultAdminUser)
	if err != nil {
		return fmt.Errorf("seed admin account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("template database %s has no %s account to seed", dbName, d.platform.DefaultAdminUser)
	}
	return nil
}

// connect dials with retry; fresh in-namespace databases take a few seconds
// to accept connections after the pod reports ready.
func (d *DBAdminClient) connect(ctx context.Context, host string, port int, dbName string) (*pgx.Conn, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.shared.AdminUser, d.shared.AdminPassword, host, port, dbName, d.shared.SSLMode)

	var conn *pgx.Conn
	operation := func() error {
		var err error
		conn, err = pgx.Connect(ctx, dsn)
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), connectRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("connect to %s:%d/%s: %w", host, port, dbName, err)
	}
	return conn, nil
}

func (d *DBAdminClient) target(opts service.DatabaseOptions) (string, int) {
	if opts.Host != "" {
		return opts.Host, opts.Port
	}
	return d.shared.Host, d.shared.Port
}

func (d *DBAdminClient) connectionString(host string, port int, dbName string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.shared.AdminUser, d.shared.AdminPassword, host, port, dbName, d.shared.SSLMode)
}

func databaseExists(ctx context.Context, conn *pgx.Conn, dbName string) (bool, error) {
	var exists bool
	err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, dbName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check database %s: %w", dbName, err)
	}
	return exists, nil
}
