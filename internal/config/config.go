package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Insecure default secrets that must never reach production.
var insecureDefaults = map[string]bool{
	"your-secret-key-change-in-production": true,
	"internal-secret":                      true,
	"internal-service-secret":              true,
	"changeme":                             true,
	"":                                     true,
}

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	SharedDatabase SharedDatabaseConfig
	Platform       PlatformConfig
	Registry       RegistryConfig
	Helm           HelmConfig
	Proxy          ProxyConfig
	DNS            DNSConfig
	JWT            JWTConfig
	InternalSecret string
}

type ServerConfig struct {
	Port string
	Mode string
}

// DatabaseConfig is the control-plane database holding tenant records.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	Schema   string
	SSLMode  string
}

// SharedDatabaseConfig is the shared PostgreSQL cluster hosting shared-mode
// tenant databases, and the template each tenant database is cloned from.
type SharedDatabaseConfig struct {
	Host          string
	Port          int
	AdminUser     string
	AdminPassword string
	TemplateDB    string
	SSLMode       string
}

// PlatformConfig carries tenant-facing naming and routing settings.
type PlatformConfig struct {
	BaseDomain           string // tenant subdomains live under this zone
	ProductSlug          string // used in verification TXT names and file paths
	DefaultAdminUser     string
	DefaultAdminPassword string
	SharedNamespace      string // namespace of the shared multiplexed deployment
	SharedForwardHost    string
	SharedForwardPort    int
	DedicatedForwardPort int
}

type RegistryConfig struct {
	Server   string
	APIImage string
	WebImage string
	Tag      string
}

type HelmConfig struct {
	Binary          string
	Chart           string
	DeployTimeout   time.Duration
	DatabaseTimeout time.Duration
	WorkloadTimeout time.Duration
	PollInterval    time.Duration
}

type ProxyConfig struct {
	URL      string
	Identity string
	Secret   string
}

type DNSConfig struct {
	URL    string
	APIKey string
	Zone   string
	Target string // CNAME target for tenant subdomains (the proxy edge)
}

type JWTConfig struct {
	SecretKey string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8006"),
			Mode: getEnv("GIN_MODE", "release"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "saas_user"),
			Password: getEnv("DB_PASSWORD", "saas_pass"),
			DBName:   getEnv("DB_NAME", "saas_db"),
			Schema:   getEnv("DB_SCHEMA", "tenancy"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		SharedDatabase: SharedDatabaseConfig{
			Host:          getEnv("SHARED_DB_HOST", "shared-db.garagehub-shared.svc"),
			Port:          getEnvInt("SHARED_DB_PORT", 5432),
			AdminUser:     getEnv("SHARED_DB_ADMIN_USER", "postgres"),
			AdminPassword: getEnv("SHARED_DB_ADMIN_PASSWORD", ""),
			TemplateDB:    getEnv("SHARED_DB_TEMPLATE", "garagehub_template"),
			SSLMode:       getEnv("SHARED_DB_SSLMODE", "disable"),
		},
		Platform: PlatformConfig{
			BaseDomain:           getEnv("BASE_DOMAIN", "garagehub.app"),
			ProductSlug:          getEnv("PRODUCT_SLUG", "garagehub"),
			DefaultAdminUser:     getEnv("TENANT_ADMIN_USER", "admin"),
			DefaultAdminPassword: getEnv("TENANT_ADMIN_PASSWORD", ""),
			SharedNamespace:      getEnv("SHARED_NAMESPACE", "garagehub-shared"),
			SharedForwardHost:    getEnv("SHARED_FORWARD_HOST", "garagehub-shared-api.garagehub-shared.svc"),
			SharedForwardPort:    getEnvInt("SHARED_FORWARD_PORT", 8080),
			DedicatedForwardPort: getEnvInt("DEDICATED_FORWARD_PORT", 8080),
		},
		Registry: RegistryConfig{
			Server:   getEnv("REGISTRY_SERVER", "registry.garagehub.app"),
			APIImage: getEnv("REGISTRY_API_IMAGE", "garagehub/api"),
			WebImage: getEnv("REGISTRY_WEB_IMAGE", "garagehub/web"),
			Tag:      getEnv("REGISTRY_TAG", "stable"),
		},
		Helm: HelmConfig{
			Binary:          getEnv("HELM_BINARY", "helm"),
			Chart:           getEnv("HELM_CHART", "oci://registry.garagehub.app/charts/garagehub-tenant"),
			DeployTimeout:   getEnvDuration("HELM_DEPLOY_TIMEOUT", 5*time.Minute),
			DatabaseTimeout: getEnvDuration("DATABASE_READY_TIMEOUT", 10*time.Minute),
			WorkloadTimeout: getEnvDuration("WORKLOAD_READY_TIMEOUT", 5*time.Minute),
			PollInterval:    getEnvDuration("READINESS_POLL_INTERVAL", 5*time.Second),
		},
		Proxy: ProxyConfig{
			URL:      getEnv("PROXY_API_URL", "http://proxy-manager.garagehub-system.svc:81"),
			Identity: getEnv("PROXY_API_IDENTITY", ""),
			Secret:   getEnv("PROXY_API_SECRET", ""),
		},
		DNS: DNSConfig{
			URL:    getEnv("DNS_API_URL", ""),
			APIKey: getEnv("DNS_API_KEY", ""),
			Zone:   getEnv("DNS_ZONE", "garagehub.app"),
			Target: getEnv("DNS_CNAME_TARGET", "edge.garagehub.app"),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET_KEY", ""),
		},
		InternalSecret: getEnv("INTERNAL_SECRET", ""),
	}
}

// Validate rejects insecure secrets. Production deployments must set all of
// these explicitly.
func (c *Config) Validate() error {
	if insecureDefaults[c.JWT.SecretKey] {
		return fmt.Errorf("JWT_SECRET_KEY must be set to a secure value (current value is insecure or empty)")
	}
	if len(c.JWT.SecretKey) < 32 {
		return fmt.Errorf("JWT_SECRET_KEY must be at least 32 characters long")
	}
	if insecureDefaults[c.InternalSecret] {
		return fmt.Errorf("INTERNAL_SECRET must be set to a secure value (current value is insecure or empty)")
	}
	if len(c.InternalSecret) < 32 {
		return fmt.Errorf("INTERNAL_SECRET must be at least 32 characters long")
	}
	if c.Platform.DefaultAdminPassword == "" {
		return fmt.Errorf("TENANT_ADMIN_PASSWORD must be set")
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
