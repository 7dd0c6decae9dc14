package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/wenwu/saas-platform/tenant-service/internal/client"
	"github.com/wenwu/saas-platform/tenant-service/internal/config"
	"github.com/wenwu/saas-platform/tenant-service/internal/db"
	"github.com/wenwu/saas-platform/tenant-service/internal/http"
	"github.com/wenwu/saas-platform/tenant-service/internal/poll"
	"github.com/wenwu/saas-platform/tenant-service/internal/repository"
	"github.com/wenwu/saas-platform/tenant-service/internal/service"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting tenant service")

	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	// Initialize control-plane database
	database, err := db.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	// Initialize repositories
	tenantRepo := repository.NewTenantRepository(database.Pool)
	domainRepo := repository.NewDomainRepository(database.Pool)
	logRepo := repository.NewLogRepository(database.Pool)

	// Initialize clients
	kubeClient, err := client.NewKubeClient(logger)
	if err != nil {
		logger.Fatal("failed to create cluster client", zap.Error(err))
	}

	helmClient := client.NewHelmClient(cfg.Helm.Binary, cfg.Helm.Chart, logger)
	dbAdminClient := client.NewDBAdminClient(cfg.SharedDatabase, cfg.Platform, logger)
	proxyClient := client.NewProxyClient(cfg.Proxy, cfg.Platform.BaseDomain, logger)
	dnsClient := client.NewDNSClient(cfg.DNS, logger)
	resolver := client.NewResolver()

	// Initialize services
	poller := poll.New(cfg.Helm.PollInterval)

	provisionService := service.NewProvisionService(
		cfg,
		tenantRepo,
		logRepo,
		kubeClient,
		helmClient,
		proxyClient,
		dnsClient,
		poller,
		logger,
	)

	migrationService := service.NewMigrationService(
		cfg,
		tenantRepo,
		logRepo,
		kubeClient,
		dbAdminClient,
		proxyClient,
		provisionService,
		logger,
	)

	domainService := service.NewDomainService(
		cfg,
		tenantRepo,
		domainRepo,
		kubeClient,
		proxyClient,
		resolver,
		logger,
	)

	tenantService := service.NewTenantService(
		cfg,
		tenantRepo,
		logRepo,
		kubeClient,
		helmClient,
		dbAdminClient,
		proxyClient,
		dnsClient,
		logger,
	)

	// Initialize HTTP server
	handler := http.NewHandler(provisionService, migrationService, domainService, tenantService, logRepo)
	server := http.NewServer(cfg, handler)

	// Start server in goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("server listening", zap.String("addr", addr))
		if err := server.Run(addr); err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
}
