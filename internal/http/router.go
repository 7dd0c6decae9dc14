package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wenwu/saas-platform/tenant-service/internal/config"
)

type Server struct {
	router  *gin.Engine
	handler *Handler
	cfg     *config.Config
}

// Console API rate limit: 30 requests per user per minute.
var consoleRateLimiter = NewRateLimiter(30, time.Minute)

// Verification attempts hit live DNS and HTTP; keep them bounded per user.
var verifyRateLimiter = NewRateLimiter(10, time.Minute)

func NewServer(cfg *config.Config, handler *Handler) *Server {
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	s := &Server{
		router:  router,
		handler: handler,
		cfg:     cfg,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "tenant-service",
		})
	})

	// Internal API - called by billing-service and the admin portal
	internal := s.router.Group("/api/internal")
	internal.Use(InternalAuthMiddleware(s.cfg.InternalSecret))
	{
		// Provisioning
		internal.POST("/provision", s.handler.Provision)
		internal.POST("/update", s.handler.Update)
		internal.DELETE("/tenants/:tenant_id", s.handler.Deprovision)

		// Lifecycle
		internal.POST("/suspend", s.handler.Suspend)
		internal.POST("/tenants/:tenant_id/resume", s.handler.Resume)

		// Tenant queries
		internal.GET("/tenants", s.handler.ListTenants)
		internal.GET("/tenants/:tenant_id", s.handler.GetTenant)
		internal.GET("/tenants/:tenant_id/logs", s.handler.GetTenantLogs)

		// Deployment mode migration
		internal.GET("/tenants/:tenant_id/migration/eligibility", s.handler.GetMigrationEligibility)
		internal.POST("/migrate", s.handler.Migrate)
		internal.POST("/migrate/bulk", s.handler.BulkMigrate)
	}

	// Console API - requires JWT authentication
	console := s.router.Group("/api/v1")
	console.Use(JWTAuthMiddleware(s.cfg.JWT.SecretKey))
	console.Use(RateLimitMiddleware(consoleRateLimiter))
	{
		// Custom domain verification
		console.POST("/domains", s.handler.InitiateDomainVerification)
		console.POST("/domains/:domain/verify", RateLimitMiddleware(verifyRateLimiter), s.handler.VerifyDomain)
		console.GET("/domains/:domain", s.handler.GetDomainStatus)
		console.DELETE("/domains/:domain", s.handler.RemoveDomain)
	}
}

func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}
