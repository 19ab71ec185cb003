package handler

import (
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/ociswap/registry/internal/middleware"
	"github.com/ociswap/registry/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps is everything the HTTP surface needs. Audit, Limiter, Idempotency and Replay may be nil.
type RouterDeps struct {
	Registry    *service.RegistryService
	Events      *service.EventHub
	Audit       *service.AuditService
	Idempotency middleware.IdempotencyStore
	Replay      middleware.ReplayGuard
	Limiter     *service.LimiterPool

	OwnerWindow time.Duration
	Now         func() time.Time
	ReadOnly    bool
	MetricsPath string // empty disables the endpoint
}

func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Idempotency == nil {
		deps.Idempotency = middleware.NewInMemIdempotencyStore()
	}
	if deps.Replay == nil {
		deps.Replay = middleware.NewInMemReplayGuard()
	}
	if deps.Events == nil {
		deps.Events = service.NewEventHub(0)
	}

	registryHandler := NewRegistryHandler(deps.Registry)
	auditHandler := NewAuditHandler(deps.Audit, deps.Registry)
	eventsHandler := NewEventsHandler(deps.Events)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.BodyLimitMiddleware(middleware.MaxRequestBodyBytes))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/v1/events"})))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.AuditMiddleware(deps.Audit))
	r.Use(middleware.OwnerProofMiddleware(deps.OwnerWindow, deps.Now, deps.Replay))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "fee-registry", "read_only": deps.ReadOnly})
	})
	if deps.MetricsPath != "" {
		r.GET(deps.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	idem := middleware.IdempotencyMiddleware(deps.Idempotency)

	v1 := r.Group("/v1")
	v1.Use(middleware.ReadOnlyMiddleware(deps.ReadOnly))
	{
		v1.POST("/sync", middleware.RateLimitMiddleware(deps.Limiter), idem, registryHandler.Sync)
		v1.GET("/config", registryHandler.GetConfig)
		v1.PUT("/config", idem, registryHandler.UpdateConfig)
		v1.POST("/withdrawals", idem, registryHandler.Withdraw)
		v1.GET("/balances", registryHandler.Balances)
		v1.GET("/pools/:address/schedule", registryHandler.Schedule)
		v1.GET("/audit", auditHandler.List)
		v1.GET("/events", eventsHandler.Stream)
	}

	return r
}
