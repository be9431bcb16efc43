package handler

import (
	"database/sql"
	"runtime"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/cleberrangel/brickrate-api/internal/database"
	"github.com/cleberrangel/brickrate-api/internal/metrics"
	"github.com/cleberrangel/brickrate-api/internal/middleware"
	"github.com/cleberrangel/brickrate-api/internal/service"
	"github.com/cleberrangel/brickrate-api/internal/websocket"
)

// RouterDeps agrupa as dependências montadas pelo main
type RouterDeps struct {
	Version    string
	Store      metrics.Pinger
	DB         *sql.DB // só com STORE_BACKEND=postgres
	Auth       *service.AuthService
	Estimates  *service.EstimateService
	Deliveries *service.DeliveryQueue
	Sessions   *middleware.SessionMiddleware
	Limiter    *middleware.RateLimiter
	Hub        *websocket.Hub
	AdminToken string // protege /debug quando definido
}

// NewRouter registra todas as rotas da API
func NewRouter(deps RouterDeps) *gin.Engine {
	healthHandler := NewHealthHandler(deps)
	authHandler := NewAuthHandler(deps.Auth, deps.Estimates, deps.Sessions)
	estimateHandler := NewEstimateHandler(deps.Estimates)
	reportHandler := NewReportHandler(deps.Estimates, deps.Deliveries)
	wsHandler := NewWebSocketHandler(deps.Hub, deps.Sessions)

	var notifier QuoteNotifier
	if deps.Hub != nil {
		notifier = deps.Hub
	}
	quoteHandler := NewQuoteHandler(deps.Estimates, notifier)

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(gin.Recovery())
	r.Use(deps.Sessions.Optional())
	r.Use(middleware.MetricsMiddleware()) // métricas + log de acesso com client_id
	r.Use(middleware.AuditMiddleware())

	// Health e métricas (públicos)
	r.GET("/health", healthHandler.DetailedHealthCheck)
	r.GET("/health/live", healthHandler.LivenessCheck)
	r.GET("/metrics", healthHandler.GetMetrics)
	r.GET("/metrics/summary", healthHandler.GetMetricsSummary)
	r.GET("/metrics/endpoints", healthHandler.GetEndpointMetrics)

	debugGroup := r.Group("/debug")
	if deps.AdminToken != "" {
		debugGroup.Use(middleware.BearerAuth(middleware.AuthConfig{TokenAPI: deps.AdminToken}))
	}
	debugGroup.GET("/memory", func(c *gin.Context) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		c.JSON(200, gin.H{
			"alloc_mb":      m.Alloc / 1024 / 1024,
			"heap_alloc_mb": m.HeapAlloc / 1024 / 1024,
			"heap_inuse_mb": m.HeapInuse / 1024 / 1024,
			"heap_objects":  m.HeapObjects,
			"goroutines":    runtime.NumGoroutine(),
			"gc_runs":       m.NumGC,
		})
	})
	if deps.DB != nil {
		debugGroup.GET("/db", func(c *gin.Context) {
			c.JSON(200, database.GetPoolStats(deps.DB))
		})
	}
	debugGroup.POST("/gc", func(c *gin.Context) {
		runtime.GC()
		debug.FreeOSMemory()
		c.JSON(200, gin.H{"status": "gc_completed"})
	})

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", authHandler.Logout)
		auth.GET("/me", deps.Sessions.RequireAuth(), authHandler.Me)

		api.POST("/estimates", estimateHandler.Estimate)

		commands := api.Group("/commands")
		if deps.Limiter != nil {
			commands.Use(deps.Limiter.Middleware())
		}
		commands.POST("", estimateHandler.Command)

		quotes := api.Group("/quotes")
		quotes.GET("", quoteHandler.List)
		quotes.POST("", quoteHandler.Save)
		quotes.GET("/export", quoteHandler.Export)
		quotes.GET("/:index", quoteHandler.Load)
		quotes.DELETE("/:index", quoteHandler.Delete)

		reports := api.Group("/reports")
		reports.GET("/latest", reportHandler.Latest)
		reports.POST("/latest/webhook", reportHandler.Deliver)
		reports.GET("/deliveries", reportHandler.Deliveries)
		reports.GET("/deliveries/:id", reportHandler.Delivery)
	}

	if deps.Hub != nil {
		r.GET("/ws/voice", wsHandler.HandleConnection)
		r.GET("/ws/stats", wsHandler.GetConnectionStats)
	}

	return r
}
