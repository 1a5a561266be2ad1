package app

import (
	"fmt"
	"net/http"

	_ "github.com/coursepay/server/cmd/server/docs" // swagger docs
	ginadapter "github.com/coursepay/server/internal/adapter/inbound/gin"
	"github.com/coursepay/server/internal/domain/order"
	"github.com/coursepay/server/internal/infra/events"
	"github.com/coursepay/server/internal/port/inbound"
	"github.com/coursepay/server/internal/port/outbound"
	"github.com/coursepay/server/internal/shared/config"
	"github.com/coursepay/server/internal/utils/metrics"
	"github.com/coursepay/server/internal/utils/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Dependencies holds all injected dependencies.
type Dependencies struct {
	Config      *config.Config
	DB          *gorm.DB
	Redis       goredis.UniversalClient
	ZapLogger   *zap.Logger
	Metrics     *metrics.Metrics
	EventBus    *events.Bus
	RateLimiter outbound.RateLimiterPort

	// Auth
	AccessTokens outbound.AccessTokenPort
	Admins       middleware.AdminSet

	// Domains
	OrderDomain order.OrderDomain

	// HTTP Handlers
	OrderHandler inbound.OrderHttpPort
	AdminHandler inbound.AdminHttpPort
}

// App represents the application.
type App struct {
	config  *config.Config
	deps    *Dependencies
	cleanup func()
	router  *gin.Engine
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	deps, cleanup, err := InitializeDependencies(cfg)
	if err != nil {
		return nil, fmt.Errorf("init dependencies: %w", err)
	}

	app := &App{
		config:  cfg,
		deps:    deps,
		cleanup: cleanup,
	}
	app.router = app.setupRouter()
	app.registerRoutes()

	deps.ZapLogger.Info("Application initialized",
		zap.String("gateway", cfg.Gateway.Provider),
		zap.Bool("redis", deps.Redis != nil),
		zap.Int("kafka_brokers", len(cfg.Kafka.Brokers)),
	)
	return app, nil
}

// Dependencies returns the injected dependencies.
func (a *App) Dependencies() *Dependencies {
	return a.deps
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter() *gin.Engine {
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(middleware.Recovery(a.deps.ZapLogger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.deps.ZapLogger))
	r.Use(middleware.Metrics(a.deps.Metrics))
	r.Use(middleware.CORS(a.config.Server.CORSOrigins...))

	r.GET("/health", a.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	return r
}

// registerRoutes mounts the API under /api/v1.
func (a *App) registerRoutes() {
	v1 := a.router.Group("/api/v1")

	protected := v1.Group("")
	protected.Use(middleware.RequireAuth(a.deps.AccessTokens, a.deps.Admins))

	ginadapter.RegisterOrderRoutes(protected, a.deps.OrderHandler,
		middleware.RateLimitByUser(a.deps.RateLimiter, a.config.Server.RateLimit, a.config.Server.RateLimitWindow),
		middleware.Idempotency(a.deps.Redis, middleware.IdempotencyConfig{TTL: a.config.Payments.IdempotencyTTL}),
	)
	ginadapter.RegisterAdminRoutes(protected, a.deps.AdminHandler, middleware.RequireManageAll())
}

func (a *App) health(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}

	if sqlDB, err := a.deps.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["database"] = "unreachable"
	}
	if a.deps.Redis != nil {
		if err := a.deps.Redis.Ping(c.Request.Context()).Err(); err != nil {
			body["redis"] = "unreachable"
		}
	}
	c.JSON(status, body)
}

// Router returns the Gin router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Stop releases every dependency in reverse order of creation.
func (a *App) Stop() {
	a.deps.ZapLogger.Info("Stopping application")
	if a.cleanup != nil {
		a.cleanup()
	}
}
