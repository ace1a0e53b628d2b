package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/riskserve/internal/config"
	"github.com/turtacn/riskserve/internal/infrastructure/monitoring"
	"github.com/turtacn/riskserve/internal/interfaces/http/handlers"
	"github.com/turtacn/riskserve/internal/interfaces/http/middleware"
	"github.com/turtacn/riskserve/pkg/errors"
	"github.com/turtacn/riskserve/pkg/logger"
)

// Handlers groups the endpoint handlers served by the router.
type Handlers struct {
	Health   *handlers.HealthHandler
	Risk     *handlers.RiskHandler
	Versions *handlers.VersionHandler
	Page     *handlers.PageHandler
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	config   *config.Config
	logger   logger.Logger
	handlers Handlers
	metrics  *monitoring.Metrics
	gatherer prometheus.Gatherer
	tracer   trace.Tracer
	redis    goredis.UniversalClient
	server   *http.Server
}

// NewRouter 创建路由器. redisClient may be nil, which turns Idempotency-Key handling off.
func NewRouter(
	cfg *config.Config,
	log logger.Logger,
	h Handlers,
	metrics *monitoring.Metrics,
	gatherer prometheus.Gatherer,
	tracer trace.Tracer,
	redisClient goredis.UniversalClient,
) *Router {
	// 设置 Gin 模式
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:   gin.New(),
		config:   cfg,
		logger:   log.WithComponent("Router"),
		handlers: h,
		metrics:  metrics,
		gatherer: gatherer,
		tracer:   tracer,
		redis:    redisClient,
	}
	r.setupRoutes(log)
	r.server = &http.Server{
		Addr:           cfg.Server.Address(),
		Handler:        r.engine,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}
	return r
}

// Handler returns the configured engine.
func (r *Router) Handler() http.Handler {
	return r.engine
}

// setupRoutes 设置路由
func (r *Router) setupRoutes(log logger.Logger) {
	// 全局中间件
	r.engine.Use(handlers.RecoveryMiddleware(log))
	r.engine.Use(handlers.RequestIDMiddleware())
	r.engine.Use(handlers.LoggingMiddleware(log))
	r.engine.Use(middleware.ObservabilityMiddleware(r.tracer, r.metrics.HTTPRequestsTotal, r.metrics.HTTPRequestDuration))

	// CORS 配置
	if len(r.config.Server.AllowedOrigins) > 0 {
		r.engine.Use(cors.New(cors.Config{
			AllowOrigins:  r.config.Server.AllowedOrigins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders: []string{"X-Request-ID", "ETag", "Retry-After"},
			MaxAge:        12 * time.Hour,
		}))
	}

	// 健康检查路由（不需要认证）
	r.engine.GET("/health", r.handlers.Health.HealthCheck)
	r.engine.GET("/live", r.handlers.Health.LivenessCheck)

	// Prometheus metrics
	r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))

	// Pprof 性能分析（仅在非生产环境）
	if r.config.Server.Environment != "production" {
		pprof.Register(r.engine)
	}

	r.engine.GET("/", r.handlers.Page.Index)

	limit := middleware.RateLimitMiddleware(&r.config.RateLimit, log)
	api := r.engine.Group("/api")
	{
		api.POST("/predict", limit, r.handlers.Risk.Predict)

		retrain := []gin.HandlerFunc{middleware.RequireOperator(&r.config.Auth, log), limit}
		if r.redis != nil && r.config.Redis.IdempotencyTTL > 0 {
			retrain = append(retrain, middleware.IdempotencyMiddleware(r.redis, r.config.Redis.IdempotencyWindow(), log))
		}
		retrain = append(retrain, r.handlers.Risk.Retrain)
		api.POST("/retrain", retrain...)

		api.GET("/versions", middleware.ETagCache(), r.handlers.Versions.ListVersions)
	}

	// 404 处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errors.ToErrorResponse(errors.NotFound("route", c.Request.URL.Path)))
	})
}

// Start 启动 HTTP 服务器. It blocks until the server is stopped.
func (r *Router) Start() error {
	r.logger.Info(context.Background(), "Starting HTTP server", logger.Fields{"address": r.server.Addr})
	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop 停止 HTTP 服务器
func (r *Router) Stop(ctx context.Context) error {
	r.logger.Info(ctx, "Stopping HTTP server...")
	return r.server.Shutdown(ctx)
}

//Personal.AI order the ending
