package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vendaflow/server/internal/module/gateway"
	"github.com/vendaflow/server/internal/module/order"
	"github.com/vendaflow/server/internal/module/payment"
	"github.com/vendaflow/server/internal/module/payment/mercadopago"
	"github.com/vendaflow/server/internal/shared/cache"
	"github.com/vendaflow/server/internal/shared/config"
	"github.com/vendaflow/server/internal/shared/database"
	"github.com/vendaflow/server/internal/shared/logger"
	"github.com/vendaflow/server/internal/shared/metrics"
	"github.com/vendaflow/server/internal/shared/middleware"
)

// App wires configuration, storage and modules into a running server.
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	redis  goredis.UniversalClient
	router *gin.Engine
	server *http.Server
}

// New builds the application.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := db.AutoMigrate(
		&gateway.Gateway{},
		&order.Order{},
		&payment.Payment{},
		&payment.WebhookEvent{},
	); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	// Redis is optional: without it the submit endpoint loses replay caching
	// but stays correct through the unique external reference and the
	// gateway-side idempotency key.
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, request idempotency cache disabled", zap.Error(err))
		redisClient = nil
	}

	m := metrics.New("vendaflow")

	a := &App{cfg: cfg, logger: log, db: db, redis: redisClient}
	a.router = a.buildRouter(m)
	a.server = &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      a.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return a, nil
}

func (a *App) buildRouter(m *metrics.Metrics) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logging(a.logger))
	router.Use(middleware.Metrics(m))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = a.cfg.Server.AllowedOrigins
	router.Use(middleware.CORS(corsCfg))

	router.GET("/healthz", a.healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	gatewayRepo := gateway.NewRepository(a.db)
	orderRepo := order.NewRepository(a.db)
	paymentRepo := payment.NewRepository(a.db)

	resolver := gateway.NewResolver(gatewayRepo, a.logger)
	gatewayClient := mercadopago.NewClient(mercadopago.Config{
		BaseURL:       a.cfg.Gateway.BaseURL,
		SubmitTimeout: a.cfg.Gateway.SubmitTimeout,
		StatusTimeout: a.cfg.Gateway.StatusTimeout,
	}, a.logger)

	paymentService := payment.NewService(
		paymentRepo, orderRepo, gatewayRepo, resolver, gatewayClient,
		payment.Config{
			NotifyBaseURL: a.cfg.Gateway.NotifyBaseURL,
			SuccessPath:   a.cfg.Checkout.SuccessPath,
			PixPath:       a.cfg.Checkout.PixPath,
		},
		m, a.logger,
	)

	paymentHandler := payment.NewHandler(paymentService, orderRepo, a.logger)
	webhookHandler := payment.NewWebhookHandler(paymentService, a.logger)
	gatewayHandler := gateway.NewHandler(gatewayRepo, a.logger)

	api := router.Group("/api/v1")
	api.Use(middleware.Idempotency(a.redis, middleware.IdempotencyConfig{TTL: 24 * time.Hour}))
	paymentHandler.RegisterRoutes(api)

	// Webhooks sit outside the idempotency middleware: reconciliation has
	// its own idempotency through re-fetch plus conditional writes.
	webhookHandler.RegisterRoutes(router.Group(""))

	admin := router.Group("/admin")
	paymentHandler.RegisterAdminRoutes(admin)
	gatewayHandler.RegisterAdminRoutes(admin)

	return router
}

func (a *App) healthz(c *gin.Context) {
	sqlDB, err := a.db.DB()
	if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Router exposes the HTTP handler, mainly for tests.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Run starts the HTTP server and blocks until it stops.
func (a *App) Run() error {
	a.logger.Info("server starting", zap.String("address", a.cfg.Server.Address))
	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down and releases resources.
func (a *App) Stop(ctx context.Context) error {
	a.logger.Info("server stopping")

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if a.redis != nil {
		if err := cache.Close(a.redis); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if err := database.Close(a.db); err != nil {
		a.logger.Warn("failed to close database", zap.Error(err))
	}
	_ = a.logger.Sync()
	return nil
}
