package router

import (
	"context"
	"fmt"
	"sync"
	"time"

	"catalogdesk/internal/clock"
	"catalogdesk/internal/config"
	"catalogdesk/internal/handler"
	"catalogdesk/internal/infra"
	"catalogdesk/internal/metrics"
	"catalogdesk/internal/middleware"
	"catalogdesk/internal/orderfeed"
	"catalogdesk/internal/repository"
	"catalogdesk/internal/service"
	"catalogdesk/internal/shopapi"
	"catalogdesk/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const feedTimeout = time.Minute

// App is the wired object graph: the HTTP engine plus the background work
// that shares its services.
type App struct {
	Engine *gin.Engine

	cfg        *config.Config
	pool       *worker.Pool
	dispatcher *worker.Dispatcher
	limiters   []*middleware.IPRateLimiter
	wg         sync.WaitGroup
}

// Services bundles the business layer for callers outside HTTP (the CLI).
type Services struct {
	Auth      service.AuthService
	Products  service.ProductService
	Orders    service.OrderService
	Suppliers service.SupplierService
	Breaker   *infra.CircuitBreaker
}

// NewServices wires Service ← Repository ← DB/Redis. ctx scopes the shop API
// token source and must outlive the services.
func NewServices(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb *redis.Client, mail service.MailQueue) (*Services, error) {
	variant, err := orderfeed.ParseVariant(cfg.OrdersDefaultVariant)
	if err != nil {
		return nil, fmt.Errorf("ORDERS_DEFAULT_VARIANT: %w", err)
	}

	// ── Infrastructure ───────────────────────────────────────────────────────
	bc := shopapi.BreakerConfig()
	bc.OnStateChange = func(name string, _, to infra.CBState) { metrics.SetBreakerState(name, int(to)) }
	breaker := infra.NewCircuitBreaker(bc)

	shop, err := shopapi.New(ctx, shopapi.Config{
		BaseURL:    cfg.ShopAPIBaseURL,
		TokenURL:   cfg.ShopAPITokenURL,
		ClientID:   cfg.ShopAPIClientID,
		Username:   cfg.ShopAPIUsername,
		Password:   cfg.ShopAPIPassword,
		RatePerSec: cfg.ShopAPIRatePerSec,
		Timeout:    time.Duration(cfg.ShopAPITimeoutSecs) * time.Second,
	}, breaker)
	if err != nil {
		return nil, err
	}
	feed := infra.NewFeedClient(feedTimeout)
	clk := clock.NewRealClock()

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	revisionRepo := repository.NewRevisionRepository(db)
	lookupCache := repository.NewLookupCache(rdb)
	orderCache := repository.NewOrderCache(rdb)

	// ── Services ─────────────────────────────────────────────────────────────
	supplierSvc := service.NewSupplierService(supplierRepo, feed, cfg.SuppliersFeedURL, cfg.OrdersFeedCharset)
	return &Services{
		Auth:      service.NewAuthService(userRepo, cfg, clk),
		Products:  service.NewProductService(shop, lookupCache, revisionRepo, time.Duration(cfg.LookupCacheTTLMins)*time.Minute),
		Suppliers: supplierSvc,
		Orders: service.NewOrderService(orderCache, feed, supplierSvc, mail, clk, service.OrderServiceConfig{
			FeedURL: cfg.OrdersFeedURL,
			Charset: cfg.OrdersFeedCharset,
			Policy: orderfeed.Policy{
				GraceDays:     cfg.OrdersGraceDays,
				PendingDays:   cfg.OrdersPendingDays,
				HorizonMonths: cfg.OrdersHorizonMonths,
			},
			DefaultVariant: variant,
		}),
		Breaker: breaker,
	}, nil
}

// New wires all dependencies and returns the configured application.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*App, error) {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Worker dispatcher, injected into services that enqueue async jobs
	broker := worker.NewRedisBroker(rdb)
	dispatcher := worker.NewDispatcher(broker)

	svcs, err := NewServices(ctx, cfg, db, rdb, dispatcher)
	if err != nil {
		return nil, err
	}

	pool := worker.NewPool(broker, cfg.WorkerPoolSize)
	worker.Register(pool,
		worker.NewRefreshWorker(svcs.Orders, svcs.Suppliers),
		worker.NewEmailWorker(infra.NewMailer(cfg)))

	apiLimiter := middleware.APIRateLimiter(1000, time.Minute) // 1000 req/min per IP
	loginLimiter := middleware.LoginRateLimiter()

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(middleware.ErrorHandler())
	r.Use(apiLimiter.Middleware())

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(svcs.Auth)
	usersH := handler.NewUsersHandler(svcs.Auth)
	productsH := handler.NewProductsHandler(svcs.Products)
	ordersH := handler.NewOrdersHandler(svcs.Orders, dispatcher)
	suppliersH := handler.NewSuppliersHandler(svcs.Suppliers, svcs.Orders)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, svcs.Breaker))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", loginLimiter.Middleware(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// Admins pass every role check.
		editor := middleware.RequireRole(middleware.RoleEditor)
		purchasing := middleware.RequireRole(middleware.RolePurchasing)
		anyRole := middleware.RequireRole(middleware.RoleEditor, middleware.RolePurchasing)

		prods := v1.Group("/products", editor)
		{
			prods.GET("", productsH.List)
			prods.GET("/search", productsH.Search)
			prods.POST("/sanitize", productsH.Sanitize)
			prods.GET("/:id", productsH.Get)
			prods.GET("/:id/detail", productsH.Detail)
			prods.GET("/:id/related", productsH.Related)
			prods.GET("/:id/revisions", productsH.Revisions)
			prods.POST("/:id/adopt-content", productsH.AdoptContent)
			prods.PUT("/:id", productsH.Save)
		}
		v1.GET("/manufacturers", anyRole, productsH.Manufacturers)
		v1.GET("/categories", anyRole, productsH.Categories)

		orders := v1.Group("/orders", purchasing)
		{
			orders.GET("", ordersH.List)
			orders.GET("/status", ordersH.Status)
			orders.POST("/refresh", ordersH.Refresh)
		}

		sups := v1.Group("/suppliers", purchasing)
		{
			sups.GET("", suppliersH.List)
			sups.POST("/refresh", suppliersH.Refresh)
			sups.GET("/:id/orders", suppliersH.Orders)
			sups.GET("/:id/orders.pdf", suppliersH.OrdersPDF)
			sups.POST("/:id/orders/mail", suppliersH.Mail)
		}

		v1.POST("/users", middleware.RequireRole(middleware.RoleAdmin), usersH.Create)
	}

	// Swagger UI, only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return &App{
		Engine:     r,
		cfg:        cfg,
		pool:       pool,
		dispatcher: dispatcher,
		limiters:   []*middleware.IPRateLimiter{apiLimiter, loginLimiter},
	}, nil
}

// StartBackground launches the worker pool, the feed refresh cron and the
// rate limiter purges. They stop when ctx is cancelled.
func (a *App) StartBackground(ctx context.Context) {
	a.pool.Start(ctx)
	for _, l := range a.limiters {
		a.goRun(func() { l.Run(ctx) })
	}
	a.goRun(func() { worker.RunRefreshCron(ctx, a.dispatcher, a.cfg.FeedRefreshInterval()) })
}

func (a *App) goRun(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}

// Wait blocks until every background goroutine has returned.
func (a *App) Wait() {
	a.wg.Wait()
	a.pool.Wait()
}
