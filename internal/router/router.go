package router

import (
	"context"

	"brewpos/internal/config"
	"brewpos/internal/handler"
	"brewpos/internal/infra"
	"brewpos/internal/middleware"
	"brewpos/internal/repository"
	"brewpos/internal/service"
	"brewpos/internal/worker"
	"brewpos/internal/ws"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
// The rate limiter's purge loop stops when ctx is cancelled. A nil jobs
// builds an unguarded dispatcher; breakers are only reported by /health.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb *redis.Client, hub *ws.Hub, jobs *worker.Dispatcher, breakers infra.Breakers) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	limiter := middleware.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	limiter.StartPurge(ctx)

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.ErrorHandler())
	r.Use(limiter.Middleware())

	// ── Repositories ─────────────────────────────────────────────────────────
	movementRepo := repository.NewStockMovementRepository(db)
	ingredientRepo := repository.NewIngredientRepository(db, movementRepo)
	productRepo := repository.NewProductRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	profileRepo := repository.NewPaymentProfileRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	sessionStore := repository.NewSessionStore(rdb, cfg.SessionTTL)

	// Worker dispatcher: injected into services that enqueue async jobs
	dispatcher := jobs
	if dispatcher == nil {
		dispatcher = worker.NewDispatcher(rdb, nil)
	}

	// ── Services ─────────────────────────────────────────────────────────────
	catalogSvc := service.NewCatalogService(productRepo, ingredientRepo, settingsRepo)
	inventorySvc := service.NewInventoryService(ingredientRepo, movementRepo, settingsRepo, hub)
	settingsSvc := service.NewSettingsService(settingsRepo)
	paymentSvc := service.NewPaymentService(profileRepo, sessionStore)
	checkoutSvc := service.NewCheckoutService(service.CheckoutDeps{
		Sessions:    sessionStore,
		Products:    productRepo,
		Ingredients: ingredientRepo,
		Invoices:    invoiceRepo,
		Profiles:    profileRepo,
		Settings:    settingsRepo,
		Events:      hub,
		Receipts:    dispatcher,
		CallTimeout: cfg.StoreCallTimeout,
	})
	invoiceSvc := service.NewInvoiceService(invoiceRepo, ingredientRepo, hub, cfg.StoreCallTimeout, cfg.ShopName)

	// ── Handlers ─────────────────────────────────────────────────────────────
	catalogH := handler.NewCatalogHandler(catalogSvc)
	inventoryH := handler.NewInventoryHandler(inventorySvc)
	settingsH := handler.NewSettingsHandler(settingsSvc)
	checkoutH := handler.NewCheckoutHandler(checkoutSvc)
	invoicesH := handler.NewInvoicesHandler(invoiceSvc)
	paymentsH := handler.NewPaymentsHandler(paymentSvc)
	jobsH := handler.NewJobsHandler(worker.NewDeadLetters(rdb))

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, breakers))

	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	staff := middleware.RequireRole(middleware.RoleCashier, middleware.RoleManager)
	manager := middleware.RequireRole(middleware.RoleManager)

	v1 := r.Group("/v1", jwtMW)
	Register(v1, staff, manager, Handlers{
		Catalog:     catalogH,
		Inventory:   inventoryH,
		Settings:    settingsH,
		Checkout:    checkoutH,
		Invoices:    invoicesH,
		Payments:    paymentsH,
		Jobs:        jobsH,
		StockStream: handler.StockStream(hub),
	})

	// Swagger UI: only enabled outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}

// Handlers groups the HTTP handlers mounted under /v1.
type Handlers struct {
	Catalog     *handler.CatalogHandler
	Inventory   *handler.InventoryHandler
	Settings    *handler.SettingsHandler
	Checkout    *handler.CheckoutHandler
	Invoices    *handler.InvoicesHandler
	Payments    *handler.PaymentsHandler
	Jobs        *handler.JobsHandler
	StockStream gin.HandlerFunc
}

// Register mounts the /v1 routes. staff admits cashiers and managers,
// manager admits managers only.
func Register(v1 *gin.RouterGroup, staff, manager gin.HandlerFunc, h Handlers) {
	// Catalog: everyone reads, managers write
	v1.GET("/products", staff, h.Catalog.List)
	v1.GET("/products/:id", staff, h.Catalog.Get)
	prods := v1.Group("/products", manager)
	{
		prods.POST("", h.Catalog.Create)
		prods.PUT("/:id", h.Catalog.Update)
		prods.DELETE("/:id", h.Catalog.Deactivate)
	}

	v1.GET("/ingredients", staff, h.Inventory.List)
	ings := v1.Group("/ingredients", manager)
	{
		ings.POST("", h.Inventory.Create)
		ings.PATCH("/:id", h.Inventory.Update)
		ings.POST("/:id/stock-in", h.Inventory.StockIn)
		ings.POST("/:id/stock-out", h.Inventory.StockOut)
	}
	inv := v1.Group("/inventory", manager)
	{
		inv.GET("/alerts", h.Inventory.Alerts)
		inv.GET("/movements", h.Inventory.Movements)
	}

	v1.GET("/settings", staff, h.Settings.Get)
	v1.PUT("/settings", manager, h.Settings.Update)

	sessions := v1.Group("/sessions", staff)
	{
		sessions.POST("", h.Checkout.Open)
		sessions.GET("/:id", h.Checkout.Get)
		sessions.DELETE("/:id", h.Checkout.Close)
		sessions.POST("/:id/items", h.Checkout.AddItem)
		sessions.PUT("/:id/items/:key", h.Checkout.SetQuantity)
		sessions.DELETE("/:id/items/:key", h.Checkout.RemoveItem)
		sessions.DELETE("/:id/items", h.Checkout.Clear)
		sessions.POST("/:id/cash", h.Checkout.SubmitCash)
		sessions.POST("/:id/qr", h.Checkout.SubmitQR)
		sessions.GET("/:id/qr.png", h.Payments.SessionQR)
		sessions.POST("/:id/confirm", h.Checkout.ConfirmPaid)
		sessions.POST("/:id/cancel-payment", h.Checkout.CancelPayment)
		sessions.POST("/:id/abandon", h.Checkout.Abandon)
	}

	v1.GET("/invoices", staff, h.Invoices.List)
	v1.GET("/invoices/:id", staff, h.Invoices.Get)
	v1.GET("/invoices/:id/receipt.pdf", staff, h.Invoices.Receipt)
	v1.POST("/invoices/:id/cancel", manager, h.Invoices.Cancel)

	v1.GET("/payment-profiles", staff, h.Payments.ListProfiles)
	profiles := v1.Group("/payment-profiles", manager)
	{
		profiles.POST("", h.Payments.CreateProfile)
		profiles.DELETE("/:id", h.Payments.DeactivateProfile)
	}

	jobs := v1.Group("/jobs/dead-letters", manager)
	{
		jobs.GET("", h.Jobs.Counts)
		jobs.GET("/:queue", h.Jobs.List)
		jobs.POST("/:queue/requeue", h.Jobs.Requeue)
	}

	v1.GET("/ws/stock", staff, h.StockStream)
}
