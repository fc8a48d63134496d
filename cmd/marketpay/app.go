package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/agamariel/marketpay/internal/auth"
	"github.com/agamariel/marketpay/internal/checkout"
	"github.com/agamariel/marketpay/internal/config"
	"github.com/agamariel/marketpay/internal/handlers"
	"github.com/agamariel/marketpay/internal/migrations"
	"github.com/agamariel/marketpay/internal/orders"
	"github.com/agamariel/marketpay/internal/services"
	"github.com/agamariel/marketpay/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// App структура для управления приложением и его зависимостями.
type App struct {
	cfg    *config.Config
	dbPool *pgxpool.Pool
	echo   *echo.Echo
	worker *services.ExpiryWorker

	// Handlers
	checkoutHandler *handlers.CheckoutHandler
	webhookHandler  *handlers.WebhookHandler
	payoutHandler   *handlers.PayoutHandler
}

// NewApp создаёт и инициализирует новое приложение.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{
		cfg: cfg,
	}

	if err := app.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initDependencies(); err != nil {
		return nil, fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	app.initServer()

	return app, nil
}

// initDatabase инициализирует подключение к базе данных и выполняет миграции.
func (app *App) initDatabase(ctx context.Context) error {
	if app.cfg.DatabaseURI == "" {
		return fmt.Errorf("DATABASE_URI is required")
	}

	// Применение миграций
	log.Println("Running database migrations...")
	sqlDB, err := sql.Open("pgx", app.cfg.DatabaseURI)
	if err != nil {
		return fmt.Errorf("unable to open database connection: %w", err)
	}
	defer sqlDB.Close()

	if err := migrations.Run(sqlDB); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Println("Migrations completed successfully")

	// Подключение к базе данных через pgxpool
	dbPool, err := pgxpool.New(ctx, app.cfg.DatabaseURI)
	if err != nil {
		return fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		return fmt.Errorf("unable to ping database: %w", err)
	}

	app.dbPool = dbPool
	log.Println("Successfully connected to database")

	return nil
}

// initDependencies инициализирует все зависимости приложения (storage, services, handlers).
func (app *App) initDependencies() error {
	// Storage layer
	paymentStorage := storage.NewPostgresPaymentStorage(app.dbPool)
	earningStorage := storage.NewPostgresEarningStorage(app.dbPool)
	walletStorage := storage.NewPostgresWalletStorage(app.dbPool)
	payoutStorage := storage.NewPostgresPayoutStorage(app.dbPool)

	// Внешние коллабораторы
	if app.cfg.ProviderAddress == "" {
		log.Println("WARNING: CHECKOUT_PROVIDER_ADDRESS is not configured. Checkout sessions cannot be created!")
	}
	providerClient := checkout.NewHTTPClient(app.cfg.ProviderAddress, app.cfg.ProviderSecretKey, 5*time.Second)
	orderClient := orders.NewHTTPClient(app.cfg.OrderServiceAddress, 5*time.Second)

	// Service layer
	checkoutService := services.NewCheckoutService(
		paymentStorage,
		providerClient,
		app.cfg.Currency,
		app.cfg.ProviderPublishableKey,
		app.cfg.SiteURL+"/checkout/success",
		app.cfg.SiteURL+"/checkout/cancel",
	)
	settlementService := services.NewSettlementService(
		app.dbPool,
		paymentStorage,
		earningStorage,
		walletStorage,
		orderClient,
		app.cfg.WebhookSecret,
		app.cfg.FeePercent,
		log.Default(),
	)
	payoutService := services.NewPayoutService(app.dbPool, walletStorage, earningStorage, payoutStorage)

	// Handler layer
	app.checkoutHandler = handlers.NewCheckoutHandler(checkoutService)
	app.webhookHandler = handlers.NewWebhookHandler(settlementService)
	app.payoutHandler = handlers.NewPayoutHandler(payoutService)

	// Воркер устаревших платежей
	app.worker = services.NewExpiryWorker(paymentStorage, app.cfg.PaymentTTL, time.Hour, log.Default())

	return nil
}

// initServer инициализирует HTTP-сервер и настраивает маршруты.
func (app *App) initServer() {
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.Gzip())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
	}))

	// Вебхук провайдера: аутентификация по подписи, не по токену
	e.POST("/api/webhook/checkout", app.webhookHandler.HandleEvent)

	// Оформление оплаты покупателем
	buyer := e.Group("/api/checkout")
	buyer.Use(auth.JWTMiddleware(app.cfg.JWTSecret))
	buyer.POST("/session", app.checkoutHandler.CreateSession)

	// Кошелёк и выплаты продавца
	seller := e.Group("/api/seller")
	seller.Use(auth.JWTMiddleware(app.cfg.JWTSecret))
	seller.Use(auth.RequireRole(auth.RoleSeller))
	seller.GET("/wallet", app.payoutHandler.GetWallet)
	seller.GET("/earnings", app.payoutHandler.GetEarnings)
	seller.GET("/payouts", app.payoutHandler.GetPayouts)
	seller.POST("/payouts", app.payoutHandler.RequestPayout)

	// Администрирование заявок на выплату
	admin := e.Group("/api/admin")
	admin.Use(auth.JWTMiddleware(app.cfg.JWTSecret))
	admin.Use(auth.RequireRole(auth.RoleAdmin))
	admin.POST("/payouts/:id/approve", app.payoutHandler.Approve)
	admin.POST("/payouts/:id/reject", app.payoutHandler.Reject)
	admin.POST("/payouts/:id/pay", app.payoutHandler.MarkPaid)

	app.echo = e
}

// Start запускает приложение.
func (app *App) Start(ctx context.Context) error {
	// Запуск воркера устаревших платежей
	app.worker.Start(ctx)
	log.Println("Payment expiry worker started")

	// Запуск сервера
	log.Printf("Starting server on %s", app.cfg.RunAddress)
	if err := app.echo.Start(app.cfg.RunAddress); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}

	return nil
}

// Shutdown корректно завершает работу приложения.
func (app *App) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")

	if err := app.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	if app.dbPool != nil {
		app.dbPool.Close()
	}

	log.Println("Server gracefully stopped")
	return nil
}
