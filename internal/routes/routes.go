package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/finpay/ledger/internal/auth"
	"github.com/finpay/ledger/internal/config"
	"github.com/finpay/ledger/internal/fx"
	"github.com/finpay/ledger/internal/history"
	"github.com/finpay/ledger/internal/identity"
	"github.com/finpay/ledger/internal/ledger"
	"github.com/finpay/ledger/internal/metrics"
	"github.com/finpay/ledger/internal/middleware"
	"github.com/finpay/ledger/internal/notification"
	"github.com/finpay/ledger/internal/payments"
	"github.com/finpay/ledger/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Logger   *slog.Logger
	Registry *prometheus.Registry
}

// ledgerBackend is what the routes need from a store: the write side for the
// engine and the read side for history.
type ledgerBackend interface {
	ledger.Store
	ledger.Reader
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	// Services and handlers
	var store ledgerBackend
	var identityRepo identity.Repository
	if d.DB != nil {
		store = ledger.NewPostgresStore(d.DB)
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		store = ledger.NewInMemory()
		identityRepo = identity.NewMemoryRepository(store)
	}

	rates, err := fx.NewStaticProvider(d.Cfg.Rates)
	if err != nil {
		return fmt.Errorf("exchange rates: %w", err)
	}

	var notifier notification.Notifier = notification.NewLoggerNotifier(d.Logger)
	if d.Cache != nil {
		notifier = notification.NewRedisNotifier(d.Cache)
	}
	m := metrics.New(d.Registry)

	identitySvc := identity.NewService(identityRepo)
	authSvc := auth.NewService(d.Cfg, identityRepo)
	walletSvc := wallet.NewService(store, d.Cfg.Currencies)
	paymentSvc := payments.NewService(store, rates, d.Cfg.Currencies, identitySvc, notifier, m, d.Logger)
	historySvc := history.NewService(store, d.Cfg.Currencies)

	authHandler := auth.NewHandler(identitySvc, authSvc)
	walletHandler := wallet.NewHandler(walletSvc)
	paymentHandler := payments.NewHandler(paymentSvc)
	historyHandler := history.NewHandler(historySvc)

	// Health and metrics
	RegisterHealthRoutes(app, d)
	app.Get("/metrics", m.Handler())

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	g := guard{middleware.JWTAuth(authSvc)}
	if d.Cache != nil {
		g = append(g, middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterIdentityRoutes(api, identitySvc, walletSvc, d.Cfg.DefaultCurrency, d.Logger)
	RegisterAuthRoutes(api, g, authHandler, middleware.LoginRateLimit(d.Cache, 5))
	RegisterWalletRoutes(api, g, walletHandler)
	RegisterTransactionRoutes(api, g, paymentHandler, historyHandler)
	RegisterProfileRoute(api, g, identitySvc, walletSvc)

	return nil
}
