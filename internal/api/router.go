package api

import (
	"github.com/ayo6706/ledger-transfers/internal/api/handler"
	"github.com/ayo6706/ledger-transfers/internal/api/middleware"
	"github.com/ayo6706/ledger-transfers/internal/api/spec"
	"github.com/ayo6706/ledger-transfers/internal/config"
	"github.com/ayo6706/ledger-transfers/internal/idempotency"
	"github.com/ayo6706/ledger-transfers/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// Services bundles the application services the router exposes.
type Services struct {
	Transfers   *service.TransferService
	Settlements *service.SettlementService
	Positions   *service.PositionService
	Accounts    *service.AccountService
	Charges     *service.ChargeService
}

type Router struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *pgxpool.Pool
	redis     redis.Cmdable
	services  Services
	idemStore *idempotency.Store
}

func NewRouter(cfg *config.Config, logger *zap.Logger, db *pgxpool.Pool, redisClient redis.Cmdable, services Services, idemStore *idempotency.Store) *Router {
	return &Router{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		redis:     redisClient,
		services:  services,
		idemStore: idemStore,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))

	auth := middleware.NewAuthenticator(api.cfg.JWTSecret, api.cfg.JWTIssuer, api.cfg.JWTAudience)

	healthHandler := handler.NewHealthHandler(api.db, api.redis)
	transferHandler := handler.NewTransferHandler(api.services.Transfers)
	settlementHandler := handler.NewSettlementHandler(api.services.Settlements)
	positionHandler := handler.NewPositionHandler(api.services.Positions)
	accountHandler := handler.NewAccountHandler(api.services.Accounts)
	chargeHandler := handler.NewChargeHandler(api.services.Charges)

	// Operational surface
	r.Get("/healthz", healthHandler.Live)
	r.Get("/readyz", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler())
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

	// Public read routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))

		r.Get("/v1/transfers/{id}", transferHandler.Get)
		r.Get("/v1/transfers/{id}/fulfillment", transferHandler.GetFulfillment)
		r.Get("/v1/transfers/{id}/fees", chargeHandler.TransferFees)
		r.Get("/v1/positions", positionHandler.Get)
		r.Get("/v1/positions/fees", positionHandler.GetFees)
		r.Get("/v1/accounts", accountHandler.List)
		r.Get("/v1/accounts/{name}", accountHandler.Get)
		r.Get("/v1/charges", chargeHandler.List)
		r.Get("/v1/settlements/settleable", settlementHandler.ListSettleable)
	})

	// Mutating routes
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		// PUT routes are naturally idempotent through the client-chosen id.
		r.Put("/v1/transfers/{id}", transferHandler.Prepare)
		r.Put("/v1/transfers/{id}/fulfillment", transferHandler.Fulfill)
		r.Put("/v1/transfers/{id}/rejection", transferHandler.Reject)

		r.With(middleware.IdempotencyMiddleware(api.idemStore, api.logger)).
			Post("/v1/settlements", settlementHandler.Create)
		r.Post("/v1/transfers/expired", transferHandler.SweepExpired)
		r.Post("/v1/accounts", accountHandler.Create)
		r.Post("/v1/charges", chargeHandler.Create)
	})

	return r
}
