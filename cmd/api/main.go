package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/danielmoraes/lecto-backend/api/routes"
	"github.com/danielmoraes/lecto-backend/internal/catalog"
	"github.com/danielmoraes/lecto-backend/internal/checkout"
	"github.com/danielmoraes/lecto-backend/internal/entitlements"
	"github.com/danielmoraes/lecto-backend/internal/gateway"
	"github.com/danielmoraes/lecto-backend/internal/identity"
	"github.com/danielmoraes/lecto-backend/internal/orders"
	paymentswebhook "github.com/danielmoraes/lecto-backend/internal/webhooks/payments"
	"github.com/danielmoraes/lecto-backend/pkg/asaas"
	"github.com/danielmoraes/lecto-backend/pkg/config"
	"github.com/danielmoraes/lecto-backend/pkg/db"
	"github.com/danielmoraes/lecto-backend/pkg/logger"
	"github.com/danielmoraes/lecto-backend/pkg/metrics"
	"github.com/danielmoraes/lecto-backend/pkg/migrate"
	"github.com/danielmoraes/lecto-backend/pkg/outbox"
	"github.com/danielmoraes/lecto-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	ordersRepo := orders.NewRepository(dbClient.DB())
	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	entitlementsSvc, err := entitlements.NewService(entitlements.NewRepository(dbClient.DB()), outboxSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create entitlements service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(ordersRepo, dbClient, outboxSvc, entitlementsSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	catalogSvc, err := catalog.NewService(catalog.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	asaasClient, err := asaas.NewClient(context.Background(), cfg.Asaas, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create asaas client", err)
		os.Exit(1)
	}

	gatewayAdapter, err := gateway.NewAdapter(asaasClient, cfg.Asaas, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway adapter", err)
		os.Exit(1)
	}

	identitySvc, err := identity.NewService(identity.NewRepository(dbClient.DB()), dbClient, outboxSvc, redisClient, cfg.JWT, cfg.Password, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create identity service", err)
		os.Exit(1)
	}

	checkoutSvc, err := checkout.NewService(dbClient, ordersRepo, ordersSvc, catalogSvc, gatewayAdapter, identitySvc, outboxSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	webhookSvc, err := paymentswebhook.NewService(paymentswebhook.ServiceParams{
		OrdersRepo:  ordersRepo,
		OrdersSvc:   ordersSvc,
		Gateway:     gatewayAdapter,
		Idempotency: redisClient,
		EventTTL:    cfg.Reconcile.WebhookTTL,
		Metrics:     metrics.NewWebhookMetrics(prometheus.DefaultRegisterer),
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, checkoutSvc, ordersSvc, webhookSvc),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
