package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/danielmoraes/lecto-backend/internal/catalog"
	"github.com/danielmoraes/lecto-backend/internal/checkout"
	"github.com/danielmoraes/lecto-backend/internal/cron"
	"github.com/danielmoraes/lecto-backend/internal/entitlements"
	"github.com/danielmoraes/lecto-backend/internal/gateway"
	"github.com/danielmoraes/lecto-backend/internal/identity"
	"github.com/danielmoraes/lecto-backend/internal/orders"
	"github.com/danielmoraes/lecto-backend/pkg/asaas"
	"github.com/danielmoraes/lecto-backend/pkg/config"
	"github.com/danielmoraes/lecto-backend/pkg/db"
	"github.com/danielmoraes/lecto-backend/pkg/logger"
	"github.com/danielmoraes/lecto-backend/pkg/metrics"
	"github.com/danielmoraes/lecto-backend/pkg/migrate"
	"github.com/danielmoraes/lecto-backend/pkg/outbox"
	"github.com/danielmoraes/lecto-backend/pkg/redis"
)

const lockName = "cron-worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	reconcileJob, err := cron.NewPaymentReconcileJob(ordersRepo, gatewayAdapter, ordersSvc, checkoutSvc, cfg.Reconcile, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment reconcile job", err)
		os.Exit(1)
	}

	entitlementJob, err := cron.NewEntitlementRetryJob(ordersRepo, entitlementsSvc, dbClient, cfg.Reconcile.BatchSize, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create entitlement retry job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Registry: cron.NewRegistry(reconcileJob, entitlementJob),
		Lock:     lock,
		Interval: cfg.Reconcile.RunInterval,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "cron-worker",
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
