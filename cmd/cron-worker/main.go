package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/larder-backend/internal/catalog"
	"github.com/angelmondragon/larder-backend/internal/cron"
	"github.com/angelmondragon/larder-backend/internal/ledger"
	"github.com/angelmondragon/larder-backend/internal/purchasing"
	"github.com/angelmondragon/larder-backend/internal/recipes"
	"github.com/angelmondragon/larder-backend/internal/replenishment"
	"github.com/angelmondragon/larder-backend/pkg/config"
	"github.com/angelmondragon/larder-backend/pkg/db"
	"github.com/angelmondragon/larder-backend/pkg/instance"
	"github.com/angelmondragon/larder-backend/pkg/logger"
	"github.com/angelmondragon/larder-backend/pkg/metrics"
	"github.com/angelmondragon/larder-backend/pkg/migrate"
	"github.com/angelmondragon/larder-backend/pkg/outbox"
	"github.com/angelmondragon/larder-backend/pkg/redis"
)

const lockName = "cron-worker:%s"

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
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
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

	deficits, err := buildReplenishment(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire replenishment", err)
		os.Exit(1)
	}
	outboxRepo := outbox.NewRepository(dbClient.DB())

	lowStock := cron.LowStockJobParams{
		Logger:   logg,
		DB:       dbClient,
		Deficits: deficits,
		Outbox:   outbox.NewService(outboxRepo, logg),
		Cooldown: cfg.Cron.AlertCooldown,
	}

	var lock cron.Lock = &cron.LocalLock{}
	if cfg.Redis.Enabled() {
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
		redisLock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockKey(cfg.App.Env)), cfg.Cron.LockTTL)
		if err != nil {
			logg.Error(context.Background(), "failed to create cron lock", err)
			os.Exit(1)
		}
		lock = redisLock
		lowStock.Gate = redisClient
	} else {
		logg.Warn(context.Background(), "redis not configured; using in-process lock and no alert cooldown")
	}

	lowStockJob, err := cron.NewLowStockJob(lowStock)
	if err != nil {
		logg.Error(context.Background(), "failed to create low-stock job", err)
		os.Exit(1)
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		DB:          dbClient,
		Repository:  outboxRepo,
		Retention:   cfg.Cron.OutboxRetentionDays,
		MinAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(lowStockJob, retentionJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.ID(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockName, env)
}

// buildReplenishment wires the read side the low-stock job needs. Orders are
// never created from here, but the service requires the full graph.
func buildReplenishment(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (replenishment.Service, error) {
	vat, err := cfg.Replenishment.VAT()
	if err != nil {
		return nil, err
	}
	conn := dbClient.DB()
	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn), dbClient)
	if err != nil {
		return nil, err
	}
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn), ledger.WithLogger(logg))
	if err != nil {
		return nil, err
	}
	recipeSvc, err := recipes.NewService(recipes.NewRepository(conn), dbClient)
	if err != nil {
		return nil, err
	}
	purchasingSvc, err := purchasing.NewService(purchasing.ServiceParams{
		Repo:    purchasing.NewRepository(conn),
		Tx:      dbClient,
		Outbox:  outbox.NewService(outbox.NewRepository(conn), logg),
		Ledger:  ledgerSvc,
		VATRate: vat,
		Logger:  logg,
	})
	if err != nil {
		return nil, err
	}
	return replenishment.NewService(replenishment.ServiceParams{
		Catalog: catalogSvc,
		Stock:   ledgerSvc,
		Recipes: recipeSvc,
		Orders:  purchasingSvc,
		VATRate: vat,
		Logger:  logg,
	})
}
