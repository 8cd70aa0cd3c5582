package main

import (
	"github.com/angelmondragon/larder-backend/internal/catalog"
	"github.com/angelmondragon/larder-backend/internal/ledger"
	"github.com/angelmondragon/larder-backend/internal/purchasing"
	"github.com/angelmondragon/larder-backend/internal/recipes"
	"github.com/angelmondragon/larder-backend/internal/replenishment"
	"github.com/angelmondragon/larder-backend/pkg/config"
	"github.com/angelmondragon/larder-backend/pkg/db"
	"github.com/angelmondragon/larder-backend/pkg/logger"
	"github.com/angelmondragon/larder-backend/pkg/metrics"
	"github.com/angelmondragon/larder-backend/pkg/outbox"
)

type services struct {
	catalog       catalog.Service
	ledger        ledger.Service
	recipes       recipes.Service
	purchasing    purchasing.Service
	replenishment replenishment.Service
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, m *metrics.ReplenishmentMetrics) (*services, error) {
	vat, err := cfg.Replenishment.VAT()
	if err != nil {
		return nil, err
	}
	conn := dbClient.DB()

	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn), dbClient)
	if err != nil {
		return nil, err
	}
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn), ledger.WithLogger(logg), ledger.WithMetrics(m))
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
		Metrics: m,
	})
	if err != nil {
		return nil, err
	}
	replenishmentSvc, err := replenishment.NewService(replenishment.ServiceParams{
		Catalog: catalogSvc,
		Stock:   ledgerSvc,
		Recipes: recipeSvc,
		Orders:  purchasingSvc,
		VATRate: vat,
		Logger:  logg,
		Metrics: m,
	})
	if err != nil {
		return nil, err
	}

	return &services{
		catalog:       catalogSvc,
		ledger:        ledgerSvc,
		recipes:       recipeSvc,
		purchasing:    purchasingSvc,
		replenishment: replenishmentSvc,
	}, nil
}
