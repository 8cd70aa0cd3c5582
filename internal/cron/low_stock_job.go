package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/larder-backend/internal/catalog"
	"github.com/angelmondragon/larder-backend/internal/replenishment"
	"github.com/angelmondragon/larder-backend/pkg/enums"
	"github.com/angelmondragon/larder-backend/pkg/logger"
	"github.com/angelmondragon/larder-backend/pkg/outbox"
	"github.com/angelmondragon/larder-backend/pkg/outbox/payloads"
)

const defaultAlertCooldown = 24 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type deficitReporter interface {
	DeficitsFor(ctx context.Context, filter catalog.IngredientFilter) (replenishment.DeficitReport, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// alertGate suppresses repeated alerts for the same ingredient. SetNX
// returns false while an earlier alert is still cooling down.
type alertGate interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

type LowStockJobParams struct {
	Logger   *logger.Logger
	DB       txRunner
	Deficits deficitReporter
	Outbox   outboxPublisher
	// Gate is optional; without it every cycle alerts every deficit.
	Gate     alertGate
	Cooldown time.Duration
}

func NewLowStockJob(params LowStockJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Deficits == nil {
		return nil, fmt.Errorf("deficit reporter required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	cooldown := params.Cooldown
	if cooldown <= 0 {
		cooldown = defaultAlertCooldown
	}
	return &lowStockJob{
		logg:     params.Logger,
		db:       params.DB,
		deficits: params.Deficits,
		outbox:   params.Outbox,
		gate:     params.Gate,
		cooldown: cooldown,
		now:      time.Now,
	}, nil
}

type lowStockJob struct {
	logg     *logger.Logger
	db       txRunner
	deficits deficitReporter
	outbox   outboxPublisher
	gate     alertGate
	cooldown time.Duration
	now      func() time.Time
}

func (j *lowStockJob) Name() string { return "low-stock" }

// Run scans active ingredients and queues one stock_deficit_detected event
// per deficit. Each alert commits on its own so one failure does not hold
// back the others.
func (j *lowStockJob) Run(ctx context.Context) error {
	report, err := j.deficits.DeficitsFor(ctx, catalog.IngredientFilter{})
	if err != nil {
		return fmt.Errorf("scan deficits: %w", err)
	}

	negative := make(map[uuid.UUID]bool, len(report.Warnings))
	for _, warning := range report.Warnings {
		if warning.Type == enums.ReplenishmentWarningNegativeStock {
			negative[warning.IngredientID] = true
		}
	}

	detectedAt := j.now().UTC()
	var errs error
	emitted, suppressed := 0, 0
	for _, deficit := range report.Deficits {
		fresh, err := j.claim(ctx, deficit.IngredientID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("alert gate %s: %w", deficit.IngredientID, err))
			continue
		}
		if !fresh {
			suppressed++
			continue
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventStockDeficitDetected,
			AggregateType: enums.AggregateIngredient,
			AggregateID:   deficit.IngredientID,
			OccurredAt:    detectedAt,
			Data: payloads.StockDeficitDetectedEvent{
				IngredientID:   deficit.IngredientID,
				IngredientName: deficit.Name,
				CurrentStock:   deficit.CurrentStock,
				MinimumStock:   deficit.MinimumStock,
				Shortfall:      deficit.Shortfall,
				NegativeStock:  negative[deficit.IngredientID],
				DetectedAt:     detectedAt,
			},
		}
		err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
			return j.outbox.Emit(ctx, tx, event)
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("emit deficit %s: %w", deficit.IngredientID, err))
			errs = multierr.Append(errs, j.unclaim(ctx, deficit.IngredientID))
			continue
		}
		emitted++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"deficits":   len(report.Deficits),
		"warnings":   len(report.Warnings),
		"emitted":    emitted,
		"suppressed": suppressed,
	})
	if errs != nil {
		return errs
	}
	j.logg.Info(logCtx, "low stock scan complete")
	return nil
}

func (j *lowStockJob) claim(ctx context.Context, ingredientID uuid.UUID) (bool, error) {
	if j.gate == nil {
		return true, nil
	}
	return j.gate.SetNX(ctx, alertKey(ingredientID), j.now().UTC().Format(time.RFC3339), j.cooldown)
}

func (j *lowStockJob) unclaim(ctx context.Context, ingredientID uuid.UUID) error {
	if j.gate == nil {
		return nil
	}
	return j.gate.Del(ctx, alertKey(ingredientID))
}

func alertKey(ingredientID uuid.UUID) string {
	return "stock-alert:" + ingredientID.String()
}
