package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/larder-backend/pkg/db/models"
	"github.com/angelmondragon/larder-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/larder-backend/pkg/errors"
	"github.com/angelmondragon/larder-backend/pkg/logger"
	"github.com/angelmondragon/larder-backend/pkg/metrics"
)

// Service defines the stock ledger: an append-only movement history from
// which current stock is derived.
type Service interface {
	RecordMovement(ctx context.Context, input RecordMovementInput) (*models.StockMovement, error)
	AppendMovement(ctx context.Context, tx *gorm.DB, input RecordMovementInput) (*models.StockMovement, error)
	CurrentStock(ctx context.Context, ingredientID uuid.UUID) (decimal.Decimal, error)
	StockLevels(ctx context.Context, ingredientIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
	MovementsFor(ctx context.Context, ingredientID uuid.UUID, window DateRange) ([]models.StockMovement, error)
}

// RecordMovementInput captures one signed stock change. Kind defaults from
// the sign of Quantity; OccurredAt defaults to now.
type RecordMovementInput struct {
	IngredientID    uuid.UUID
	Quantity        decimal.Decimal
	Kind            enums.MovementKind
	OccurredAt      *time.Time
	LotNumber       *string
	ExpiresAt       *time.Time
	Note            *string
	PurchaseOrderID *uuid.UUID
}

// DateRange bounds MovementsFor. Both ends are inclusive and optional.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// Option customises the ledger service.
type Option func(*service)

// WithClock overrides the clock used for "now".
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetrics records movement counters.
func WithMetrics(m *metrics.ReplenishmentMetrics) Option {
	return func(s *service) {
		s.metrics = m
	}
}

// WithLogger attaches a logger for movement audit lines.
func WithLogger(logg *logger.Logger) Option {
	return func(s *service) {
		s.logg = logg
	}
}

type service struct {
	repo    Repository
	now     func() time.Time
	metrics *metrics.ReplenishmentMetrics
	logg    *logger.Logger
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository, opts ...Option) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	svc := &service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

func (s *service) RecordMovement(ctx context.Context, input RecordMovementInput) (*models.StockMovement, error) {
	return s.record(ctx, s.repo, input)
}

// AppendMovement records a movement inside the caller's transaction.
func (s *service) AppendMovement(ctx context.Context, tx *gorm.DB, input RecordMovementInput) (*models.StockMovement, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	return s.record(ctx, s.repo.WithTx(tx), input)
}

func (s *service) record(ctx context.Context, repo Repository, input RecordMovementInput) (*models.StockMovement, error) {
	if input.IngredientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ingredient id required")
	}
	kind, err := resolveKind(input.Kind, input.Quantity)
	if err != nil {
		return nil, err
	}

	exists, err := repo.IngredientExists(ctx, input.IngredientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ingredient")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ingredient not found")
	}

	occurredAt := s.now().UTC()
	if input.OccurredAt != nil && !input.OccurredAt.IsZero() {
		occurredAt = input.OccurredAt.UTC()
	}

	movement := &models.StockMovement{
		ID:              uuid.New(),
		IngredientID:    input.IngredientID,
		Quantity:        input.Quantity,
		Kind:            kind,
		OccurredAt:      occurredAt,
		LotNumber:       trimmed(input.LotNumber),
		ExpiresAt:       utc(input.ExpiresAt),
		Note:            trimmed(input.Note),
		PurchaseOrderID: input.PurchaseOrderID,
	}
	if err := repo.Create(ctx, movement); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record stock movement")
	}

	s.metrics.IncMovement(string(kind))
	if s.logg != nil {
		logCtx := s.logg.WithIngredientID(ctx, input.IngredientID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"movement_id": movement.ID.String(),
			"kind":        string(kind),
			"quantity":    movement.Quantity.String(),
		})
		s.logg.Debug(logCtx, "stock movement recorded")
	}
	return movement, nil
}

// resolveKind applies the sign rules: load is positive, unload negative and
// adjustment either way. Zero is never a movement.
func resolveKind(kind enums.MovementKind, quantity decimal.Decimal) (enums.MovementKind, error) {
	if quantity.IsZero() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "quantity must be non-zero")
	}
	if kind == "" {
		if quantity.IsPositive() {
			return enums.MovementKindLoad, nil
		}
		return enums.MovementKindUnload, nil
	}
	if !kind.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid movement kind %q", kind))
	}
	switch kind {
	case enums.MovementKindLoad:
		if !quantity.IsPositive() {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "load quantity must be positive")
		}
	case enums.MovementKindUnload:
		if !quantity.IsNegative() {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "unload quantity must be negative")
		}
	}
	return kind, nil
}

func (s *service) CurrentStock(ctx context.Context, ingredientID uuid.UUID) (decimal.Decimal, error) {
	if ingredientID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "ingredient id required")
	}
	exists, err := s.repo.IngredientExists(ctx, ingredientID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ingredient")
	}
	if !exists {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "ingredient not found")
	}

	levels, err := s.StockLevels(ctx, []uuid.UUID{ingredientID})
	if err != nil {
		return decimal.Zero, err
	}
	return levels[ingredientID], nil
}

// StockLevels sums every movement up to now for each ingredient. Ingredients
// without movements report zero.
func (s *service) StockLevels(ctx context.Context, ingredientIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	levels := make(map[uuid.UUID]decimal.Decimal, len(ingredientIDs))
	for _, id := range ingredientIDs {
		levels[id] = decimal.Zero
	}
	if len(ingredientIDs) == 0 {
		return levels, nil
	}

	rows, err := s.repo.QuantitiesAsOf(ctx, ingredientIDs, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock movements")
	}
	for _, row := range rows {
		levels[row.IngredientID] = levels[row.IngredientID].Add(row.Quantity)
	}
	return levels, nil
}

func (s *service) MovementsFor(ctx context.Context, ingredientID uuid.UUID, window DateRange) ([]models.StockMovement, error) {
	if ingredientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ingredient id required")
	}
	if window.From != nil && window.To != nil && window.To.Before(*window.From) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date range end precedes start")
	}
	exists, err := s.repo.IngredientExists(ctx, ingredientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ingredient")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ingredient not found")
	}

	movements, err := s.repo.ListByIngredient(ctx, ingredientID, window.From, window.To)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stock movements")
	}
	return movements, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}

func utc(value *time.Time) *time.Time {
	if value == nil || value.IsZero() {
		return nil
	}
	v := value.UTC()
	return &v
}
