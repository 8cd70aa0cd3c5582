package purchasing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/larder-backend/internal/ledger"
	"github.com/angelmondragon/larder-backend/pkg/db"
	"github.com/angelmondragon/larder-backend/pkg/db/models"
	"github.com/angelmondragon/larder-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/larder-backend/pkg/errors"
	"github.com/angelmondragon/larder-backend/pkg/logger"
	"github.com/angelmondragon/larder-backend/pkg/metrics"
	"github.com/angelmondragon/larder-backend/pkg/outbox"
	"github.com/angelmondragon/larder-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/larder-backend/pkg/pagination"
)

const orderNumberConstraint = "ux_purchase_orders_order_number"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// MovementRecorder appends stock movements inside a caller-owned transaction.
type MovementRecorder interface {
	AppendMovement(ctx context.Context, tx *gorm.DB, input ledger.RecordMovementInput) (*models.StockMovement, error)
}

// Service drives purchase orders through their lifecycle.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.PurchaseOrder, error)
	CreateOrders(ctx context.Context, inputs []CreateOrderInput) ([]models.PurchaseOrder, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error)
	ListOrders(ctx context.Context, filters OrderFilters, params pagination.Params) (OrderList, error)
	OpenOrdersForSupplier(ctx context.Context, supplierID uuid.UUID) ([]models.PurchaseOrder, error)
	Transition(ctx context.Context, orderID uuid.UUID, target enums.PurchaseOrderStatus) (*models.PurchaseOrder, error)
	ApplyDelivery(ctx context.Context, input ApplyDeliveryInput) (*models.PurchaseOrder, error)
}

// ServiceParams groups the purchasing dependencies.
type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Outbox  outboxPublisher
	Ledger  MovementRecorder
	VATRate decimal.Decimal
	Logger  *logger.Logger
	Metrics *metrics.ReplenishmentMetrics
	Now     func() time.Time
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	ledger  MovementRecorder
	vatRate decimal.Decimal
	logg    *logger.Logger
	metrics *metrics.ReplenishmentMetrics
	now     func() time.Time
}

// NewService builds the purchase order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("purchasing repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("movement recorder required")
	}
	if params.VATRate.IsNegative() {
		return nil, fmt.Errorf("vat rate must not be negative")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.New(logger.Options{ServiceName: "purchasing", Output: io.Discard})
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		outbox:  params.Outbox,
		ledger:  params.Ledger,
		vatRate: params.VATRate,
		logg:    logg,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.PurchaseOrder, error) {
	orders, err := s.CreateOrders(ctx, []CreateOrderInput{input})
	if err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// CreateOrders persists every draft in one transaction; any invalid draft
// aborts the whole batch.
func (s *service) CreateOrders(ctx context.Context, inputs []CreateOrderInput) ([]models.PurchaseOrder, error) {
	if len(inputs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one order required")
	}
	for i := range inputs {
		if err := validateOrderInput(inputs[i]); err != nil {
			return nil, err
		}
	}

	created := make([]models.PurchaseOrder, 0, len(inputs))
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for _, input := range inputs {
			order, err := s.buildOrder(ctx, repo, input)
			if err != nil {
				return err
			}
			if err := repo.Create(ctx, order); err != nil {
				if db.IsUniqueViolation(err, orderNumberConstraint) {
					return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order number already exists")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create purchase order")
			}
			event := outbox.DomainEvent{
				EventType:     enums.EventPurchaseOrderCreated,
				AggregateType: enums.AggregatePurchaseOrder,
				AggregateID:   order.ID,
				Data: payloads.PurchaseOrderCreatedEvent{
					OrderID:     order.ID,
					OrderNumber: order.OrderNumber,
					SupplierID:  order.SupplierID,
					LineCount:   len(order.Lines),
					Total:       order.Total,
					Generated:   input.Generated,
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit purchase order created")
			}
			created = append(created, *order)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	generated := 0
	for _, input := range inputs {
		if input.Generated {
			generated++
		}
	}
	s.metrics.AddDrafts("generated", generated)
	s.metrics.AddDrafts("manual", len(inputs)-generated)
	for _, order := range created {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"order_number": order.OrderNumber,
			"supplier_id":  order.SupplierID.String(),
			"total":        order.Total.String(),
		})
		s.logg.Info(logCtx, "purchase order drafted")
	}
	return created, nil
}

func validateOrderInput(input CreateOrderInput) error {
	if input.SupplierID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "supplier id required")
	}
	if len(input.Lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one line")
	}
	seen := make(map[uuid.UUID]struct{}, len(input.Lines))
	for _, line := range input.Lines {
		if line.IngredientID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "ingredient id required")
		}
		if _, dup := seen[line.IngredientID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("ingredient %s ordered twice", line.IngredientID))
		}
		seen[line.IngredientID] = struct{}{}
		if line.Quantity.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "ordered quantity must be zero or positive")
		}
		if line.UnitPrice != nil && line.UnitPrice.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "unit price must be zero or positive")
		}
	}
	if input.OrderDate != nil && input.ExpectedDeliveryDate != nil && input.ExpectedDeliveryDate.Before(*input.OrderDate) {
		return pkgerrors.New(pkgerrors.CodeValidation, "expected delivery date precedes order date")
	}
	return nil
}

func (s *service) buildOrder(ctx context.Context, repo Repository, input CreateOrderInput) (*models.PurchaseOrder, error) {
	supplier, err := repo.FindSupplier(ctx, input.SupplierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
	}
	if !supplier.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier is inactive")
	}

	ids := make([]uuid.UUID, 0, len(input.Lines))
	for _, line := range input.Lines {
		ids = append(ids, line.IngredientID)
	}
	found, err := repo.FindIngredients(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ingredients")
	}
	ingredients := make(map[uuid.UUID]models.Ingredient, len(found))
	for _, ingredient := range found {
		ingredients[ingredient.ID] = ingredient
	}

	orderDate := s.now().UTC()
	if input.OrderDate != nil {
		orderDate = input.OrderDate.UTC()
	}
	expected := orderDate.AddDate(0, 0, supplier.LeadTimeDays)
	if input.ExpectedDeliveryDate != nil {
		expected = input.ExpectedDeliveryDate.UTC()
	}

	order := &models.PurchaseOrder{
		ID:                   uuid.New(),
		SupplierID:           supplier.ID,
		Status:               enums.PurchaseOrderStatusDraft,
		OrderDate:            orderDate,
		ExpectedDeliveryDate: expected,
		Notes:                trimmed(input.Notes),
	}
	order.OrderNumber = OrderNumber(orderDate, order.ID)

	lineTotals := make([]decimal.Decimal, 0, len(input.Lines))
	for i, line := range input.Lines {
		ingredient, ok := ingredients[line.IngredientID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("ingredient %s not found", line.IngredientID))
		}
		price := ingredient.UnitPrice
		if line.UnitPrice != nil {
			price = *line.UnitPrice
		}
		total := LineTotal(line.Quantity, price)
		lineTotals = append(lineTotals, total)
		order.Lines = append(order.Lines, models.OrderLine{
			ID:                uuid.New(),
			OrderID:           order.ID,
			IngredientID:      ingredient.ID,
			Position:          i,
			OrderedQuantity:   line.Quantity,
			UnitPrice:         price,
			DeliveredQuantity: decimal.Zero,
			LineTotal:         total,
		})
	}

	totals := ComputeTotals(lineTotals, s.vatRate)
	order.Subtotal = totals.Subtotal
	order.VATRate = totals.VATRate
	order.VAT = totals.VAT
	order.Total = totals.Total
	return order, nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, orderLookupError(err)
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context, filters OrderFilters, params pagination.Params) (OrderList, error) {
	for _, status := range filters.Statuses {
		if !status.IsValid() {
			return OrderList{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid purchase order status %q", status))
		}
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return OrderList{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	orders, err := s.repo.List(ctx, filters, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return OrderList{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchase orders")
	}

	list := OrderList{Orders: orders}
	if len(orders) > limit {
		list.Orders = orders[:limit]
		last := list.Orders[len(list.Orders)-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return list, nil
}

// OpenOrdersForSupplier returns orders still expecting goods or not yet sent,
// so callers can avoid drafting duplicates.
func (s *service) OpenOrdersForSupplier(ctx context.Context, supplierID uuid.UUID) ([]models.PurchaseOrder, error) {
	if supplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id required")
	}
	filters := OrderFilters{
		SupplierID: &supplierID,
		Statuses: []enums.PurchaseOrderStatus{
			enums.PurchaseOrderStatusDraft,
			enums.PurchaseOrderStatusSent,
			enums.PurchaseOrderStatusConfirmed,
			enums.PurchaseOrderStatusPartiallyDelivered,
		},
	}
	orders, err := s.repo.List(ctx, filters, nil, 0)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list open purchase orders")
	}
	return orders, nil
}

// Transition applies an operator status change. Requesting the current
// status succeeds without writing.
func (s *service) Transition(ctx context.Context, orderID uuid.UUID, target enums.PurchaseOrderStatus) (*models.PurchaseOrder, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid purchase order status %q", target))
	}

	var (
		result *models.PurchaseOrder
		from   enums.PurchaseOrderStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return orderLookupError(err)
		}
		from = order.Status
		if order.Status == target {
			result = order
			return nil
		}
		if err := ValidateTransition(*order, target); err != nil {
			return err
		}

		now := s.now().UTC()
		if err := repo.UpdateStatus(ctx, order.ID, target, nil, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase order status")
		}
		order.Status = target
		order.UpdatedAt = now
		if err := s.emitStatusChanged(ctx, tx, *order, from); err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	if from != result.Status {
		logCtx := s.logg.WithOrderID(ctx, result.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{"from": from, "to": result.Status})
		s.logg.Info(logCtx, "purchase order status changed")
	}
	return result, nil
}

func (s *service) emitStatusChanged(ctx context.Context, tx *gorm.DB, order models.PurchaseOrder, from enums.PurchaseOrderStatus) error {
	event := outbox.DomainEvent{
		EventType:     enums.EventPurchaseOrderStatusChanged,
		AggregateType: enums.AggregatePurchaseOrder,
		AggregateID:   order.ID,
		Data: payloads.PurchaseOrderStatusChangedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			SupplierID:  order.SupplierID,
			From:        from,
			To:          order.Status,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit purchase order status changed")
	}
	return nil
}

func orderLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase order")
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
