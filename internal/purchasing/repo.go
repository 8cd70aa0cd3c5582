package purchasing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/larder-backend/pkg/db/models"
	"github.com/angelmondragon/larder-backend/pkg/enums"
	"github.com/angelmondragon/larder-backend/pkg/pagination"
)

// Repository persists purchase orders and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.PurchaseOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error)
	List(ctx context.Context, filters OrderFilters, cursor *pagination.Cursor, limit int) ([]models.PurchaseOrder, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PurchaseOrderStatus, deliveredAt *time.Time, now time.Time) error
	UpdateLineDelivered(ctx context.Context, lineID uuid.UUID, delivered decimal.Decimal, now time.Time) error
	FindSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	FindIngredients(ctx context.Context, ids []uuid.UUID) ([]models.Ingredient, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a purchase order repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.PurchaseOrder) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error; err != nil {
		return err
	}
	if len(order.Lines) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&order.Lines).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	return r.find(ctx, r.db.WithContext(ctx), id)
}

// FindByIDForUpdate row-locks the order for the rest of the transaction.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	return r.find(ctx, r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *repository) find(ctx context.Context, query *gorm.DB, id uuid.UUID) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	if err := query.Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	lines, err := r.linesFor(ctx, []uuid.UUID{order.ID})
	if err != nil {
		return nil, err
	}
	order.Lines = lines[order.ID]
	return &order, nil
}

func (r *repository) linesFor(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]models.OrderLine, error) {
	var lines []models.OrderLine
	if err := r.db.WithContext(ctx).
		Where("order_id IN ?", orderIDs).
		Order("position ASC").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID][]models.OrderLine, len(orderIDs))
	for _, line := range lines {
		out[line.OrderID] = append(out[line.OrderID], line)
	}
	return out, nil
}

func (r *repository) List(ctx context.Context, filters OrderFilters, cursor *pagination.Cursor, limit int) ([]models.PurchaseOrder, error) {
	query := r.db.WithContext(ctx).Model(&models.PurchaseOrder{})
	if filters.SupplierID != nil {
		query = query.Where("supplier_id = ?", *filters.SupplierID)
	}
	if len(filters.Statuses) > 0 {
		query = query.Where("status IN ?", filters.Statuses)
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var orders []models.PurchaseOrder
	query = query.Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]uuid.UUID, 0, len(orders))
	for _, order := range orders {
		ids = append(ids, order.ID)
	}
	lines, err := r.linesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Lines = lines[orders[i].ID]
	}
	return orders, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PurchaseOrderStatus, deliveredAt *time.Time, now time.Time) error {
	updates := map[string]any{
		"status":     status,
		"updated_at": now,
	}
	if deliveredAt != nil {
		updates["delivered_at"] = *deliveredAt
	}
	return r.db.WithContext(ctx).
		Model(&models.PurchaseOrder{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) UpdateLineDelivered(ctx context.Context, lineID uuid.UUID, delivered decimal.Decimal, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderLine{}).
		Where("id = ?", lineID).
		Updates(map[string]any{
			"delivered_quantity": delivered,
			"updated_at":         now,
		}).Error
}

func (r *repository) FindSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&supplier).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *repository) FindIngredients(ctx context.Context, ids []uuid.UUID) ([]models.Ingredient, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var ingredients []models.Ingredient
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&ingredients).Error; err != nil {
		return nil, err
	}
	return ingredients, nil
}
