package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/larder-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestPurchaseOrderMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_purchase_orders.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	content := string(data)

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS purchase_orders",
		"CONSTRAINT ux_purchase_orders_order_number UNIQUE (order_number)",
		"delivered_quantity <= ordered_quantity",
		"CONSTRAINT ux_order_lines_ingredient UNIQUE (order_id, ingredient_id)",
		"CONSTRAINT ux_order_lines_position UNIQUE (order_id, position)",
		"DROP TABLE IF EXISTS purchase_orders",
	} {
		assert.Contains(t, content, sub)
	}
}

func TestStockMovementMigrationIsAppendOnly(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_stock_movements.sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "BEFORE UPDATE OR DELETE ON stock_movements")
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()

	path, err := CreateSQLMigration(dir, "Add Lot Index!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_lot_index.sql"), path)
	require.NoError(t, ValidateDir(dir))

	_, err = CreateSQLMigration(dir, "!!!")
	assert.Error(t, err)
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001_init.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	assert.Error(t, ValidateDir(dir))
}

func TestAutoMigrateModelsOnSQLite(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, AutoMigrateModels(conn))
	for _, model := range []any{&models.Ingredient{}, &models.StockMovement{}, &models.PurchaseOrder{}, &models.OutboxEvent{}} {
		assert.True(t, conn.Migrator().HasTable(model))
	}
}
