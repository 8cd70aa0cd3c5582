// Package dbtest opens throwaway SQLite databases carrying the application
// schema for repository and end-to-end tests.
package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Decimal columns are TEXT so values round-trip exactly through SQLite.
var schema = []string{
	`CREATE TABLE suppliers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		contact_name TEXT,
		email TEXT,
		phone TEXT,
		lead_time_days INTEGER NOT NULL DEFAULT 0,
		payment_terms_type TEXT NOT NULL,
		payment_terms_days INTEGER NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE ingredients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT,
		unit TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		minimum_stock TEXT NOT NULL,
		active BOOLEAN NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE ingredient_suppliers (
		ingredient_id TEXT NOT NULL REFERENCES ingredients(id),
		supplier_id TEXT NOT NULL REFERENCES suppliers(id),
		position INTEGER NOT NULL,
		PRIMARY KEY (ingredient_id, supplier_id)
	)`,
	`CREATE TABLE stock_movements (
		id TEXT PRIMARY KEY,
		ingredient_id TEXT NOT NULL REFERENCES ingredients(id),
		quantity TEXT NOT NULL,
		kind TEXT NOT NULL,
		occurred_at DATETIME NOT NULL,
		lot_number TEXT,
		expires_at DATETIME,
		note TEXT,
		purchase_order_id TEXT,
		created_at DATETIME
	)`,
	`CREATE TABLE recipes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT,
		sale_price TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE recipe_lines (
		id TEXT PRIMARY KEY,
		recipe_id TEXT NOT NULL REFERENCES recipes(id),
		ingredient_id TEXT NOT NULL REFERENCES ingredients(id),
		quantity_per_batch TEXT NOT NULL
	)`,
	`CREATE TABLE purchase_orders (
		id TEXT PRIMARY KEY,
		order_number TEXT NOT NULL,
		supplier_id TEXT NOT NULL REFERENCES suppliers(id),
		status TEXT NOT NULL,
		order_date DATETIME NOT NULL,
		expected_delivery_date DATETIME NOT NULL,
		delivered_at DATETIME,
		subtotal TEXT NOT NULL,
		vat_rate TEXT NOT NULL,
		vat TEXT NOT NULL,
		total TEXT NOT NULL,
		notes TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE UNIQUE INDEX ux_purchase_orders_order_number ON purchase_orders (order_number)`,
	`CREATE TABLE order_lines (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL REFERENCES purchase_orders(id),
		ingredient_id TEXT NOT NULL REFERENCES ingredients(id),
		position INTEGER NOT NULL,
		ordered_quantity TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		delivered_quantity TEXT NOT NULL,
		line_total TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
}

// Open returns a private in-memory database with every table created.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	// Keep one connection so the shared-cache database survives between calls.
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return conn
}
