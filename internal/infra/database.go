package infra

import (
	"fmt"

	"brewpos/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens a GORM connection backed by pgx and brings the schema up
// to date.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates or updates every table, then applies the DDL that
// AutoMigrate cannot express.
func RunMigrations(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
		return fmt.Errorf("pgcrypto: %w", err)
	}
	if err := db.AutoMigrate(
		&model.Ingredient{},
		&model.Product{},
		&model.PaymentProfile{},
		&model.ShopSettings{},
		&model.Invoice{},
		&model.SaleRecord{},
		&model.StockMovement{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL statements. Each one is guarded so
// re-running on an already-patched DB is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// combo lookups by component: components @> '[{"product_id": ...}]'
		{"gin index on products.components",
			`CREATE INDEX IF NOT EXISTS idx_products_components ON products USING GIN (components jsonb_path_ops)`},
		// low-stock cron query
		{"partial index for ingredients below minimum",
			`CREATE INDEX IF NOT EXISTS idx_ingredients_below_min ON ingredients (name) WHERE stock < min_stock`},
		{"combo discount range",
			`DO $$ BEGIN
			  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_products_discount') THEN
			    ALTER TABLE products ADD CONSTRAINT chk_products_discount
			      CHECK (discount_percent >= 0 AND discount_percent <= 50);
			  END IF;
			END $$`},
		{"single settings row",
			`INSERT INTO shop_settings (id, allow_negative_stock, updated_at) VALUES (1, false, NOW())
			 ON CONFLICT (id) DO NOTHING`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
