package infra

import (
	"fmt"

	"catalogdesk/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the gorm connection backed by pgx and brings the schema up
// to date. The local schema is small (suppliers, users, product revisions), so
// AutoMigrate plus a few idempotent patches is enough.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
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

// RunMigrations creates or updates all tables. Also used by integration tests.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Supplier{},
		&model.User{},
		&model.ProductRevision{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs DDL that gorm tags cannot express. Each statement is
// guarded so re-running on an already-patched DB is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		{"revision history index", `
CREATE INDEX IF NOT EXISTS idx_product_revisions_product_created
    ON product_revisions (product_id, created_at DESC)`},
		{"active supplier name index", `
CREATE INDEX IF NOT EXISTS idx_suppliers_active_name
    ON suppliers (name)
    WHERE active`},
		{"case-insensitive username", `
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_lower
    ON users (lower(username))`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
