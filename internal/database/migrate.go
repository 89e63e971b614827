// Package database runs automatic schema migration and startup seeding,
// grounded on the teacher's internal/database/migrator.go (ordered
// AutoMigrate list, UUID extension bootstrap) and category_seeder.go
// (count-then-bulk-create idempotent seeding).
package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"txledger/internal/adapter/sourcestore"
	"txledger/internal/module/ingest/txdomain"
)

// AutoMigrate migrates every entity this engine owns, in dependency order.
func AutoMigrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")

	if err := enableUUIDExtension(db, log); err != nil {
		return fmt.Errorf("failed to enable uuid extension: %w", err)
	}

	entities := []interface{}{
		&txdomain.Category{},
		&sourcestore.BankSourceRow{},
		&sourcestore.RawRecordRow{},
		&txdomain.Transaction{},
		&txdomain.ProcessingRun{},
	}

	for _, entity := range entities {
		if err := db.AutoMigrate(entity); err != nil {
			log.Error("migration failed", zap.Error(err), zap.String("entity", fmt.Sprintf("%T", entity)))
			return fmt.Errorf("failed to migrate %T: %w", entity, err)
		}
	}

	log.Info("database migrations complete", zap.Int("entities", len(entities)))
	return nil
}

// enableUUIDExtension enables pgcrypto so gen_random_uuid() is available
// for default-value columns; a no-op (and harmless) call against sqlite in
// tests, since callers there use an explicit CREATE TABLE instead.
func enableUUIDExtension(db *gorm.DB, log *zap.Logger) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
		log.Warn("failed to enable pgcrypto extension", zap.Error(err))
		return err
	}
	return nil
}
