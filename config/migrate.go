package config

import (
	"campus_market/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB, log *zap.Logger) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Error("failed to migrate database schema", zap.Error(err))
		return err
	}
	log.Info("database migrations completed")

	// Categories are reference data; keep them present on every migration.
	return SeedCategories(db, log)
}

func ResetAndMigrate(db *gorm.DB, log *zap.Logger) error {
	all := models.All()
	if err := db.Migrator().DropTable(all...); err != nil {
		log.Error("failed to drop tables", zap.Error(err))
		return err
	}
	log.Info("all tables dropped")

	if err := db.AutoMigrate(all...); err != nil {
		log.Error("failed to auto migrate", zap.Error(err))
		return err
	}

	if err := SeedCategories(db, log); err != nil {
		return err
	}
	if err := SeedUsers(db, log); err != nil {
		return err
	}
	if err := SeedProducts(db, log); err != nil {
		return err
	}
	log.Info("database reset and migration completed")
	return nil
}
