package config

import (
	"testing"

	"campus_market/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestResetAndMigrateSeedsDefaults(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	log := zap.NewNop()
	require.NoError(t, ResetAndMigrate(db, log))

	var users, products, categories int64
	db.Model(&models.User{}).Count(&users)
	db.Model(&models.Product{}).Count(&products)
	db.Model(&models.Category{}).Count(&categories)
	assert.Equal(t, int64(3), users)
	assert.Equal(t, int64(3), products)
	assert.Equal(t, int64(6), categories)

	// Seeding twice must not duplicate rows.
	require.NoError(t, SeedFixtures(db, log, &defaultFixtures))
	db.Model(&models.Product{}).Count(&products)
	assert.Equal(t, int64(3), products)
}
