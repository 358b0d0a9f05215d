// Package testutil builds throwaway databases and fixtures for package tests.
package testutil

import (
	"fmt"
	"testing"

	"campus_market/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory SQLite database with the full schema.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// CreateUser inserts a user with a unique username.
func CreateUser(t testing.TB, db *gorm.DB, role string, verified bool) *models.User {
	t.Helper()
	name := "u" + uuid.NewString()[:8]
	user := &models.User{
		Username:         name,
		Email:            name + "@example.com",
		Password:         "x",
		FullName:         name,
		Role:             role,
		IsVerifiedSeller: verified,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateProduct inserts an approved listing. A nil quantity means unlimited stock.
func CreateProduct(t testing.TB, db *gorm.DB, sellerID uint, price string, quantity *int) *models.Product {
	t.Helper()
	product := &models.Product{
		SellerID:    sellerID,
		Title:       "Item " + uuid.NewString()[:6],
		Price:       decimal.RequireFromString(price),
		Category:    "books",
		Quantity:    quantity,
		IsUnlimited: quantity == nil,
		Status:      models.ProductApproved,
		Source:      models.SourceSeller,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func IntPtr(v int) *int { return &v }
