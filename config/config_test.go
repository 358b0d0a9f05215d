package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("JWT_EXPIRES_IN", "")
	t.Setenv("DELIVERY_FEE_CAMPUS", "")

	cfg := LoadConfig()
	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, 72*time.Hour, cfg.JWTExpiration)
	assert.True(t, cfg.DeliveryFeeCampus.Equal(decimal.NewFromInt(15)))
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("JWT_EXPIRES_IN", "1h")
	t.Setenv("DELIVERY_FEE_COURIER", "12.75")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example")

	cfg := LoadConfig()
	assert.Equal(t, "9000", cfg.AppPort)
	assert.Equal(t, time.Hour, cfg.JWTExpiration)
	assert.True(t, cfg.DeliveryFeeCourier.Equal(decimal.RequireFromString("12.75")))
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowOrigins)
}

func TestValidate(t *testing.T) {
	cfg := &Config{DatabaseDriver: "postgres", StorageDriver: "local"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "DATABASE_URL")

	cfg = &Config{JWTSecret: "s", DatabaseURL: "x", DatabaseDriver: "sqlite", StorageDriver: "gridfs"}
	assert.ErrorContains(t, cfg.Validate(), "MONGO_URI")

	cfg.MongoURI = "mongodb://localhost"
	assert.NoError(t, cfg.Validate())
}

func TestLoadFixtures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
categories:
  - name: Books
    slug: books
users:
  - username: alice
    email: alice@example.com
    password: secret
    verified_seller: true
products:
  - seller: alice
    title: Lab Coat
    price: "12.50"
    quantity: 2
    status: approved
`), 0o600))

	f, err := LoadFixtures(path)
	require.NoError(t, err)
	require.Len(t, f.Products, 1)
	assert.Equal(t, "alice", f.Products[0].Seller)
	assert.Equal(t, 2, *f.Products[0].Quantity)
	assert.True(t, f.Users[0].VerifiedSeller)
}
