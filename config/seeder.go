package config

import (
	"errors"
	"fmt"
	"os"

	"campus_market/models"
	"campus_market/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Fixtures is the YAML seed file layout used by `campusmarket seed --file`.
type Fixtures struct {
	Categories []CategoryFixture `yaml:"categories"`
	Users      []UserFixture     `yaml:"users"`
	Products   []ProductFixture  `yaml:"products"`
}

type CategoryFixture struct {
	Name string `yaml:"name"`
	Slug string `yaml:"slug"`
}

type UserFixture struct {
	Username       string `yaml:"username"`
	Email          string `yaml:"email"`
	Password       string `yaml:"password"`
	FullName       string `yaml:"full_name"`
	Role           string `yaml:"role"`
	VerifiedSeller bool   `yaml:"verified_seller"`
}

type ProductFixture struct {
	Seller      string `yaml:"seller"` // username
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Price       string `yaml:"price"`
	Category    string `yaml:"category"`
	Condition   string `yaml:"condition"`
	Quantity    *int   `yaml:"quantity"`
	Unlimited   bool   `yaml:"unlimited"`
	Status      string `yaml:"status"`
}

var defaultFixtures = Fixtures{
	Categories: []CategoryFixture{
		{Name: "Books & Notes", Slug: "books"},
		{Name: "Electronics", Slug: "electronics"},
		{Name: "Dorm & Living", Slug: "dorm"},
		{Name: "Clothing", Slug: "clothing"},
		{Name: "Food", Slug: "food"},
		{Name: "Services", Slug: "services"},
	},
	Users: []UserFixture{
		{Username: "admin", Email: "admin@example.com", Password: "password123", FullName: "Campus Admin", Role: models.RoleAdmin, VerifiedSeller: true},
		{Username: "user1", Email: "user1@example.com", Password: "password123", FullName: "User One", Role: models.RoleUser, VerifiedSeller: true},
		{Username: "user2", Email: "user2@example.com", Password: "password123", FullName: "User Two", Role: models.RoleUser},
	},
	Products: []ProductFixture{
		{Seller: "user1", Title: "Calculus Textbook 8th Edition", Price: "25.00", Category: "books", Condition: "used", Quantity: intPtr(1), Status: "approved"},
		{Seller: "user1", Title: "USB-C Charger 65W", Price: "18.50", Category: "electronics", Condition: "new", Quantity: intPtr(4), Status: "approved"},
		{Seller: "user1", Title: "Essay Proofreading", Price: "10.00", Category: "services", Unlimited: true, Status: "approved"},
	},
}

func intPtr(v int) *int { return &v }

// LoadFixtures parses a YAML fixtures file.
func LoadFixtures(path string) (*Fixtures, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	var f Fixtures
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures %s: %w", path, err)
	}
	return &f, nil
}

func SeedCategories(db *gorm.DB, log *zap.Logger) error {
	return seedCategories(db, log, defaultFixtures.Categories)
}

func SeedUsers(db *gorm.DB, log *zap.Logger) error {
	return seedUsers(db, log, defaultFixtures.Users)
}

func SeedProducts(db *gorm.DB, log *zap.Logger) error {
	return seedProducts(db, log, defaultFixtures.Products)
}

// SeedFixtures applies a fixtures set. Existing rows are left untouched.
func SeedFixtures(db *gorm.DB, log *zap.Logger, f *Fixtures) error {
	if err := seedCategories(db, log, f.Categories); err != nil {
		return err
	}
	if err := seedUsers(db, log, f.Users); err != nil {
		return err
	}
	return seedProducts(db, log, f.Products)
}

func seedCategories(db *gorm.DB, log *zap.Logger, fixtures []CategoryFixture) error {
	for i, fx := range fixtures {
		category := models.Category{Name: fx.Name, Slug: fx.Slug, Position: i}
		if err := db.Where(models.Category{Slug: fx.Slug}).FirstOrCreate(&category).Error; err != nil {
			return fmt.Errorf("seed category %s: %w", fx.Slug, err)
		}
	}
	log.Debug("categories seeded", zap.Int("count", len(fixtures)))
	return nil
}

func seedUsers(db *gorm.DB, log *zap.Logger, fixtures []UserFixture) error {
	for _, fx := range fixtures {
		var existing models.User
		err := db.Where("email = ?", fx.Email).First(&existing).Error
		if err == nil {
			log.Debug("user already exists", zap.String("username", fx.Username))
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hash, err := utils.HashPassword(fx.Password)
		if err != nil {
			return err
		}
		role := fx.Role
		if role == "" {
			role = models.RoleUser
		}
		user := models.User{
			Username:         fx.Username,
			Email:            fx.Email,
			Password:         hash,
			FullName:         fx.FullName,
			Role:             role,
			IsVerifiedSeller: fx.VerifiedSeller,
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("seed user %s: %w", fx.Username, err)
		}
		log.Info("user seeded", zap.String("username", user.Username), zap.Uint("id", user.ID))
	}
	return nil
}

func seedProducts(db *gorm.DB, log *zap.Logger, fixtures []ProductFixture) error {
	for _, fx := range fixtures {
		var seller models.User
		if err := db.Where("username = ?", fx.Seller).First(&seller).Error; err != nil {
			return fmt.Errorf("seed product %q: seller %q: %w", fx.Title, fx.Seller, err)
		}

		var count int64
		db.Model(&models.Product{}).Where("seller_id = ? AND title = ?", seller.ID, fx.Title).Count(&count)
		if count > 0 {
			continue
		}

		price, err := decimal.NewFromString(fx.Price)
		if err != nil {
			return fmt.Errorf("seed product %q: price: %w", fx.Title, err)
		}
		status := models.ProductStatus(fx.Status)
		if status == "" {
			status = models.ProductPending
		}
		product := models.Product{
			SellerID:    seller.ID,
			Title:       fx.Title,
			Description: fx.Description,
			Price:       price,
			Category:    fx.Category,
			Condition:   fx.Condition,
			Quantity:    fx.Quantity,
			IsUnlimited: fx.Unlimited,
			Status:      status,
			Source:      models.SourceSeller,
		}
		if err := product.Validate(); err != nil {
			return fmt.Errorf("seed product %q: %w", fx.Title, err)
		}
		if err := db.Create(&product).Error; err != nil {
			return fmt.Errorf("seed product %q: %w", fx.Title, err)
		}
	}
	log.Info("products seeded", zap.Int("count", len(fixtures)))
	return nil
}
