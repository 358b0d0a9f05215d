// Package cart keeps each user's shopping cart on the server, keyed by user id.
package cart

import (
	"context"
	"errors"
	"fmt"

	"campus_market/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrNotFound           = errors.New("item is not in the cart")
	ErrProductUnavailable = errors.New("product is not available")
	ErrOwnListing         = errors.New("cannot add your own listing to the cart")
	ErrExceedsStock       = errors.New("quantity exceeds available stock")
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Summary is the cart contents plus the item subtotal (delivery excluded).
type Summary struct {
	Items    []models.CartItem `json:"items"`
	Count    int               `json:"count"`
	Subtotal decimal.Decimal   `json:"subtotal"`
}

func (s *Service) Get(ctx context.Context, userID uint) (*Summary, error) {
	var items []models.CartItem
	err := s.db.WithContext(ctx).
		Preload("Product").
		Preload("Product.Seller", func(db *gorm.DB) *gorm.DB {
			return db.Select("id, username, full_name, image_url")
		}).
		Where("user_id = ?", userID).
		Order("id").
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	summary := &Summary{Items: items, Subtotal: decimal.Zero}
	for _, item := range items {
		summary.Count += item.Quantity
		summary.Subtotal = summary.Subtotal.Add(item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return summary, nil
}

// Add puts quantity units of a product in the cart, merging with an existing line.
func (s *Service) Add(ctx context.Context, userID, productID uint, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	var item models.CartItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := purchasable(tx, userID, productID)
		if err != nil {
			return err
		}

		err = tx.Where("user_id = ? AND product_id = ?", userID, productID).First(&item).Error
		isNew := errors.Is(err, gorm.ErrRecordNotFound)
		if err != nil && !isNew {
			return err
		}
		if isNew {
			item = models.CartItem{UserID: userID, ProductID: productID}
		}
		item.Quantity += quantity
		if !product.HasStock(item.Quantity) {
			return fmt.Errorf("%w: available %d", ErrExceedsStock, product.Available())
		}
		if isNew {
			return tx.Create(&item).Error
		}
		return tx.Model(&item).Update("quantity", item.Quantity).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// SetQuantity replaces the quantity of an existing line.
func (s *Service) SetQuantity(ctx context.Context, userID, productID uint, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	var item models.CartItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND product_id = ?", userID, productID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		product, err := purchasable(tx, userID, productID)
		if err != nil {
			return err
		}
		if !product.HasStock(quantity) {
			return fmt.Errorf("%w: available %d", ErrExceedsStock, product.Available())
		}
		item.Quantity = quantity
		return tx.Model(&item).Update("quantity", quantity).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Service) Remove(ctx context.Context, userID, productID uint) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) Clear(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
}

func purchasable(tx *gorm.DB, userID, productID uint) (*models.Product, error) {
	var product models.Product
	if err := tx.First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductUnavailable
		}
		return nil, err
	}
	if product.Status != models.ProductApproved {
		return nil, ErrProductUnavailable
	}
	if product.SellerID == userID {
		return nil, ErrOwnListing
	}
	return &product, nil
}
