package handlers

import (
	"errors"

	"campus_market/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type WishlistHandler struct {
	DB *gorm.DB
}

func NewWishlistHandler(db *gorm.DB) *WishlistHandler {
	return &WishlistHandler{DB: db}
}

// GetWishlist - GET /api/wishlist
func (h *WishlistHandler) GetWishlist(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var items []models.WishlistItem
	if err := h.DB.WithContext(c.UserContext()).
		Preload("Product").
		Joins("JOIN products ON products.id = wishlist_items.product_id AND products.deleted_at IS NULL").
		Where("wishlist_items.user_id = ?", userID).
		Order("wishlist_items.created_at desc").
		Find(&items).Error; err != nil {
		return err
	}
	return ok(c, "Wishlist", items)
}

// AddToWishlist - PUT /api/wishlist/:productID is idempotent.
func (h *WishlistHandler) AddToWishlist(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	productID, err := paramID(c, "productID")
	if err != nil {
		return err
	}

	var product models.Product
	err = h.DB.Select("id").Where("status = ?", models.ProductApproved).First(&product, productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "Product not found")
	}
	if err != nil {
		return err
	}

	item := models.WishlistItem{UserID: userID, ProductID: productID}
	if err := h.DB.WithContext(c.UserContext()).
		Where(models.WishlistItem{UserID: userID, ProductID: productID}).
		FirstOrCreate(&item).Error; err != nil {
		return err
	}
	return ok(c, "Saved to wishlist", item)
}

// RemoveFromWishlist - DELETE /api/wishlist/:productID
func (h *WishlistHandler) RemoveFromWishlist(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	productID, err := paramID(c, "productID")
	if err != nil {
		return err
	}
	if err := h.DB.WithContext(c.UserContext()).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.WishlistItem{}).Error; err != nil {
		return err
	}
	return ok(c, "Removed from wishlist", nil)
}
