package handlers

import (
	"campus_market/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CategoryHandler struct {
	DB *gorm.DB
}

func NewCategoryHandler(db *gorm.DB) *CategoryHandler {
	return &CategoryHandler{DB: db}
}

// GetCategories - GET /api/categories
func (h *CategoryHandler) GetCategories(c *fiber.Ctx) error {
	var categories []models.Category
	if err := h.DB.Order("position asc, name asc").Find(&categories).Error; err != nil {
		return err
	}
	return ok(c, "Categories", categories)
}
