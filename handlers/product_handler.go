package handlers

import (
	"campus_market/internal/catalog"
	"campus_market/models"
	"campus_market/utils"

	"github.com/gofiber/fiber/v2"
)

type ProductHandler struct {
	Catalog *catalog.Service
}

func NewProductHandler(svc *catalog.Service) *ProductHandler {
	return &ProductHandler{Catalog: svc}
}

// CreateProduct - POST /api/products
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req catalog.Listing
	if err := parseBody(c, &req); err != nil {
		return err
	}
	product, err := h.Catalog.Create(c.UserContext(), userID, req)
	if err != nil {
		return mapError(err)
	}
	return created(c, "Product submitted for review", product)
}

// GetAllProducts - GET /api/products
func (h *ProductHandler) GetAllProducts(c *fiber.Ctx) error {
	page, limit := pageQuery(c)
	products, total, err := h.Catalog.List(c.UserContext(), catalog.Filter{
		Category: c.Query("category"),
		Query:    c.Query("q"),
		SellerID: uint(c.QueryInt("seller_id", 0)),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		return err
	}
	return paged(c, "Products", products, page, limit, total)
}

// GetProduct - GET /api/products/:id counts a view.
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	product, err := h.Catalog.View(c.UserContext(), id)
	if err != nil {
		return mapError(err)
	}
	return ok(c, "Product", product)
}

// UpdateProduct - PUT /api/products/:id
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req catalog.Edit
	if err := parseBody(c, &req); err != nil {
		return err
	}
	product, err := h.Catalog.Update(c.UserContext(), userID, id, req)
	if err != nil {
		return mapError(err)
	}
	return ok(c, "Product updated", product)
}

// DeleteProduct - DELETE /api/products/:id
func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	backOffice := models.IsBackOfficeRole(utils.CurrentRole(c))
	if err := h.Catalog.Delete(c.UserContext(), userID, id, backOffice); err != nil {
		return mapError(err)
	}
	return ok(c, "Product deleted", nil)
}

// GetMyProducts - GET /api/my-products lists every status.
func (h *ProductHandler) GetMyProducts(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	products, err := h.Catalog.Mine(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return ok(c, "My products", products)
}
