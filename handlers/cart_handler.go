package handlers

import (
	"campus_market/internal/cart"

	"github.com/gofiber/fiber/v2"
)

type CartHandler struct {
	Cart *cart.Service
}

func NewCartHandler(svc *cart.Service) *CartHandler {
	return &CartHandler{Cart: svc}
}

type CartItemRequest struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// GetCart - GET /api/cart
func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	summary, err := h.Cart.Get(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return ok(c, "Cart", summary)
}

// AddToCart - POST /api/cart; quantity defaults to 1.
func (h *CartHandler) AddToCart(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	req := CartItemRequest{Quantity: 1}
	if err := parseBody(c, &req); err != nil {
		return err
	}
	item, err := h.Cart.Add(c.UserContext(), userID, req.ProductID, req.Quantity)
	if err != nil {
		return mapError(err)
	}
	return ok(c, "Added to cart", item)
}

// UpdateCartItem - PUT /api/cart/:productID
func (h *CartHandler) UpdateCartItem(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	productID, err := paramID(c, "productID")
	if err != nil {
		return err
	}
	var req CartItemRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	item, err := h.Cart.SetQuantity(c.UserContext(), userID, productID, req.Quantity)
	if err != nil {
		return mapError(err)
	}
	return ok(c, "Cart updated", item)
}

// RemoveFromCart - DELETE /api/cart/:productID
func (h *CartHandler) RemoveFromCart(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	productID, err := paramID(c, "productID")
	if err != nil {
		return err
	}
	if err := h.Cart.Remove(c.UserContext(), userID, productID); err != nil {
		return mapError(err)
	}
	return ok(c, "Removed from cart", nil)
}

// ClearCart - DELETE /api/cart
func (h *CartHandler) ClearCart(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.Cart.Clear(c.UserContext(), userID); err != nil {
		return err
	}
	return ok(c, "Cart cleared", nil)
}
