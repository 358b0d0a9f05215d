package handlers

import (
	"campus_market/internal/orders"
	"campus_market/models"

	"github.com/gofiber/fiber/v2"
)

// HeaderIdempotencyKey lets clients retry a checkout without duplicating orders.
const HeaderIdempotencyKey = "Idempotency-Key"

type OrderHandler struct {
	Orders *orders.Service
}

func NewOrderHandler(svc *orders.Service) *OrderHandler {
	return &OrderHandler{Orders: svc}
}

type CheckoutRequest struct {
	DeliveryMethod models.DeliveryMethod `json:"delivery_method"`
	Note           string                `json:"note"`
	IdempotencyKey string                `json:"idempotency_key"`
}

// Checkout - POST /api/checkout turns the cart into pending orders.
func (h *OrderHandler) Checkout(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	req := CheckoutRequest{DeliveryMethod: models.DeliveryMeetup}
	if err := parseOptionalBody(c, &req); err != nil {
		return err
	}
	key := c.Get(HeaderIdempotencyKey)
	if key == "" {
		key = req.IdempotencyKey
	}
	if len(key) > 64 {
		return fiber.NewError(fiber.StatusBadRequest, "Idempotency key is too long")
	}

	result, err := h.Orders.Checkout(c.UserContext(), orders.CheckoutRequest{
		BuyerID:        userID,
		DeliveryMethod: req.DeliveryMethod,
		IdempotencyKey: key,
		Note:           req.Note,
	})
	if err != nil {
		return mapError(err)
	}
	if result.Replayed {
		return ok(c, "Checkout already processed", result)
	}
	return created(c, "Order requests sent to sellers", result)
}

// GetMyOrders - GET /api/orders?status=
func (h *OrderHandler) GetMyOrders(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	list, err := h.Orders.ListForBuyer(c.UserContext(), userID, models.OrderStatus(c.Query("status")))
	if err != nil {
		return err
	}
	return ok(c, "Orders", list)
}

// GetSellerOrders - GET /api/seller/orders?status=
func (h *OrderHandler) GetSellerOrders(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	list, err := h.Orders.ListForSeller(c.UserContext(), userID, models.OrderStatus(c.Query("status")))
	if err != nil {
		return err
	}
	return ok(c, "Order requests", list)
}

// GetOrder - GET /api/orders/:id
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	order, err := h.Orders.Get(c.UserContext(), userID, id)
	if err != nil {
		return mapError(err)
	}
	return ok(c, "Order", order)
}

// ApproveOrder - POST /api/seller/orders/:id/approve
func (h *OrderHandler) ApproveOrder(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	order, err := h.Orders.Approve(c.UserContext(), userID, id)
	if err != nil {
		return mapError(err)
	}
	return ok(c, "Order approved", order)
}

// DeclineOrder - POST /api/seller/orders/:id/decline
func (h *OrderHandler) DeclineOrder(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	order, err := h.Orders.Decline(c.UserContext(), userID, id)
	if err != nil {
		return mapError(err)
	}
	return ok(c, "Order declined", order)
}

// DeleteOrder - DELETE /api/orders/:id; only approved or declined orders.
func (h *OrderHandler) DeleteOrder(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Orders.Delete(c.UserContext(), userID, id); err != nil {
		return mapError(err)
	}
	return ok(c, "Order deleted", nil)
}
