package handlers

import (
	"campus_market/internal/verification"

	"github.com/gofiber/fiber/v2"
)

type VerificationHandler struct {
	Verification *verification.Service
}

func NewVerificationHandler(svc *verification.Service) *VerificationHandler {
	return &VerificationHandler{Verification: svc}
}

// Submit - POST /api/verification
func (h *VerificationHandler) Submit(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req verification.Submission
	if err := parseBody(c, &req); err != nil {
		return err
	}
	submitted, err := h.Verification.Submit(c.UserContext(), userID, req)
	if err != nil {
		return mapError(err)
	}
	return created(c, "Verification submitted", submitted)
}

// Mine - GET /api/verification
func (h *VerificationHandler) Mine(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	reqs, err := h.Verification.Mine(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return ok(c, "Verification requests", reqs)
}
