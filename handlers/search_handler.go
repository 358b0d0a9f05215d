package handlers

import (
	"strings"

	"campus_market/internal/search"

	"github.com/gofiber/fiber/v2"
)

type SearchHandler struct {
	Search *search.Service
}

func NewSearchHandler(svc *search.Service) *SearchHandler {
	return &SearchHandler{Search: svc}
}

// SearchProducts - GET /api/search?q= returns at most ten fuzzy matches.
func (h *SearchHandler) SearchProducts(c *fiber.Ctx) error {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		return ok(c, "Search results", []search.Result{})
	}
	results, err := h.Search.Search(c.UserContext(), q)
	if err != nil {
		return err
	}
	return ok(c, "Search results", results)
}
