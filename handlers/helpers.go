package handlers

import (
	"campus_market/models"
	"campus_market/utils"

	"github.com/gofiber/fiber/v2"
)

func currentUser(c *fiber.Ctx) (uint, error) {
	id, ok := utils.CurrentUserID(c)
	if !ok {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "Invalid user session")
	}
	return id, nil
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid "+name)
	}
	return uint(id), nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid input")
	}
	return nil
}

// parseOptionalBody leaves out untouched when the request has no body.
func parseOptionalBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return parseBody(c, out)
}

func pageQuery(c *fiber.Ctx) (int, int) {
	return models.NormalizePage(c.QueryInt("page", 1), c.QueryInt("limit", models.DefaultPageSize))
}

func ok(c *fiber.Ctx, message string, data any) error {
	return c.JSON(models.SuccessResponse(message, data, nil))
}

func created(c *fiber.Ctx, message string, data any) error {
	return c.Status(fiber.StatusCreated).JSON(models.SuccessResponse(message, data, nil))
}

func paged(c *fiber.Ctx, message string, data any, page, limit int, total int64) error {
	return c.JSON(models.SuccessResponse(message, data, models.NewPaginationMeta(page, limit, total)))
}
