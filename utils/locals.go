package utils

import "github.com/gofiber/fiber/v2"

// CurrentUserID returns the authenticated user id set by AuthMiddleware.
func CurrentUserID(c *fiber.Ctx) (uint, bool) {
	switch v := c.Locals("user_id").(type) {
	case uint:
		return v, v != 0
	case float64:
		return uint(v), v > 0
	}
	return 0, false
}

// CurrentRole returns the role claim of the session, or "".
func CurrentRole(c *fiber.Ctx) string {
	role, _ := c.Locals("role").(string)
	return role
}
