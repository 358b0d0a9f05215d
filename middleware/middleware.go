package middleware

import (
	"errors"
	"slices"
	"strings"
	"time"

	"campus_market/config"
	"campus_market/internal/metrics"
	"campus_market/models"
	"campus_market/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupMiddleware configures all application middleware
func SetupMiddleware(app *fiber.App, cfg *config.Config, log *zap.Logger, m *metrics.Metrics) {
	// Request ID middleware - adds unique ID to each request
	app.Use(requestid.New())

	app.Use(RequestLogger(log))

	// Recover middleware - recovers from panics
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			log.Error("panic recovered",
				zap.Any("panic", e),
				zap.String("path", c.Path()),
				zap.Stack("stack"))
		},
	}))

	if m != nil {
		app.Use(m.Middleware())
	}

	// Security middleware
	app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         31536000,
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.CORSAllowOrigins, ","),
		AllowMethods:     strings.Join(cfg.CORSAllowMethods, ","),
		AllowHeaders:     strings.Join(cfg.CORSAllowHeaders, ","),
		AllowCredentials: false,
		ExposeHeaders:    "X-Request-ID",
		MaxAge:           86400, // 24 hours
	}))
}

// RequestLogger writes one structured access log line per request.
func RequestLogger(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		fields := []zap.Field{
			zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
			zap.Int("status", status),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
			zap.Duration("latency", time.Since(start)),
		}
		if id, ok := utils.CurrentUserID(c); ok {
			fields = append(fields, zap.Uint("user_id", id))
		}
		switch {
		case status >= fiber.StatusInternalServerError:
			log.Error("request", fields...)
		case status >= fiber.StatusBadRequest:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
		return err
	}
}

// SessionRole replaces the role claim with the role currently stored for
// the user, so promotions and demotions apply before the token expires.
// It must run after the auth middleware.
func SessionRole(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := refreshRole(c, db); err != nil {
			return err
		}
		return c.Next()
	}
}

// RequireRole allows the request only when the user's stored role is one
// of roles. It must run after the auth middleware.
func RequireRole(db *gorm.DB, roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := refreshRole(c, db); err != nil {
			return err
		}
		if slices.Contains(roles, utils.CurrentRole(c)) {
			return c.Next()
		}
		return fiber.NewError(fiber.StatusForbidden, "Insufficient permissions")
	}
}

func refreshRole(c *fiber.Ctx, db *gorm.DB) error {
	userID, ok := utils.CurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Authentication required")
	}
	var user models.User
	err := db.WithContext(c.UserContext()).Select("id, role").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.NewError(fiber.StatusUnauthorized, "Account no longer exists")
	}
	if err != nil {
		return err
	}
	c.Locals("role", user.Role)
	return nil
}

// NotFound answers any route that did not match.
func NotFound(c *fiber.Ctx) error {
	response := models.ErrorResponse("Not Found", "The requested resource was not found")
	response.RequestID = c.GetRespHeader(fiber.HeaderXRequestID)
	return c.Status(fiber.StatusNotFound).JSON(response)
}

// ErrorHandler renders every error returned by a handler in the standard
// envelope. Unexpected errors are logged and hidden from the client.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "Internal Server Error"

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
			msg = e.Message
		} else {
			log.Error("unhandled error",
				zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err))
		}

		response := models.ErrorResponse(msg, fiber.Map{"code": code})
		response.RequestID = c.GetRespHeader(fiber.HeaderXRequestID)
		return c.Status(code).JSON(response)
	}
}
