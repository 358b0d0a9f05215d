package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"campus_market/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer signs and verifies session tokens.
type TokenIssuer struct {
	Secret []byte
	TTL    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{Secret: []byte(secret), TTL: ttl}
}

// Generate returns a signed HS256 token carrying user_id and role.
func (t *TokenIssuer) Generate(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"role":    user.Role,
		"exp":     time.Now().Add(t.TTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.Secret)
}

// Parse validates the token signature and expiry and returns its claims.
func (t *TokenIssuer) Parse(tokenString string) (uint, string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.Secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return 0, "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, "", errors.New("invalid token claims")
	}
	userID, ok := claims["user_id"].(float64)
	if !ok || userID <= 0 {
		return 0, "", errors.New("token has no user")
	}
	role, _ := claims["role"].(string)
	return uint(userID), role, nil
}

// AuthMiddleware accepts "Authorization: Bearer <token>" or, for websocket
// upgrades that cannot set headers, a ?token= query parameter.
func (t *TokenIssuer) AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := ""
		if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				return fiber.NewError(fiber.StatusUnauthorized, "Token format is invalid")
			}
		} else {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "No token provided")
		}

		userID, role, err := t.Parse(tokenString)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return fiber.NewError(fiber.StatusUnauthorized, "Token has expired")
			}
			return fiber.NewError(fiber.StatusUnauthorized, "Token is invalid")
		}

		c.Locals("user_id", userID)
		c.Locals("role", role)
		return c.Next()
	}
}
