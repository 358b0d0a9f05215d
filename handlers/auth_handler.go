package handlers

import (
	"errors"
	"net/mail"
	"strings"

	"campus_market/models"
	"campus_market/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const minPasswordLength = 6

type AuthHandler struct {
	DB     *gorm.DB
	Tokens *utils.TokenIssuer
	Log    *zap.Logger
}

func NewAuthHandler(db *gorm.DB, tokens *utils.TokenIssuer, log *zap.Logger) *AuthHandler {
	return &AuthHandler{DB: db, Tokens: tokens, Log: log}
}

// RegisterRequest defines the payload for registration
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Campus   string `json:"campus"`
}

// LoginRequest accepts either an email or a username in Email.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register - POST /api/auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Username is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "A valid email is required")
	}
	if len(req.Password) < minPasswordLength {
		return fiber.NewError(fiber.StatusBadRequest, "Password must be at least 6 characters")
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return err
	}

	user := models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: hashedPassword,
		FullName: req.FullName,
		Campus:   req.Campus,
		Role:     models.RoleUser,
	}

	var taken int64
	if err := h.DB.Model(&models.User{}).
		Where("username = ? OR email = ?", user.Username, user.Email).
		Count(&taken).Error; err != nil {
		return err
	}
	if taken > 0 {
		return fiber.NewError(fiber.StatusConflict, "User already exists")
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return fiber.NewError(fiber.StatusConflict, "User already exists")
	}
	h.Log.Info("user registered", zap.Uint("user_id", user.ID))

	token, err := h.Tokens.Generate(&user)
	if err != nil {
		return err
	}
	return created(c, "User registered successfully", authResponse{Token: token, User: &user})
}

// Login - POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	login := strings.TrimSpace(req.Email)

	var user models.User
	err := h.DB.Where("email = ? OR username = ?", strings.ToLower(login), login).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
	}
	if err != nil {
		return err
	}

	if !utils.CheckPasswordHash(req.Password, user.Password) {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
	}

	token, err := h.Tokens.Generate(&user)
	if err != nil {
		return err
	}
	return ok(c, "Login successful", authResponse{Token: token, User: &user})
}
