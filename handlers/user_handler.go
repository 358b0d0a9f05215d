package handlers

import (
	"strings"

	"campus_market/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type UserHandler struct {
	DB *gorm.DB
}

func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{DB: db}
}

// SearchUsers allows searching for users by username or email
func (h *UserHandler) SearchUsers(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Query parameter 'q' is required")
	}
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	like := "%" + strings.ToLower(query) + "%"
	var users []models.User
	err = h.DB.Select("id, username, email, full_name, image_url, campus, is_verified_seller").
		Where("(LOWER(username) LIKE ? OR LOWER(email) LIKE ?) AND id != ?", like, like, userID).
		Limit(10).
		Find(&users).Error
	if err != nil {
		return err
	}
	return ok(c, "Users found", users)
}

type meResponse struct {
	User         *models.User               `json:"user"`
	Verification *models.SellerVerification `json:"verification,omitempty"`
}

// Me - GET /api/me returns the session user with the latest seller
// verification request, if any.
func (h *UserHandler) Me(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		return mapError(err)
	}

	resp := meResponse{User: &user}
	var latest []models.SellerVerification
	if err := h.DB.Where("user_id = ?", userID).Order("created_at desc, id desc").
		Limit(1).Find(&latest).Error; err != nil {
		return err
	}
	if len(latest) == 1 {
		resp.Verification = &latest[0]
	}
	return ok(c, "Profile", resp)
}

type UpdateProfileRequest struct {
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
	ImageURL *string `json:"image_url"`
	Campus   *string `json:"campus"`
	Bio      *string `json:"bio"`
}

// UpdateProfile - PUT /api/me applies the fields present in the body.
func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req UpdateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	updates := map[string]any{}
	if req.FullName != nil {
		updates["full_name"] = strings.TrimSpace(*req.FullName)
	}
	if req.Phone != nil {
		if phone := strings.TrimSpace(*req.Phone); phone != "" {
			updates["phone"] = phone
		} else {
			updates["phone"] = nil
		}
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}
	if req.Campus != nil {
		updates["campus"] = strings.TrimSpace(*req.Campus)
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}

	if len(updates) > 0 {
		if req.Phone != nil && updates["phone"] != nil {
			var taken int64
			if err := h.DB.Model(&models.User{}).
				Where("phone = ? AND id != ?", updates["phone"], userID).
				Count(&taken).Error; err != nil {
				return err
			}
			if taken > 0 {
				return fiber.NewError(fiber.StatusConflict, "Phone number is already in use")
			}
		}
		if err := h.DB.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
			return err
		}
	}

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		return mapError(err)
	}
	return ok(c, "Profile updated", user)
}
