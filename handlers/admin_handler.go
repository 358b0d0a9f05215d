package handlers

import (
	"strings"

	"campus_market/internal/catalog"
	"campus_market/internal/verification"
	"campus_market/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AdminHandler serves the back-office: dashboard, moderation,
// merchandising, dropshipping and staff management.
type AdminHandler struct {
	DB           *gorm.DB
	Catalog      *catalog.Service
	Verification *verification.Service
	Log          *zap.Logger
}

func NewAdminHandler(db *gorm.DB, cat *catalog.Service, ver *verification.Service, log *zap.Logger) *AdminHandler {
	return &AdminHandler{DB: db, Catalog: cat, Verification: ver, Log: log}
}

type Dashboard struct {
	Users                int64            `json:"users"`
	VerifiedSellers      int64            `json:"verified_sellers"`
	PendingVerifications int64            `json:"pending_verifications"`
	Products             map[string]int64 `json:"products"`
	Orders               map[string]int64 `json:"orders"`
	Revenue              decimal.Decimal  `json:"revenue"`
}

type statusCount struct {
	Status string
	Count  int64
}

// GetDashboard - GET /api/admin/dashboard
func (h *AdminHandler) GetDashboard(c *fiber.Ctx) error {
	db := h.DB.WithContext(c.UserContext())
	d := Dashboard{
		Products: map[string]int64{},
		Orders:   map[string]int64{},
		Revenue:  decimal.Zero,
	}

	if err := db.Model(&models.User{}).Count(&d.Users).Error; err != nil {
		return err
	}
	if err := db.Model(&models.User{}).Where("is_verified_seller = ?", true).Count(&d.VerifiedSellers).Error; err != nil {
		return err
	}
	if err := db.Model(&models.SellerVerification{}).
		Where("status = ?", models.VerificationPending).
		Count(&d.PendingVerifications).Error; err != nil {
		return err
	}

	var rows []statusCount
	if err := db.Model(&models.Product{}).Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return err
	}
	for _, r := range rows {
		d.Products[r.Status] = r.Count
	}
	rows = nil
	if err := db.Model(&models.Order{}).Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return err
	}
	for _, r := range rows {
		d.Orders[r.Status] = r.Count
	}

	if err := db.Model(&models.Order{}).
		Select("COALESCE(SUM(final_total), 0)").
		Where("status = ?", models.OrderApproved).
		Row().Scan(&d.Revenue); err != nil {
		return err
	}
	return ok(c, "Dashboard", d)
}

// ListProducts - GET /api/admin/products?status=pending
func (h *AdminHandler) ListProducts(c *fiber.Ctx) error {
	status := models.ProductStatus(c.Query("status", string(models.ProductPending)))
	page, limit := pageQuery(c)
	products, total, err := h.Catalog.ByStatus(c.UserContext(), status, page, limit)
	if err != nil {
		return err
	}
	return paged(c, "Products", products, page, limit, total)
}

// ApproveProduct - POST /api/admin/products/:id/approve
func (h *AdminHandler) ApproveProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	product, err := h.Catalog.Approve(c.UserContext(), id)
	if err != nil {
		return mapError(err)
	}
	return ok(c, "Product approved", product)
}

type ReviewRequest struct {
	Reason string `json:"reason"`
	Note   string `json:"note"`
}

// RejectProduct - POST /api/admin/products/:id/reject
func (h *AdminHandler) RejectProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req ReviewRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Reason) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "A rejection reason is required")
	}
	product, err := h.Catalog.Reject(c.UserContext(), id, req.Reason)
	if err != nil {
		return mapError(err)
	}
	return ok(c, "Product rejected", product)
}

// CreateDropship - POST /api/admin/dropship
func (h *AdminHandler) CreateDropship(c *fiber.Ctx) error {
	adminID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req catalog.Dropship
	if err := parseBody(c, &req); err != nil {
		return err
	}
	product, err := h.Catalog.CreateDropship(c.UserContext(), adminID, req)
	if err != nil {
		return mapError(err)
	}
	return created(c, "Dropship listing created", product)
}

// ListVerifications - GET /api/admin/verifications?status=pending
func (h *AdminHandler) ListVerifications(c *fiber.Ctx) error {
	status := models.VerificationStatus(c.Query("status", string(models.VerificationPending)))
	reqs, err := h.Verification.List(c.UserContext(), status)
	if err != nil {
		return err
	}
	return ok(c, "Verification requests", reqs)
}

// ApproveVerification - POST /api/admin/verifications/:id/approve
func (h *AdminHandler) ApproveVerification(c *fiber.Ctx) error {
	return h.reviewVerification(c, true)
}

// RejectVerification - POST /api/admin/verifications/:id/reject
func (h *AdminHandler) RejectVerification(c *fiber.Ctx) error {
	return h.reviewVerification(c, false)
}

func (h *AdminHandler) reviewVerification(c *fiber.Ctx, approve bool) error {
	reviewerID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req ReviewRequest
	if err := parseOptionalBody(c, &req); err != nil {
		return err
	}
	note := req.Note
	if note == "" {
		note = req.Reason
	}

	var reviewed *models.SellerVerification
	if approve {
		reviewed, err = h.Verification.Approve(c.UserContext(), reviewerID, id, note)
	} else {
		reviewed, err = h.Verification.Reject(c.UserContext(), reviewerID, id, note)
	}
	if err != nil {
		return mapError(err)
	}
	return ok(c, "Verification reviewed", reviewed)
}

// ListStaff - GET /api/admin/staff
func (h *AdminHandler) ListStaff(c *fiber.Ctx) error {
	var users []models.User
	if err := h.DB.WithContext(c.UserContext()).
		Where("role IN ?", []string{models.RoleStaff, models.RoleAdmin}).
		Order("role asc, username asc").
		Find(&users).Error; err != nil {
		return err
	}
	return ok(c, "Staff", users)
}

type RoleRequest struct {
	Role string `json:"role"`
}

// UpdateUserRole - PUT /api/admin/users/:id/role (admin only)
func (h *AdminHandler) UpdateUserRole(c *fiber.Ctx) error {
	adminID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req RoleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if !models.ValidRole(req.Role) {
		return fiber.NewError(fiber.StatusBadRequest, "Role must be user, staff or admin")
	}
	if id == adminID {
		return fiber.NewError(fiber.StatusBadRequest, "You cannot change your own role")
	}

	res := h.DB.WithContext(c.UserContext()).Model(&models.User{}).Where("id = ?", id).Update("role", req.Role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "User not found")
	}
	h.Log.Info("role changed", zap.Uint("user_id", id), zap.String("role", req.Role), zap.Uint("by", adminID))

	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		return mapError(err)
	}
	return ok(c, "Role updated", user)
}

// Featured sections

type SectionRequest struct {
	Title    string `json:"title"`
	Kind     string `json:"kind"`
	Position int    `json:"position"`
	IsActive *bool  `json:"is_active"`
}

type SectionItemRequest struct {
	ProductID *uint `json:"product_id"`
	SellerID  *uint `json:"seller_id"`
	Position  int   `json:"position"`
}

func (h *AdminHandler) sections(db *gorm.DB, activeOnly bool) ([]models.FeaturedSection, error) {
	q := db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position asc, id asc")
	}).
		Preload("Items.Product", "status = ?", models.ProductApproved).
		Preload("Items.Seller", func(db *gorm.DB) *gorm.DB {
			return db.Select("id, username, full_name, image_url, campus, is_verified_seller").
				Where("is_verified_seller = ?", true)
		})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var sections []models.FeaturedSection
	err := q.Order("position asc, id asc").Find(&sections).Error
	return sections, err
}

// GetFeatured - GET /api/featured lists active sections for the home page.
func (h *AdminHandler) GetFeatured(c *fiber.Ctx) error {
	sections, err := h.sections(h.DB.WithContext(c.UserContext()), true)
	if err != nil {
		return err
	}
	// Drop entries whose listing is no longer approved or whose seller
	// lost verification.
	for i := range sections {
		items := sections[i].Items[:0]
		for _, it := range sections[i].Items {
			if it.ProductID != nil && it.Product == nil {
				continue
			}
			if it.SellerID != nil && it.Seller == nil {
				continue
			}
			items = append(items, it)
		}
		sections[i].Items = items
	}
	return ok(c, "Featured", sections)
}

// ListSections - GET /api/admin/featured
func (h *AdminHandler) ListSections(c *fiber.Ctx) error {
	sections, err := h.sections(h.DB.WithContext(c.UserContext()), false)
	if err != nil {
		return err
	}
	return ok(c, "Featured sections", sections)
}

// CreateSection - POST /api/admin/featured
func (h *AdminHandler) CreateSection(c *fiber.Ctx) error {
	var req SectionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	section := models.FeaturedSection{
		Title:    strings.TrimSpace(req.Title),
		Kind:     req.Kind,
		Position: req.Position,
		IsActive: req.IsActive == nil || *req.IsActive,
	}
	if err := validateSection(&section); err != nil {
		return err
	}
	if err := h.DB.WithContext(c.UserContext()).Create(&section).Error; err != nil {
		return err
	}
	if !section.IsActive {
		// gorm skips zero values that have a column default.
		if err := h.DB.Model(&section).Update("is_active", false).Error; err != nil {
			return err
		}
	}
	return created(c, "Section created", section)
}

// UpdateSection - PUT /api/admin/featured/:id
func (h *AdminHandler) UpdateSection(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var section models.FeaturedSection
	if err := h.DB.WithContext(c.UserContext()).First(&section, id).Error; err != nil {
		return mapError(err)
	}
	var req SectionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Kind != "" && req.Kind != section.Kind {
		return fiber.NewError(fiber.StatusBadRequest, "Section kind cannot change")
	}
	if t := strings.TrimSpace(req.Title); t != "" {
		section.Title = t
	}
	section.Position = req.Position
	if req.IsActive != nil {
		section.IsActive = *req.IsActive
	}
	if err := h.DB.Model(&section).Select("title", "position", "is_active").Updates(&section).Error; err != nil {
		return err
	}
	return ok(c, "Section updated", section)
}

// DeleteSection - DELETE /api/admin/featured/:id
func (h *AdminHandler) DeleteSection(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	err = h.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("section_id = ?", id).Delete(&models.FeaturedItem{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.FeaturedSection{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return mapError(err)
	}
	return ok(c, "Section deleted", nil)
}

// AddSectionItem - POST /api/admin/featured/:id/items
func (h *AdminHandler) AddSectionItem(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	db := h.DB.WithContext(c.UserContext())
	var section models.FeaturedSection
	if err := db.First(&section, id).Error; err != nil {
		return mapError(err)
	}
	var req SectionItemRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	item := models.FeaturedItem{SectionID: section.ID, Position: req.Position}
	switch section.Kind {
	case models.FeaturedProducts:
		if req.ProductID == nil {
			return fiber.NewError(fiber.StatusBadRequest, "product_id is required for a products section")
		}
		var count int64
		if err := db.Model(&models.Product{}).
			Where("id = ? AND status = ?", *req.ProductID, models.ProductApproved).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Only approved products can be featured")
		}
		item.ProductID = req.ProductID
	case models.FeaturedSellers:
		if req.SellerID == nil {
			return fiber.NewError(fiber.StatusBadRequest, "seller_id is required for a sellers section")
		}
		var count int64
		if err := db.Model(&models.User{}).
			Where("id = ? AND is_verified_seller = ?", *req.SellerID, true).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Only verified sellers can be featured")
		}
		item.SellerID = req.SellerID
	}

	if err := db.Omit("Product", "Seller").Create(&item).Error; err != nil {
		return err
	}
	return created(c, "Item added", item)
}

// RemoveSectionItem - DELETE /api/admin/featured/:id/items/:itemID
func (h *AdminHandler) RemoveSectionItem(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	itemID, err := paramID(c, "itemID")
	if err != nil {
		return err
	}
	res := h.DB.WithContext(c.UserContext()).
		Where("id = ? AND section_id = ?", itemID, id).
		Delete(&models.FeaturedItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "Item not found")
	}
	return ok(c, "Item removed", nil)
}

func validateSection(s *models.FeaturedSection) error {
	if s.Title == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Title is required")
	}
	if s.Kind != models.FeaturedProducts && s.Kind != models.FeaturedSellers {
		return fiber.NewError(fiber.StatusBadRequest, "Kind must be products or sellers")
	}
	return nil
}
