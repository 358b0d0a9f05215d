// Package catalog manages listings: seller submissions, moderation,
// public browsing and platform dropship listings.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"campus_market/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("product not found")
	ErrForbidden     = errors.New("not authorized to modify this product")
	ErrNotVerified   = errors.New("only verified sellers can create listings")
	ErrNotPending    = errors.New("product cannot be reviewed in its current state")
	ErrInvalidMarkup = errors.New("markup must not be negative")
)

// Invalidator is told whenever the set of approved listings may have changed.
type Invalidator interface {
	Invalidate()
}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate() {}

type Service struct {
	db     *gorm.DB
	search Invalidator
	log    *zap.Logger
}

// NewService wires the catalog. search and log may be nil.
func NewService(db *gorm.DB, search Invalidator, log *zap.Logger) *Service {
	if search == nil {
		search = nopInvalidator{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, search: search, log: log}
}

// Listing holds the seller-controlled fields of a new product.
type Listing struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Condition   string          `json:"condition"`
	ListingType string          `json:"listing_type"`
	ImageURL    string          `json:"image_url"`
	Quantity    *int            `json:"quantity"`
	IsUnlimited bool            `json:"is_unlimited"`
}

// Edit holds the fields a seller may change after submission. Stock is
// fixed at creation.
type Edit struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Condition   string          `json:"condition"`
	ImageURL    string          `json:"image_url"`
}

// Dropship describes a platform listing sourced from an outside supplier.
type Dropship struct {
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	ImageURL      string          `json:"image_url"`
	SupplierName  string          `json:"supplier_name"`
	SupplierURL   string          `json:"supplier_url"`
	SupplierPrice decimal.Decimal `json:"supplier_price"`
	// MarkupPercent is added on top of the supplier price.
	MarkupPercent decimal.Decimal `json:"markup_percent"`
}

type Filter struct {
	Category string
	Query    string
	SellerID uint
	Page     int
	Limit    int
}

func sellerColumns(db *gorm.DB) *gorm.DB {
	return db.Select("id, username, full_name, image_url, campus, is_verified_seller")
}

// Create submits a listing for review.
func (s *Service) Create(ctx context.Context, sellerID uint, in Listing) (*models.Product, error) {
	var seller models.User
	if err := s.db.WithContext(ctx).First(&seller, sellerID).Error; err != nil {
		return nil, fmt.Errorf("load seller: %w", err)
	}
	if !seller.IsVerifiedSeller && !seller.IsBackOffice() {
		return nil, ErrNotVerified
	}

	product := &models.Product{
		SellerID:    sellerID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		Condition:   in.Condition,
		ListingType: in.ListingType,
		ImageURL:    in.ImageURL,
		Quantity:    in.Quantity,
		IsUnlimited: in.IsUnlimited,
		Status:      models.ProductPending,
		Source:      models.SourceSeller,
	}
	if product.ListingType == "" {
		product.ListingType = "product"
	}
	if product.IsUnlimited {
		product.Quantity = nil
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	s.log.Info("listing submitted", zap.Uint("product_id", product.ID), zap.Uint("seller_id", sellerID))
	return product, nil
}

// Update applies a seller edit and bumps edit_count. A rejected listing
// goes back to review.
func (s *Service) Update(ctx context.Context, sellerID, productID uint, in Edit) (*models.Product, error) {
	product, err := s.owned(ctx, sellerID, productID)
	if err != nil {
		return nil, err
	}

	product.Title = strings.TrimSpace(in.Title)
	product.Description = in.Description
	product.Price = in.Price
	product.Category = in.Category
	product.Condition = in.Condition
	product.ImageURL = in.ImageURL
	if err := product.Validate(); err != nil {
		return nil, err
	}

	updates := map[string]any{
		"title":       product.Title,
		"description": product.Description,
		"price":       product.Price,
		"category":    product.Category,
		"condition":   product.Condition,
		"image_url":   product.ImageURL,
		"edit_count":  gorm.Expr("edit_count + 1"),
	}
	if product.Status == models.ProductRejected {
		updates["status"] = models.ProductPending
		updates["rejection_reason"] = ""
	}
	if err := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", product.ID).Updates(updates).Error; err != nil {
		return nil, err
	}
	s.search.Invalidate()
	return s.find(ctx, product.ID)
}

// Delete removes a listing. Back-office users may delete any listing.
func (s *Service) Delete(ctx context.Context, userID, productID uint, backOffice bool) error {
	product, err := s.find(ctx, productID)
	if err != nil {
		return err
	}
	if product.SellerID != userID && !backOffice {
		return ErrForbidden
	}
	if err := s.db.WithContext(ctx).Delete(&models.Product{}, product.ID).Error; err != nil {
		return err
	}
	s.search.Invalidate()
	s.log.Info("listing deleted", zap.Uint("product_id", product.ID), zap.Uint("by", userID))
	return nil
}

// View returns an approved listing and records the view with a single
// atomic increment.
func (s *Service) View(ctx context.Context, productID uint) (*models.Product, error) {
	res := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND status = ?", productID, models.ProductApproved).
		UpdateColumn("view_count", gorm.Expr("view_count + 1"))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.find(ctx, productID)
}

// List returns approved listings, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]models.Product, int64, error) {
	page, limit := models.NormalizePage(f.Page, f.Limit)
	q := s.db.WithContext(ctx).Model(&models.Product{}).Where("status = ?", models.ProductApproved)
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.SellerID != 0 {
		q = q.Where("seller_id = ?", f.SellerID)
	}
	if f.Query != "" {
		like := "%" + strings.ToLower(f.Query) + "%"
		q = q.Where("LOWER(title) LIKE ?", like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var products []models.Product
	err := q.Preload("Seller", sellerColumns).
		Order("created_at desc, id desc").
		Limit(limit).Offset((page - 1) * limit).
		Find(&products).Error
	return products, total, err
}

// Mine returns every listing of the seller regardless of status.
func (s *Service) Mine(ctx context.Context, sellerID uint) ([]models.Product, error) {
	var products []models.Product
	err := s.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at desc, id desc").
		Find(&products).Error
	return products, err
}

// ByStatus lists listings in a moderation state, oldest first.
func (s *Service) ByStatus(ctx context.Context, status models.ProductStatus, page, limit int) ([]models.Product, int64, error) {
	page, limit = models.NormalizePage(page, limit)
	q := s.db.WithContext(ctx).Model(&models.Product{}).Where("status = ?", status)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var products []models.Product
	err := q.Preload("Seller", sellerColumns).
		Order("created_at asc, id asc").
		Limit(limit).Offset((page - 1) * limit).
		Find(&products).Error
	return products, total, err
}

// Approve publishes a pending listing.
func (s *Service) Approve(ctx context.Context, productID uint) (*models.Product, error) {
	return s.moderate(ctx, productID, []models.ProductStatus{models.ProductPending}, map[string]any{
		"status":           models.ProductApproved,
		"rejection_reason": "",
	})
}

// Reject refuses a pending listing, or takes down a live one, with a reason
// shown to the seller.
func (s *Service) Reject(ctx context.Context, productID uint, reason string) (*models.Product, error) {
	from := []models.ProductStatus{models.ProductPending, models.ProductApproved}
	return s.moderate(ctx, productID, from, map[string]any{
		"status":           models.ProductRejected,
		"rejection_reason": strings.TrimSpace(reason),
	})
}

func (s *Service) moderate(ctx context.Context, productID uint, from []models.ProductStatus, updates map[string]any) (*models.Product, error) {
	if _, err := s.find(ctx, productID); err != nil {
		return nil, err
	}
	res := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND status IN ?", productID, from).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotPending
	}
	s.search.Invalidate()
	s.log.Info("listing reviewed", zap.Uint("product_id", productID), zap.Any("status", updates["status"]))
	return s.find(ctx, productID)
}

// CreateDropship publishes an unlimited-stock platform listing priced at
// the supplier price plus markup.
func (s *Service) CreateDropship(ctx context.Context, adminID uint, in Dropship) (*models.Product, error) {
	if in.MarkupPercent.IsNegative() {
		return nil, ErrInvalidMarkup
	}
	hundred := decimal.NewFromInt(100)
	price := in.SupplierPrice.Mul(hundred.Add(in.MarkupPercent)).Div(hundred).Round(2)

	product := &models.Product{
		SellerID:      adminID,
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		Price:         price,
		Category:      in.Category,
		Condition:     "new",
		ListingType:   "product",
		ImageURL:      in.ImageURL,
		IsUnlimited:   true,
		Status:        models.ProductApproved,
		Source:        models.SourceDropship,
		SupplierName:  in.SupplierName,
		SupplierURL:   in.SupplierURL,
		SupplierPrice: in.SupplierPrice,
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	s.search.Invalidate()
	s.log.Info("dropship listing created", zap.Uint("product_id", product.ID), zap.String("supplier", in.SupplierName))
	return product, nil
}

func (s *Service) owned(ctx context.Context, sellerID, productID uint) (*models.Product, error) {
	product, err := s.find(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.SellerID != sellerID {
		return nil, ErrForbidden
	}
	return product, nil
}

func (s *Service) find(ctx context.Context, productID uint) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).Preload("Seller", sellerColumns).First(&product, productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}
