package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductStatus string

const (
	ProductPending  ProductStatus = "pending"
	ProductApproved ProductStatus = "approved"
	ProductRejected ProductStatus = "rejected"
)

const (
	SourceSeller   = "seller"
	SourceDropship = "dropship"
)

var (
	ErrInvalidPrice    = errors.New("price must be positive")
	ErrInvalidQuantity = errors.New("quantity must be a non-negative number unless stock is unlimited")
	ErrMissingTitle    = errors.New("title is required")
)

type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	SellerID    uint            `gorm:"index" json:"seller_id"`
	Title       string          `gorm:"size:255;not null" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Category    string          `gorm:"size:50;index" json:"category"`
	Condition   string          `gorm:"size:20" json:"condition"`
	ListingType string          `gorm:"size:20;default:'product'" json:"listing_type"`
	ImageURL    string          `json:"image_url"`

	// Stock. Quantity is ignored when IsUnlimited is set.
	Quantity    *int `json:"quantity"`
	IsUnlimited bool `gorm:"default:false" json:"is_unlimited"`

	Status          ProductStatus `gorm:"size:20;default:'pending';index" json:"status"`
	RejectionReason string        `gorm:"type:text" json:"rejection_reason,omitempty"`
	ViewCount       int64         `gorm:"default:0" json:"view_count"`
	EditCount       int           `gorm:"default:0" json:"edit_count"`

	// Dropshipping
	Source        string          `gorm:"size:20;default:'seller'" json:"source"`
	SupplierName  string          `gorm:"size:100" json:"supplier_name,omitempty"`
	SupplierURL   string          `json:"supplier_url,omitempty"`
	SupplierPrice decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"supplier_price"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Seller User `gorm:"foreignKey:SellerID" json:"seller"`
}

// HasStock reports whether n units can be taken from the listing.
func (p *Product) HasStock(n int) bool {
	if p.IsUnlimited {
		return true
	}
	return p.Quantity != nil && *p.Quantity >= n
}

// Available returns the finite stock count, -1 for unlimited listings.
func (p *Product) Available() int {
	if p.IsUnlimited {
		return -1
	}
	if p.Quantity == nil {
		return 0
	}
	return *p.Quantity
}

// Validate checks the fields a seller controls.
func (p *Product) Validate() error {
	if p.Title == "" {
		return ErrMissingTitle
	}
	if !p.Price.IsPositive() {
		return ErrInvalidPrice
	}
	if !p.IsUnlimited && (p.Quantity == nil || *p.Quantity < 0) {
		return ErrInvalidQuantity
	}
	return nil
}
