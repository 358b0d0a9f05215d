package models

import "time"

const (
	FeaturedProducts = "products"
	FeaturedSellers  = "sellers"
)

// FeaturedSection is a merchandised block on the home page.
type FeaturedSection struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Title     string         `gorm:"size:100;not null" json:"title"`
	Kind      string         `gorm:"size:20;not null" json:"kind"` // products, sellers
	Position  int            `gorm:"default:0" json:"position"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	Items     []FeaturedItem `gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE" json:"items"`
}

type FeaturedItem struct {
	ID        uint  `gorm:"primaryKey" json:"id"`
	SectionID uint  `gorm:"index;not null" json:"section_id"`
	ProductID *uint `json:"product_id,omitempty"`
	SellerID  *uint `json:"seller_id,omitempty"`
	Position  int   `gorm:"default:0" json:"position"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Seller  *User    `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
}
