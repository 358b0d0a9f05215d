package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderPending  OrderStatus = "pending"
	OrderApproved OrderStatus = "approved"
	OrderDeclined OrderStatus = "declined"
)

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderApproved || s == OrderDeclined
}

// CanTransitionTo encodes pending -> approved|declined. Nothing else is allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return s == OrderPending && next.IsTerminal()
}

type DeliveryMethod string

const (
	DeliveryMeetup  DeliveryMethod = "meetup"
	DeliveryCampus  DeliveryMethod = "campus_delivery"
	DeliveryCourier DeliveryMethod = "courier"
)

type Order struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	BuyerID   uint `gorm:"index;uniqueIndex:idx_order_checkout_line" json:"buyer_id"`
	SellerID  uint `gorm:"index" json:"seller_id"`
	ProductID uint `gorm:"index;uniqueIndex:idx_order_checkout_line" json:"product_id"`

	Quantity       int             `gorm:"not null" json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	DeliveryMethod DeliveryMethod  `gorm:"size:30;not null" json:"delivery_method"`
	DeliveryFee    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"delivery_fee"`
	FinalTotal     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"final_total"`
	Note           string          `gorm:"type:text" json:"note,omitempty"`

	Status OrderStatus `gorm:"size:20;default:'pending';index" json:"status"`

	// One checkout produces one row per cart line, all sharing this key.
	CheckoutKey string `gorm:"size:64;not null;uniqueIndex:idx_order_checkout_line" json:"checkout_key"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Product Product `gorm:"foreignKey:ProductID" json:"product"`
	Buyer   User    `gorm:"foreignKey:BuyerID" json:"buyer"`
}
