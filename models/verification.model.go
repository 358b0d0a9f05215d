package models

import "time"

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// SellerVerification is a seller's identity/business submission reviewed by an admin.
type SellerVerification struct {
	ID           uint               `gorm:"primaryKey" json:"id"`
	UserID       uint               `gorm:"index;not null" json:"user_id"`
	BusinessName string             `gorm:"size:150;not null" json:"business_name"`
	StudentID    string             `gorm:"size:50;not null" json:"student_id"`
	Description  string             `gorm:"type:text" json:"description"`
	DocumentURL  string             `json:"document_url"`
	Status       VerificationStatus `gorm:"size:20;default:'pending';index" json:"status"`
	ReviewNote   string             `gorm:"type:text" json:"review_note,omitempty"`
	ReviewedBy   *uint              `json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time         `json:"reviewed_at,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"user"`
}
