package models

import (
	"time"

	"gorm.io/gorm"
)

type ChatRoom struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Type string `gorm:"default:'private'" json:"type"` // private

	// Listing the conversation was started from, if any.
	ProductID *uint `gorm:"index" json:"product_id,omitempty"`

	// Denormalized preview for the chat list.
	LastMessageContent string     `gorm:"type:text" json:"last_message"`
	LastMessageAt      *time.Time `json:"last_message_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Participants []ChatParticipant `json:"participants"`
}

// ChatParticipant is soft-deleted when a user removes the conversation from their list.
type ChatParticipant struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	ChatRoomID uint           `gorm:"index" json:"chat_room_id"`
	UserID     uint           `gorm:"index" json:"user_id"`
	JoinedAt   time.Time      `gorm:"autoCreateTime" json:"joined_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	User User `gorm:"foreignKey:UserID" json:"user"`
}

type Message struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	ChatRoomID uint `gorm:"index;not null" json:"chat_room_id"`
	SenderID   uint `gorm:"index;not null" json:"sender_id"`

	// Correlation id generated by the sending client for ack/nack reconciliation.
	ClientID string `gorm:"size:64;index" json:"client_id,omitempty"`

	Content     string `gorm:"type:text;not null" json:"content"`
	MediaType   string `gorm:"default:'text'" json:"media_type"` // text, image
	MediaURL    string `json:"media_url,omitempty"`
	ProductInfo string `gorm:"type:text" json:"product_info,omitempty"`

	IsRead bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt *time.Time `json:"read_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Sender User `gorm:"foreignKey:SenderID" json:"sender"`
}
