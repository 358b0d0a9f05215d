package models

import "time"

type Post struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AuthorID     uint      `gorm:"index;not null" json:"author_id"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	ImageURL     string    `json:"image_url,omitempty"`
	LikeCount    int       `gorm:"default:0" json:"like_count"`
	CommentCount int       `gorm:"default:0" json:"comment_count"`
	IsDeleted    bool      `gorm:"default:false;index" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Author User `gorm:"foreignKey:AuthorID" json:"author"`
}

type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index;not null" json:"post_id"`
	AuthorID  uint      `gorm:"index;not null" json:"author_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	IsDeleted bool      `gorm:"default:false" json:"-"`
	CreatedAt time.Time `json:"created_at"`

	Author User `gorm:"foreignKey:AuthorID" json:"author"`
}

// PostLike rows are unique per (post, user) so a user cannot like twice.
type PostLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_post_like" json:"post_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_post_like" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
