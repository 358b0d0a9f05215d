package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

type User struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// Login
	Username string `gorm:"unique;not null;size:50" json:"username"`
	Email    string `gorm:"unique;not null;size:100" json:"email"`
	Password string `gorm:"not null" json:"-"`

	// Profile
	FullName string  `gorm:"size:100" json:"full_name"`
	Phone    *string `gorm:"unique;size:20" json:"phone"`
	ImageURL string  `json:"image_url"`
	Campus   string  `gorm:"size:100" json:"campus"`
	Bio      string  `gorm:"type:text" json:"bio"`

	// Role & Status
	Role             string `gorm:"default:'user';size:20" json:"role"` // user, staff, admin
	IsVerifiedSeller bool   `gorm:"default:false" json:"is_verified_seller"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsBackOffice reports whether the user may use the admin back-office.
func (u *User) IsBackOffice() bool {
	return IsBackOfficeRole(u.Role)
}

func IsBackOfficeRole(role string) bool {
	return role == RoleAdmin || role == RoleStaff
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleStaff, RoleAdmin:
		return true
	}
	return false
}
