package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string
type Role = UserRole // Alias for compatibility

const (
	RoleStudent  UserRole = "student"
	RoleLecturer UserRole = "lecturer"
	RoleParent   UserRole = "parent"
	RoleAdmin    UserRole = "admin"
)

// User is a read-only projection of an identity owned by Casdoor
type User struct {
	ID       string   `json:"id" gorm:"primaryKey;size:255"`
	UserName string   `json:"username" gorm:"size:100;index"`
	FullName string   `json:"full_name" gorm:"not null;size:100"`
	Email    string   `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Role     UserRole `json:"role" gorm:"-"`

	// Profile info
	AvatarURL *string `json:"avatar_url" gorm:"size:500"`

	// Status
	EmailVerified bool `json:"email_verified" gorm:"default:false"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

// Principal is the authenticated actor the quiz core sees: identity plus capabilities.
type Principal struct {
	UserID   string   `json:"user_id"`
	UserName string   `json:"username"`
	Role     UserRole `json:"role"`
}

func NewPrincipal(user *User) Principal {
	return Principal{UserID: user.ID, UserName: user.UserName, Role: user.Role}
}

func (p Principal) IsSuperuser() bool {
	return p.Role == RoleAdmin
}

func (p Principal) IsLecturer() bool {
	return p.Role == RoleLecturer
}

// IsPrivileged reports whether the actor may mark sittings. A privileged actor
// completing an exam paper does not cause it to be retained.
func (p Principal) IsPrivileged() bool {
	return p.IsSuperuser() || p.IsLecturer()
}
