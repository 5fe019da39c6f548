// Package domain contains the user model and auth service contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User is a platform account. Team roles live in user_teams; IsGlobalAdmin
// is the only platform-wide privilege flag.
type User struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	Email         string            `gorm:"type:text;not null;uniqueIndex:ux_users_email" json:"email"`
	DisplayName   string            `gorm:"column:display_name;type:text;not null" json:"display_name"`
	PasswordHash  string            `gorm:"column:password_hash;type:text;not null" json:"-"`
	IsGlobalAdmin bool              `gorm:"column:is_global_admin;not null;default:false" json:"is_global_admin"`
	Active        bool              `gorm:"not null;default:true" json:"active"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	LastLoginAt   *time.Time        `gorm:"column:last_login_at" json:"last_login_at,omitempty"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt     gorm.DeletedAt    `gorm:"index" json:"-"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }
