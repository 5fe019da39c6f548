// Package domain contains persistence models for the team service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Subscription tiers.
const (
	TierFree     = "FREE"
	TierStandard = "STANDARD"
	TierPremium  = "PREMIUM"
)

// Team statuses.
const (
	StatusActive    = "ACTIVE"
	StatusSuspended = "SUSPENDED"
)

// ValidTier reports whether tier is a known subscription tier.
func ValidTier(tier string) bool {
	switch tier {
	case TierFree, TierStandard, TierPremium:
		return true
	default:
		return false
	}
}

// Team represents a tenant. Subdomain uniqueness is enforced by a partial
// index over non-deleted rows so a purged club frees its subdomain.
type Team struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name      string            `gorm:"type:text;not null" json:"name"`
	Subdomain string            `gorm:"type:text;not null;index" json:"subdomain"`
	Tier      string            `gorm:"type:text;not null;default:'FREE'" json:"tier"`
	Status    string            `gorm:"type:text;not null;default:'ACTIVE'" json:"status"`
	Branding  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"branding"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt    `gorm:"index" json:"-"`
}

// TableName sets the database table name.
func (Team) TableName() string { return "teams" }

// UserTeam represents membership of a user in a team.
type UserTeam struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	TeamID     snowflake.ID `gorm:"not null;index;uniqueIndex:ux_user_teams,priority:1" json:"team_id"`
	UserID     snowflake.ID `gorm:"not null;index;uniqueIndex:ux_user_teams,priority:2" json:"user_id"`
	Role       string       `gorm:"type:text;not null" json:"role"`
	MemberType string       `gorm:"type:text;not null" json:"member_type"`
	Active     bool         `gorm:"not null;default:true" json:"active"`
	IsDefault  bool         `gorm:"column:is_default;not null;default:false" json:"is_default"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (UserTeam) TableName() string { return "user_teams" }
