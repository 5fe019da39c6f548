// Package domain contains the athlete roster model and service contracts.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Genders accepted on athlete records.
const (
	GenderFemale      = "F"
	GenderMale        = "M"
	GenderUnspecified = "X"
)

// ValidGender reports whether g is an accepted gender code.
func ValidGender(g string) bool {
	switch g {
	case GenderFemale, GenderMale, GenderUnspecified:
		return true
	default:
		return false
	}
}

// Athlete is a rostered runner. Athletes are team-scoped records, not user
// accounts; a parent or coach manages them.
type Athlete struct {
	ID        snowflake.ID   `gorm:"primaryKey" json:"id"`
	TeamID    snowflake.ID   `gorm:"not null;index" json:"team_id"`
	FirstName string         `gorm:"column:first_name;type:text;not null" json:"first_name"`
	LastName  string         `gorm:"column:last_name;type:text;not null" json:"last_name"`
	BirthDate time.Time      `gorm:"column:birth_date;not null" json:"birth_date"`
	Gender    string         `gorm:"type:text;not null;default:'X'" json:"gender"`
	Active    bool           `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName sets the database table name.
func (Athlete) TableName() string { return "athletes" }

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, athlete Athlete) error
	GetByID(ctx context.Context, teamID, id snowflake.ID) (*Athlete, error)
	List(ctx context.Context, teamID snowflake.ID, activeOnly bool) ([]Athlete, error)
	CountActive(ctx context.Context, teamID snowflake.ID) (int64, error)
	UpdateFields(ctx context.Context, teamID, id snowflake.ID, fields map[string]any) error
	SoftDelete(ctx context.Context, teamID, id snowflake.ID) error
}

type Service interface {
	Create(ctx context.Context, teamID snowflake.ID, req CreateAthleteRequest) (*AthleteResponse, error)
	Get(ctx context.Context, teamID, id snowflake.ID) (*AthleteResponse, error)
	List(ctx context.Context, teamID snowflake.ID, activeOnly bool) ([]AthleteResponse, error)
	Update(ctx context.Context, teamID, id snowflake.ID, req UpdateAthleteRequest) (*AthleteResponse, error)
	Delete(ctx context.Context, teamID, id snowflake.ID) error
}

type CreateAthleteRequest struct {
	FirstName string
	LastName  string
	BirthDate time.Time
	Gender    string
}

type UpdateAthleteRequest struct {
	FirstName *string
	LastName  *string
	BirthDate *time.Time
	Gender    *string
	Active    *bool
}

type AthleteResponse struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"team_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	BirthDate time.Time `json:"birth_date"`
	Gender    string    `json:"gender"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrNotFound     = errors.New("athlete_not_found")
	ErrInvalidName  = errors.New("invalid_athlete_name")
	ErrInvalidBirth = errors.New("invalid_birth_date")
	ErrInvalidSex   = errors.New("invalid_gender")
	ErrRosterFull   = errors.New("roster_full")
)
