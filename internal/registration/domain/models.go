// Package domain contains the registration intake model and contracts.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Registration statuses.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// Registration is a public join request submitted on a team's subdomain.
type Registration struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	TeamID     snowflake.ID `gorm:"not null;index" json:"team_id"`
	Email      string       `gorm:"type:text;not null" json:"email"`
	FirstName  string       `gorm:"column:first_name;type:text;not null" json:"first_name"`
	LastName   string       `gorm:"column:last_name;type:text;not null" json:"last_name"`
	MemberType string       `gorm:"column:member_type;type:text;not null" json:"member_type"`
	Status     string       `gorm:"type:text;not null;default:'PENDING'" json:"status"`
	Note       string       `gorm:"type:text" json:"note,omitempty"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Registration) TableName() string { return "registrations" }

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, reg Registration) error
	GetByID(ctx context.Context, teamID, id snowflake.ID) (*Registration, error)
	List(ctx context.Context, teamID snowflake.ID, status string) ([]Registration, error)
	HasPendingForEmail(ctx context.Context, teamID snowflake.ID, email string) (bool, error)
	UpdateStatus(ctx context.Context, id snowflake.ID, status string) error
}

type Service interface {
	Submit(ctx context.Context, subdomain string, req SubmitRequest) (*RegistrationResponse, error)
	List(ctx context.Context, teamID snowflake.ID, status string) ([]RegistrationResponse, error)
	Approve(ctx context.Context, teamID, regID snowflake.ID) (*RegistrationResponse, error)
	Reject(ctx context.Context, teamID, regID snowflake.ID) (*RegistrationResponse, error)
}

type SubmitRequest struct {
	Email      string
	FirstName  string
	LastName   string
	MemberType string
	Note       string
}

type RegistrationResponse struct {
	ID         string    `json:"id"`
	TeamID     string    `json:"team_id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	MemberType string    `json:"member_type"`
	Status     string    `json:"status"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

var (
	ErrNotFound          = errors.New("registration_not_found")
	ErrInvalidEmail      = errors.New("invalid_registration_email")
	ErrInvalidName       = errors.New("invalid_registration_name")
	ErrAlreadyRegistered = errors.New("registration_already_pending")
	ErrAlreadyDecided    = errors.New("registration_already_decided")
)
