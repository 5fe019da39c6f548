// Package domain contains the ownership transfer model and contracts.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Transfer statuses. PENDING is the only state transitions leave from.
const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
	StatusExpired   = "EXPIRED"
)

// TTL is how long a transfer invitation stays valid.
const TTL = 7 * 24 * time.Hour

// OwnershipTransfer hands a team from its current owner to the holder of
// the emailed token. Only the sha256 of the token is stored; the raw token
// exists solely in the outgoing mail. A partial unique index on
// (team_id) WHERE status='PENDING' backs the one-pending-per-team rule.
type OwnershipTransfer struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	TeamID      snowflake.ID `gorm:"not null;index" json:"team_id"`
	InitiatorID snowflake.ID `gorm:"column:initiator_id;not null" json:"initiator_id"`
	TargetEmail string       `gorm:"column:target_email;type:text;not null" json:"target_email"`
	Message     string       `gorm:"type:text" json:"message,omitempty"`
	TokenHash   string       `gorm:"column:token_hash;type:text;not null;uniqueIndex:ux_ownership_transfers_token" json:"-"`
	Status      string       `gorm:"type:text;not null;default:'PENDING'" json:"status"`
	ExpiresAt   time.Time    `gorm:"column:expires_at;not null" json:"expires_at"`
	CompletedAt *time.Time   `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (OwnershipTransfer) TableName() string { return "ownership_transfers" }

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, transfer OwnershipTransfer) error
	GetByID(ctx context.Context, teamID, id snowflake.ID) (*OwnershipTransfer, error)
	GetByTokenHash(ctx context.Context, hash string) (*OwnershipTransfer, error)
	GetPendingByTeam(ctx context.Context, teamID snowflake.ID) (*OwnershipTransfer, error)
	ListByTeam(ctx context.Context, teamID snowflake.ID) ([]OwnershipTransfer, error)
	UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
	CancelOtherPending(ctx context.Context, teamID, keepID snowflake.ID) error
}

type Service interface {
	Initiate(ctx context.Context, teamID, initiatorID snowflake.ID, req InitiateRequest) (*TransferResponse, error)
	Complete(ctx context.Context, callerID snowflake.ID, rawToken string) (*TransferResponse, error)
	Cancel(ctx context.Context, teamID, transferID, callerID snowflake.ID, callerIsGlobalAdmin bool) error
	ListByTeam(ctx context.Context, teamID snowflake.ID) ([]TransferResponse, error)
}

type InitiateRequest struct {
	TargetEmail string
	Message     string
}

type TransferResponse struct {
	ID          string     `json:"id"`
	TeamID      string     `json:"team_id"`
	InitiatorID string     `json:"initiator_id"`
	TargetEmail string     `json:"target_email"`
	Message     string     `json:"message,omitempty"`
	Status      string     `json:"status"`
	ExpiresAt   time.Time  `json:"expires_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

var (
	ErrNotFound      = errors.New("transfer_not_found")
	ErrPendingExists = errors.New("transfer_pending_exists")
	ErrNotPending    = errors.New("transfer_not_pending")
	ErrExpired       = errors.New("transfer_expired")
	ErrInvalidTarget = errors.New("transfer_invalid_target")
	ErrNotTarget     = errors.New("transfer_not_addressed_to_caller")
	ErrBusy          = errors.New("transfer_busy")
)
