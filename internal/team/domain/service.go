package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, userID snowflake.ID, req CreateTeamRequest) (*TeamResponse, error)
	GetByID(ctx context.Context, id string) (*TeamResponse, error)
	GetBySubdomain(ctx context.Context, subdomain string) (*TeamResponse, error)
	ListTeamsByUser(ctx context.Context, userID snowflake.ID) ([]TeamListResponseItem, error)
	Update(ctx context.Context, teamID snowflake.ID, req UpdateTeamRequest) (*TeamResponse, error)
	ChangeTier(ctx context.Context, teamID snowflake.ID, tier string) error
	CheckSubdomainAvailability(ctx context.Context, subdomain string) (bool, error)
	SoftDelete(ctx context.Context, teamID snowflake.ID) error
	HardPurge(ctx context.Context, teamID snowflake.ID) error
	Suspend(ctx context.Context, teamID snowflake.ID) error
	Reactivate(ctx context.Context, teamID snowflake.ID) error
	AdminList(ctx context.Context) ([]AdminTeamResponse, error)

	ListMembers(ctx context.Context, teamID snowflake.ID) ([]MemberResponse, error)
	UpdateMemberRole(ctx context.Context, teamID, userID snowflake.ID, role string) error
	RemoveMember(ctx context.Context, teamID, userID snowflake.ID) error
	SetDefaultTeam(ctx context.Context, userID, teamID snowflake.ID) error
}

type CreateTeamRequest struct {
	Name       string
	Subdomain  string
	Tier       string
	MemberType string
}

type UpdateTeamRequest struct {
	Name     *string
	Branding map[string]any
}

type TeamResponse struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Subdomain string         `json:"subdomain"`
	Tier      string         `json:"tier"`
	Status    string         `json:"status"`
	Branding  map[string]any `json:"branding,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type TeamListResponseItem struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Subdomain  string    `json:"subdomain"`
	Tier       string    `json:"tier"`
	Role       string    `json:"role"`
	MemberType string    `json:"member_type"`
	IsDefault  bool      `json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
}

type AdminTeamResponse struct {
	TeamResponse
	Deleted bool `json:"deleted"`
}

type MemberResponse struct {
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Role       string    `json:"role"`
	MemberType string    `json:"member_type"`
	Active     bool      `json:"active"`
	JoinedAt   time.Time `json:"joined_at"`
}

var (
	ErrNotFound            = errors.New("team_not_found")
	ErrMemberNotFound      = errors.New("member_not_found")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidSubdomain    = errors.New("invalid_subdomain")
	ErrSubdomainTaken      = errors.New("subdomain_taken")
	ErrSubdomainReserved   = errors.New("subdomain_reserved")
	ErrInvalidTier         = errors.New("invalid_tier")
	ErrInvalidRole         = errors.New("invalid_role")
	ErrInvalidMemberType   = errors.New("invalid_member_type")
	ErrInvalidUser         = errors.New("invalid_user")
	ErrOwnerRoleImmutable  = errors.New("owner_role_immutable")
	ErrTierLimitExceeded   = errors.New("tier_limit_exceeded")
	ErrTeamSuspended       = errors.New("team_suspended")
	ErrDuplicateMembership = errors.New("duplicate_membership")
)
