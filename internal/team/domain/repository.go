package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type TeamListItem struct {
	ID         snowflake.ID
	Name       string
	Subdomain  string
	Tier       string
	Role       string
	MemberType string
	IsDefault  bool
	CreatedAt  time.Time
}

type MemberListItem struct {
	UserID     snowflake.ID
	Email      string
	Name       string
	Role       string
	MemberType string
	Active     bool
	CreatedAt  time.Time
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateTeam(ctx context.Context, team Team) error
	GetTeamByID(ctx context.Context, id snowflake.ID) (*Team, error)
	GetTeamBySubdomain(ctx context.Context, subdomain string) (*Team, error)
	SubdomainInUse(ctx context.Context, subdomain string) (bool, error)
	UpdateTeamFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
	SoftDeleteTeam(ctx context.Context, id snowflake.ID) error
	HardDeleteTeam(ctx context.Context, id snowflake.ID) error
	ListAllTeams(ctx context.Context) ([]Team, error)

	AddMember(ctx context.Context, member UserTeam) error
	GetMembership(ctx context.Context, teamID, userID snowflake.ID) (*UserTeam, error)
	GetActiveOwner(ctx context.Context, teamID snowflake.ID) (*UserTeam, error)
	ListMembers(ctx context.Context, teamID snowflake.ID) ([]MemberListItem, error)
	ListTeamsByUser(ctx context.Context, userID snowflake.ID) ([]TeamListItem, error)
	UpdateMembershipFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
	DeactivateMembers(ctx context.Context, teamID snowflake.ID) error
	ClearDefaultTeam(ctx context.Context, userID snowflake.ID) error

	CountActiveAdmins(ctx context.Context, teamID snowflake.ID) (int64, error)
}

// RosterCounter reports the active rostered athlete count for a team. The
// athlete repository satisfies it; the indirection keeps tier validation
// here without importing the athlete domain.
type RosterCounter interface {
	CountActive(ctx context.Context, teamID snowflake.ID) (int64, error)
}
