package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/stridehq/stride/internal/team/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) CreateTeam(ctx context.Context, team domain.Team) error {
	return r.db.WithContext(ctx).Create(&team).Error
}

func (r *repository) GetTeamByID(ctx context.Context, id snowflake.ID) (*domain.Team, error) {
	var team domain.Team
	err := r.db.WithContext(ctx).First(&team, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &team, nil
}

func (r *repository) GetTeamBySubdomain(ctx context.Context, subdomain string) (*domain.Team, error) {
	var team domain.Team
	err := r.db.WithContext(ctx).
		Where("LOWER(subdomain) = ?", strings.ToLower(subdomain)).
		First(&team).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &team, nil
}

// SubdomainInUse only considers non-deleted teams; the default gorm scope
// already filters soft-deleted rows, which is what frees old subdomains.
func (r *repository) SubdomainInUse(ctx context.Context, subdomain string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Team{}).
		Where("LOWER(subdomain) = ?", strings.ToLower(subdomain)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) UpdateTeamFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Team{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repository) SoftDeleteTeam(ctx context.Context, id snowflake.ID) error {
	result := r.db.WithContext(ctx).Delete(&domain.Team{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repository) HardDeleteTeam(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Unscoped().Delete(&domain.Team{}, "id = ?", id).Error
}

// ListAllTeams includes soft-deleted rows; it backs the admin surface only.
func (r *repository) ListAllTeams(ctx context.Context) ([]domain.Team, error) {
	var teams []domain.Team
	err := r.db.WithContext(ctx).Unscoped().Order("created_at ASC").Find(&teams).Error
	if err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *repository) AddMember(ctx context.Context, member domain.UserTeam) error {
	return r.db.WithContext(ctx).Create(&member).Error
}

func (r *repository) GetMembership(ctx context.Context, teamID, userID snowflake.ID) (*domain.UserTeam, error) {
	var membership domain.UserTeam
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}
	return &membership, nil
}

func (r *repository) GetActiveOwner(ctx context.Context, teamID snowflake.ID) (*domain.UserTeam, error) {
	var membership domain.UserTeam
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND role = ? AND active = ?", teamID, domain.RoleOwner, true).
		First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}
	return &membership, nil
}

func (r *repository) ListMembers(ctx context.Context, teamID snowflake.ID) ([]domain.MemberListItem, error) {
	var items []domain.MemberListItem
	err := r.db.WithContext(ctx).Raw(
		`SELECT m.user_id, u.email, u.display_name AS name, m.role, m.member_type, m.active, m.created_at
		 FROM user_teams m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.team_id = ?
		 ORDER BY m.created_at ASC`,
		teamID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListTeamsByUser(ctx context.Context, userID snowflake.ID) ([]domain.TeamListItem, error) {
	var items []domain.TeamListItem
	err := r.db.WithContext(ctx).Raw(
		`SELECT t.id, t.name, t.subdomain, t.tier, m.role, m.member_type, m.is_default, t.created_at
		 FROM teams t
		 JOIN user_teams m ON m.team_id = t.id
		 WHERE m.user_id = ? AND m.active = ? AND t.deleted_at IS NULL
		 ORDER BY t.created_at ASC`,
		userID, true,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) UpdateMembershipFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&domain.UserTeam{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *repository) DeactivateMembers(ctx context.Context, teamID snowflake.ID) error {
	return r.db.WithContext(ctx).
		Model(&domain.UserTeam{}).
		Where("team_id = ?", teamID).
		Updates(map[string]any{"active": false, "is_default": false}).Error
}

func (r *repository) ClearDefaultTeam(ctx context.Context, userID snowflake.ID) error {
	return r.db.WithContext(ctx).
		Model(&domain.UserTeam{}).
		Where("user_id = ?", userID).
		Update("is_default", false).Error
}

func (r *repository) CountActiveAdmins(ctx context.Context, teamID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.UserTeam{}).
		Where("team_id = ? AND role IN ? AND active = ?", teamID, []string{domain.RoleOwner, domain.RoleAdmin}, true).
		Count(&count).Error
	return count, err
}
