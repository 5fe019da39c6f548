package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/stridehq/stride/internal/observability/logger"
	"github.com/stridehq/stride/internal/team/domain"
	"github.com/stridehq/stride/internal/tier"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// reservedSubdomains are routed to platform surfaces and can never name a team.
var reservedSubdomains = map[string]struct{}{
	"admin":   {},
	"api":     {},
	"app":     {},
	"www":     {},
	"mail":    {},
	"staging": {},
	"status":  {},
	"support": {},
	"billing": {},
}

var subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

type service struct {
	db     *gorm.DB
	repo   domain.Repository
	roster domain.RosterCounter
	node   *snowflake.Node
	policy *tier.Policy
}

func NewService(db *gorm.DB, repo domain.Repository, roster domain.RosterCounter, node *snowflake.Node, policy *tier.Policy) domain.Service {
	return &service{db: db, repo: repo, roster: roster, node: node, policy: policy}
}

// NormalizeSubdomain slugs arbitrary input into a DNS-label candidate.
// Validation still runs afterwards; slugging a name like "Røros IL" is a
// convenience, not a guarantee.
func NormalizeSubdomain(input string) string {
	return slug.Make(strings.TrimSpace(input))
}

func validateSubdomain(s string) error {
	if !subdomainPattern.MatchString(s) {
		return domain.ErrInvalidSubdomain
	}
	if _, reserved := reservedSubdomains[s]; reserved {
		return domain.ErrSubdomainReserved
	}
	return nil
}

func (s *service) Create(ctx context.Context, userID snowflake.ID, req domain.CreateTeamRequest) (*domain.TeamResponse, error) {
	log := logger.FromContext(ctx)

	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > 120 {
		return nil, domain.ErrInvalidName
	}
	sub := NormalizeSubdomain(req.Subdomain)
	if sub == "" {
		sub = NormalizeSubdomain(name)
	}
	if err := validateSubdomain(sub); err != nil {
		return nil, err
	}

	teamTier := req.Tier
	if teamTier == "" {
		teamTier = domain.TierFree
	}
	if !domain.ValidTier(teamTier) {
		return nil, domain.ErrInvalidTier
	}
	memberType := req.MemberType
	if memberType == "" {
		memberType = domain.MemberTypeCoach
	}
	if !domain.ValidMemberType(memberType) {
		return nil, domain.ErrInvalidMemberType
	}
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	team := domain.Team{
		ID:        s.node.Generate(),
		Name:      name,
		Subdomain: sub,
		Tier:      teamTier,
		Status:    domain.StatusActive,
		Branding:  datatypes.JSONMap{},
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		inUse, err := repo.SubdomainInUse(ctx, sub)
		if err != nil {
			return err
		}
		if inUse {
			return domain.ErrSubdomainTaken
		}
		if err := repo.CreateTeam(ctx, team); err != nil {
			return err
		}
		// The creator becomes the owner and, for convenience, lands in the
		// new team on their next token refresh.
		if err := repo.ClearDefaultTeam(ctx, userID); err != nil {
			return err
		}
		return repo.AddMember(ctx, domain.UserTeam{
			ID:         s.node.Generate(),
			TeamID:     team.ID,
			UserID:     userID,
			Role:       domain.RoleOwner,
			MemberType: memberType,
			Active:     true,
			IsDefault:  true,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info("team created",
		zap.String("team_id", team.ID.String()),
		zap.String("subdomain", team.Subdomain),
		zap.String("tier", team.Tier),
	)
	return teamResponse(&team), nil
}

func (s *service) GetByID(ctx context.Context, id string) (*domain.TeamResponse, error) {
	teamID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	team, err := s.repo.GetTeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return teamResponse(team), nil
}

func (s *service) GetBySubdomain(ctx context.Context, subdomain string) (*domain.TeamResponse, error) {
	team, err := s.repo.GetTeamBySubdomain(ctx, strings.ToLower(strings.TrimSpace(subdomain)))
	if err != nil {
		return nil, err
	}
	return teamResponse(team), nil
}

func (s *service) ListTeamsByUser(ctx context.Context, userID snowflake.ID) ([]domain.TeamListResponseItem, error) {
	items, err := s.repo.ListTeamsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.TeamListResponseItem, 0, len(items))
	for _, it := range items {
		out = append(out, domain.TeamListResponseItem{
			ID:         it.ID.String(),
			Name:       it.Name,
			Subdomain:  it.Subdomain,
			Tier:       it.Tier,
			Role:       it.Role,
			MemberType: it.MemberType,
			IsDefault:  it.IsDefault,
			CreatedAt:  it.CreatedAt,
		})
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, teamID snowflake.ID, req domain.UpdateTeamRequest) (*domain.TeamResponse, error) {
	team, err := s.repo.GetTeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" || len(name) > 120 {
			return nil, domain.ErrInvalidName
		}
		fields["name"] = name
		team.Name = name
	}
	if req.Branding != nil {
		// Branding customisation is a paid feature; free teams keep defaults.
		if !s.policy.LimitsFor(team.Tier).CustomBranding {
			return nil, domain.ErrTierLimitExceeded
		}
		fields["branding"] = datatypes.JSONMap(req.Branding)
		team.Branding = datatypes.JSONMap(req.Branding)
	}
	if len(fields) == 0 {
		return teamResponse(team), nil
	}
	if err := s.repo.UpdateTeamFields(ctx, teamID, fields); err != nil {
		return nil, err
	}
	return teamResponse(team), nil
}

func (s *service) ChangeTier(ctx context.Context, teamID snowflake.ID, newTier string) error {
	if !domain.ValidTier(newTier) {
		return domain.ErrInvalidTier
	}
	team, err := s.repo.GetTeamByID(ctx, teamID)
	if err != nil {
		return err
	}
	if team.Tier == newTier {
		return nil
	}

	athletes, err := s.roster.CountActive(ctx, teamID)
	if err != nil {
		return err
	}
	admins, err := s.repo.CountActiveAdmins(ctx, teamID)
	if err != nil {
		return err
	}
	if !s.policy.FitsTier(newTier, athletes, admins) {
		return domain.ErrTierLimitExceeded
	}

	if err := s.repo.UpdateTeamFields(ctx, teamID, map[string]any{"tier": newTier}); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("team tier changed",
		zap.String("team_id", teamID.String()),
		zap.String("from", team.Tier),
		zap.String("to", newTier),
	)
	return nil
}

func (s *service) CheckSubdomainAvailability(ctx context.Context, subdomain string) (bool, error) {
	sub := NormalizeSubdomain(subdomain)
	if err := validateSubdomain(sub); err != nil {
		return false, err
	}
	inUse, err := s.repo.SubdomainInUse(ctx, sub)
	if err != nil {
		return false, err
	}
	return !inUse, nil
}

func (s *service) SoftDelete(ctx context.Context, teamID snowflake.ID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.SoftDeleteTeam(ctx, teamID); err != nil {
			return err
		}
		return repo.DeactivateMembers(ctx, teamID)
	})
}

func (s *service) HardPurge(ctx context.Context, teamID snowflake.ID) error {
	logger.FromContext(ctx).Warn("purging team", zap.String("team_id", teamID.String()))
	return s.repo.HardDeleteTeam(ctx, teamID)
}

func (s *service) Suspend(ctx context.Context, teamID snowflake.ID) error {
	return s.repo.UpdateTeamFields(ctx, teamID, map[string]any{"status": domain.StatusSuspended})
}

func (s *service) Reactivate(ctx context.Context, teamID snowflake.ID) error {
	return s.repo.UpdateTeamFields(ctx, teamID, map[string]any{"status": domain.StatusActive})
}

func (s *service) AdminList(ctx context.Context) ([]domain.AdminTeamResponse, error) {
	teams, err := s.repo.ListAllTeams(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.AdminTeamResponse, 0, len(teams))
	for i := range teams {
		out = append(out, domain.AdminTeamResponse{
			TeamResponse: *teamResponse(&teams[i]),
			Deleted:      teams[i].DeletedAt.Valid,
		})
	}
	return out, nil
}

func (s *service) ListMembers(ctx context.Context, teamID snowflake.ID) ([]domain.MemberResponse, error) {
	items, err := s.repo.ListMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.MemberResponse, 0, len(items))
	for _, it := range items {
		out = append(out, domain.MemberResponse{
			UserID:     it.UserID.String(),
			Email:      it.Email,
			Name:       it.Name,
			Role:       it.Role,
			MemberType: it.MemberType,
			Active:     it.Active,
			JoinedAt:   it.CreatedAt,
		})
	}
	return out, nil
}

func (s *service) UpdateMemberRole(ctx context.Context, teamID, userID snowflake.ID, role string) error {
	if !domain.ValidRole(role) {
		return domain.ErrInvalidRole
	}
	// Ownership moves only through the transfer flow, never via role edits.
	if role == domain.RoleOwner {
		return domain.ErrOwnerRoleImmutable
	}
	membership, err := s.repo.GetMembership(ctx, teamID, userID)
	if err != nil {
		return err
	}
	if membership.Role == domain.RoleOwner {
		return domain.ErrOwnerRoleImmutable
	}
	if membership.Role == role {
		return nil
	}
	if role == domain.RoleAdmin {
		team, err := s.repo.GetTeamByID(ctx, teamID)
		if err != nil {
			return err
		}
		admins, err := s.repo.CountActiveAdmins(ctx, teamID)
		if err != nil {
			return err
		}
		if !s.policy.CanAddAdmin(team.Tier, admins) {
			return domain.ErrTierLimitExceeded
		}
	}
	return s.repo.UpdateMembershipFields(ctx, membership.ID, map[string]any{"role": role})
}

func (s *service) RemoveMember(ctx context.Context, teamID, userID snowflake.ID) error {
	membership, err := s.repo.GetMembership(ctx, teamID, userID)
	if err != nil {
		return err
	}
	if membership.Role == domain.RoleOwner {
		return domain.ErrOwnerRoleImmutable
	}
	return s.repo.UpdateMembershipFields(ctx, membership.ID, map[string]any{
		"active":     false,
		"is_default": false,
	})
}

func (s *service) SetDefaultTeam(ctx context.Context, userID, teamID snowflake.ID) error {
	membership, err := s.repo.GetMembership(ctx, teamID, userID)
	if err != nil {
		return err
	}
	if !membership.Active {
		return domain.ErrMemberNotFound
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.ClearDefaultTeam(ctx, userID); err != nil {
			return err
		}
		return repo.UpdateMembershipFields(ctx, membership.ID, map[string]any{"is_default": true})
	})
}

func teamResponse(t *domain.Team) *domain.TeamResponse {
	return &domain.TeamResponse{
		ID:        t.ID.String(),
		Name:      t.Name,
		Subdomain: t.Subdomain,
		Tier:      t.Tier,
		Status:    t.Status,
		Branding:  map[string]any(t.Branding),
		CreatedAt: t.CreatedAt,
	}
}
