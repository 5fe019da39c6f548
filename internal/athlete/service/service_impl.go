package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stridehq/stride/internal/athlete/domain"
	"github.com/stridehq/stride/internal/clock"
	"github.com/stridehq/stride/internal/observability/logger"
	teamdomain "github.com/stridehq/stride/internal/team/domain"
	"github.com/stridehq/stride/internal/tier"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type service struct {
	db       *gorm.DB
	repo     domain.Repository
	teamRepo teamdomain.Repository
	policy   *tier.Policy
	node     *snowflake.Node
	clock    clock.Clock
}

func NewService(
	db *gorm.DB,
	repo domain.Repository,
	teamRepo teamdomain.Repository,
	policy *tier.Policy,
	node *snowflake.Node,
	clk clock.Clock,
) domain.Service {
	return &service{db: db, repo: repo, teamRepo: teamRepo, policy: policy, node: node, clock: clk}
}

func (s *service) validate(first, last string, birth time.Time, gender string) error {
	if strings.TrimSpace(first) == "" || strings.TrimSpace(last) == "" {
		return domain.ErrInvalidName
	}
	now := s.clock.Now()
	if birth.IsZero() || birth.After(now) || birth.Before(now.AddDate(-100, 0, 0)) {
		return domain.ErrInvalidBirth
	}
	if !domain.ValidGender(gender) {
		return domain.ErrInvalidSex
	}
	return nil
}

// Create rosters an athlete. The tier cap check and the insert run in one
// transaction so two concurrent creates cannot both squeeze under the cap.
func (s *service) Create(ctx context.Context, teamID snowflake.ID, req domain.CreateAthleteRequest) (*domain.AthleteResponse, error) {
	gender := req.Gender
	if gender == "" {
		gender = domain.GenderUnspecified
	}
	if err := s.validate(req.FirstName, req.LastName, req.BirthDate, gender); err != nil {
		return nil, err
	}

	team, err := s.teamRepo.GetTeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.Status == teamdomain.StatusSuspended {
		return nil, teamdomain.ErrTeamSuspended
	}

	athlete := domain.Athlete{
		ID:        s.node.Generate(),
		TeamID:    teamID,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		BirthDate: req.BirthDate,
		Gender:    gender,
		Active:    true,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		count, err := repo.CountActive(ctx, teamID)
		if err != nil {
			return err
		}
		if !s.policy.CanAddAthlete(team.Tier, count) {
			return domain.ErrRosterFull
		}
		return repo.Create(ctx, athlete)
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("athlete rostered",
		zap.String("team_id", teamID.String()),
		zap.String("athlete_id", athlete.ID.String()),
	)
	return athleteResponse(&athlete), nil
}

func (s *service) Get(ctx context.Context, teamID, id snowflake.ID) (*domain.AthleteResponse, error) {
	athlete, err := s.repo.GetByID(ctx, teamID, id)
	if err != nil {
		return nil, err
	}
	return athleteResponse(athlete), nil
}

func (s *service) List(ctx context.Context, teamID snowflake.ID, activeOnly bool) ([]domain.AthleteResponse, error) {
	athletes, err := s.repo.List(ctx, teamID, activeOnly)
	if err != nil {
		return nil, err
	}
	out := make([]domain.AthleteResponse, 0, len(athletes))
	for i := range athletes {
		out = append(out, *athleteResponse(&athletes[i]))
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, teamID, id snowflake.ID, req domain.UpdateAthleteRequest) (*domain.AthleteResponse, error) {
	athlete, err := s.repo.GetByID(ctx, teamID, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if req.FirstName != nil {
		athlete.FirstName = strings.TrimSpace(*req.FirstName)
		fields["first_name"] = athlete.FirstName
	}
	if req.LastName != nil {
		athlete.LastName = strings.TrimSpace(*req.LastName)
		fields["last_name"] = athlete.LastName
	}
	if req.BirthDate != nil {
		athlete.BirthDate = *req.BirthDate
		fields["birth_date"] = athlete.BirthDate
	}
	if req.Gender != nil {
		athlete.Gender = *req.Gender
		fields["gender"] = athlete.Gender
	}
	if err := s.validate(athlete.FirstName, athlete.LastName, athlete.BirthDate, athlete.Gender); err != nil {
		return nil, err
	}

	if req.Active != nil && *req.Active != athlete.Active {
		// Reactivating counts against the tier cap like a fresh create.
		if *req.Active {
			team, err := s.teamRepo.GetTeamByID(ctx, teamID)
			if err != nil {
				return nil, err
			}
			count, err := s.repo.CountActive(ctx, teamID)
			if err != nil {
				return nil, err
			}
			if !s.policy.CanAddAthlete(team.Tier, count) {
				return nil, domain.ErrRosterFull
			}
		}
		athlete.Active = *req.Active
		fields["active"] = athlete.Active
	}

	if len(fields) == 0 {
		return athleteResponse(athlete), nil
	}
	if err := s.repo.UpdateFields(ctx, teamID, id, fields); err != nil {
		return nil, err
	}
	return athleteResponse(athlete), nil
}

func (s *service) Delete(ctx context.Context, teamID, id snowflake.ID) error {
	return s.repo.SoftDelete(ctx, teamID, id)
}

func athleteResponse(a *domain.Athlete) *domain.AthleteResponse {
	return &domain.AthleteResponse{
		ID:        a.ID.String(),
		TeamID:    a.TeamID.String(),
		FirstName: a.FirstName,
		LastName:  a.LastName,
		BirthDate: a.BirthDate,
		Gender:    a.Gender,
		Active:    a.Active,
		CreatedAt: a.CreatedAt,
	}
}
