package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/stridehq/stride/internal/auth/domain"
	"github.com/stridehq/stride/internal/config"
	"github.com/stridehq/stride/internal/observability/logger"
	"github.com/stridehq/stride/internal/providers/email"
	"github.com/stridehq/stride/internal/registration/domain"
	teamdomain "github.com/stridehq/stride/internal/team/domain"
	"github.com/stridehq/stride/internal/tier"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type service struct {
	db         *gorm.DB
	repo       domain.Repository
	teamRepo   teamdomain.Repository
	userRepo   authdomain.Repository
	roster     teamdomain.RosterCounter
	policy     *tier.Policy
	mailer     *email.Mailer
	node       *snowflake.Node
	baseDomain string
}

func NewService(
	db *gorm.DB,
	repo domain.Repository,
	teamRepo teamdomain.Repository,
	userRepo authdomain.Repository,
	roster teamdomain.RosterCounter,
	policy *tier.Policy,
	mailer *email.Mailer,
	node *snowflake.Node,
	cfg config.Config,
) domain.Service {
	return &service{
		db:         db,
		repo:       repo,
		teamRepo:   teamRepo,
		userRepo:   userRepo,
		roster:     roster,
		policy:     policy,
		mailer:     mailer,
		node:       node,
		baseDomain: cfg.BaseDomain,
	}
}

// Submit records a public join request against the team behind subdomain.
func (s *service) Submit(ctx context.Context, subdomain string, req domain.SubmitRequest) (*domain.RegistrationResponse, error) {
	team, err := s.teamRepo.GetTeamBySubdomain(ctx, subdomain)
	if err != nil {
		return nil, err
	}
	if team.Status == teamdomain.StatusSuspended {
		// Suspended teams are invisible to the public surface.
		return nil, teamdomain.ErrNotFound
	}

	emailAddr := strings.ToLower(strings.TrimSpace(req.Email))
	if emailAddr == "" || !strings.Contains(emailAddr, "@") {
		return nil, domain.ErrInvalidEmail
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return nil, domain.ErrInvalidName
	}
	memberType := req.MemberType
	if memberType == "" {
		memberType = teamdomain.MemberTypeAthlete
	}
	if !teamdomain.ValidMemberType(memberType) {
		return nil, teamdomain.ErrInvalidMemberType
	}

	pending, err := s.repo.HasPendingForEmail(ctx, team.ID, emailAddr)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, domain.ErrAlreadyRegistered
	}

	reg := domain.Registration{
		ID:         s.node.Generate(),
		TeamID:     team.ID,
		Email:      emailAddr,
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
		MemberType: memberType,
		Status:     domain.StatusPending,
		Note:       strings.TrimSpace(req.Note),
	}
	if err := s.repo.Create(ctx, reg); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("registration submitted",
		zap.String("team_id", team.ID.String()),
		zap.String("registration_id", reg.ID.String()),
	)
	return response(&reg), nil
}

func (s *service) List(ctx context.Context, teamID snowflake.ID, status string) ([]domain.RegistrationResponse, error) {
	regs, err := s.repo.List(ctx, teamID, status)
	if err != nil {
		return nil, err
	}
	out := make([]domain.RegistrationResponse, 0, len(regs))
	for i := range regs {
		out = append(out, *response(&regs[i]))
	}
	return out, nil
}

// Approve turns a pending registration into a user account (when the email
// is new) plus a team membership, atomically, then sends the confirmation.
func (s *service) Approve(ctx context.Context, teamID, regID snowflake.ID) (*domain.RegistrationResponse, error) {
	reg, err := s.repo.GetByID(ctx, teamID, regID)
	if err != nil {
		return nil, err
	}
	if reg.Status != domain.StatusPending {
		return nil, domain.ErrAlreadyDecided
	}
	team, err := s.teamRepo.GetTeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.Status == teamdomain.StatusSuspended {
		return nil, teamdomain.ErrTeamSuspended
	}

	if reg.MemberType == teamdomain.MemberTypeAthlete {
		count, err := s.roster.CountActive(ctx, teamID)
		if err != nil {
			return nil, err
		}
		if !s.policy.CanAddAthlete(team.Tier, count) {
			return nil, teamdomain.ErrTierLimitExceeded
		}
	}

	var tempPassword string
	err = s.db.Transaction(func(tx *gorm.DB) error {
		userRepo := s.userRepo.WithTx(tx)
		teamRepo := s.teamRepo.WithTx(tx)
		regRepo := s.repo.WithTx(tx)

		user, err := userRepo.GetUserByEmail(ctx, reg.Email)
		if err != nil {
			if !errors.Is(err, authdomain.ErrUserNotFound) {
				return err
			}
			tempPassword, err = randomPassword()
			if err != nil {
				return err
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			created := authdomain.User{
				ID:           s.node.Generate(),
				Email:        reg.Email,
				DisplayName:  reg.FirstName + " " + reg.LastName,
				PasswordHash: string(hash),
				Active:       true,
			}
			if err := userRepo.CreateUser(ctx, created); err != nil {
				return err
			}
			user = &created
		}

		existing, err := teamRepo.GetMembership(ctx, teamID, user.ID)
		switch {
		case err == nil && existing.Active:
			return teamdomain.ErrDuplicateMembership
		case err == nil:
			if err := teamRepo.UpdateMembershipFields(ctx, existing.ID, map[string]any{
				"active":      true,
				"member_type": reg.MemberType,
			}); err != nil {
				return err
			}
		case errors.Is(err, teamdomain.ErrMemberNotFound):
			if err := teamRepo.AddMember(ctx, teamdomain.UserTeam{
				ID:         s.node.Generate(),
				TeamID:     teamID,
				UserID:     user.ID,
				Role:       teamdomain.RoleMember,
				MemberType: reg.MemberType,
				Active:     true,
			}); err != nil {
				return err
			}
		default:
			return err
		}

		return regRepo.UpdateStatus(ctx, reg.ID, domain.StatusApproved)
	})
	if err != nil {
		return nil, err
	}
	reg.Status = domain.StatusApproved

	// Delivery failure does not undo the approval.
	if err := s.mailer.SendRegistrationConfirmation(ctx, email.RegistrationConfirmationData{
		To:                reg.Email,
		FirstName:         reg.FirstName,
		TeamName:          team.Name,
		TeamURL:           fmt.Sprintf("https://%s.%s", team.Subdomain, s.baseDomain),
		TemporaryPassword: tempPassword,
	}); err != nil {
		logger.FromContext(ctx).Warn("registration confirmation not delivered",
			zap.String("registration_id", reg.ID.String()), zap.Error(err))
	}

	logger.FromContext(ctx).Info("registration approved",
		zap.String("team_id", teamID.String()),
		zap.String("registration_id", reg.ID.String()),
	)
	return response(reg), nil
}

func (s *service) Reject(ctx context.Context, teamID, regID snowflake.ID) (*domain.RegistrationResponse, error) {
	reg, err := s.repo.GetByID(ctx, teamID, regID)
	if err != nil {
		return nil, err
	}
	if reg.Status != domain.StatusPending {
		return nil, domain.ErrAlreadyDecided
	}
	if err := s.repo.UpdateStatus(ctx, reg.ID, domain.StatusRejected); err != nil {
		return nil, err
	}
	reg.Status = domain.StatusRejected
	return response(reg), nil
}

func randomPassword() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func response(r *domain.Registration) *domain.RegistrationResponse {
	return &domain.RegistrationResponse{
		ID:         r.ID.String(),
		TeamID:     r.TeamID.String(),
		Email:      r.Email,
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		MemberType: r.MemberType,
		Status:     r.Status,
		Note:       r.Note,
		CreatedAt:  r.CreatedAt,
	}
}
