package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stridehq/stride/internal/auth/domain"
	"github.com/stridehq/stride/internal/claims"
	"github.com/stridehq/stride/internal/clock"
	"github.com/stridehq/stride/internal/config"
	"github.com/stridehq/stride/internal/observability/logger"
	teamdomain "github.com/stridehq/stride/internal/team/domain"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type service struct {
	repo     domain.Repository
	teamRepo teamdomain.Repository
	node     *snowflake.Node
	clock    clock.Clock
	secret   []byte
	tokenTTL time.Duration
}

func NewService(
	repo domain.Repository,
	teamRepo teamdomain.Repository,
	node *snowflake.Node,
	clk clock.Clock,
	cfg config.Config,
) domain.Service {
	return &service{
		repo:     repo,
		teamRepo: teamRepo,
		node:     node,
		clock:    clk,
		secret:   []byte(cfg.AuthJWTSecret),
		tokenTTL: time.Duration(cfg.TokenTTLHours) * time.Hour,
	}
}

func (s *service) CreateUser(ctx context.Context, req domain.CreateUserRequest) (*domain.UserResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidEmail
	}
	if len(req.Password) < minPasswordLength {
		return nil, domain.ErrWeakPassword
	}
	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		name = email
	}
	user := domain.User{
		ID:            s.node.Generate(),
		Email:         email,
		DisplayName:   name,
		PasswordHash:  string(hash),
		IsGlobalAdmin: req.GlobalAdmin,
		Active:        true,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("user created", zap.String("user_id", user.ID.String()))
	return userResponse(&user), nil
}

func (s *service) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Same error for unknown account and wrong password.
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.Active {
		return nil, domain.ErrUserDisabled
	}

	now := s.clock.Now().UTC()
	if err := s.repo.UpdateUserFields(ctx, user.ID, map[string]any{"last_login_at": now}); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now

	return s.issueToken(ctx, user, 0)
}

// SwitchTeam reissues the token with teamID as the default context. The
// caller must be an active member of the team, or a global admin.
func (s *service) SwitchTeam(ctx context.Context, userID, teamID snowflake.ID) (*domain.LoginResponse, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, domain.ErrUserDisabled
	}
	if !user.IsGlobalAdmin {
		membership, err := s.teamRepo.GetMembership(ctx, teamID, userID)
		if err != nil || !membership.Active {
			return nil, domain.ErrNotMember
		}
	}
	return s.issueToken(ctx, user, teamID)
}

func (s *service) ChangePassword(ctx context.Context, userID snowflake.ID, current, next string) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return domain.ErrInvalidCredentials
	}
	if len(next) < minPasswordLength {
		return domain.ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdateUserFields(ctx, userID, map[string]any{"password_hash": string(hash)})
}

func (s *service) Me(ctx context.Context, userID snowflake.ID) (*domain.UserResponse, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return userResponse(user), nil
}

func (s *service) ListUsers(ctx context.Context) ([]domain.UserResponse, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, *userResponse(&users[i]))
	}
	return out, nil
}

func (s *service) SetActive(ctx context.Context, userID snowflake.ID, active bool) error {
	return s.repo.UpdateUserFields(ctx, userID, map[string]any{"active": active})
}

func (s *service) SetGlobalAdmin(ctx context.Context, userID snowflake.ID, admin bool) error {
	return s.repo.UpdateUserFields(ctx, userID, map[string]any{"is_global_admin": admin})
}

func (s *service) DeleteUser(ctx context.Context, userID snowflake.ID) error {
	return s.repo.SoftDeleteUser(ctx, userID)
}

// issueToken builds the claim set from the user's active memberships.
// defaultTeam, when non-zero, selects the default team context; otherwise
// the membership flagged as default wins.
func (s *service) issueToken(ctx context.Context, user *domain.User, defaultTeam snowflake.ID) (*domain.LoginResponse, error) {
	teams, err := s.teamRepo.ListTeamsByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	access := claims.Access{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: user.ID.String(),
		},
		Email:         user.Email,
		IsGlobalAdmin: user.IsGlobalAdmin,
	}
	for _, t := range teams {
		access.Memberships = append(access.Memberships, claims.Membership{
			TeamID:        t.ID.String(),
			TeamSubdomain: t.Subdomain,
			TeamRole:      t.Role,
			MemberType:    t.MemberType,
		})
		isDefault := t.IsDefault
		if defaultTeam != 0 {
			isDefault = t.ID == defaultTeam
		}
		if isDefault {
			access.TeamID = t.ID.String()
			access.TeamRole = t.Role
			access.MemberType = t.MemberType
		}
	}
	if defaultTeam != 0 && access.TeamID == "" {
		if user.IsGlobalAdmin {
			access.TeamID = defaultTeam.String()
		} else {
			return nil, domain.ErrNotMember
		}
	}

	now := s.clock.Now().UTC()
	token, err := claims.Issue(access, s.secret, now, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &domain.LoginResponse{
		Token:     token,
		ExpiresAt: now.Add(s.tokenTTL),
		User:      *userResponse(user),
	}, nil
}

func userResponse(u *domain.User) *domain.UserResponse {
	return &domain.UserResponse{
		ID:            u.ID.String(),
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		IsGlobalAdmin: u.IsGlobalAdmin,
		Active:        u.Active,
		LastLoginAt:   u.LastLoginAt,
		CreatedAt:     u.CreatedAt,
	}
}
