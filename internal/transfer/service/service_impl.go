package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/stridehq/stride/internal/auth/domain"
	"github.com/stridehq/stride/internal/clock"
	"github.com/stridehq/stride/internal/config"
	"github.com/stridehq/stride/internal/observability/logger"
	"github.com/stridehq/stride/internal/providers/email"
	"github.com/stridehq/stride/internal/ratelimit"
	teamdomain "github.com/stridehq/stride/internal/team/domain"
	"github.com/stridehq/stride/internal/transfer/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type service struct {
	db       *gorm.DB
	repo     domain.Repository
	teamRepo teamdomain.Repository
	userRepo authdomain.Repository
	mailer   *email.Mailer
	locker   *ratelimit.Locker
	node     *snowflake.Node
	clock    clock.Clock
	lockTTL  time.Duration
}

func NewService(
	db *gorm.DB,
	repo domain.Repository,
	teamRepo teamdomain.Repository,
	userRepo authdomain.Repository,
	mailer *email.Mailer,
	locker *ratelimit.Locker,
	node *snowflake.Node,
	clk clock.Clock,
	cfg config.Config,
) domain.Service {
	return &service{
		db:       db,
		repo:     repo,
		teamRepo: teamRepo,
		userRepo: userRepo,
		mailer:   mailer,
		locker:   locker,
		node:     node,
		clock:    clk,
		lockTTL:  time.Duration(cfg.RateLimit.TransferLockTTLSeconds) * time.Second,
	}
}

// hashToken is the stored form of a transfer token. The raw token never
// touches the database.
func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Initiate opens a transfer to targetEmail. The check-then-insert runs
// under a redis lock when one is configured; the partial unique index on
// pending transfers backstops it either way.
func (s *service) Initiate(ctx context.Context, teamID, initiatorID snowflake.ID, req domain.InitiateRequest) (*domain.TransferResponse, error) {
	target := strings.ToLower(strings.TrimSpace(req.TargetEmail))
	if target == "" || !strings.Contains(target, "@") {
		return nil, domain.ErrInvalidTarget
	}

	team, err := s.teamRepo.GetTeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	owner, err := s.teamRepo.GetActiveOwner(ctx, teamID)
	if err != nil {
		return nil, err
	}
	ownerUser, err := s.userRepo.GetUserByID(ctx, owner.UserID)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(ownerUser.Email, target) {
		return nil, domain.ErrInvalidTarget
	}

	if s.locker != nil {
		key := fmt.Sprintf("transfer:initiate:%s", teamID.String())
		token, ok, err := s.locker.TryLock(ctx, key, s.lockTTL)
		if err == nil && !ok {
			return nil, domain.ErrBusy
		}
		if err == nil {
			defer func() { _ = s.locker.Release(ctx, key, token) }()
		}
	}

	if _, err := s.repo.GetPendingByTeam(ctx, teamID); err == nil {
		return nil, domain.ErrPendingExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	rawToken, err := newToken()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	transfer := domain.OwnershipTransfer{
		ID:          s.node.Generate(),
		TeamID:      teamID,
		InitiatorID: initiatorID,
		TargetEmail: target,
		Message:     strings.TrimSpace(req.Message),
		TokenHash:   hashToken(rawToken),
		Status:      domain.StatusPending,
		ExpiresAt:   now.Add(domain.TTL),
	}
	if err := s.repo.Create(ctx, transfer); err != nil {
		return nil, err
	}

	initiatorName := "The current team owner"
	if initiator, err := s.userRepo.GetUserByID(ctx, initiatorID); err == nil {
		initiatorName = initiator.DisplayName
	}
	if err := s.mailer.SendOwnershipTransfer(ctx, email.OwnershipTransferData{
		To:            target,
		TeamName:      team.Name,
		InitiatorName: initiatorName,
		Message:       transfer.Message,
		Token:         rawToken,
		ExpiresAt:     transfer.ExpiresAt,
	}); err != nil {
		logger.FromContext(ctx).Warn("transfer invitation not delivered",
			zap.String("transfer_id", transfer.ID.String()), zap.Error(err))
	}

	logger.FromContext(ctx).Info("ownership transfer initiated",
		zap.String("team_id", teamID.String()),
		zap.String("transfer_id", transfer.ID.String()),
	)
	return response(&transfer), nil
}

// Complete redeems a transfer token for the caller. The caller must be the
// account behind the target email; the owner swap is a single transaction.
func (s *service) Complete(ctx context.Context, callerID snowflake.ID, rawToken string) (*domain.TransferResponse, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, domain.ErrNotFound
	}
	transfer, err := s.repo.GetByTokenHash(ctx, hashToken(rawToken))
	if err != nil {
		return nil, err
	}
	if transfer.Status != domain.StatusPending {
		return nil, domain.ErrNotPending
	}

	now := s.clock.Now().UTC()
	if now.After(transfer.ExpiresAt) {
		if err := s.repo.UpdateFields(ctx, transfer.ID, map[string]any{
			"status": domain.StatusExpired,
		}); err != nil {
			return nil, err
		}
		return nil, domain.ErrExpired
	}

	caller, err := s.userRepo.GetUserByID(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(caller.Email, transfer.TargetEmail) {
		return nil, domain.ErrNotTarget
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		teamRepo := s.teamRepo.WithTx(tx)
		transferRepo := s.repo.WithTx(tx)

		owner, err := teamRepo.GetActiveOwner(ctx, transfer.TeamID)
		if err != nil {
			return err
		}
		if err := teamRepo.UpdateMembershipFields(ctx, owner.ID, map[string]any{
			"role": teamdomain.RoleAdmin,
		}); err != nil {
			return err
		}

		existing, err := teamRepo.GetMembership(ctx, transfer.TeamID, caller.ID)
		switch {
		case err == nil:
			if err := teamRepo.UpdateMembershipFields(ctx, existing.ID, map[string]any{
				"role":   teamdomain.RoleOwner,
				"active": true,
			}); err != nil {
				return err
			}
		case errors.Is(err, teamdomain.ErrMemberNotFound):
			if err := teamRepo.AddMember(ctx, teamdomain.UserTeam{
				ID:         s.node.Generate(),
				TeamID:     transfer.TeamID,
				UserID:     caller.ID,
				Role:       teamdomain.RoleOwner,
				MemberType: teamdomain.MemberTypeCoach,
				Active:     true,
			}); err != nil {
				return err
			}
		default:
			return err
		}

		if err := transferRepo.UpdateFields(ctx, transfer.ID, map[string]any{
			"status":       domain.StatusCompleted,
			"completed_at": now,
		}); err != nil {
			return err
		}
		return transferRepo.CancelOtherPending(ctx, transfer.TeamID, transfer.ID)
	})
	if err != nil {
		return nil, err
	}

	transfer.Status = domain.StatusCompleted
	transfer.CompletedAt = &now
	logger.FromContext(ctx).Info("ownership transfer completed",
		zap.String("team_id", transfer.TeamID.String()),
		zap.String("transfer_id", transfer.ID.String()),
	)
	return response(transfer), nil
}

// Cancel is allowed for the initiator, the current owner, or a global admin,
// and only from PENDING.
func (s *service) Cancel(ctx context.Context, teamID, transferID, callerID snowflake.ID, callerIsGlobalAdmin bool) error {
	transfer, err := s.repo.GetByID(ctx, teamID, transferID)
	if err != nil {
		return err
	}
	if transfer.Status != domain.StatusPending {
		return domain.ErrNotPending
	}

	allowed := callerIsGlobalAdmin || transfer.InitiatorID == callerID
	if !allowed {
		owner, err := s.teamRepo.GetActiveOwner(ctx, teamID)
		if err == nil && owner.UserID == callerID {
			allowed = true
		}
	}
	if !allowed {
		return domain.ErrNotTarget
	}

	return s.repo.UpdateFields(ctx, transfer.ID, map[string]any{
		"status": domain.StatusCancelled,
	})
}

func (s *service) ListByTeam(ctx context.Context, teamID snowflake.ID) ([]domain.TransferResponse, error) {
	transfers, err := s.repo.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.TransferResponse, 0, len(transfers))
	for i := range transfers {
		out = append(out, *response(&transfers[i]))
	}
	return out, nil
}

func response(t *domain.OwnershipTransfer) *domain.TransferResponse {
	return &domain.TransferResponse{
		ID:          t.ID.String(),
		TeamID:      t.TeamID.String(),
		InitiatorID: t.InitiatorID.String(),
		TargetEmail: t.TargetEmail,
		Message:     t.Message,
		Status:      t.Status,
		ExpiresAt:   t.ExpiresAt,
		CompletedAt: t.CompletedAt,
		CreatedAt:   t.CreatedAt,
	}
}
