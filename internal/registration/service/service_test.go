package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	athletedomain "github.com/stridehq/stride/internal/athlete/domain"
	athleterepository "github.com/stridehq/stride/internal/athlete/repository"
	authdomain "github.com/stridehq/stride/internal/auth/domain"
	authrepository "github.com/stridehq/stride/internal/auth/repository"
	"github.com/stridehq/stride/internal/config"
	"github.com/stridehq/stride/internal/migration"
	"github.com/stridehq/stride/internal/providers/email"
	"github.com/stridehq/stride/internal/registration/domain"
	"github.com/stridehq/stride/internal/registration/repository"
	teamdomain "github.com/stridehq/stride/internal/team/domain"
	teamrepository "github.com/stridehq/stride/internal/team/repository"
	"github.com/stridehq/stride/internal/tier"
	"gorm.io/gorm"
)

type captureProvider struct {
	mu       sync.Mutex
	messages []email.Message
}

func (p *captureProvider) Send(ctx context.Context, msg email.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

func (p *captureProvider) Sent() []email.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]email.Message(nil), p.messages...)
}

type fixture struct {
	svc         domain.Service
	teamRepo    teamdomain.Repository
	userRepo    authdomain.Repository
	athleteRepo athletedomain.Repository
	node        *snowflake.Node
	outbox      *captureProvider
	teamID      snowflake.ID
}

func setup(t *testing.T, teamTier string) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(db))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	outbox := &captureProvider{}
	mailer, err := email.NewMailerWithProvider(outbox, "https://app.stride.run/transfers/complete")
	require.NoError(t, err)

	teamRepo := teamrepository.NewRepository(db)
	userRepo := authrepository.NewRepository(db)
	athleteRepo := athleterepository.NewRepository(db)
	policy := tier.NewPolicy(config.NewStaticTierConfigHolder(config.DefaultTierConfig()))

	team := teamdomain.Team{
		ID: node.Generate(), Name: "Oslo Løpeklubb", Subdomain: "oslo",
		Tier: teamTier, Status: teamdomain.StatusActive,
	}
	require.NoError(t, teamRepo.CreateTeam(context.Background(), team))

	svc := NewService(db, repository.NewRepository(db), teamRepo, userRepo,
		athleteRepo, policy, mailer, node, config.Config{BaseDomain: "stride.run"})

	return &fixture{
		svc:         svc,
		teamRepo:    teamRepo,
		userRepo:    userRepo,
		athleteRepo: athleteRepo,
		node:        node,
		outbox:      outbox,
		teamID:      team.ID,
	}
}

func submit(t *testing.T, f *fixture, emailAddr, memberType string) *domain.RegistrationResponse {
	t.Helper()
	resp, err := f.svc.Submit(context.Background(), "oslo", domain.SubmitRequest{
		Email:      emailAddr,
		FirstName:  "Kari",
		LastName:   "Nordmann",
		MemberType: memberType,
	})
	require.NoError(t, err)
	return resp
}

func TestSubmit(t *testing.T) {
	f := setup(t, teamdomain.TierFree)

	resp := submit(t, f, "Kari@Example.com", "")
	assert.Equal(t, "kari@example.com", resp.Email)
	assert.Equal(t, domain.StatusPending, resp.Status)
	assert.Equal(t, teamdomain.MemberTypeAthlete, resp.MemberType, "member type defaults to athlete")
}

func TestSubmitUnknownSubdomain(t *testing.T) {
	f := setup(t, teamdomain.TierFree)

	_, err := f.svc.Submit(context.Background(), "nowhere", domain.SubmitRequest{
		Email: "a@b.c", FirstName: "A", LastName: "B",
	})
	assert.ErrorIs(t, err, teamdomain.ErrNotFound)
}

func TestSubmitSuspendedTeamHidden(t *testing.T) {
	f := setup(t, teamdomain.TierFree)
	ctx := context.Background()

	require.NoError(t, f.teamRepo.UpdateTeamFields(ctx, f.teamID, map[string]any{
		"status": teamdomain.StatusSuspended,
	}))
	_, err := f.svc.Submit(ctx, "oslo", domain.SubmitRequest{
		Email: "a@b.c", FirstName: "A", LastName: "B",
	})
	assert.ErrorIs(t, err, teamdomain.ErrNotFound)
}

func TestSubmitDuplicatePending(t *testing.T) {
	f := setup(t, teamdomain.TierFree)

	submit(t, f, "kari@example.com", "")
	_, err := f.svc.Submit(context.Background(), "oslo", domain.SubmitRequest{
		Email: "KARI@example.com", FirstName: "Kari", LastName: "Nordmann",
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyRegistered)
}

func TestSubmitValidation(t *testing.T) {
	f := setup(t, teamdomain.TierFree)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, "oslo", domain.SubmitRequest{
		Email: "not-an-email", FirstName: "A", LastName: "B",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = f.svc.Submit(ctx, "oslo", domain.SubmitRequest{
		Email: "a@b.c", FirstName: "", LastName: "B",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = f.svc.Submit(ctx, "oslo", domain.SubmitRequest{
		Email: "a@b.c", FirstName: "A", LastName: "B", MemberType: "MASCOT",
	})
	assert.ErrorIs(t, err, teamdomain.ErrInvalidMemberType)
}

func TestApproveCreatesUserAndMembership(t *testing.T) {
	f := setup(t, teamdomain.TierFree)
	ctx := context.Background()

	reg := submit(t, f, "kari@example.com", teamdomain.MemberTypeParent)
	regID, _ := snowflake.ParseString(reg.ID)

	approved, err := f.svc.Approve(ctx, f.teamID, regID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, approved.Status)

	user, err := f.userRepo.GetUserByEmail(ctx, "kari@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Kari Nordmann", user.DisplayName)

	membership, err := f.teamRepo.GetMembership(ctx, f.teamID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, teamdomain.RoleMember, membership.Role)
	assert.Equal(t, teamdomain.MemberTypeParent, membership.MemberType)
	assert.True(t, membership.Active)

	// The confirmation mail carries a temporary password for the new account.
	sent := f.outbox.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "kari@example.com", sent[0].To)
	assert.Contains(t, sent[0].HTML, "oslo.stride.run")
}

func TestApproveExistingUserKeepsPassword(t *testing.T) {
	f := setup(t, teamdomain.TierFree)
	ctx := context.Background()

	existing := authdomain.User{
		ID: f.node.Generate(), Email: "kari@example.com",
		DisplayName: "Kari", PasswordHash: "hash", Active: true,
	}
	require.NoError(t, f.userRepo.CreateUser(ctx, existing))

	reg := submit(t, f, "kari@example.com", "")
	regID, _ := snowflake.ParseString(reg.ID)
	_, err := f.svc.Approve(ctx, f.teamID, regID)
	require.NoError(t, err)

	user, err := f.userRepo.GetUserByEmail(ctx, "kari@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hash", user.PasswordHash)
}

func TestApproveActiveMemberConflicts(t *testing.T) {
	f := setup(t, teamdomain.TierFree)
	ctx := context.Background()

	existing := authdomain.User{
		ID: f.node.Generate(), Email: "kari@example.com",
		DisplayName: "Kari", PasswordHash: "hash", Active: true,
	}
	require.NoError(t, f.userRepo.CreateUser(ctx, existing))
	require.NoError(t, f.teamRepo.AddMember(ctx, teamdomain.UserTeam{
		ID: f.node.Generate(), TeamID: f.teamID, UserID: existing.ID,
		Role: teamdomain.RoleMember, MemberType: teamdomain.MemberTypeParent, Active: true,
	}))

	reg := submit(t, f, "kari@example.com", "")
	regID, _ := snowflake.ParseString(reg.ID)
	_, err := f.svc.Approve(ctx, f.teamID, regID)
	assert.ErrorIs(t, err, teamdomain.ErrDuplicateMembership)
}

func TestApproveTwiceConflicts(t *testing.T) {
	f := setup(t, teamdomain.TierFree)
	ctx := context.Background()

	reg := submit(t, f, "kari@example.com", teamdomain.MemberTypeParent)
	regID, _ := snowflake.ParseString(reg.ID)

	_, err := f.svc.Approve(ctx, f.teamID, regID)
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, f.teamID, regID)
	assert.ErrorIs(t, err, domain.ErrAlreadyDecided)
}

func TestApproveSuspendedTeam(t *testing.T) {
	f := setup(t, teamdomain.TierFree)
	ctx := context.Background()

	reg := submit(t, f, "kari@example.com", "")
	regID, _ := snowflake.ParseString(reg.ID)

	require.NoError(t, f.teamRepo.UpdateTeamFields(ctx, f.teamID, map[string]any{
		"status": teamdomain.StatusSuspended,
	}))
	_, err := f.svc.Approve(ctx, f.teamID, regID)
	assert.ErrorIs(t, err, teamdomain.ErrTeamSuspended)
}

func TestRejectThenApproveConflicts(t *testing.T) {
	f := setup(t, teamdomain.TierFree)
	ctx := context.Background()

	reg := submit(t, f, "kari@example.com", "")
	regID, _ := snowflake.ParseString(reg.ID)

	rejected, err := f.svc.Reject(ctx, f.teamID, regID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, rejected.Status)

	_, err = f.svc.Approve(ctx, f.teamID, regID)
	assert.ErrorIs(t, err, domain.ErrAlreadyDecided)

	// No account was provisioned for a rejected registration.
	_, err = f.userRepo.GetUserByEmail(ctx, "kari@example.com")
	assert.ErrorIs(t, err, authdomain.ErrUserNotFound)
}

func TestApproveAthleteRosterCap(t *testing.T) {
	f := setup(t, teamdomain.TierFree)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		require.NoError(t, f.athleteRepo.Create(ctx, athletedomain.Athlete{
			ID: f.node.Generate(), TeamID: f.teamID,
			FirstName: fmt.Sprintf("Runner%d", i), LastName: "Hansen",
			Gender: athletedomain.GenderUnspecified, Active: true,
		}))
	}

	reg := submit(t, f, "late@example.com", teamdomain.MemberTypeAthlete)
	regID, _ := snowflake.ParseString(reg.ID)
	_, err := f.svc.Approve(ctx, f.teamID, regID)
	assert.ErrorIs(t, err, teamdomain.ErrTierLimitExceeded)

	// Parents and coaches are not counted against the roster.
	reg = submit(t, f, "parent@example.com", teamdomain.MemberTypeParent)
	regID, _ = snowflake.ParseString(reg.ID)
	_, err = f.svc.Approve(ctx, f.teamID, regID)
	assert.NoError(t, err)
}

func TestListByStatus(t *testing.T) {
	f := setup(t, teamdomain.TierFree)
	ctx := context.Background()

	submit(t, f, "a@example.com", "")
	reg := submit(t, f, "b@example.com", "")
	regID, _ := snowflake.ParseString(reg.ID)
	_, err := f.svc.Reject(ctx, f.teamID, regID)
	require.NoError(t, err)

	pending, err := f.svc.List(ctx, f.teamID, domain.StatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	all, err := f.svc.List(ctx, f.teamID, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
