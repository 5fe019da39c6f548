package service

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	authdomain "github.com/stridehq/stride/internal/auth/domain"
	authrepository "github.com/stridehq/stride/internal/auth/repository"
	"github.com/stridehq/stride/internal/clock"
	"github.com/stridehq/stride/internal/config"
	"github.com/stridehq/stride/internal/migration"
	"github.com/stridehq/stride/internal/providers/email"
	teamdomain "github.com/stridehq/stride/internal/team/domain"
	teamrepository "github.com/stridehq/stride/internal/team/repository"
	"github.com/stridehq/stride/internal/transfer/domain"
	"github.com/stridehq/stride/internal/transfer/repository"
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

var tokenPattern = regexp.MustCompile(`token=([A-Za-z0-9_-]+)`)

// lastToken pulls the raw transfer token out of the most recent mail, the
// only place it ever appears.
func (p *captureProvider) lastToken(t *testing.T) string {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.messages)
	match := tokenPattern.FindStringSubmatch(p.messages[len(p.messages)-1].HTML)
	require.Len(t, match, 2)
	return match[1]
}

type fixture struct {
	svc      domain.Service
	teamRepo teamdomain.Repository
	userRepo authdomain.Repository
	node     *snowflake.Node
	clock    *clock.FakeClock
	outbox   *captureProvider
	teamID   snowflake.ID
	ownerID  snowflake.ID
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(db))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	outbox := &captureProvider{}
	mailer, err := email.NewMailerWithProvider(outbox, "https://app.stride.run/transfers/complete")
	require.NoError(t, err)

	teamRepo := teamrepository.NewRepository(db)
	userRepo := authrepository.NewRepository(db)

	ctx := context.Background()
	owner := authdomain.User{
		ID: node.Generate(), Email: "owner@example.com",
		DisplayName: "Ola Eier", PasswordHash: "hash", Active: true,
	}
	require.NoError(t, userRepo.CreateUser(ctx, owner))

	team := teamdomain.Team{
		ID: node.Generate(), Name: "Oslo", Subdomain: "oslo",
		Tier: teamdomain.TierFree, Status: teamdomain.StatusActive,
	}
	require.NoError(t, teamRepo.CreateTeam(ctx, team))
	require.NoError(t, teamRepo.AddMember(ctx, teamdomain.UserTeam{
		ID: node.Generate(), TeamID: team.ID, UserID: owner.ID,
		Role: teamdomain.RoleOwner, MemberType: teamdomain.MemberTypeCoach, Active: true,
	}))

	svc := NewService(db, repository.NewRepository(db), teamRepo, userRepo,
		mailer, nil, node, clk, config.Config{})

	return &fixture{
		svc:      svc,
		teamRepo: teamRepo,
		userRepo: userRepo,
		node:     node,
		clock:    clk,
		outbox:   outbox,
		teamID:   team.ID,
		ownerID:  owner.ID,
	}
}

func (f *fixture) addUser(t *testing.T, emailAddr string) snowflake.ID {
	t.Helper()
	user := authdomain.User{
		ID: f.node.Generate(), Email: emailAddr,
		DisplayName: "Kari Ny", PasswordHash: "hash", Active: true,
	}
	require.NoError(t, f.userRepo.CreateUser(context.Background(), user))
	return user.ID
}

func TestInitiateAndComplete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	targetID := f.addUser(t, "kari@example.com")

	resp, err := f.svc.Initiate(ctx, f.teamID, f.ownerID, domain.InitiateRequest{
		TargetEmail: "Kari@Example.com",
		Message:     "Taking over from next season",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, resp.Status)
	assert.Equal(t, "kari@example.com", resp.TargetEmail)

	token := f.outbox.lastToken(t)
	completed, err := f.svc.Complete(ctx, targetID, token)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)

	// Exactly one owner afterwards: the target.
	owner, err := f.teamRepo.GetActiveOwner(ctx, f.teamID)
	require.NoError(t, err)
	assert.Equal(t, targetID, owner.UserID)

	// The previous owner was demoted, not removed.
	old, err := f.teamRepo.GetMembership(ctx, f.teamID, f.ownerID)
	require.NoError(t, err)
	assert.Equal(t, teamdomain.RoleAdmin, old.Role)
	assert.True(t, old.Active)
}

func TestCompleteCreatesMembershipForOutsider(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	targetID := f.addUser(t, "outsider@example.com")

	_, err := f.svc.Initiate(ctx, f.teamID, f.ownerID, domain.InitiateRequest{
		TargetEmail: "outsider@example.com",
	})
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, targetID, f.outbox.lastToken(t))
	require.NoError(t, err)

	membership, err := f.teamRepo.GetMembership(ctx, f.teamID, targetID)
	require.NoError(t, err)
	assert.Equal(t, teamdomain.RoleOwner, membership.Role)
	assert.Equal(t, teamdomain.MemberTypeCoach, membership.MemberType)
}

func TestInitiateRejectsCurrentOwnerEmail(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Initiate(context.Background(), f.teamID, f.ownerID, domain.InitiateRequest{
		TargetEmail: "OWNER@example.com",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTarget)
}

func TestInitiateSecondPendingConflicts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, f.teamID, f.ownerID, domain.InitiateRequest{
		TargetEmail: "first@example.com",
	})
	require.NoError(t, err)

	_, err = f.svc.Initiate(ctx, f.teamID, f.ownerID, domain.InitiateRequest{
		TargetEmail: "second@example.com",
	})
	assert.ErrorIs(t, err, domain.ErrPendingExists)
}

func TestCompleteExpiredToken(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	targetID := f.addUser(t, "kari@example.com")

	resp, err := f.svc.Initiate(ctx, f.teamID, f.ownerID, domain.InitiateRequest{
		TargetEmail: "kari@example.com",
	})
	require.NoError(t, err)
	token := f.outbox.lastToken(t)

	f.clock.Advance(domain.TTL + time.Hour)
	_, err = f.svc.Complete(ctx, targetID, token)
	assert.ErrorIs(t, err, domain.ErrExpired)

	// The attempt flipped the record to EXPIRED for good.
	transfers, err := f.svc.ListByTeam(ctx, f.teamID)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, resp.ID, transfers[0].ID)
	assert.Equal(t, domain.StatusExpired, transfers[0].Status)

	// Even at the right time, an expired transfer stays dead.
	_, err = f.svc.Complete(ctx, targetID, token)
	assert.ErrorIs(t, err, domain.ErrNotPending)

	// And the owner never changed.
	owner, err := f.teamRepo.GetActiveOwner(ctx, f.teamID)
	require.NoError(t, err)
	assert.Equal(t, f.ownerID, owner.UserID)
}

func TestCompleteWrongCaller(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.addUser(t, "kari@example.com")
	impostorID := f.addUser(t, "impostor@example.com")

	_, err := f.svc.Initiate(ctx, f.teamID, f.ownerID, domain.InitiateRequest{
		TargetEmail: "kari@example.com",
	})
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, impostorID, f.outbox.lastToken(t))
	assert.ErrorIs(t, err, domain.ErrNotTarget)
}

func TestCompleteUnknownToken(t *testing.T) {
	f := setup(t)
	_, err := f.svc.Complete(context.Background(), f.ownerID, "no-such-token")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancelRules(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	strangerID := f.addUser(t, "stranger@example.com")

	resp, err := f.svc.Initiate(ctx, f.teamID, f.ownerID, domain.InitiateRequest{
		TargetEmail: "kari@example.com",
	})
	require.NoError(t, err)
	transferID, _ := snowflake.ParseString(resp.ID)

	// A random member cannot cancel.
	err = f.svc.Cancel(ctx, f.teamID, transferID, strangerID, false)
	assert.Error(t, err)

	// The initiator can.
	require.NoError(t, f.svc.Cancel(ctx, f.teamID, transferID, f.ownerID, false))

	// Cancelling twice fails; the transfer left PENDING.
	err = f.svc.Cancel(ctx, f.teamID, transferID, f.ownerID, false)
	assert.ErrorIs(t, err, domain.ErrNotPending)
}

func TestCancelByGlobalAdmin(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	adminID := f.addUser(t, "admin@example.com")

	resp, err := f.svc.Initiate(ctx, f.teamID, f.ownerID, domain.InitiateRequest{
		TargetEmail: "kari@example.com",
	})
	require.NoError(t, err)
	transferID, _ := snowflake.ParseString(resp.ID)

	require.NoError(t, f.svc.Cancel(ctx, f.teamID, transferID, adminID, true))
}

func TestCancelledTokenCannotComplete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	targetID := f.addUser(t, "kari@example.com")

	resp, err := f.svc.Initiate(ctx, f.teamID, f.ownerID, domain.InitiateRequest{
		TargetEmail: "kari@example.com",
	})
	require.NoError(t, err)
	token := f.outbox.lastToken(t)

	transferID, _ := snowflake.ParseString(resp.ID)
	require.NoError(t, f.svc.Cancel(ctx, f.teamID, transferID, f.ownerID, false))

	_, err = f.svc.Complete(ctx, targetID, token)
	assert.ErrorIs(t, err, domain.ErrNotPending)
}
