package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stridehq/stride/internal/auth/domain"
	"github.com/stridehq/stride/internal/auth/repository"
	"github.com/stridehq/stride/internal/claims"
	"github.com/stridehq/stride/internal/clock"
	"github.com/stridehq/stride/internal/config"
	"github.com/stridehq/stride/internal/migration"
	teamdomain "github.com/stridehq/stride/internal/team/domain"
	teamrepository "github.com/stridehq/stride/internal/team/repository"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

type fixture struct {
	svc      domain.Service
	teamRepo teamdomain.Repository
	node     *snowflake.Node
	clock    *clock.FakeClock
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(db))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC))

	teamRepo := teamrepository.NewRepository(db)
	svc := NewService(repository.NewRepository(db), teamRepo, node, clk, config.Config{
		AuthJWTSecret: testSecret,
		TokenTTLHours: 24,
	})
	return &fixture{svc: svc, teamRepo: teamRepo, node: node, clock: clk}
}

func (f *fixture) createUser(t *testing.T, emailAddr string) *domain.UserResponse {
	t.Helper()
	user, err := f.svc.CreateUser(context.Background(), domain.CreateUserRequest{
		Email:       emailAddr,
		DisplayName: "Test User",
		Password:    "correct-horse",
	})
	require.NoError(t, err)
	return user
}

func TestCreateUser(t *testing.T) {
	f := setup(t)

	user := f.createUser(t, "Kari@Example.com")
	assert.Equal(t, "kari@example.com", user.Email, "emails are stored lowercased")
	assert.True(t, user.Active)
	assert.False(t, user.IsGlobalAdmin)
}

func TestCreateUserValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.CreateUser(ctx, domain.CreateUserRequest{Email: "nope", Password: "correct-horse"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = f.svc.CreateUser(ctx, domain.CreateUserRequest{Email: "a@b.c", Password: "short"})
	assert.ErrorIs(t, err, domain.ErrWeakPassword)

	f.createUser(t, "kari@example.com")
	_, err = f.svc.CreateUser(ctx, domain.CreateUserRequest{Email: "KARI@example.com", Password: "correct-horse"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	f := setup(t)
	f.createUser(t, "kari@example.com")

	resp, err := f.svc.Login(context.Background(), domain.LoginRequest{
		Email:    "kari@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, f.clock.Now().Add(24*time.Hour), resp.ExpiresAt)
	require.NotNil(t, resp.User.LastLoginAt)

	access, err := claims.Parse(resp.Token, []byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, "kari@example.com", access.Email)
}

func TestLoginSameErrorForUnknownAndWrongPassword(t *testing.T) {
	f := setup(t)
	f.createUser(t, "kari@example.com")
	ctx := context.Background()

	_, errUnknown := f.svc.Login(ctx, domain.LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	_, errWrong := f.svc.Login(ctx, domain.LoginRequest{Email: "kari@example.com", Password: "wrong"})

	assert.ErrorIs(t, errUnknown, domain.ErrInvalidCredentials)
	assert.ErrorIs(t, errWrong, domain.ErrInvalidCredentials)
}

func TestLoginDisabledUser(t *testing.T) {
	f := setup(t)
	user := f.createUser(t, "kari@example.com")
	userID, _ := snowflake.ParseString(user.ID)
	require.NoError(t, f.svc.SetActive(context.Background(), userID, false))

	_, err := f.svc.Login(context.Background(), domain.LoginRequest{
		Email:    "kari@example.com",
		Password: "correct-horse",
	})
	assert.ErrorIs(t, err, domain.ErrUserDisabled)
}

func TestLoginTokenCarriesMemberships(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user := f.createUser(t, "kari@example.com")
	userID, _ := snowflake.ParseString(user.ID)

	team := teamdomain.Team{
		ID: f.node.Generate(), Name: "Oslo", Subdomain: "oslo",
		Tier: teamdomain.TierFree, Status: teamdomain.StatusActive,
	}
	require.NoError(t, f.teamRepo.CreateTeam(ctx, team))
	require.NoError(t, f.teamRepo.AddMember(ctx, teamdomain.UserTeam{
		ID: f.node.Generate(), TeamID: team.ID, UserID: userID,
		Role: teamdomain.RoleOwner, MemberType: teamdomain.MemberTypeCoach,
		Active: true, IsDefault: true,
	}))

	resp, err := f.svc.Login(ctx, domain.LoginRequest{
		Email: "kari@example.com", Password: "correct-horse",
	})
	require.NoError(t, err)

	access, err := claims.Parse(resp.Token, []byte(testSecret))
	require.NoError(t, err)
	require.Len(t, access.Memberships, 1)
	assert.Equal(t, "oslo", access.Memberships[0].TeamSubdomain)
	assert.Equal(t, team.ID.String(), access.TeamID, "default team pinned in the token")
	assert.Equal(t, teamdomain.RoleOwner, access.TeamRole)
}

func TestSwitchTeam(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user := f.createUser(t, "kari@example.com")
	userID, _ := snowflake.ParseString(user.ID)

	team := teamdomain.Team{
		ID: f.node.Generate(), Name: "Bergen", Subdomain: "bergen",
		Tier: teamdomain.TierFree, Status: teamdomain.StatusActive,
	}
	require.NoError(t, f.teamRepo.CreateTeam(ctx, team))

	// Not a member yet.
	_, err := f.svc.SwitchTeam(ctx, userID, team.ID)
	assert.ErrorIs(t, err, domain.ErrNotMember)

	require.NoError(t, f.teamRepo.AddMember(ctx, teamdomain.UserTeam{
		ID: f.node.Generate(), TeamID: team.ID, UserID: userID,
		Role: teamdomain.RoleMember, MemberType: teamdomain.MemberTypeParent, Active: true,
	}))

	resp, err := f.svc.SwitchTeam(ctx, userID, team.ID)
	require.NoError(t, err)
	access, err := claims.Parse(resp.Token, []byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, team.ID.String(), access.TeamID)
}

func TestSwitchTeamGlobalAdminBypass(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	admin, err := f.svc.CreateUser(ctx, domain.CreateUserRequest{
		Email: "root@example.com", Password: "correct-horse", GlobalAdmin: true,
	})
	require.NoError(t, err)
	adminID, _ := snowflake.ParseString(admin.ID)

	team := teamdomain.Team{
		ID: f.node.Generate(), Name: "Bergen", Subdomain: "bergen",
		Tier: teamdomain.TierFree, Status: teamdomain.StatusActive,
	}
	require.NoError(t, f.teamRepo.CreateTeam(ctx, team))

	resp, err := f.svc.SwitchTeam(ctx, adminID, team.ID)
	require.NoError(t, err)
	access, err := claims.Parse(resp.Token, []byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, team.ID.String(), access.TeamID)
}

func TestChangePassword(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user := f.createUser(t, "kari@example.com")
	userID, _ := snowflake.ParseString(user.ID)

	assert.ErrorIs(t,
		f.svc.ChangePassword(ctx, userID, "wrong", "new-password-1"),
		domain.ErrInvalidCredentials)
	assert.ErrorIs(t,
		f.svc.ChangePassword(ctx, userID, "correct-horse", "short"),
		domain.ErrWeakPassword)

	require.NoError(t, f.svc.ChangePassword(ctx, userID, "correct-horse", "new-password-1"))

	_, err := f.svc.Login(ctx, domain.LoginRequest{Email: "kari@example.com", Password: "new-password-1"})
	assert.NoError(t, err)
	_, err = f.svc.Login(ctx, domain.LoginRequest{Email: "kari@example.com", Password: "correct-horse"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestDeleteUser(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user := f.createUser(t, "kari@example.com")
	userID, _ := snowflake.ParseString(user.ID)

	require.NoError(t, f.svc.DeleteUser(ctx, userID))
	_, err := f.svc.Me(ctx, userID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
