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
	"github.com/stridehq/stride/internal/athlete/domain"
	"github.com/stridehq/stride/internal/athlete/repository"
	"github.com/stridehq/stride/internal/clock"
	"github.com/stridehq/stride/internal/config"
	"github.com/stridehq/stride/internal/migration"
	teamdomain "github.com/stridehq/stride/internal/team/domain"
	teamrepository "github.com/stridehq/stride/internal/team/repository"
	"github.com/stridehq/stride/internal/tier"
	"gorm.io/gorm"
)

type fixture struct {
	svc      domain.Service
	teamRepo teamdomain.Repository
	node     *snowflake.Node
	clock    *clock.FakeClock
	teamID   snowflake.ID
}

func setup(t *testing.T, teamTier string) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(db))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	policy := tier.NewPolicy(config.NewStaticTierConfigHolder(config.DefaultTierConfig()))
	repo := repository.NewRepository(db)
	teamRepo := teamrepository.NewRepository(db)

	team := teamdomain.Team{
		ID: node.Generate(), Name: "Oslo", Subdomain: "oslo",
		Tier: teamTier, Status: teamdomain.StatusActive,
	}
	require.NoError(t, teamRepo.CreateTeam(context.Background(), team))

	return &fixture{
		svc:      NewService(db, repo, teamRepo, policy, node, clk),
		teamRepo: teamRepo,
		node:     node,
		clock:    clk,
		teamID:   team.ID,
	}
}

func validRequest(i int) domain.CreateAthleteRequest {
	return domain.CreateAthleteRequest{
		FirstName: fmt.Sprintf("Runner%d", i),
		LastName:  "Hansen",
		BirthDate: time.Date(2012, 6, 15, 0, 0, 0, 0, time.UTC),
		Gender:    domain.GenderFemale,
	}
}

func TestCreateAthlete(t *testing.T) {
	f := setup(t, teamdomain.TierFree)

	resp, err := f.svc.Create(context.Background(), f.teamID, validRequest(1))
	require.NoError(t, err)
	assert.Equal(t, "Runner1", resp.FirstName)
	assert.True(t, resp.Active)
}

func TestCreateAthleteDefaultsGender(t *testing.T) {
	f := setup(t, teamdomain.TierFree)

	req := validRequest(1)
	req.Gender = ""
	resp, err := f.svc.Create(context.Background(), f.teamID, req)
	require.NoError(t, err)
	assert.Equal(t, domain.GenderUnspecified, resp.Gender)
}

func TestCreateAthleteValidation(t *testing.T) {
	f := setup(t, teamdomain.TierFree)
	ctx := context.Background()

	req := validRequest(1)
	req.FirstName = "   "
	_, err := f.svc.Create(ctx, f.teamID, req)
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	req = validRequest(1)
	req.BirthDate = f.clock.Now().Add(24 * time.Hour)
	_, err = f.svc.Create(ctx, f.teamID, req)
	assert.ErrorIs(t, err, domain.ErrInvalidBirth)

	req = validRequest(1)
	req.BirthDate = f.clock.Now().AddDate(-120, 0, 0)
	_, err = f.svc.Create(ctx, f.teamID, req)
	assert.ErrorIs(t, err, domain.ErrInvalidBirth)

	req = validRequest(1)
	req.Gender = "Q"
	_, err = f.svc.Create(ctx, f.teamID, req)
	assert.ErrorIs(t, err, domain.ErrInvalidSex)
}

func TestCreateAthleteRosterCap(t *testing.T) {
	f := setup(t, teamdomain.TierFree)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		_, err := f.svc.Create(ctx, f.teamID, validRequest(i))
		require.NoError(t, err)
	}
	_, err := f.svc.Create(ctx, f.teamID, validRequest(7))
	assert.ErrorIs(t, err, domain.ErrRosterFull)
}

func TestCreateAthleteSuspendedTeam(t *testing.T) {
	f := setup(t, teamdomain.TierFree)
	ctx := context.Background()

	require.NoError(t, f.teamRepo.UpdateTeamFields(ctx, f.teamID, map[string]any{
		"status": teamdomain.StatusSuspended,
	}))
	_, err := f.svc.Create(ctx, f.teamID, validRequest(1))
	assert.ErrorIs(t, err, teamdomain.ErrTeamSuspended)
}

func TestDeactivateFreesCapReactivateCharges(t *testing.T) {
	f := setup(t, teamdomain.TierFree)
	ctx := context.Background()

	ids := make([]snowflake.ID, 0, 7)
	for i := 0; i < 7; i++ {
		resp, err := f.svc.Create(ctx, f.teamID, validRequest(i))
		require.NoError(t, err)
		id, _ := snowflake.ParseString(resp.ID)
		ids = append(ids, id)
	}

	inactive := false
	_, err := f.svc.Update(ctx, f.teamID, ids[0], domain.UpdateAthleteRequest{Active: &inactive})
	require.NoError(t, err)

	// The freed slot takes a new athlete.
	_, err = f.svc.Create(ctx, f.teamID, validRequest(7))
	require.NoError(t, err)

	// Reactivating the benched athlete would exceed the cap again.
	active := true
	_, err = f.svc.Update(ctx, f.teamID, ids[0], domain.UpdateAthleteRequest{Active: &active})
	assert.ErrorIs(t, err, domain.ErrRosterFull)
}

func TestListActiveFilter(t *testing.T) {
	f := setup(t, teamdomain.TierStandard)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, f.teamID, validRequest(1))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.teamID, validRequest(2))
	require.NoError(t, err)

	id, _ := snowflake.ParseString(first.ID)
	inactive := false
	_, err = f.svc.Update(ctx, f.teamID, id, domain.UpdateAthleteRequest{Active: &inactive})
	require.NoError(t, err)

	all, err := f.svc.List(ctx, f.teamID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := f.svc.List(ctx, f.teamID, true)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestDeleteAthlete(t *testing.T) {
	f := setup(t, teamdomain.TierFree)
	ctx := context.Background()

	resp, err := f.svc.Create(ctx, f.teamID, validRequest(1))
	require.NoError(t, err)
	id, _ := snowflake.ParseString(resp.ID)

	require.NoError(t, f.svc.Delete(ctx, f.teamID, id))
	_, err = f.svc.Get(ctx, f.teamID, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, f.svc.Delete(ctx, f.teamID, id), domain.ErrNotFound)
}

func TestUpdateValidationRuns(t *testing.T) {
	f := setup(t, teamdomain.TierFree)
	ctx := context.Background()

	resp, err := f.svc.Create(ctx, f.teamID, validRequest(1))
	require.NoError(t, err)
	id, _ := snowflake.ParseString(resp.ID)

	bad := ""
	_, err = f.svc.Update(ctx, f.teamID, id, domain.UpdateAthleteRequest{LastName: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}
