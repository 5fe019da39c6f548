package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	teamdomain "github.com/stridehq/stride/internal/team/domain"
)

type fakeTeamService struct {
	team *teamdomain.TeamResponse
	err  error
}

func (f *fakeTeamService) Create(ctx context.Context, userID snowflake.ID, req teamdomain.CreateTeamRequest) (*teamdomain.TeamResponse, error) {
	return f.team, f.err
}

func (f *fakeTeamService) GetByID(ctx context.Context, id string) (*teamdomain.TeamResponse, error) {
	return f.team, f.err
}

func (f *fakeTeamService) GetBySubdomain(ctx context.Context, subdomain string) (*teamdomain.TeamResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.team, nil
}

func (f *fakeTeamService) ListTeamsByUser(ctx context.Context, userID snowflake.ID) ([]teamdomain.TeamListResponseItem, error) {
	return nil, f.err
}

func (f *fakeTeamService) Update(ctx context.Context, teamID snowflake.ID, req teamdomain.UpdateTeamRequest) (*teamdomain.TeamResponse, error) {
	return f.team, f.err
}

func (f *fakeTeamService) ChangeTier(ctx context.Context, teamID snowflake.ID, tier string) error {
	return f.err
}

func (f *fakeTeamService) CheckSubdomainAvailability(ctx context.Context, subdomain string) (bool, error) {
	return false, f.err
}

func (f *fakeTeamService) SoftDelete(ctx context.Context, teamID snowflake.ID) error { return f.err }
func (f *fakeTeamService) HardPurge(ctx context.Context, teamID snowflake.ID) error  { return f.err }
func (f *fakeTeamService) Suspend(ctx context.Context, teamID snowflake.ID) error    { return f.err }
func (f *fakeTeamService) Reactivate(ctx context.Context, teamID snowflake.ID) error { return f.err }

func (f *fakeTeamService) AdminList(ctx context.Context) ([]teamdomain.AdminTeamResponse, error) {
	return nil, f.err
}

func (f *fakeTeamService) ListMembers(ctx context.Context, teamID snowflake.ID) ([]teamdomain.MemberResponse, error) {
	return nil, f.err
}

func (f *fakeTeamService) UpdateMemberRole(ctx context.Context, teamID, userID snowflake.ID, role string) error {
	return f.err
}

func (f *fakeTeamService) RemoveMember(ctx context.Context, teamID, userID snowflake.ID) error {
	return f.err
}

func (f *fakeTeamService) SetDefaultTeam(ctx context.Context, userID, teamID snowflake.ID) error {
	return f.err
}

func publicTestServer(svc teamdomain.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())
	s := &Server{engine: engine, teamSvc: svc}
	engine.GET("/public/resolve/:subdomain", s.ResolveSubdomain)
	return engine
}

func TestResolveSubdomain(t *testing.T) {
	engine := publicTestServer(&fakeTeamService{
		team: &teamdomain.TeamResponse{
			ID:        "7",
			Name:      "Oslo Løpeklubb",
			Subdomain: "oslo",
			Tier:      teamdomain.TierStandard,
			Status:    teamdomain.StatusActive,
			Branding:  map[string]any{"primary_color": "#123456"},
		},
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/public/resolve/oslo", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Oslo Løpeklubb"`)
	assert.Contains(t, w.Body.String(), `"primary_color":"#123456"`)
	// The tier is not part of the public surface.
	assert.NotContains(t, w.Body.String(), "STANDARD")
}

func TestResolveSubdomainUnknown(t *testing.T) {
	engine := publicTestServer(&fakeTeamService{err: teamdomain.ErrNotFound})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/public/resolve/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResolveSubdomainSuspendedHidden(t *testing.T) {
	engine := publicTestServer(&fakeTeamService{
		team: &teamdomain.TeamResponse{
			ID: "7", Name: "Oslo", Subdomain: "oslo", Status: teamdomain.StatusSuspended,
		},
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/public/resolve/oslo", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
