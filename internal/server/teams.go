package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stridehq/stride/internal/authz"
	teamdomain "github.com/stridehq/stride/internal/team/domain"
)

type createTeamRequest struct {
	Name       string `json:"name"`
	Subdomain  string `json:"subdomain"`
	Tier       string `json:"tier"`
	MemberType string `json:"member_type"`
}

func (s *Server) CreateTeam(c *gin.Context) {
	tc := tenantFrom(c)
	if tc == nil {
		AbortWithError(c, authz.ErrUnauthenticated)
		return
	}

	var req createTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.teamSvc.Create(c.Request.Context(), tc.UserID, teamdomain.CreateTeamRequest{
		Name:       req.Name,
		Subdomain:  req.Subdomain,
		Tier:       req.Tier,
		MemberType: req.MemberType,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) ListMyTeams(c *gin.Context) {
	tc := tenantFrom(c)
	if tc == nil {
		AbortWithError(c, authz.ErrUnauthenticated)
		return
	}

	teams, err := s.teamSvc.ListTeamsByUser(c.Request.Context(), tc.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"teams": teams})
}

func (s *Server) GetTeam(c *gin.Context) {
	resp, err := s.teamSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type updateTeamRequest struct {
	Name     *string        `json:"name"`
	Branding map[string]any `json:"branding"`
}

func (s *Server) UpdateTeam(c *gin.Context) {
	teamID, err := teamIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.teamSvc.Update(c.Request.Context(), teamID, teamdomain.UpdateTeamRequest{
		Name:     req.Name,
		Branding: req.Branding,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) DeleteTeam(c *gin.Context) {
	teamID, err := teamIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.teamSvc.SoftDelete(c.Request.Context(), teamID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type changeTierRequest struct {
	Tier string `json:"tier"`
}

func (s *Server) ChangeTeamTier(c *gin.Context) {
	teamID, err := teamIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req changeTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if err := s.teamSvc.ChangeTier(c.Request.Context(), teamID, strings.ToUpper(strings.TrimSpace(req.Tier))); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) CheckSubdomainAvailability(c *gin.Context) {
	subdomain := strings.TrimSpace(c.Query("subdomain"))
	if subdomain == "" {
		AbortWithError(c, newValidationError("subdomain", "invalid_subdomain", "subdomain is required"))
		return
	}

	available, err := s.teamSvc.CheckSubdomainAvailability(c.Request.Context(), subdomain)
	if err != nil {
		// Reserved and malformed names read as unavailable, not as errors.
		if isValidationError(err) || isConflictError(err) {
			c.JSON(http.StatusOK, gin.H{"subdomain": subdomain, "available": false})
			return
		}
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subdomain": subdomain, "available": available})
}

func (s *Server) SetDefaultTeam(c *gin.Context) {
	tc := tenantFrom(c)
	if tc == nil {
		AbortWithError(c, authz.ErrUnauthenticated)
		return
	}
	teamID, err := teamIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.teamSvc.SetDefaultTeam(c.Request.Context(), tc.UserID, teamID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ListTeamMembers(c *gin.Context) {
	teamID, err := teamIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	members, err := s.teamSvc.ListMembers(c.Request.Context(), teamID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

type updateMemberRequest struct {
	Role string `json:"role"`
}

func (s *Server) UpdateTeamMemberRole(c *gin.Context) {
	teamID, err := teamIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	userID, err := pathID(c, "userId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if err := s.teamSvc.UpdateMemberRole(c.Request.Context(), teamID, userID, strings.ToUpper(strings.TrimSpace(req.Role))); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) RemoveTeamMember(c *gin.Context) {
	teamID, err := teamIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	userID, err := pathID(c, "userId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.teamSvc.RemoveMember(c.Request.Context(), teamID, userID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
