package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	regdomain "github.com/stridehq/stride/internal/registration/domain"
	teamdomain "github.com/stridehq/stride/internal/team/domain"
)

// ResolveSubdomain is the unauthenticated lookup the tenant frontends boot
// from. Suspended teams are indistinguishable from missing ones.
func (s *Server) ResolveSubdomain(c *gin.Context) {
	team, err := s.teamSvc.GetBySubdomain(c.Request.Context(), c.Param("subdomain"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if team.Status == teamdomain.StatusSuspended {
		AbortWithError(c, teamdomain.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":       team.ID,
		"name":     team.Name,
		"branding": team.Branding,
	})
}

type submitRegistrationRequest struct {
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	MemberType string `json:"member_type"`
	Note       string `json:"note"`
}

func (s *Server) SubmitRegistration(c *gin.Context) {
	var req submitRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.regSvc.Submit(c.Request.Context(), c.Param("subdomain"), regdomain.SubmitRequest{
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		MemberType: req.MemberType,
		Note:       req.Note,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
