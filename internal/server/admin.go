package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) AdminListTeams(c *gin.Context) {
	teams, err := s.teamSvc.AdminList(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"teams": teams})
}

func (s *Server) AdminSuspendTeam(c *gin.Context) {
	teamID, err := teamIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.teamSvc.Suspend(c.Request.Context(), teamID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) AdminReactivateTeam(c *gin.Context) {
	teamID, err := teamIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.teamSvc.Reactivate(c.Request.Context(), teamID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// AdminPurgeTeam removes a team and its dependents for good. Soft delete is
// the normal path; this one exists for data removal requests.
func (s *Server) AdminPurgeTeam(c *gin.Context) {
	teamID, err := teamIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.teamSvc.HardPurge(c.Request.Context(), teamID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) AdminListUsers(c *gin.Context) {
	users, err := s.authSvc.ListUsers(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

type adminUpdateUserRequest struct {
	Active        *bool `json:"active"`
	IsGlobalAdmin *bool `json:"is_global_admin"`
}

func (s *Server) AdminUpdateUser(c *gin.Context) {
	userID, err := pathID(c, "userId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req adminUpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Active == nil && req.IsGlobalAdmin == nil {
		AbortWithError(c, newValidationError("body", "empty_update", "nothing to update"))
		return
	}

	if req.Active != nil {
		if err := s.authSvc.SetActive(c.Request.Context(), userID, *req.Active); err != nil {
			AbortWithError(c, err)
			return
		}
	}
	if req.IsGlobalAdmin != nil {
		if err := s.authSvc.SetGlobalAdmin(c.Request.Context(), userID, *req.IsGlobalAdmin); err != nil {
			AbortWithError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) AdminDeleteUser(c *gin.Context) {
	userID, err := pathID(c, "userId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authSvc.DeleteUser(c.Request.Context(), userID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
