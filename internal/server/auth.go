package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	authdomain "github.com/stridehq/stride/internal/auth/domain"
	"github.com/stridehq/stride/internal/authz"
	"github.com/stridehq/stride/internal/observability/logger"
	"go.uber.org/zap"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.authSvc.Login(c.Request.Context(), authdomain.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Logout is stateless with bearer tokens; the audit trail still records it.
func (s *Server) Logout(c *gin.Context) {
	if tc := tenantFrom(c); tc != nil {
		logger.FromContext(c.Request.Context()).Info("user logged out",
			zap.String("user_id", tc.UserID.String()))
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Me(c *gin.Context) {
	tc := tenantFrom(c)
	if tc == nil {
		AbortWithError(c, authz.ErrUnauthenticated)
		return
	}

	user, err := s.authSvc.Me(c.Request.Context(), tc.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	teams, err := s.teamSvc.ListTeamsByUser(c.Request.Context(), tc.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":  user,
		"teams": teams,
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s *Server) ChangePassword(c *gin.Context) {
	tc := tenantFrom(c)
	if tc == nil {
		AbortWithError(c, authz.ErrUnauthenticated)
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if err := s.authSvc.ChangePassword(c.Request.Context(), tc.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) SwitchTeam(c *gin.Context) {
	tc := tenantFrom(c)
	if tc == nil {
		AbortWithError(c, authz.ErrUnauthenticated)
		return
	}
	teamID, err := pathID(c, "teamId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.authSvc.SwitchTeam(c.Request.Context(), tc.UserID, teamID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
