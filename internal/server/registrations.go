package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	regdomain "github.com/stridehq/stride/internal/registration/domain"
)

func (s *Server) ListRegistrations(c *gin.Context) {
	teamID, err := teamIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := strings.ToUpper(strings.TrimSpace(c.Query("status")))
	switch status {
	case "", regdomain.StatusPending, regdomain.StatusApproved, regdomain.StatusRejected:
	default:
		AbortWithError(c, newValidationError("status", "invalid_filter", "unknown registration status"))
		return
	}

	regs, err := s.regSvc.List(c.Request.Context(), teamID, status)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"registrations": regs})
}

func (s *Server) ApproveRegistration(c *gin.Context) {
	teamID, err := teamIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	regID, err := pathID(c, "regId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.regSvc.Approve(c.Request.Context(), teamID, regID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) RejectRegistration(c *gin.Context) {
	teamID, err := teamIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	regID, err := pathID(c, "regId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.regSvc.Reject(c.Request.Context(), teamID, regID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
