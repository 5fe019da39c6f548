package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stridehq/stride/internal/authz"
	transferdomain "github.com/stridehq/stride/internal/transfer/domain"
)

type initiateTransferRequest struct {
	TargetEmail string `json:"target_email"`
	Message     string `json:"message"`
}

func (s *Server) InitiateTransfer(c *gin.Context) {
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

	var req initiateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.transferSvc.Initiate(c.Request.Context(), teamID, tc.UserID, transferdomain.InitiateRequest{
		TargetEmail: req.TargetEmail,
		Message:     req.Message,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) ListTransfers(c *gin.Context) {
	teamID, err := teamIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	transfers, err := s.transferSvc.ListByTeam(c.Request.Context(), teamID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transfers": transfers})
}

// CancelTransfer has no route-level role gate; the service decides who may
// cancel (initiator, current owner, or a global admin).
func (s *Server) CancelTransfer(c *gin.Context) {
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
	transferID, err := pathID(c, "transferId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.transferSvc.Cancel(c.Request.Context(), teamID, transferID, tc.UserID, tc.GlobalAdmin); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type completeTransferRequest struct {
	Token string `json:"token"`
}

func (s *Server) CompleteTransfer(c *gin.Context) {
	tc := tenantFrom(c)
	if tc == nil {
		AbortWithError(c, authz.ErrUnauthenticated)
		return
	}

	var req completeTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.transferSvc.Complete(c.Request.Context(), tc.UserID, req.Token)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
