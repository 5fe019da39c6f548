package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	athletedomain "github.com/stridehq/stride/internal/athlete/domain"
)

type createAthleteRequest struct {
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	BirthDate time.Time `json:"birth_date"`
	Gender    string    `json:"gender"`
}

func (s *Server) CreateAthlete(c *gin.Context) {
	teamID, err := teamIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req createAthleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.athleteSvc.Create(c.Request.Context(), teamID, athletedomain.CreateAthleteRequest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		BirthDate: req.BirthDate,
		Gender:    req.Gender,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) ListAthletes(c *gin.Context) {
	teamID, err := teamIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	activeOnly := false
	if raw := c.Query("active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			AbortWithError(c, newValidationError("active", "invalid_filter", "active must be a boolean"))
			return
		}
		activeOnly = v
	}

	athletes, err := s.athleteSvc.List(c.Request.Context(), teamID, activeOnly)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"athletes": athletes})
}

type updateAthleteRequest struct {
	FirstName *string    `json:"first_name"`
	LastName  *string    `json:"last_name"`
	BirthDate *time.Time `json:"birth_date"`
	Gender    *string    `json:"gender"`
	Active    *bool      `json:"active"`
}

func (s *Server) UpdateAthlete(c *gin.Context) {
	teamID, err := teamIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	athleteID, err := pathID(c, "athleteId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateAthleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.athleteSvc.Update(c.Request.Context(), teamID, athleteID, athletedomain.UpdateAthleteRequest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		BirthDate: req.BirthDate,
		Gender:    req.Gender,
		Active:    req.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) DeleteAthlete(c *gin.Context) {
	teamID, err := teamIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	athleteID, err := pathID(c, "athleteId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.athleteSvc.Delete(c.Request.Context(), teamID, athleteID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
