package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	athletedomain "github.com/stridehq/stride/internal/athlete/domain"
	authdomain "github.com/stridehq/stride/internal/auth/domain"
	"github.com/stridehq/stride/internal/authz"
	"github.com/stridehq/stride/internal/claims"
	obscontext "github.com/stridehq/stride/internal/observability/context"
	"github.com/stridehq/stride/internal/observability/logger"
	registrationdomain "github.com/stridehq/stride/internal/registration/domain"
	teamdomain "github.com/stridehq/stride/internal/team/domain"
	transferdomain "github.com/stridehq/stride/internal/transfer/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error     errorPayload `json:"error"`
	RequestID string       `json:"request_id,omitempty"`
}

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrInternal        = errors.New("internal_error")
	ErrNotFound        = errors.New("not_found")
	ErrInvalidRequest  = errors.New("invalid_request")
	ErrTooManyRequests = errors.New("too_many_requests")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		if status >= http.StatusInternalServerError {
			// 5xx detail stays in the log; the body carries the request id only.
			logger.FromContext(c.Request.Context()).Error("request failed",
				zap.Error(lastErr.Err))
		}
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{
			Error:     payload,
			RequestID: obscontext.RequestIDFromContext(c.Request.Context()),
		})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isForbiddenError(err):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "too_many_requests",
			Message: "too many requests",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, teamdomain.ErrInvalidName),
		errors.Is(err, teamdomain.ErrInvalidSubdomain),
		errors.Is(err, teamdomain.ErrInvalidTier),
		errors.Is(err, teamdomain.ErrInvalidRole),
		errors.Is(err, teamdomain.ErrInvalidMemberType),
		errors.Is(err, teamdomain.ErrInvalidUser),
		errors.Is(err, teamdomain.ErrOwnerRoleImmutable),
		errors.Is(err, teamdomain.ErrTierLimitExceeded),
		errors.Is(err, athletedomain.ErrInvalidName),
		errors.Is(err, athletedomain.ErrInvalidBirth),
		errors.Is(err, athletedomain.ErrInvalidSex),
		errors.Is(err, athletedomain.ErrRosterFull),
		errors.Is(err, registrationdomain.ErrInvalidEmail),
		errors.Is(err, registrationdomain.ErrInvalidName),
		errors.Is(err, transferdomain.ErrInvalidTarget),
		errors.Is(err, transferdomain.ErrExpired),
		errors.Is(err, authdomain.ErrInvalidEmail),
		errors.Is(err, authdomain.ErrWeakPassword):
		return true
	default:
		return false
	}
}

func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authz.ErrUnauthenticated),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, claims.ErrInvalidToken),
		errors.Is(err, claims.ErrExpiredToken):
		return true
	default:
		return false
	}
}

func isForbiddenError(err error) bool {
	switch {
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authz.ErrForbidden),
		errors.Is(err, authdomain.ErrUserDisabled),
		errors.Is(err, authdomain.ErrNotMember),
		errors.Is(err, teamdomain.ErrTeamSuspended),
		errors.Is(err, transferdomain.ErrNotTarget):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, teamdomain.ErrSubdomainTaken),
		errors.Is(err, teamdomain.ErrSubdomainReserved),
		errors.Is(err, teamdomain.ErrDuplicateMembership),
		errors.Is(err, authdomain.ErrEmailTaken),
		errors.Is(err, registrationdomain.ErrAlreadyRegistered),
		errors.Is(err, registrationdomain.ErrAlreadyDecided),
		errors.Is(err, transferdomain.ErrPendingExists),
		errors.Is(err, transferdomain.ErrNotPending),
		errors.Is(err, transferdomain.ErrBusy):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, teamdomain.ErrNotFound),
		errors.Is(err, teamdomain.ErrMemberNotFound),
		errors.Is(err, athletedomain.ErrNotFound),
		errors.Is(err, registrationdomain.ErrNotFound),
		errors.Is(err, transferdomain.ErrNotFound),
		errors.Is(err, authdomain.ErrUserNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	if code == "invalid_request" {
		return "request"
	}
	return ""
}

// classifyErrorForLog keeps expected client errors out of the error log.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	switch {
	case isUnauthorizedError(err), isForbiddenError(err),
		isNotFoundError(err), isConflictError(err),
		isValidationError(err), asValidationErrors(err) != nil:
		return "client", err.Error()
	default:
		return "server", err.Error()
	}
}
