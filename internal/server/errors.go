package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abhisek/timesgrid/internal/advisor"
	"github.com/abhisek/timesgrid/internal/journey"
	"github.com/abhisek/timesgrid/internal/mastery"
	"github.com/abhisek/timesgrid/internal/session"
	"github.com/abhisek/timesgrid/internal/store"
)

// apiError is the JSON body of every failed request.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	Status  int    `json:"status"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

const (
	codeValidation      = "VALIDATION_ERROR"
	codeNotFound        = "NOT_FOUND"
	codeUnauthenticated = "UNAUTHENTICATED"
	codeForbidden       = "FORBIDDEN"
	codeConflict        = "CONFLICT"
	codeInternal        = "INTERNAL_ERROR"
)

func validationError(message string, details any) *apiError {
	return &apiError{Code: codeValidation, Message: message, Details: details, Status: http.StatusBadRequest}
}

func notFound(resource string) *apiError {
	return &apiError{Code: codeNotFound, Message: resource + " not found", Status: http.StatusNotFound}
}

func unauthenticated(message string) *apiError {
	return &apiError{Code: codeUnauthenticated, Message: message, Status: http.StatusUnauthorized}
}

func forbidden(message string) *apiError {
	return &apiError{Code: codeForbidden, Message: message, Status: http.StatusForbidden}
}

func conflict(message string, details any) *apiError {
	return &apiError{Code: codeConflict, Message: message, Details: details, Status: http.StatusConflict}
}

func internal(message string) *apiError {
	return &apiError{Code: codeInternal, Message: message, Status: http.StatusInternalServerError}
}

// toAPIError maps domain errors to responses. Anything unrecognized is a 500
// whose cause is logged, not returned.
func toAPIError(err error) *apiError {
	var (
		ae      *apiError
		notAuth *session.NotAuthenticatedError
		create  *session.SessionCreationError
	)
	switch {
	case errors.As(err, &ae):
		return ae
	case errors.As(err, &notAuth):
		return unauthenticated(notAuth.Error())
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, store.ErrNotFound):
		return notFound("session")
	case errors.Is(err, session.ErrSessionClosed),
		errors.Is(err, session.ErrQueueExhausted),
		errors.Is(err, session.ErrAnswerPending),
		errors.Is(err, advisor.ErrNoSuggestion):
		return conflict(err.Error(), nil)
	case errors.Is(err, journey.ErrPlacementRequired), errors.Is(err, journey.ErrPlacementDone):
		return forbidden(err.Error())
	case errors.Is(err, mastery.ErrInvalidGuardrail):
		return validationError(err.Error(), nil)
	case errors.As(err, &create):
		return internal("could not start session")
	default:
		return internal("internal server error")
	}
}

// fail writes err as an apiError and aborts the chain.
func (s *Server) fail(c *gin.Context, err error) {
	ae := toAPIError(err)
	if ae.Status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(ae.Status, ae)
}
