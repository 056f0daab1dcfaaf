package handlers

import (
	"errors"
	"log"
	"net/http"

	"civicreport-backend/auth"
	"civicreport-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// respondError maps service errors to a status code and the error envelope.
// Anything unrecognised is logged and answered with a generic 500.
func respondError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
	message := err.Error()

	switch {
	case errors.Is(err, service.ErrValidation):
		status, code = http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, service.ErrTransitionNotAllowed):
		status, code = http.StatusBadRequest, "TRANSITION_NOT_ALLOWED"
	case errors.Is(err, service.ErrIncorrectPassword):
		status, code = http.StatusBadRequest, "INCORRECT_PASSWORD"
	case errors.Is(err, service.ErrInvalidCredentials):
		status, code = http.StatusUnauthorized, "INVALID_CREDENTIALS"
	case errors.Is(err, service.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, service.ErrForbidden):
		status, code = http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, service.ErrReportNotFound):
		status, code = http.StatusNotFound, "REPORT_NOT_FOUND"
	case errors.Is(err, service.ErrUserNotFound):
		status, code = http.StatusNotFound, "USER_NOT_FOUND"
	case errors.Is(err, service.ErrUsernameTaken):
		status, code = http.StatusConflict, "USERNAME_TAKEN"
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		message = "Something went wrong, please try again"
	}

	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func badRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// reportIDParam parses the :id path parameter, answering 400 when malformed
func reportIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "INVALID_REPORT_ID", "Invalid report id format")
		return uuid.Nil, false
	}
	return id, true
}

// callerID returns the authenticated user set by auth.RequireUser
func callerID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := auth.UserID(c)
	if !ok {
		respondError(c, service.ErrUnauthorized)
	}
	return id, ok
}
