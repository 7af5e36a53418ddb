package controllers

import (
	"errors"
	"net/http"

	"sitesafe-api/middleware"
	"sitesafe-api/services"
	"sitesafe-api/utils"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": data})
}

func okList(c *gin.Context, data interface{}, total int64) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data, "total": total})
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg})
}

func badRequest(c *gin.Context, msg string) {
	abort(c, http.StatusBadRequest, msg)
}

// statusOf maps service errors to HTTP status codes. Zero means unexpected.
func statusOf(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrIncomplete),
		errors.Is(err, services.ErrInvalidQRPayload),
		errors.Is(err, utils.ErrEmptyPayload),
		errors.Is(err, utils.ErrUnrecognisedPayload),
		errors.Is(err, services.ErrSiteInactive):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrAccountDisabled):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrHealthCheckRequired):
		return http.StatusPreconditionRequired
	case errors.Is(err, services.ErrConflict),
		errors.Is(err, services.ErrStepLocked),
		errors.Is(err, services.ErrNotEditable),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrAlreadyCheckedIn),
		errors.Is(err, services.ErrNotCheckedIn),
		errors.Is(err, services.ErrAlreadySigned):
		return http.StatusConflict
	case errors.Is(err, services.ErrUnsupportedFile):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, services.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	}
	return 0
}

// fail writes the error envelope. Unexpected errors are logged and hidden.
func fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status == 0 {
		log.WithFields(log.Fields{
			"request_id": c.GetString(middleware.ContextRequestID),
			"path":       c.FullPath(),
			"user_id":    middleware.UserID(c),
		}).WithError(err).Error("unexpected error")
		_ = c.Error(err)
		abort(c, http.StatusInternalServerError, "Something went wrong, please try again")
		return
	}

	body := gin.H{"success": false, "error": err.Error()}
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		body["error"] = "Please correct the highlighted fields"
		body["fields"] = verr.Fields
	}
	c.AbortWithStatusJSON(status, body)
}
