package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"fieldops/internal/middleware"
	"fieldops/internal/model"
	"fieldops/internal/service"
	"fieldops/pkg/response"

	"github.com/gin-gonic/gin"
)

// statusFor maps a service error kind to its HTTP status. Partial failures
// are checked first because they also wrap the error that caused them.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrPartialFailure):
		return http.StatusInternalServerError
	case errors.Is(err, service.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrIneligible):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeError sends err in the response envelope. Server-side failures are
// logged and replaced by fallback so internals do not leak to clients.
func writeError(c *gin.Context, logger *slog.Logger, err error, fallback string) {
	status := statusFor(err)
	msg := err.Error()
	switch {
	case status == http.StatusServiceUnavailable:
		logger.ErrorContext(c.Request.Context(), fallback, "error", err)
		msg = "Service temporarily unavailable, try again later"
	case status >= http.StatusInternalServerError:
		logger.ErrorContext(c.Request.Context(), fallback, "error", err)
		msg = fallback
	}
	_ = c.Error(err)
	c.JSON(status, response.Error(status, msg))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, msg))
}

// getIdentity returns the caller resolved by the JWT middleware
func getIdentity(c *gin.Context) (model.Identity, bool) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authentication required"))
	}
	return identity, ok
}

func parseIDParam(c *gin.Context, name, what string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "Invalid "+what+" ID")
		return 0, false
	}
	return id, true
}

func statusQuery(c *gin.Context) *model.Status {
	if s := c.Query("status"); s != "" {
		status := model.Status(s)
		return &status
	}
	return nil
}
