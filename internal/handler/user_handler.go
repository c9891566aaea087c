package handler

import (
	"log/slog"
	"net/http"

	"fieldops/internal/model"
	"fieldops/internal/service"
	"fieldops/pkg/response"

	"github.com/gin-gonic/gin"
)

// UserHandler serves self-service account routes
type UserHandler struct {
	users  service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	actor, ok := getIdentity(c)
	if !ok {
		return
	}

	var req model.UpdateProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, h.logger, err, "Failed to update profile")
		return
	}

	msg := "Profile updated successfully"
	if user.Role == model.RoleFieldWorker && !user.IsApproved {
		msg = "Profile updated successfully. Await admin approval."
	}
	c.JSON(http.StatusOK, response.Message(http.StatusOK, msg, user))
}

// RegisterUserRoutes registers the self-service routes. Unapproved field
// workers may still edit their profile.
func (h *UserHandler) RegisterUserRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	userRoutes := rg.Group("/users")
	userRoutes.Use(authMW)
	{
		userRoutes.PUT("/me", h.UpdateProfile)
	}
}
