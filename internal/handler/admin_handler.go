package handler

import (
	"log/slog"
	"net/http"

	"fieldops/internal/model"
	"fieldops/internal/service"
	"fieldops/pkg/pagination"
	"fieldops/pkg/response"

	"github.com/gin-gonic/gin"
)

// AdminHandler serves dispatch, overrides, account management and the
// global dashboard
type AdminHandler struct {
	dispatch  service.DispatchService
	lifecycle service.LifecycleService
	users     service.UserService
	reports   service.ReportService
	requests  *RequestHandler
	logger    *slog.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(dispatch service.DispatchService, lifecycle service.LifecycleService, users service.UserService,
	reports service.ReportService, requests *RequestHandler, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		dispatch:  dispatch,
		lifecycle: lifecycle,
		users:     users,
		reports:   reports,
		requests:  requests,
		logger:    logger,
	}
}

func (h *AdminHandler) Assign(c *gin.Context) {
	actor, ok := getIdentity(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "request")
	if !ok {
		return
	}

	var req model.AssignInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	if req.FieldWorkerID <= 0 {
		badRequest(c, "field_worker_id is required")
		return
	}

	assigned, err := h.dispatch.Assign(c.Request.Context(), actor, id, req.FieldWorkerID)
	if err != nil {
		writeError(c, h.logger, err, "Failed to assign service request")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, assigned))
}

// SetStatus is the unchecked admin override
func (h *AdminHandler) SetStatus(c *gin.Context) {
	actor, ok := getIdentity(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "request")
	if !ok {
		return
	}

	var req model.StatusInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	updated, err := h.lifecycle.AdminSetStatus(c.Request.Context(), actor, id, req.Status)
	if err != nil {
		writeError(c, h.logger, err, "Failed to override status")
		return
	}
	c.JSON(http.StatusOK, response.Message(http.StatusOK, "Status updated to "+string(updated.Status), updated))
}

func (h *AdminHandler) ApproveWorker(c *gin.Context) {
	actor, ok := getIdentity(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "worker")
	if !ok {
		return
	}

	var req model.ApprovalInput
	if err := c.ShouldBindJSON(&req); err != nil || req.Approved == nil {
		badRequest(c, "Invalid request: approved must be true or false")
		return
	}

	user, err := h.users.ApproveWorker(c.Request.Context(), actor, id, *req.Approved)
	if err != nil {
		writeError(c, h.logger, err, "Failed to update approval")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

func (h *AdminHandler) SetActive(c *gin.Context) {
	actor, ok := getIdentity(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "user")
	if !ok {
		return
	}

	var req model.ActiveInput
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		badRequest(c, "Invalid request: active must be true or false")
		return
	}

	user, err := h.users.SetActive(c.Request.Context(), actor, id, *req.Active)
	if err != nil {
		writeError(c, h.logger, err, "Failed to update account")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	actor, ok := getIdentity(c)
	if !ok {
		return
	}
	page := pagination.Parse(c)

	var filters model.UserFilters
	if roleParam := c.Query("role"); roleParam != "" {
		role := model.Role(roleParam)
		filters.Role = &role
	}
	filters.PendingApproval = c.Query("pending_approval") == "true"

	users, total, err := h.users.List(c.Request.Context(), actor, filters, page.Limit, page.Offset)
	if err != nil {
		writeError(c, h.logger, err, "Failed to retrieve users")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page{
		Items: users, Total: total, Page: page.Page, Limit: page.Limit,
	}))
}

func (h *AdminHandler) Summary(c *gin.Context) {
	actor, ok := getIdentity(c)
	if !ok {
		return
	}

	summary, err := h.reports.AdminSummary(c.Request.Context(), actor)
	if err != nil {
		writeError(c, h.logger, err, "Failed to build summary")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// RegisterAdminRoutes registers admin routes
func (h *AdminHandler) RegisterAdminRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	adminRoutes := rg.Group("/admin")
	adminRoutes.Use(authMW)
	adminRoutes.Use(adminMW)
	{
		adminRoutes.GET("/requests", h.requests.List)
		adminRoutes.PUT("/requests/:id/assignee", h.Assign)
		adminRoutes.PATCH("/requests/:id/status", h.SetStatus)
		adminRoutes.PUT("/workers/:id/approval", h.ApproveWorker)
		adminRoutes.PUT("/users/:id/active", h.SetActive)
		adminRoutes.GET("/users", h.ListUsers)
		adminRoutes.GET("/summary", h.Summary)
	}
}
