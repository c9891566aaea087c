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

// RequestHandler serves the customer side of service requests
type RequestHandler struct {
	requests service.RequestService
	reports  service.ReportService
	logger   *slog.Logger
}

// NewRequestHandler creates a new RequestHandler
func NewRequestHandler(requests service.RequestService, reports service.ReportService, logger *slog.Logger) *RequestHandler {
	return &RequestHandler{requests: requests, reports: reports, logger: logger}
}

func (h *RequestHandler) Create(c *gin.Context) {
	actor, ok := getIdentity(c)
	if !ok {
		return
	}

	var req model.CreateRequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	created, err := h.requests.Create(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, h.logger, err, "Failed to create service request")
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, created))
}

// List serves the caller's own listing. The service scopes it by role, so
// the same handler backs GET /requests, GET /tasks and GET /admin/requests.
func (h *RequestHandler) List(c *gin.Context) {
	actor, ok := getIdentity(c)
	if !ok {
		return
	}
	page := pagination.Parse(c)

	items, total, err := h.requests.List(c.Request.Context(), actor, statusQuery(c), page.Limit, page.Offset)
	if err != nil {
		writeError(c, h.logger, err, "Failed to retrieve service requests")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page{
		Items: items, Total: total, Page: page.Page, Limit: page.Limit,
	}))
}

func (h *RequestHandler) Get(c *gin.Context) {
	actor, ok := getIdentity(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "request")
	if !ok {
		return
	}

	req, err := h.requests.Get(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, h.logger, err, "Failed to retrieve service request")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, req))
}

func (h *RequestHandler) Rate(c *gin.Context) {
	actor, ok := getIdentity(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "request")
	if !ok {
		return
	}

	var req model.RateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	rated, err := h.requests.Rate(c.Request.Context(), actor, id, req)
	if err != nil {
		writeError(c, h.logger, err, "Failed to rate service request")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rated))
}

func (h *RequestHandler) Summary(c *gin.Context) {
	actor, ok := getIdentity(c)
	if !ok {
		return
	}

	summary, err := h.reports.OwnerSummary(c.Request.Context(), actor)
	if err != nil {
		writeError(c, h.logger, err, "Failed to build summary")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// RegisterRequestRoutes registers the customer routes. GET /requests/:id is
// shared with assignees and admins; ownership is checked by the service.
func (h *RequestHandler) RegisterRequestRoutes(rg *gin.RouterGroup, authMW, customerMW gin.HandlerFunc) {
	requestRoutes := rg.Group("/requests")
	requestRoutes.Use(authMW)
	{
		requestRoutes.GET("/:id", h.Get)
		requestRoutes.POST("", customerMW, h.Create)
		requestRoutes.GET("", customerMW, h.List)
		requestRoutes.GET("/summary", customerMW, h.Summary)
		requestRoutes.PATCH("/:id/rating", customerMW, h.Rate)
	}
}
