package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"fieldops/internal/model"
	"fieldops/internal/service"
	"fieldops/pkg/response"

	"github.com/gin-gonic/gin"
)

// TaskHandler serves the field worker side of service requests
type TaskHandler struct {
	lifecycle service.LifecycleService
	reports   service.ReportService
	requests  *RequestHandler
	logger    *slog.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(lifecycle service.LifecycleService, reports service.ReportService, requests *RequestHandler, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{lifecycle: lifecycle, reports: reports, requests: requests, logger: logger}
}

// UpdateStatus accepts a multipart form with "status", optional "notes" and
// any number of "files".
func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	actor, ok := getIdentity(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "task")
	if !ok {
		return
	}

	status, ok := c.GetPostForm("status")
	if !ok || status == "" {
		badRequest(c, "status is required")
		return
	}
	var notes *string
	if n, ok := c.GetPostForm("notes"); ok {
		notes = &n
	}

	var headers []*multipart.FileHeader
	form, err := c.MultipartForm()
	switch {
	case err == nil:
		headers = form.File["files"]
	case errors.Is(err, http.ErrNotMultipart):
	default:
		badRequest(c, "Invalid multipart form: "+err.Error())
		return
	}

	files, closeAll, err := openAttachments(headers)
	defer closeAll()
	if err != nil {
		badRequest(c, "Failed to read uploaded file: "+err.Error())
		return
	}

	updated, err := h.lifecycle.UpdateStatus(c.Request.Context(), actor, id, model.Status(status), notes, files)
	if err != nil {
		writeError(c, h.logger, err, "Failed to update task status")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, updated))
}

func openAttachments(headers []*multipart.FileHeader) ([]service.Attachment, func(), error) {
	var opened []io.Closer
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	files := make([]service.Attachment, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, err
		}
		opened = append(opened, f)
		files = append(files, service.Attachment{Filename: fh.Filename, Size: fh.Size, Content: f})
	}
	return files, closeAll, nil
}

func (h *TaskHandler) Summary(c *gin.Context) {
	actor, ok := getIdentity(c)
	if !ok {
		return
	}

	summary, err := h.reports.WorkerSummary(c.Request.Context(), actor)
	if err != nil {
		writeError(c, h.logger, err, "Failed to build summary")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// RegisterTaskRoutes registers the field worker routes. Status updates are
// also open to admins.
func (h *TaskHandler) RegisterTaskRoutes(rg *gin.RouterGroup, authMW, workerMW, workerOrAdminMW gin.HandlerFunc) {
	taskRoutes := rg.Group("/tasks")
	taskRoutes.Use(authMW)
	{
		taskRoutes.PATCH("/:id/status", workerOrAdminMW, h.UpdateStatus)
		taskRoutes.GET("", workerMW, h.requests.List)
		taskRoutes.GET("/summary", workerMW, h.Summary)
	}
}
