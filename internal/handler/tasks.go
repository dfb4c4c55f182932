package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/stemstage/api/internal/model"
	"github.com/stemstage/api/internal/service"
	"github.com/stemstage/api/internal/taskstore"
	"github.com/stemstage/api/pkg/response"
)

type TaskHandler struct {
	service   *service.TaskService
	validator *validator.Validate
}

func NewTaskHandler(svc *service.TaskService, v *validator.Validate) *TaskHandler {
	return &TaskHandler{
		service:   svc,
		validator: v,
	}
}

// Download handles POST /api/download
func (h *TaskHandler) Download(c *fiber.Ctx) error {
	var req model.DownloadRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.StartDownload(c.Context(), &req)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.Accepted(c, result)
}

// Separate handles POST /api/separate
func (h *TaskHandler) Separate(c *fiber.Ctx) error {
	var req model.SeparateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.StartSeparation(c.Context(), &req)
	if err != nil {
		if errors.Is(err, taskstore.ErrNotFound) {
			return response.NotFound(c, "Video file not found")
		}
		return response.ServiceError(c, err.Error())
	}
	return response.Accepted(c, result)
}

// Merge handles POST /api/merge
func (h *TaskHandler) Merge(c *fiber.Ctx) error {
	var req model.MergeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.StartMerge(c.Context(), &req)
	if err != nil {
		if errors.Is(err, taskstore.ErrNotFound) {
			return response.NotFound(c, "Separated stems directory not found")
		}
		return response.ServiceError(c, err.Error())
	}
	return response.Accepted(c, result)
}

// Export handles POST /api/export
func (h *TaskHandler) Export(c *fiber.Ctx) error {
	var req model.ExportRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.StartExport(c.Context(), &req)
	if err != nil {
		if errors.Is(err, taskstore.ErrNotFound) {
			return response.NotFound(c, err.Error())
		}
		return response.ServiceError(c, err.Error())
	}
	return response.Accepted(c, result)
}

// Progress handles GET /api/progress/:taskId
func (h *TaskHandler) Progress(c *fiber.Ctx) error {
	taskID := c.Params("taskId")
	if taskID == "" {
		return response.ValidationError(c, "Task ID is required", nil)
	}

	result, err := h.service.GetProgress(c.Context(), taskID)
	if err != nil {
		if errors.Is(err, taskstore.ErrNotFound) {
			return response.NotFound(c, "Task not found")
		}
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, result)
}
