package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/stemstage/api/internal/service"
	"github.com/stemstage/api/pkg/response"
)

const maxUploadSize = 2 * 1024 * 1024 * 1024 // 2GB

type UploadHandler struct {
	service *service.UploadService
}

func NewUploadHandler(svc *service.UploadService) *UploadHandler {
	return &UploadHandler{service: svc}
}

// Video handles POST /api/upload/video
func (h *UploadHandler) Video(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, "File is required", nil)
	}

	if file.Size > maxUploadSize {
		return response.ValidationError(c, "File size exceeds 2GB limit", map[string]interface{}{
			"maxSize":  maxUploadSize,
			"fileSize": file.Size,
		})
	}

	contentType := file.Header.Get("Content-Type")
	validTypes := map[string]bool{
		"video/mp4":       true,
		"video/quicktime": true,
		"video/webm":      true,
		"video/x-matroska": true,
	}
	if !validTypes[contentType] {
		return response.ValidationError(c, "Invalid file type. Supported: MP4, MOV, WebM, MKV", map[string]interface{}{
			"contentType": contentType,
		})
	}

	f, err := file.Open()
	if err != nil {
		return response.ServiceError(c, "Failed to open file")
	}
	defer f.Close()

	result, err := h.service.SaveVideo(file.Filename, f)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}
