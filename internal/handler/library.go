package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/stemstage/api/internal/service"
	"github.com/stemstage/api/pkg/response"
)

type LibraryHandler struct {
	service *service.LibraryService
}

func NewLibraryHandler(svc *service.LibraryService) *LibraryHandler {
	return &LibraryHandler{service: svc}
}

// List handles GET /api/library
func (h *LibraryHandler) List(c *fiber.Ctx) error {
	result, err := h.service.List(c.Context())
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, result)
}

// Serve handles GET /files/* — only paths resolving inside the allow-listed
// roots are ever served; everything else is reported as missing.
func (h *LibraryHandler) Serve(c *fiber.Ctx) error {
	path, err := h.service.Resolve(c.Params("*"))
	if err != nil {
		return response.NotFound(c, "File not found")
	}
	return c.SendFile(path)
}

// Cleanup handles POST /api/cleanup
func (h *LibraryHandler) Cleanup(c *fiber.Ctx) error {
	if err := h.service.Cleanup(c.Context()); err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, fiber.Map{"message": "All temporary files and task data cleaned up."})
}
