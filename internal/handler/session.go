package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/stemstage/api/internal/model"
	"github.com/stemstage/api/internal/session"
	"github.com/stemstage/api/internal/stem"
	"github.com/stemstage/api/pkg/response"
)

type SessionHandler struct {
	manager   *session.Manager
	validator *validator.Validate
}

func NewSessionHandler(manager *session.Manager, v *validator.Validate) *SessionHandler {
	return &SessionHandler{
		manager:   manager,
		validator: v,
	}
}

// Open handles POST /api/session/open
func (h *SessionHandler) Open(c *fiber.Ctx) error {
	var req model.SessionOpenRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	s, err := h.manager.Open(req.SeparatedDir)
	if err != nil {
		if errors.Is(err, stem.ErrManifestMissing) {
			return response.NotFound(c, "Stem set is not assembled; run merge first")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, model.SessionOpenResponse{
		SessionID:       s.ID,
		StemOrder:       s.Manifest.StemOrder,
		ChannelLayout:   s.Manifest.ChannelLayout,
		DurationSeconds: s.Set.Duration(),
	})
}

// Play handles POST /api/session/:id/play
func (h *SessionHandler) Play(c *fiber.Ctx) error {
	s, err := h.manager.Get(c.Params("id"))
	if err != nil {
		return response.NotFound(c, "Session not found")
	}
	if err := s.Transport.Play(); err != nil {
		return response.ServiceError(c, err.Error())
	}
	return h.state(c, s)
}

// Pause handles POST /api/session/:id/pause
func (h *SessionHandler) Pause(c *fiber.Ctx) error {
	s, err := h.manager.Get(c.Params("id"))
	if err != nil {
		return response.NotFound(c, "Session not found")
	}
	if err := s.Transport.Pause(); err != nil {
		return response.ServiceError(c, err.Error())
	}
	return h.state(c, s)
}

// Stop handles POST /api/session/:id/stop
func (h *SessionHandler) Stop(c *fiber.Ctx) error {
	s, err := h.manager.Get(c.Params("id"))
	if err != nil {
		return response.NotFound(c, "Session not found")
	}
	if err := s.Transport.Stop(); err != nil {
		return response.ServiceError(c, err.Error())
	}
	return h.state(c, s)
}

// Seek handles POST /api/session/:id/seek
func (h *SessionHandler) Seek(c *fiber.Ctx) error {
	s, err := h.manager.Get(c.Params("id"))
	if err != nil {
		return response.NotFound(c, "Session not found")
	}

	var req model.SeekRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	if err := s.Transport.Seek(req.Position); err != nil {
		return response.ServiceError(c, err.Error())
	}
	return h.state(c, s)
}

// Gain handles POST /api/session/:id/gain
func (h *SessionHandler) Gain(c *fiber.Ctx) error {
	s, err := h.manager.Get(c.Params("id"))
	if err != nil {
		return response.NotFound(c, "Session not found")
	}

	var req model.GainRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	s.Mixer.SetGain(req.Stem, req.Gain)
	return h.state(c, s)
}

// State handles GET /api/session/:id
func (h *SessionHandler) State(c *fiber.Ctx) error {
	s, err := h.manager.Get(c.Params("id"))
	if err != nil {
		return response.NotFound(c, "Session not found")
	}
	return h.state(c, s)
}

// Close handles DELETE /api/session/:id
func (h *SessionHandler) Close(c *fiber.Ctx) error {
	if err := h.manager.Close(c.Params("id")); err != nil {
		return response.NotFound(c, "Session not found")
	}
	return response.NoContent(c)
}

func (h *SessionHandler) state(c *fiber.Ctx, s *session.Session) error {
	return response.OK(c, model.TransportStateResponse{
		SessionID: s.ID,
		Phase:     string(s.Transport.Phase()),
		Position:  s.Transport.Position(),
		Gains:     s.Mixer.Gains(),
	})
}
