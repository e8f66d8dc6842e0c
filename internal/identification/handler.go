package identification

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/veriprint/veriprint/internal/template"
	"github.com/veriprint/veriprint/internal/upstream"
)

// Handler exposes the 1:N identification endpoint.
type Handler struct {
	service *Service
}

// NewHandler builds an identification HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type identifyRequest struct {
	ProbeMinutiae []template.Minutia `json:"probe_minutiae"`
	ProbeTemplate json.RawMessage    `json:"probe_template"`
}

// Identify searches the whole directory for the probe's owner.
func (h *Handler) Identify(c *fiber.Ctx) error {
	var req identifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.Identify(c.UserContext(), Probe{Minutiae: req.ProbeMinutiae, Template: req.ProbeTemplate})
	if err != nil {
		switch {
		case errors.Is(err, upstream.ErrTimeout):
			return fiber.NewError(http.StatusGatewayTimeout, err.Error())
		case errors.Is(err, upstream.ErrUnavailable):
			return fiber.NewError(http.StatusBadGateway, err.Error())
		default:
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	return c.Status(http.StatusOK).JSON(result)
}
