package verification

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/veriprint/veriprint/internal/extractor"
	"github.com/veriprint/veriprint/internal/profile"
	"github.com/veriprint/veriprint/internal/upstream"
)

// Handler exposes the 1:1 verification endpoint.
type Handler struct {
	service *Service
}

// NewHandler builds a verification HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type verifyRequest struct {
	ProbeTemplate json.RawMessage `json:"probe_template"`
	ImageB64      string          `json:"image_b64"`
}

// Verify runs a 1:1 match of the probe against the path profile.
func (h *Handler) Verify(c *fiber.Ctx) error {
	profileID, err := strconv.ParseInt(c.Params("profileId"), 10, 64)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid profile id")
	}

	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.Verify(c.UserContext(), profileID, Probe{Template: req.ProbeTemplate, ImageB64: req.ImageB64})
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingProbe):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, profile.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrNoEnrollment):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, extractor.ErrNoFeatures):
			return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, upstream.ErrTimeout):
			return fiber.NewError(http.StatusGatewayTimeout, err.Error())
		case errors.Is(err, upstream.ErrUnavailable):
			return fiber.NewError(http.StatusBadGateway, err.Error())
		default:
			return err
		}
	}
	return c.Status(http.StatusOK).JSON(result)
}
