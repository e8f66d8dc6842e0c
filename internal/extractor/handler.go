package extractor

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/veriprint/veriprint/internal/upstream"
)

// Handler proxies feature extraction for clients that cannot reach the
// extraction service directly.
type Handler struct {
	service Extractor
}

// NewHandler builds an extraction HTTP handler.
func NewHandler(service Extractor) *Handler {
	return &Handler{service: service}
}

type extractBody struct {
	ImageB64 string `json:"image_b64"`
}

// Extract runs feature extraction on the supplied image.
func (h *Handler) Extract(c *fiber.Ctx) error {
	var req extractBody
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.ImageB64 == "" {
		return fiber.NewError(http.StatusBadRequest, "image_b64 required")
	}

	payload, count, err := h.service.Extract(c.UserContext(), req.ImageB64)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoFeatures):
			return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, upstream.ErrTimeout):
			return fiber.NewError(http.StatusGatewayTimeout, err.Error())
		case errors.Is(err, upstream.ErrUnavailable):
			return fiber.NewError(http.StatusBadGateway, err.Error())
		default:
			return err
		}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"minutiae_count": count,
		"template":       payload,
	})
}
