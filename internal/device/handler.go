package device

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/veriprint/veriprint/internal/upstream"
)

// Handler exposes device HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a device HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ConnectAndInit discovers and initializes a scanner.
func (h *Handler) ConnectAndInit(c *fiber.Ctx) error {
	outcome, err := h.service.ConnectAndInit(c.UserContext())
	if err != nil {
		return upstreamError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"ready":  outcome.Ready,
		"device": outcome.Device,
		"code":   outcome.Code,
		"detail": outcome.Detail,
	})
}

type captureRequest struct {
	Quality    int `json:"quality"`
	TimeoutSec int `json:"timeout_sec"`
}

// Capture acquires a finger image from the initialized scanner.
func (h *Handler) Capture(c *fiber.Ctx) error {
	var req captureRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	data, err := h.service.Capture(c.UserContext(), CaptureInput{Quality: req.Quality, TimeoutSec: req.TimeoutSec})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotInitialized), errors.Is(err, ErrInvalidArgument):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		default:
			return upstreamError(err)
		}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"ok":        data.Status.Code.OK(),
		"code":      string(data.Status.Code),
		"detail":    data.Status.Description,
		"image_b64": data.ImageB64,
	})
}

// Status reports whether the device gate is open.
func (h *Handler) Status(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{"ready": h.service.Ready()})
}

func upstreamError(err error) error {
	switch {
	case errors.Is(err, upstream.ErrTimeout):
		return fiber.NewError(http.StatusGatewayTimeout, err.Error())
	default:
		return fiber.NewError(http.StatusBadGateway, err.Error())
	}
}
