package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/veriprint/veriprint/internal/device"
)

// RegisterDeviceRoutes wires the capture device lifecycle endpoints.
func RegisterDeviceRoutes(r fiber.Router, h *device.Handler) {
	r.Post("/device/connect-and-init", h.ConnectAndInit)
	r.Post("/device/capture", h.Capture)
	r.Get("/device/status", h.Status)
}
