package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/veriprint/veriprint/internal/profile"
)

// RegisterProfileRoutes wires the directory and template slot endpoints.
// Enrollment creates storage and should not replay, so it alone sits behind
// the idempotency guard when one is available.
func RegisterProfileRoutes(r fiber.Router, h *profile.Handler, enrollGuard fiber.Handler) {
	if enrollGuard != nil {
		r.Post("/profiles", enrollGuard, h.Enroll)
	} else {
		r.Post("/profiles", h.Enroll)
	}
	r.Get("/profiles", h.List)
	r.Get("/profiles/search", h.Search)
	r.Get("/profiles/:profileId", h.Get)
	r.Delete("/profiles/:profileId", h.Delete)
	r.Get("/profiles/:profileId/templates", h.GetTemplates)
	r.Put("/profiles/:profileId/templates", h.PutTemplates)
}
