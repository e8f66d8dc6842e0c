package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/veriprint/veriprint/internal/identification"
	"github.com/veriprint/veriprint/internal/verification"
)

// RegisterMatchRoutes wires the 1:1 and 1:N matching endpoints. Identification
// fans out across the whole gallery, so it carries the scan rate limiter.
func RegisterMatchRoutes(r fiber.Router, verify *verification.Handler, identify *identification.Handler, scanLimit fiber.Handler) {
	r.Post("/profiles/:profileId/verify", verify.Verify)
	r.Post("/identify", scanLimit, identify.Identify)
}
