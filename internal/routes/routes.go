package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/veriprint/veriprint/internal/audit"
	"github.com/veriprint/veriprint/internal/config"
	"github.com/veriprint/veriprint/internal/device"
	"github.com/veriprint/veriprint/internal/extractor"
	"github.com/veriprint/veriprint/internal/identification"
	"github.com/veriprint/veriprint/internal/logging"
	"github.com/veriprint/veriprint/internal/matching"
	"github.com/veriprint/veriprint/internal/middleware"
	"github.com/veriprint/veriprint/internal/profile"
	"github.com/veriprint/veriprint/internal/template"
	"github.com/veriprint/veriprint/internal/upstream"
	"github.com/veriprint/veriprint/internal/verification"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(cors.New())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(logging.Component(d.Logger, "http")))

	// Health
	RegisterHealthRoutes(app, d)

	// Storage backends. Without a database the directory and the store run in
	// memory, with the store doubling as the cascade purger.
	var (
		slots template.Store
		repo  profile.Repository
	)
	if d.DB != nil {
		slots = template.NewPostgresStore(d.DB, logging.Component(d.Logger, "template"))
		repo = profile.NewPostgresRepository(d.DB)
	} else {
		memSlots := template.NewMemoryStore(logging.Component(d.Logger, "template"))
		slots = memSlots
		repo = profile.NewMemoryRepository(memSlots)
	}

	events := audit.NewLoggerRecorder(logging.Component(d.Logger, "audit"))
	profileSvc := profile.NewService(repo, d.Cfg.SearchLimit, events)

	// External collaborators share one bounded-deadline caller; the device SDK
	// gets an unbounded one because init and capture carry per-call deadlines.
	caller := upstream.NewCaller(d.Cfg.UpstreamTimeout)
	extractClient := extractor.NewClient(d.Cfg.ExtractorBaseURL, caller)
	scorerClient := matching.NewClient(d.Cfg.ScorerBaseURL, caller)
	sdk := device.NewClient(d.Cfg.DeviceBaseURL, upstream.NewCaller(0))

	deviceSvc := device.NewService(sdk, device.NewGate(), device.Options{
		PreferredDevice: d.Cfg.PreferredDevice,
		ClientKey:       d.Cfg.DeviceClientKey,
		CallTimeout:     d.Cfg.UpstreamTimeout,
		InitTimeout:     d.Cfg.DeviceInitTimeout,
	}, logging.Component(d.Logger, "device"))

	verifySvc := verification.NewService(
		profileSvc, slots, extractClient, scorerClient,
		matching.VerifyPolicy{
			MinScore:   d.Cfg.Match.VerifyMinScore,
			MinInliers: d.Cfg.Match.VerifyMinInliers,
		},
		logging.Component(d.Logger, "verification"), events,
	)
	identifySvc := identification.NewService(
		profileSvc, slots, scorerClient,
		matching.IdentifyPolicy{
			MinScore:    d.Cfg.Match.IdentifyMinScore,
			MinInliers:  d.Cfg.Match.IdentifyMinInliers,
			Margin:      d.Cfg.Match.IdentifyMargin,
			MaxRotation: d.Cfg.Match.IdentifyMaxRotation,
		},
		logging.Component(d.Logger, "identification"), events,
	)

	profileHandler := profile.NewHandler(profileSvc, slots, events)
	deviceHandler := device.NewHandler(deviceSvc)
	extractHandler := extractor.NewHandler(extractClient)
	verifyHandler := verification.NewHandler(verifySvc)
	identifyHandler := identification.NewHandler(identifySvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	var enrollGuard fiber.Handler
	if d.Cache != nil {
		enrollGuard = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}
	RegisterDeviceRoutes(api, deviceHandler)
	api.Post("/extract", extractHandler.Extract)
	RegisterProfileRoutes(api, profileHandler, enrollGuard)
	RegisterMatchRoutes(api, verifyHandler, identifyHandler, middleware.ScanRateLimit(d.Cache, d.Cfg.IdentifyPerMin))

	return nil
}
