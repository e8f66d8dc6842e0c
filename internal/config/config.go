package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName       = "VeriPrint"
	defaultAppEnv        = "development"
	defaultPort          = "8090"
	defaultLogLevel      = "info"
	defaultDeviceBase    = "http://localhost:8030/morfinauth"
	defaultExtractorBase = "http://127.0.0.1:5055"
	defaultShutdownDelay = 10 * time.Second
	defaultIdemTTL       = 24 * time.Hour
	defaultCallTimeout   = 15 * time.Second
	defaultInitTimeout   = 30 * time.Second
)

// Matching holds the decision thresholds applied by the verification and
// identification reducers. All of them are tunables external to the matching
// core itself.
type Matching struct {
	// Verification accepts when the best slot clears both floors.
	VerifyMinScore   float64
	VerifyMinInliers int

	// Identification returns a winner only when the global best clears the
	// floors, survives the rotation filter, and leads the runner-up by at
	// least Margin (0 disables the margin rule).
	IdentifyMinScore    float64
	IdentifyMinInliers  int
	IdentifyMargin      float64
	IdentifyMaxRotation float64
}

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName  string
	AppEnv   string
	Port     string
	LogLevel string

	DatabaseURL string
	RedisURL    string

	// Collaborator base URLs. The extractor and the scorer are commonly the
	// same upstream process, so the scorer base falls back to the extractor's.
	DeviceBaseURL    string
	ExtractorBaseURL string
	ScorerBaseURL    string

	// DeviceClientKey is the license key the SDK expects on init.
	// PreferredDevice, when set, is chosen over the first listed device.
	DeviceClientKey string
	PreferredDevice string

	UpstreamTimeout   time.Duration
	DeviceInitTimeout time.Duration

	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration
	IdentifyPerMin int
	SearchLimit    int

	Match Matching
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:           getEnv("APP_NAME", defaultAppName),
		AppEnv:            getEnv("APP_ENV", defaultAppEnv),
		Port:              getEnv("PORT", defaultPort),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		DeviceBaseURL:     strings.TrimRight(getEnv("DEVICE_BASE", defaultDeviceBase), "/"),
		DeviceClientKey:   os.Getenv("DEVICE_CLIENT_KEY"),
		PreferredDevice:   os.Getenv("DEVICE_PREFERRED"),
		ExtractorBaseURL:  strings.TrimRight(getEnv("EXTRACTOR_BASE", defaultExtractorBase), "/"),
		ShutdownPeriod:    defaultShutdownDelay,
		IdempotencyTTL:    defaultIdemTTL,
		UpstreamTimeout:   defaultCallTimeout,
		DeviceInitTimeout: defaultInitTimeout,
		IdentifyPerMin:    30,
		SearchLimit:       50,
		Match: Matching{
			VerifyMinScore:      0.22,
			VerifyMinInliers:    10,
			IdentifyMinScore:    0.25,
			IdentifyMinInliers:  12,
			IdentifyMargin:      0,
			IdentifyMaxRotation: 40,
		},
	}
	cfg.ScorerBaseURL = strings.TrimRight(getEnv("SCORER_BASE", cfg.ExtractorBaseURL), "/")

	var err error
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.UpstreamTimeout, err = durationEnv("UPSTREAM_TIMEOUT", cfg.UpstreamTimeout); err != nil {
		return Config{}, err
	}
	if cfg.DeviceInitTimeout, err = durationEnv("DEVICE_INIT_TIMEOUT", cfg.DeviceInitTimeout); err != nil {
		return Config{}, err
	}
	if cfg.IdentifyPerMin, err = intEnv("IDENTIFY_RATE_PER_MIN", cfg.IdentifyPerMin); err != nil {
		return Config{}, err
	}
	if cfg.SearchLimit, err = intEnv("SEARCH_LIMIT", cfg.SearchLimit); err != nil {
		return Config{}, err
	}

	m := &cfg.Match
	if m.VerifyMinScore, err = floatEnv("VERIFY_MIN_SCORE", m.VerifyMinScore); err != nil {
		return Config{}, err
	}
	if m.VerifyMinInliers, err = intEnv("VERIFY_MIN_INLIERS", m.VerifyMinInliers); err != nil {
		return Config{}, err
	}
	if m.IdentifyMinScore, err = floatEnv("IDENTIFY_MIN_SCORE", m.IdentifyMinScore); err != nil {
		return Config{}, err
	}
	if m.IdentifyMinInliers, err = intEnv("IDENTIFY_MIN_INLIERS", m.IdentifyMinInliers); err != nil {
		return Config{}, err
	}
	if m.IdentifyMargin, err = floatEnv("IDENTIFY_MARGIN", m.IdentifyMargin); err != nil {
		return Config{}, err
	}
	if m.IdentifyMaxRotation, err = floatEnv("IDENTIFY_MAX_ROTATION", m.IdentifyMaxRotation); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the configured environment is a development one,
// where the service may run on in-memory storage.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
