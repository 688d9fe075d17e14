package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Issuer           string        // Optional: issuer claim of session tokens (default: authsession-devbackend)
	TokenSecret      string        // Optional: HS256 secret, at least 32 bytes (default: random per process)
	TokenTTL         time.Duration // Optional: session token lifetime (default: 60s)
	Code             string        // Optional: one-time code every verification expects (default: 424242)
	RandomCodes      bool          // Optional: issue random codes and log them instead of Code
	CodeTTL          time.Duration // Optional: lifetime of prepared codes and consent links (default: 10m)
	AttemptTTL       time.Duration // Optional: idle sign-in and sign-up lifetime (default: 30m)
	SessionTTL       time.Duration // Optional: session lifetime (default: 7 days)
	PublicURL        string        // Optional: externally reachable base URL (default: http://localhost:PORT)
	RequireAssertion bool          // Optional: devices must verify an assertion before being served
	PepperFile       string        // Optional: path to file containing pepper for password hashing

	SeedEmail    string // Optional: email address of a user created at startup
	SeedPassword string // Optional: password of the seeded user
	SeedTOTP     bool   // Optional: enroll TOTP for the seeded user, the secret is logged

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: text)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1m)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:           os.Getenv("DEVBACKEND_ISSUER"),
		TokenSecret:      os.Getenv("DEVBACKEND_TOKEN_SECRET"),
		TokenTTL:         getEnvDurationOrDefault("DEVBACKEND_TOKEN_TTL", 0),
		Code:             os.Getenv("DEVBACKEND_CODE"),
		RandomCodes:      getEnvBoolOrDefault("DEVBACKEND_RANDOM_CODES", false),
		CodeTTL:          getEnvDurationOrDefault("DEVBACKEND_CODE_TTL", 0),
		AttemptTTL:       getEnvDurationOrDefault("DEVBACKEND_ATTEMPT_TTL", 0),
		SessionTTL:       getEnvDurationOrDefault("DEVBACKEND_SESSION_TTL", 0),
		PublicURL:        os.Getenv("DEVBACKEND_PUBLIC_URL"),
		RequireAssertion: getEnvBoolOrDefault("DEVBACKEND_REQUIRE_ASSERTION", false),
		PepperFile:       os.Getenv("DEVBACKEND_PEPPER_FILE"),

		SeedEmail:    os.Getenv("DEVBACKEND_SEED_EMAIL"),
		SeedPassword: os.Getenv("DEVBACKEND_SEED_PASSWORD"),
		SeedTOTP:     getEnvBoolOrDefault("DEVBACKEND_SEED_TOTP", false),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "text"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Minute),
	}

	if cfg.PublicURL == "" {
		cfg.PublicURL = "http://localhost:" + strconv.Itoa(cfg.Port)
	}

	return cfg
}

// readPepper returns the trimmed content of the pepper file, or "" when no
// file is configured.
func readPepper(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Plain integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
