// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits with an error.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the assessment service.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string // optional; empty disables the offer cache
	JWTKey      string
	SessionTTL  time.Duration
	UploadDir   string

	// FailLockedAttempts forces passed=false on attempts whose security batch
	// reports testLocked. Default off: locked attempts are scored and can pass.
	FailLockedAttempts bool

	// GoogleTokenInfoURL overrides the default google tokeninfo endpoint.
	GoogleTokenInfoURL string
}

// Load reads a local .env (best effort) then the environment, and returns a
// validated Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	jwtKey := os.Getenv("JWT_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_KEY is required")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "./uploads"
	}

	ttl := 2 * time.Hour
	if v := os.Getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("SESSION_TTL: %w", err)
		}
		ttl = d
	}

	tokenInfo := os.Getenv("GOOGLE_TOKENINFO_URL")
	if tokenInfo == "" {
		tokenInfo = "https://oauth2.googleapis.com/tokeninfo"
	}

	return &Config{
		Port:               port,
		DatabaseURL:        dbURL,
		RedisURL:           os.Getenv("REDIS_URL"),
		JWTKey:             jwtKey,
		SessionTTL:         ttl,
		UploadDir:          uploadDir,
		FailLockedAttempts: os.Getenv("FAIL_LOCKED_ATTEMPTS") == "true",
		GoogleTokenInfoURL: tokenInfo,
	}, nil
}
