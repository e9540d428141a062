package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ProtectionConfig carries the rule parameters for the request-protection
// pipeline. Modes follow the same convention as the rest of the service:
// "live" enforces, "monitor" logs without blocking, "disabled" skips the rule.
type ProtectionConfig struct {
	ShieldMode       string
	ShieldFailPolicy string // "open" or "closed"

	BotMode       string
	BotAllow      []string // bot categories exempt from deny
	BotFailPolicy string

	RateLimitEnable   bool
	RateLimitInterval time.Duration
	RateLimitMax      int
}

// Config captures runtime configuration sourced from environment variables.
type Config struct {
	Environment  string
	HTTPPort     string
	DatabasePath string

	JWTSecret  string
	SessionTTL time.Duration

	Protection ProtectionConfig
}

// Load reads env vars and falls back to defaults so the server can boot with zero configuration.
func Load() (Config, error) {
	cfg := Config{
		Environment:  getEnv("WARDEN_ENV", "development"),
		HTTPPort:     getEnv("WARDEN_HTTP_PORT", "8080"),
		DatabasePath: getEnv("WARDEN_DB_PATH", filepath.Join("data", "warden.db")),
		JWTSecret:    getEnv("WARDEN_JWT_SECRET", ""),
		Protection: ProtectionConfig{
			ShieldMode:       getEnv("WARDEN_SHIELD_MODE", "live"),
			ShieldFailPolicy: getEnv("WARDEN_SHIELD_FAIL_POLICY", "open"),
			BotMode:          getEnv("WARDEN_BOT_MODE", "live"),
			BotAllow:         splitList(getEnv("WARDEN_BOT_ALLOW", "search_engine,preview,curl")),
			BotFailPolicy:    getEnv("WARDEN_BOT_FAIL_POLICY", "open"),
			RateLimitEnable:  getEnv("WARDEN_RATE_LIMIT_ENABLE", "true") == "true",
		},
	}

	var err error
	if cfg.SessionTTL, err = time.ParseDuration(getEnv("WARDEN_SESSION_TTL", "24h")); err != nil {
		return Config{}, fmt.Errorf("parse WARDEN_SESSION_TTL: %w", err)
	}
	if cfg.Protection.RateLimitInterval, err = time.ParseDuration(getEnv("WARDEN_RATE_LIMIT_INTERVAL", "2s")); err != nil {
		return Config{}, fmt.Errorf("parse WARDEN_RATE_LIMIT_INTERVAL: %w", err)
	}
	if cfg.Protection.RateLimitMax, err = strconv.Atoi(getEnv("WARDEN_RATE_LIMIT_MAX", "5")); err != nil {
		return Config{}, fmt.Errorf("parse WARDEN_RATE_LIMIT_MAX: %w", err)
	}

	// An unset secret gets a random value so sessions still work for a single
	// process. Tokens will not survive a restart; production must set one.
	if cfg.JWTSecret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return Config{}, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.JWTSecret = hex.EncodeToString(buf)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return Config{}, fmt.Errorf("ensure data directory: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
