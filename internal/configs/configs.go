/*
Package configs loads the relay's configuration from environment variables.

Every setting has a development-friendly default. Values are parsed and
validated up front so that a misconfigured process fails at startup.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// AppConfig contains all configuration parameters required for the relay to run.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int
	StaticDir   string

	// Security Settings
	AllowedOrigins []string

	// Connection Settings
	SendQueueSize int
	MaxFrameBytes int64
	FrameRate     float64
	FrameBurst    int

	// Upgrade limiter, per client IP
	UpgradeRate  float64
	UpgradeBurst int
}

// IsDevelopment reports whether the relay runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// LoadConfig reads and validates the configuration from the environment.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	// --- General Server Settings ---
	cfg.Environment = envOr("ENVIRONMENT", "development")

	if cfg.Port, err = envInt("PORT", 10000); err != nil {
		return nil, err
	}
	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the allowed range (%d-%d)", cfg.Port, 1024, 65535)
	}

	cfg.StaticDir = envOr("STATIC_DIR", "./public")

	// --- Security Settings ---
	cfg.AllowedOrigins = splitCSV(os.Getenv("ALLOWED_ORIGINS"))
	if !cfg.IsDevelopment() && len(cfg.AllowedOrigins) == 0 {
		return nil, fmt.Errorf("ALLOWED_ORIGINS environment variable is required in %s environment", cfg.Environment)
	}

	// --- Connection Settings ---
	if cfg.SendQueueSize, err = envInt("SEND_QUEUE_SIZE", 256); err != nil {
		return nil, err
	}
	if cfg.SendQueueSize < 1 {
		return nil, fmt.Errorf("SEND_QUEUE_SIZE must be positive, got %d", cfg.SendQueueSize)
	}

	maxFrame, err := envInt("MAX_FRAME_BYTES", 8192)
	if err != nil {
		return nil, err
	}
	if maxFrame < 64 {
		return nil, fmt.Errorf("MAX_FRAME_BYTES must be at least 64, got %d", maxFrame)
	}
	cfg.MaxFrameBytes = int64(maxFrame)

	if cfg.FrameRate, err = envFloat("FRAME_RATE", 0); err != nil {
		return nil, err
	}
	if cfg.FrameBurst, err = envInt("FRAME_BURST", 40); err != nil {
		return nil, err
	}

	if cfg.UpgradeRate, err = envFloat("UPGRADE_RATE", 1); err != nil {
		return nil, err
	}
	if cfg.UpgradeBurst, err = envInt("UPGRADE_BURST", 10); err != nil {
		return nil, err
	}

	if cfg.FrameRate < 0 || cfg.UpgradeRate <= 0 || cfg.FrameBurst < 1 || cfg.UpgradeBurst < 1 {
		return nil, fmt.Errorf("rate limits must be positive (FRAME_RATE may be 0 to disable)")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return f, nil
}

// splitCSV trims and filters a comma-separated list.
func splitCSV(v string) []string {
	out := []string{}
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
