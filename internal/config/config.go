// Package config loads the service configuration from the environment.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Lllllllleong/payslipflow/internal/email"
	"github.com/Lllllllleong/payslipflow/internal/gcp"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the payslip service.
type Config struct {
	Port           string
	Brevo          email.BrevoConfig
	AuthEmail      string
	AuthPassword   string
	SessionSecret  []byte
	SessionTTL     time.Duration
	StaticDir      string
	MaxUploadBytes int64
	AllowedOrigins []string
	LogLevel       slog.Level

	generatedSecret bool
}

// AuthEnabled reports whether uploads require a login.
func (c *Config) AuthEnabled() bool {
	return c.AuthEmail != "" && c.AuthPassword != ""
}

// Load reads a .env file when present and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	timeout, err := time.ParseDuration(gcp.GetEnv("BREVO_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid BREVO_TIMEOUT: %w", err)
	}
	ttl, err := time.ParseDuration(gcp.GetEnv("SESSION_TTL", "12h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	maxMB, err := strconv.ParseInt(gcp.GetEnv("MAX_UPLOAD_MB", "50"), 10, 64)
	if err != nil || maxMB <= 0 {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_MB %q", os.Getenv("MAX_UPLOAD_MB"))
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(gcp.GetEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	cfg := &Config{
		Port: gcp.GetEnv("PORT", "3000"),
		Brevo: email.BrevoConfig{
			APIKey:      gcp.GetEnv("BREVO_API_KEY", ""),
			BaseURL:     gcp.GetEnv("BREVO_API_URL", "https://api.brevo.com/v3"),
			SenderEmail: gcp.GetEnv("BREVO_SENDER_EMAIL", ""),
			SenderName:  gcp.GetEnv("BREVO_SENDER_NAME", "Payroll System"),
			CompanyName: gcp.GetEnv("COMPANY_NAME", ""),
			Timeout:     timeout,
		},
		AuthEmail:      gcp.GetEnv("AUTH_EMAIL", ""),
		AuthPassword:   gcp.GetEnv("AUTH_PASSWORD", ""),
		SessionTTL:     ttl,
		StaticDir:      gcp.GetEnv("STATIC_DIR", "public"),
		MaxUploadBytes: maxMB << 20,
		AllowedOrigins: splitList(gcp.GetEnv("ALLOWED_ORIGINS", "*")),
		LogLevel:       level,
	}

	if secret := gcp.GetEnv("SESSION_SECRET", ""); secret != "" {
		cfg.SessionSecret = []byte(secret)
	} else {
		// Sessions do not survive a restart without a configured secret.
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		cfg.SessionSecret = []byte(hex.EncodeToString(buf))
		cfg.generatedSecret = true
	}
	return cfg, nil
}

// Warn logs settings that are legal but probably a mistake.
func (c *Config) Warn() {
	if c.Brevo.APIKey == "" {
		slog.Warn("BREVO_API_KEY is not set. Every send will be rejected by the provider.")
	}
	if c.Brevo.SenderEmail == "" {
		slog.Warn("BREVO_SENDER_EMAIL is not set.")
	}
	if !c.AuthEnabled() {
		slog.Warn("AUTH_EMAIL or AUTH_PASSWORD is not set. Uploads are not protected by a login.")
	} else if c.generatedSecret {
		slog.Warn("SESSION_SECRET is not set. Sessions are signed with a per-instance key and will not be accepted by other instances or after a restart.")
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
