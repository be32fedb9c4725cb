package config

import (
	"bytes"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "BREVO_API_KEY", "BREVO_API_URL", "BREVO_SENDER_NAME", "BREVO_TIMEOUT",
		"AUTH_EMAIL", "AUTH_PASSWORD", "SESSION_SECRET", "SESSION_TTL", "STATIC_DIR", "MAX_UPLOAD_MB",
		"ALLOWED_ORIGINS", "LOG_LEVEL", "COMPANY_NAME"} {
		t.Setenv(key, "")
	}

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.Port != "3000" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.Brevo.SenderName != "Payroll System" || cfg.Brevo.BaseURL != "https://api.brevo.com/v3" {
		t.Errorf("Brevo = %+v", cfg.Brevo)
	}
	if cfg.Brevo.Timeout != 30*time.Second || cfg.SessionTTL != 12*time.Hour {
		t.Errorf("durations = %v, %v", cfg.Brevo.Timeout, cfg.SessionTTL)
	}
	if cfg.MaxUploadBytes != 50<<20 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
	}
	if cfg.AuthEnabled() {
		t.Error("auth should be disabled without credentials")
	}
	if len(cfg.SessionSecret) == 0 {
		t.Error("a session secret should be generated")
	}
	if !reflect.DeepEqual(cfg.AllowedOrigins, []string{"*"}) {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("AUTH_EMAIL", "hr@acme.test")
	t.Setenv("AUTH_PASSWORD", "secret")
	t.Setenv("SESSION_SECRET", "fixed")
	t.Setenv("ALLOWED_ORIGINS", "https://a.test, https://b.test")
	t.Setenv("MAX_UPLOAD_MB", "5")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.Port != "8080" || !cfg.AuthEnabled() || string(cfg.SessionSecret) != "fixed" {
		t.Errorf("cfg = %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.AllowedOrigins, []string{"https://a.test", "https://b.test"}) {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.MaxUploadBytes != 5<<20 || cfg.LogLevel != slog.LevelDebug {
		t.Errorf("MaxUploadBytes = %d, LogLevel = %v", cfg.MaxUploadBytes, cfg.LogLevel)
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := map[string]string{
		"BREVO_TIMEOUT": "soon",
		"SESSION_TTL":   "forever",
		"MAX_UPLOAD_MB": "-1",
		"LOG_LEVEL":     "loud",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := FromEnv(); err == nil {
				t.Errorf("FromEnv() with %s=%q should fail", key, value)
			}
		})
	}
}

func captureWarnings(t *testing.T, cfg *Config) string {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	cfg.Warn()
	return buf.String()
}

func TestWarn_GeneratedSessionSecret(t *testing.T) {
	tests := []struct {
		name     string
		secret   string
		password string
		want     bool
	}{
		{"auth without secret", "", "secret", true},
		{"auth with secret", "fixed", "secret", false},
		{"auth disabled", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("AUTH_EMAIL", "hr@acme.test")
			t.Setenv("AUTH_PASSWORD", tt.password)
			t.Setenv("SESSION_SECRET", tt.secret)

			cfg, err := FromEnv()
			if err != nil {
				t.Fatalf("FromEnv() error = %v", err)
			}
			logged := captureWarnings(t, cfg)
			if got := strings.Contains(logged, "SESSION_SECRET is not set"); got != tt.want {
				t.Errorf("session secret warning = %v, want %v; log:\n%s", got, tt.want, logged)
			}
		})
	}
}
