package config

import (
	"os"
	"path/filepath"
	"testing"
)

const baseConfig = `
port: "8080"
logLevel: "info"
jwtSecret: "dev-secret"
aiProvider: "gemini"
geminiAPIKey: "test-key"
redisAddr: "localhost:6379"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, baseConfig))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.SessionTTL != "24h" {
		t.Fatalf("sessionTTL = %q, want 24h default", cfg.SessionTTL)
	}
	if cfg.MaxUploadBytes != 20<<20 {
		t.Fatalf("maxUploadBytes = %d, want 20MiB default", cfg.MaxUploadBytes)
	}
	if len(cfg.AllowedExtensions) != 4 {
		t.Fatalf("allowedExtensions = %v, want four defaults", cfg.AllowedExtensions)
	}
	if cfg.CookieConsent != "plagiax_cookie_consent" {
		t.Fatalf("cookieConsentName = %q", cfg.CookieConsent)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("PLAGIAX_MAX_UPLOAD_BYTES", "1048576")
	t.Setenv("PLAGIAX_ALLOWED_EXTENSIONS", ".pdf, .txt")
	t.Setenv("PLAGIAX_CHECK_RATE_LIMIT_PER_MINUTE", "12")

	cfg, err := Load(writeConfig(t, baseConfig))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.GeminiAPIKey != "env-key" {
		t.Fatalf("geminiAPIKey = %q, want env override", cfg.GeminiAPIKey)
	}
	if cfg.MaxUploadBytes != 1048576 {
		t.Fatalf("maxUploadBytes = %d, want 1048576", cfg.MaxUploadBytes)
	}
	if len(cfg.AllowedExtensions) != 2 || cfg.AllowedExtensions[1] != ".txt" {
		t.Fatalf("allowedExtensions = %v, want [.pdf .txt]", cfg.AllowedExtensions)
	}
	if cfg.CheckRateLimitPerMinute != 12 {
		t.Fatalf("checkRateLimitPerMinute = %d, want 12", cfg.CheckRateLimitPerMinute)
	}
}

func TestValidateConfigRejectsMissingProviderKey(t *testing.T) {
	cfg := FileConfig{Port: "8080", JWTSecret: "s", AIProvider: "gemini", SessionTTL: "24h", ReportTTL: "24h"}
	if err := validateConfig(cfg); err == nil {
		t.Fatal("expected error for missing geminiAPIKey")
	}
}

func TestValidateConfigRejectsUnknownProvider(t *testing.T) {
	cfg := FileConfig{Port: "8080", JWTSecret: "s", AIProvider: "bard", SessionTTL: "24h", ReportTTL: "24h"}
	if err := validateConfig(cfg); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestValidateConfigRejectsBadExtension(t *testing.T) {
	cfg := FileConfig{
		Port: "8080", JWTSecret: "s", AIProvider: "gemini", GeminiAPIKey: "k",
		SessionTTL: "24h", ReportTTL: "24h",
		AllowedExtensions: []string{"pdf"},
	}
	if err := validateConfig(cfg); err == nil {
		t.Fatal("expected error for extension without dot")
	}
}
