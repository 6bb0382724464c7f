package config

import (
	"os"
	"testing"

	"github.com/fabulaforge/fabula/internal/gemini"
)

func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"GEMINI_API_URL", "GEMINI_API_KEY",
		"FABULA_TEXT_MODEL", "FABULA_IMAGE_MODEL", "FABULA_TTS_MODEL",
		"FABULA_PORT", "FABULA_NICHE", "FABULA_VOICE",
		"FABULA_OUTPUT_DIR", "FABULA_EXPORT_WIDTH",
		"FABULA_EXPORT_HEIGHT", "FABULA_EXPORT_FPS",
	}
	for _, k := range envVars {
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.GeminiAPIURL != gemini.DefaultBaseURL {
		t.Errorf("GeminiAPIURL = %q, want default", cfg.GeminiAPIURL)
	}
	if cfg.GeminiAPIKey != "" {
		t.Errorf("GeminiAPIKey = %q, want empty default", cfg.GeminiAPIKey)
	}
	if cfg.Models != gemini.DefaultModels() {
		t.Errorf("Models = %+v, want defaults", cfg.Models)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.DefaultNiche != "curiosities" {
		t.Errorf("DefaultNiche = %q, want 'curiosities'", cfg.DefaultNiche)
	}
	if cfg.DefaultVoice != "Puck" {
		t.Errorf("DefaultVoice = %q, want 'Puck'", cfg.DefaultVoice)
	}
	if cfg.OutputDir != "exports" {
		t.Errorf("OutputDir = %q, want 'exports'", cfg.OutputDir)
	}
	if cfg.ExportWidth != 1920 || cfg.ExportHeight != 1080 {
		t.Errorf("Export frame = %dx%d, want 1920x1080", cfg.ExportWidth, cfg.ExportHeight)
	}
	if cfg.ExportFPS != 30 {
		t.Errorf("ExportFPS = %d, want 30", cfg.ExportFPS)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GEMINI_API_URL", "http://localhost:9000")
	t.Setenv("GEMINI_API_KEY", "test-key-123")
	t.Setenv("FABULA_TEXT_MODEL", "gemini-x-text")
	t.Setenv("FABULA_IMAGE_MODEL", "gemini-x-image")
	t.Setenv("FABULA_TTS_MODEL", "gemini-x-tts")
	t.Setenv("FABULA_PORT", "3000")
	t.Setenv("FABULA_NICHE", "finance")
	t.Setenv("FABULA_VOICE", "Kore")
	t.Setenv("FABULA_OUTPUT_DIR", "/tmp/videos")
	t.Setenv("FABULA_EXPORT_WIDTH", "1280")
	t.Setenv("FABULA_EXPORT_HEIGHT", "720")
	t.Setenv("FABULA_EXPORT_FPS", "24")

	cfg := Load()

	if cfg.GeminiAPIURL != "http://localhost:9000" {
		t.Errorf("GeminiAPIURL = %q, want env override", cfg.GeminiAPIURL)
	}
	if cfg.GeminiAPIKey != "test-key-123" {
		t.Errorf("GeminiAPIKey = %q, want env override", cfg.GeminiAPIKey)
	}
	want := gemini.Models{Text: "gemini-x-text", Image: "gemini-x-image", TTS: "gemini-x-tts"}
	if cfg.Models != want {
		t.Errorf("Models = %+v, want %+v", cfg.Models, want)
	}
	if cfg.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Port)
	}
	if cfg.DefaultNiche != "finance" {
		t.Errorf("DefaultNiche = %q, want 'finance'", cfg.DefaultNiche)
	}
	if cfg.DefaultVoice != "Kore" {
		t.Errorf("DefaultVoice = %q, want 'Kore'", cfg.DefaultVoice)
	}
	if cfg.OutputDir != "/tmp/videos" {
		t.Errorf("OutputDir = %q, want env override", cfg.OutputDir)
	}
	if cfg.ExportWidth != 1280 || cfg.ExportHeight != 720 {
		t.Errorf("Export frame = %dx%d, want 1280x720", cfg.ExportWidth, cfg.ExportHeight)
	}
	if cfg.ExportFPS != 24 {
		t.Errorf("ExportFPS = %d, want 24", cfg.ExportFPS)
	}
}

func TestEnvIntInvalidFallsBack(t *testing.T) {
	t.Setenv("FABULA_PORT", "not-a-number")
	cfg := Load()
	if cfg.Port != 8080 {
		t.Errorf("Invalid int env should fallback to default: got %d, want 8080", cfg.Port)
	}
}

func TestEnvStrEmpty(t *testing.T) {
	os.Unsetenv("GEMINI_API_URL")
	cfg := Load()
	if cfg.GeminiAPIURL != gemini.DefaultBaseURL {
		t.Errorf("Unset env should use fallback: got %q", cfg.GeminiAPIURL)
	}
}
