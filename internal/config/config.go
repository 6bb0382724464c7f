package config

import (
	"os"
	"strconv"

	"github.com/fabulaforge/fabula/internal/gemini"
)

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Gemini connection
	GeminiAPIURL string
	GeminiAPIKey string
	Models       gemini.Models

	// Server
	Port int

	// Studio defaults
	DefaultNiche string
	DefaultVoice string

	// Export
	OutputDir    string
	ExportWidth  int
	ExportHeight int
	ExportFPS    int
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	models := gemini.DefaultModels()
	return Config{
		GeminiAPIURL: envStr("GEMINI_API_URL", gemini.DefaultBaseURL),
		GeminiAPIKey: envStr("GEMINI_API_KEY", ""),
		Models: gemini.Models{
			Text:  envStr("FABULA_TEXT_MODEL", models.Text),
			Image: envStr("FABULA_IMAGE_MODEL", models.Image),
			TTS:   envStr("FABULA_TTS_MODEL", models.TTS),
		},

		Port: envInt("FABULA_PORT", 8080),

		DefaultNiche: envStr("FABULA_NICHE", "curiosities"),
		DefaultVoice: envStr("FABULA_VOICE", "Puck"),

		OutputDir:    envStr("FABULA_OUTPUT_DIR", "exports"),
		ExportWidth:  envInt("FABULA_EXPORT_WIDTH", 1920),
		ExportHeight: envInt("FABULA_EXPORT_HEIGHT", 1080),
		ExportFPS:    envInt("FABULA_EXPORT_FPS", 30),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
