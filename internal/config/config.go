package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config carries everything the binaries read from the environment
type Config struct {
	Port          string
	GeminiAPIKey  string
	JWTSecret     string
	MongoURI      string
	MongoDatabase string

	VoiceModel        string
	Voice             string
	SystemInstruction string
	CaptureDevice     string
}

// Load reads configuration from the environment, after loading a .env file
// when one is present. The Gemini API key is the only hard requirement.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:          envOrDefault("PORT", "8080"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		JWTSecret:     envOrDefault("JWT_SECRET", "development-secret-change-me"),
		MongoURI:      envOrDefault("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: envOrDefault("MONGODB_DATABASE", "kurdai"),

		VoiceModel:        envOrDefault("VOICE_MODEL", "models/gemini-2.5-flash-native-audio-preview-12-2025"),
		Voice:             envOrDefault("VOICE_NAME", "Zephyr"),
		SystemInstruction: os.Getenv("VOICE_SYSTEM_INSTRUCTION"),
		CaptureDevice:     os.Getenv("CAPTURE_DEVICE"),
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}
	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
