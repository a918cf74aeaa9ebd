package config

import "testing"

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when GEMINI_API_KEY is unset")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("PORT", "")
	t.Setenv("MONGODB_URI", "")
	t.Setenv("VOICE_NAME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.MongoURI != "mongodb://localhost:27017" {
		t.Errorf("MongoURI = %q, want local default", cfg.MongoURI)
	}
	if cfg.Voice != "Zephyr" {
		t.Errorf("Voice = %q, want Zephyr", cfg.Voice)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("PORT", "9000")
	t.Setenv("VOICE_MODEL", "models/custom")
	t.Setenv("CAPTURE_DEVICE", "hw:1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9000" {
		t.Errorf("Port = %q, want 9000", cfg.Port)
	}
	if cfg.VoiceModel != "models/custom" {
		t.Errorf("VoiceModel = %q, want models/custom", cfg.VoiceModel)
	}
	if cfg.CaptureDevice != "hw:1" {
		t.Errorf("CaptureDevice = %q, want hw:1", cfg.CaptureDevice)
	}
}
