package config

import (
	"strings"
	"testing"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if cfg.Camera.DeviceID != 0 {
		t.Errorf("DeviceID = %d, want 0", cfg.Camera.DeviceID)
	}
	if cfg.Detector.MaxHands != 2 {
		t.Errorf("MaxHands = %d, want 2", cfg.Detector.MaxHands)
	}
	if cfg.Display.QuitKey != "q" {
		t.Errorf("QuitKey = %q, want q", cfg.Display.QuitKey)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HANDTRACK_DEVICE", "2")
	t.Setenv("HANDTRACK_MAX_HANDS", "1")
	t.Setenv("HANDTRACK_DETECTION_CONF", "0.75")
	t.Setenv("HANDTRACK_STYLE", "tracker")
	t.Setenv("HANDTRACK_PRINT", "all")
	t.Setenv("HANDTRACK_LISTEN", ":9000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Camera.DeviceID != 2 {
		t.Errorf("DeviceID = %d, want 2", cfg.Camera.DeviceID)
	}
	if cfg.Detector.MaxHands != 1 {
		t.Errorf("MaxHands = %d, want 1", cfg.Detector.MaxHands)
	}
	if cfg.Detector.MinDetectionConf != 0.75 {
		t.Errorf("MinDetectionConf = %g, want 0.75", cfg.Detector.MinDetectionConf)
	}
	if cfg.Display.Style != "tracker" || cfg.Display.Print != "all" {
		t.Errorf("display = %+v", cfg.Display)
	}
	if cfg.Server.Listen != ":9000" {
		t.Errorf("Listen = %q, want :9000", cfg.Server.Listen)
	}
}

func TestLoad_BadNumber(t *testing.T) {
	t.Setenv("HANDTRACK_DEVICE", "zero")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "HANDTRACK_DEVICE") {
		t.Errorf("Load() error = %v, want HANDTRACK_DEVICE parse error", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative device", func(c *Config) { c.Camera.DeviceID = -1 }},
		{"zero width", func(c *Config) { c.Camera.Width = 0 }},
		{"no hands", func(c *Config) { c.Detector.MaxHands = 0 }},
		{"detection conf above one", func(c *Config) { c.Detector.MinDetectionConf = 1.5 }},
		{"negative tracking conf", func(c *Config) { c.Detector.MinTrackingConf = -0.1 }},
		{"unknown style", func(c *Config) { c.Display.Style = "fancy" }},
		{"unknown print", func(c *Config) { c.Display.Print = "some" }},
		{"long quit key", func(c *Config) { c.Display.QuitKey = "qq" }},
		{"record without db", func(c *Config) { c.Store.Record = true; c.Store.DBPath = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}
