// Package config loads handtrack settings from defaults and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all runtime settings.
type Config struct {
	Camera   CameraConfig
	Detector DetectorConfig
	Display  DisplayConfig
	Store    StoreConfig
	Server   ServerConfig
	LogLevel string
}

// CameraConfig selects and sizes the capture device.
type CameraConfig struct {
	DeviceID int
	Width    int
	Height   int
	FPS      int
}

// DetectorConfig is passed through to the hand-landmark model.
type DetectorConfig struct {
	StaticImageMode  bool
	MaxHands         int
	MinDetectionConf float64
	MinTrackingConf  float64
	Python           string // interpreter; empty means auto-detect
	Script           string // sidecar path; empty means auto-detect
}

// DisplayConfig controls the on-screen window and console output.
type DisplayConfig struct {
	WindowName string
	Style      string // "module" or "tracker"
	Print      string // "none", "tip" or "all"
	QuitKey    string
	Headless   bool
	NoOverlay  bool
}

// StoreConfig controls session recording.
type StoreConfig struct {
	Record bool
	DBPath string
}

// ServerConfig controls the optional HTTP view. Empty Listen disables it.
type ServerConfig struct {
	Listen string
}

// Default returns the settings used when nothing is overridden.
func Default() *Config {
	return &Config{
		Camera: CameraConfig{
			DeviceID: 0,
			Width:    640,
			Height:   480,
			FPS:      30,
		},
		Detector: DetectorConfig{
			StaticImageMode:  false,
			MaxHands:         2,
			MinDetectionConf: 0.5,
			MinTrackingConf:  0.5,
		},
		Display: DisplayConfig{
			WindowName: "Video",
			Style:      "module",
			Print:      "tip",
			QuitKey:    "q",
		},
		Store: StoreConfig{
			DBPath: defaultDBPath(),
		},
		LogLevel: "info",
	}
}

// Load returns Default overridden by HANDTRACK_* environment variables.
func Load() (*Config, error) {
	cfg := Default()

	var err error
	if cfg.Camera.DeviceID, err = envInt("HANDTRACK_DEVICE", cfg.Camera.DeviceID); err != nil {
		return nil, err
	}
	if cfg.Camera.Width, err = envInt("HANDTRACK_WIDTH", cfg.Camera.Width); err != nil {
		return nil, err
	}
	if cfg.Camera.Height, err = envInt("HANDTRACK_HEIGHT", cfg.Camera.Height); err != nil {
		return nil, err
	}
	if cfg.Detector.MaxHands, err = envInt("HANDTRACK_MAX_HANDS", cfg.Detector.MaxHands); err != nil {
		return nil, err
	}
	if cfg.Detector.MinDetectionConf, err = envFloat("HANDTRACK_DETECTION_CONF", cfg.Detector.MinDetectionConf); err != nil {
		return nil, err
	}
	if cfg.Detector.MinTrackingConf, err = envFloat("HANDTRACK_TRACKING_CONF", cfg.Detector.MinTrackingConf); err != nil {
		return nil, err
	}
	cfg.Detector.Python = envString("HANDTRACK_PYTHON", cfg.Detector.Python)
	cfg.Detector.Script = envString("HANDTRACK_SCRIPT", cfg.Detector.Script)
	cfg.Display.Style = envString("HANDTRACK_STYLE", cfg.Display.Style)
	cfg.Display.Print = envString("HANDTRACK_PRINT", cfg.Display.Print)
	cfg.Store.DBPath = envString("HANDTRACK_DB", cfg.Store.DBPath)
	cfg.Server.Listen = envString("HANDTRACK_LISTEN", cfg.Server.Listen)
	cfg.LogLevel = envString("HANDTRACK_LOG_LEVEL", cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Camera.DeviceID < 0 {
		return fmt.Errorf("camera device must be >= 0, got %d", c.Camera.DeviceID)
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("camera size must be positive, got %dx%d", c.Camera.Width, c.Camera.Height)
	}
	if c.Detector.MaxHands < 1 {
		return fmt.Errorf("max hands must be >= 1, got %d", c.Detector.MaxHands)
	}
	if c.Detector.MinDetectionConf < 0 || c.Detector.MinDetectionConf > 1 {
		return fmt.Errorf("detection confidence must be in [0,1], got %g", c.Detector.MinDetectionConf)
	}
	if c.Detector.MinTrackingConf < 0 || c.Detector.MinTrackingConf > 1 {
		return fmt.Errorf("tracking confidence must be in [0,1], got %g", c.Detector.MinTrackingConf)
	}
	switch c.Display.Style {
	case "module", "tracker":
	default:
		return fmt.Errorf("unknown style %q", c.Display.Style)
	}
	switch c.Display.Print {
	case "none", "tip", "all":
	default:
		return fmt.Errorf("unknown print mode %q", c.Display.Print)
	}
	if len(c.Display.QuitKey) != 1 {
		return errors.New("quit key must be a single character")
	}
	if c.Store.Record && c.Store.DBPath == "" {
		return errors.New("recording requires a database path")
	}
	return nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "handtrack.db"
	}
	return filepath.Join(home, ".handtrack", "handtrack.db")
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}
