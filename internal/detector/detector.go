package detector

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// ErrDetectorClosed is returned by Detect once the model backend has gone away.
var ErrDetectorClosed = errors.New("detector is closed")

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a BGR video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// StaticImageMode treats every frame as unrelated, disabling tracking.
	StaticImageMode bool

	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// MinDetectionConf is the minimum detection confidence threshold (0.0-1.0).
	MinDetectionConf float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// Python is the interpreter used for the model sidecar. Empty means
	// a project virtualenv if present, else python3.
	Python string

	// Script is the sidecar path. Empty means search the usual locations.
	Script string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		StaticImageMode:  false,
		MaxHands:         2,
		MinDetectionConf: 0.5,
		MinTrackingConf:  0.5,
	}
}

// Validate reports settings the model would reject.
func (c Config) Validate() error {
	if c.MaxHands < 1 {
		return fmt.Errorf("max hands must be >= 1, got %d", c.MaxHands)
	}
	if c.MinDetectionConf < 0 || c.MinDetectionConf > 1 {
		return fmt.Errorf("min detection confidence must be in [0,1], got %g", c.MinDetectionConf)
	}
	if c.MinTrackingConf < 0 || c.MinTrackingConf > 1 {
		return fmt.Errorf("min tracking confidence must be in [0,1], got %g", c.MinTrackingConf)
	}
	return nil
}
