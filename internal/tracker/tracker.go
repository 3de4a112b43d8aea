// Package tracker runs the capture, detect, draw and display loop.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/handtrack/internal/capture"
	"github.com/ayusman/handtrack/internal/detector"
	"github.com/ayusman/handtrack/internal/fps"
	"github.com/ayusman/handtrack/internal/log"
	"github.com/ayusman/handtrack/internal/overlay"
)

// Config holds loop options.
type Config struct {
	// MaxHands caps how many detected hands are drawn and published.
	MaxHands int

	// QuitKey ends the loop when pressed in the window.
	QuitKey byte

	// KeyWaitMs is how long each frame waits for a key press.
	KeyWaitMs int

	Style       overlay.Style
	DrawOverlay bool

	// FPSAlpha smooths the FPS readout; see fps.NewMeter.
	FPSAlpha float64

	// Now is the clock used for FPS and timestamps. Defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig returns the loop settings of the reusable module variant.
func DefaultConfig() Config {
	return Config{
		MaxHands:    2,
		QuitKey:     'q',
		KeyWaitMs:   1,
		Style:       overlay.ModuleStyle(),
		DrawOverlay: true,
		FPSAlpha:    1,
	}
}

// Stats summarises a finished run.
type Stats struct {
	Frames     int
	AverageFPS float64
}

// Tracker owns one camera, one detector and one display for the lifetime of
// a run. It is single-threaded: Run must not be called concurrently.
type Tracker struct {
	config   Config
	camera   capture.Camera
	detector detector.Detector
	display  Display
	meter    *fps.Meter
	sinks    []Sink
	seq      int64
}

// New creates a Tracker. Zero config fields fall back to DefaultConfig values.
func New(config Config, cam capture.Camera, det detector.Detector, disp Display) *Tracker {
	def := DefaultConfig()
	if config.MaxHands <= 0 {
		config.MaxHands = def.MaxHands
	}
	if config.QuitKey == 0 {
		config.QuitKey = def.QuitKey
	}
	if config.KeyWaitMs <= 0 {
		config.KeyWaitMs = def.KeyWaitMs
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Tracker{
		config:   config,
		camera:   cam,
		detector: det,
		display:  disp,
		meter:    fps.NewMeter(config.FPSAlpha),
	}
}

// AddSink registers a sink. Sinks are called in registration order.
func (t *Tracker) AddSink(s Sink) {
	t.sinks = append(t.sinks, s)
}

// Run opens the camera and processes frames until the quit key is pressed,
// the window is closed, ctx is cancelled, or the camera fails. The camera and
// display are released on every exit path. Quitting and cancellation return nil.
func (t *Tracker) Run(ctx context.Context) error {
	defer func() {
		if err := t.display.Close(); err != nil {
			log.Warn("error closing display", "err", err)
		}
	}()

	if err := t.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	defer func() {
		if err := t.camera.Close(); err != nil {
			log.Warn("error closing camera", "err", err)
		}
	}()

	w, h := t.camera.Size()
	log.Info("capture started", "width", w, "height", h, "max_hands", t.config.MaxHands)

	for {
		select {
		case <-ctx.Done():
			log.Info("capture cancelled", "frames", t.meter.Frames())
			return nil
		default:
		}

		quit, err := t.Step()
		if err != nil {
			log.Error("capture stopped", "err", err, "frames", t.meter.Frames())
			return err
		}
		if quit {
			log.Info("capture finished", "frames", t.meter.Frames(), "avg_fps", t.meter.Average())
			return nil
		}
	}
}

// Step reads, processes and shows a single frame. It reports whether the
// user asked to quit.
func (t *Tracker) Step() (bool, error) {
	frame, err := t.camera.ReadFrame()
	if err != nil {
		return false, err
	}
	defer frame.Close()

	if err := t.process(frame); err != nil {
		return false, err
	}

	t.display.Show(frame)
	key := t.display.WaitKey(t.config.KeyWaitMs)
	if key >= 0 && byte(key&0xFF) == t.config.QuitKey {
		return true, nil
	}
	return !t.display.IsOpen(), nil
}

// process runs detection and drawing on frame in place and publishes the result.
func (t *Tracker) process(frame *gocv.Mat) error {
	width, height := frame.Cols(), frame.Rows()

	hands, err := t.detector.Detect(frame)
	if err != nil {
		if errors.Is(err, detector.ErrDetectorClosed) {
			return err
		}
		log.Warn("hand detection failed", "err", err, "seq", t.seq)
		hands = nil
	}
	if len(hands) > t.config.MaxHands {
		hands = hands[:t.config.MaxHands]
	}

	res := FrameResult{
		Seq:    t.seq,
		Width:  width,
		Height: height,
		Hands:  make([]HandResult, len(hands)),
	}
	positions := make([][]detector.Position, len(hands))
	for i := range hands {
		positions[i] = hands[i].Positions(width, height)
		res.Hands[i] = HandResult{
			Index:      i,
			Handedness: hands[i].Handedness,
			Score:      hands[i].Score,
			Positions:  positions[i],
		}
	}

	if t.config.DrawOverlay {
		overlay.DrawHands(frame, positions, t.config.Style)
	}

	now := t.config.Now()
	res.Time = now
	res.FPS = t.meter.Tick(now)
	overlay.DrawFPS(frame, res.FPS, t.config.Style)

	for _, s := range t.sinks {
		s.Publish(res)
		if fs, ok := s.(FrameSink); ok {
			fs.PublishFrame(frame)
		}
	}

	t.seq++
	return nil
}

// Stats reports the frames processed so far and their average rate.
func (t *Tracker) Stats() Stats {
	return Stats{
		Frames:     t.meter.Frames(),
		AverageFPS: t.meter.Average(),
	}
}
