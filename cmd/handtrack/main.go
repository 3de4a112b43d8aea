package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/ayusman/handtrack/internal/capture"
	"github.com/ayusman/handtrack/internal/config"
	"github.com/ayusman/handtrack/internal/detector"
	"github.com/ayusman/handtrack/internal/log"
	"github.com/ayusman/handtrack/internal/overlay"
	"github.com/ayusman/handtrack/internal/server"
	"github.com/ayusman/handtrack/internal/store"
	"github.com/ayusman/handtrack/internal/tracker"
)

// HighGUI windows must be driven from the main OS thread.
func init() {
	runtime.LockOSThread()
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	if err := parseFlags(cfg, args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	log.Init(cfg.LogLevel)

	style, err := overlay.StyleByName(cfg.Display.Style)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	det, err := detector.NewMediaPipeDetector(detector.Config{
		StaticImageMode:  cfg.Detector.StaticImageMode,
		MaxHands:         cfg.Detector.MaxHands,
		MinDetectionConf: cfg.Detector.MinDetectionConf,
		MinTrackingConf:  cfg.Detector.MinTrackingConf,
		Python:           cfg.Detector.Python,
		Script:           cfg.Detector.Script,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not load hand landmark model: %v\n", err)
		return 1
	}
	defer func() {
		if err := det.Close(); err != nil {
			log.Warn("error stopping detector", "err", err)
		}
	}()

	cam := capture.NewCamera(capture.Options{
		DeviceID: cfg.Camera.DeviceID,
		Width:    cfg.Camera.Width,
		Height:   cfg.Camera.Height,
		FPS:      cfg.Camera.FPS,
	})

	var disp tracker.Display
	if cfg.Display.Headless {
		disp = tracker.NewHeadlessDisplay()
	} else {
		disp = tracker.NewWindowDisplay(cfg.Display.WindowName)
	}

	t := tracker.New(tracker.Config{
		MaxHands:    cfg.Detector.MaxHands,
		QuitKey:     cfg.Display.QuitKey[0],
		Style:       style,
		DrawOverlay: !cfg.Display.NoOverlay,
		FPSAlpha:    1,
	}, cam, det, disp)

	if cfg.Display.Print != tracker.PrintNone {
		t.AddSink(tracker.NewPrintSink(os.Stdout, cfg.Display.Print))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st *store.Store
	if cfg.Store.Record || cfg.Server.Listen != "" {
		st, err = store.New(cfg.Store.DBPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: could not open database: %v\n", err)
			return 1
		}
		defer st.Close()
	}

	var session *store.Session
	var recorder *store.Recorder
	if cfg.Store.Record {
		session, err = st.Sessions().Start(cfg.Camera.DeviceID, cfg.Camera.Width, cfg.Camera.Height)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: could not start session: %v\n", err)
			return 1
		}
		recorder = store.NewRecorder(st, session.ID, store.DefaultFlushFrames)
		t.AddSink(recorder)
		log.Info("recording session", "id", session.ID, "db", st.Path())
	}

	serverDone := make(chan struct{})
	serverCtx, stopServer := context.WithCancel(ctx)
	if cfg.Server.Listen != "" {
		frames := server.NewFrameHub()
		landmarks := server.NewLandmarkHub()
		t.AddSink(frames)
		t.AddSink(landmarks)

		srv := server.New(server.Config{
			StaticDir: findWebDir(),
			Store:     st,
			Frames:    frames,
			Landmarks: landmarks,
		})
		go func() {
			defer close(serverDone)
			if err := srv.ListenAndServe(serverCtx, cfg.Server.Listen); err != nil {
				log.Error("http server failed", "err", err)
			}
		}()
	} else {
		close(serverDone)
	}

	runErr := t.Run(ctx)

	stopServer()
	<-serverDone

	if recorder != nil {
		if err := recorder.Close(); err != nil {
			log.Warn("error flushing recorder", "err", err)
		}
		stats := t.Stats()
		if err := st.Sessions().Finish(session.ID, stats.Frames, stats.AverageFPS); err != nil {
			log.Warn("error finishing session", "id", session.ID, "err", err)
		}
		log.Info("session saved", "id", session.ID, "frames", stats.Frames, "positions", recorder.Written())
	}

	if runErr != nil {
		switch {
		case errors.Is(runErr, capture.ErrCameraOpen):
			fmt.Fprintf(os.Stderr, "Error: could not open camera %d\n", cfg.Camera.DeviceID)
		case errors.Is(runErr, capture.ErrFrameRead):
			fmt.Fprintln(os.Stderr, "Error: failed to read frame from camera")
		default:
			fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		}
		return 1
	}
	return 0
}

// parseFlags applies command-line overrides on top of cfg and validates the result.
func parseFlags(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("handtrack", flag.ContinueOnError)

	fs.IntVar(&cfg.Camera.DeviceID, "device", cfg.Camera.DeviceID, "camera device index")
	fs.IntVar(&cfg.Camera.Width, "width", cfg.Camera.Width, "capture width")
	fs.IntVar(&cfg.Camera.Height, "height", cfg.Camera.Height, "capture height")
	fs.IntVar(&cfg.Camera.FPS, "fps", cfg.Camera.FPS, "requested capture rate")
	fs.IntVar(&cfg.Detector.MaxHands, "max-hands", cfg.Detector.MaxHands, "maximum number of hands to track")
	fs.Float64Var(&cfg.Detector.MinDetectionConf, "detection-conf", cfg.Detector.MinDetectionConf, "minimum hand detection confidence")
	fs.Float64Var(&cfg.Detector.MinTrackingConf, "tracking-conf", cfg.Detector.MinTrackingConf, "minimum landmark tracking confidence")
	fs.BoolVar(&cfg.Detector.StaticImageMode, "static", cfg.Detector.StaticImageMode, "run detection on every frame instead of tracking")
	fs.StringVar(&cfg.Detector.Python, "python", cfg.Detector.Python, "python interpreter for the model sidecar")
	fs.StringVar(&cfg.Detector.Script, "script", cfg.Detector.Script, "path to "+detector.ScriptName)
	fs.StringVar(&cfg.Display.Style, "style", cfg.Display.Style, "overlay style: module or tracker")
	fs.StringVar(&cfg.Display.Print, "print", cfg.Display.Print, "landmarks to print: none, tip or all")
	fs.StringVar(&cfg.Display.QuitKey, "quit-key", cfg.Display.QuitKey, "key that closes the window")
	fs.StringVar(&cfg.Display.WindowName, "window", cfg.Display.WindowName, "window title")
	fs.BoolVar(&cfg.Display.Headless, "headless", cfg.Display.Headless, "run without a window")
	fs.BoolVar(&cfg.Display.NoOverlay, "no-overlay", cfg.Display.NoOverlay, "do not draw landmarks")
	fs.BoolVar(&cfg.Store.Record, "record", cfg.Store.Record, "record landmarks to the database")
	fs.StringVar(&cfg.Store.DBPath, "db", cfg.Store.DBPath, "database path")
	fs.StringVar(&cfg.Server.Listen, "listen", cfg.Server.Listen, "address for the HTTP view, e.g. :8080")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return err
	}
	return cfg.Validate()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.handtrack/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".handtrack", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
