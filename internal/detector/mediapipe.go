package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/handtrack/internal/log"
)

// ScriptName is the file name of the MediaPipe sidecar.
const ScriptName = "hand_landmarks_service.py"

// frameHeaderSize is width, height and channel count as big-endian uint32s.
const frameHeaderSize = 12

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess.
//
// Each frame is converted from BGR to RGB, written to the sidecar's stdin as
// a 12-byte header followed by the raw pixels, and answered with one JSON line.
type MediaPipeDetector struct {
	config Config
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	rgb    gocv.Mat
	mu     sync.Mutex
	closed bool
}

// NewMediaPipeDetector starts the MediaPipe sidecar so the model is loaded
// before the first frame arrives.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	scriptPath := config.Script
	if scriptPath == "" {
		scriptPath = findMediaPipeScript()
	}
	if scriptPath == "" {
		return nil, fmt.Errorf("%s not found", ScriptName)
	}

	pythonPath := config.Python
	if pythonPath == "" {
		pythonPath = findVenvPython()
	}
	if pythonPath == "" {
		pythonPath = "python3"
	}

	args := append([]string{scriptPath}, sidecarArgs(config)...)
	return startDetector(config, pythonPath, args...)
}

// sidecarArgs renders the model options as command-line flags.
func sidecarArgs(c Config) []string {
	args := []string{
		"--max-hands", strconv.Itoa(c.MaxHands),
		"--min-detection-confidence", strconv.FormatFloat(c.MinDetectionConf, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(c.MinTrackingConf, 'f', -1, 64),
	}
	if c.StaticImageMode {
		args = append(args, "--static-image-mode")
	}
	return args
}

func startDetector(config Config, name string, args ...string) (*MediaPipeDetector, error) {
	cmd := exec.Command(name, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}

	// Model loading messages go to our stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start mediapipe service: %w", err)
	}

	log.Debug("mediapipe sidecar started", "pid", cmd.Process.Pid, "max_hands", config.MaxHands)

	return &MediaPipeDetector{
		config: config,
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
		rgb:    gocv.NewMat(),
	}, nil
}

// Detect analyzes a BGR frame and returns detected hand landmarks.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrDetectorClosed
	}
	if frame == nil || frame.Empty() {
		return nil, errors.New("empty frame")
	}

	gocv.CvtColor(*frame, &d.rgb, gocv.ColorBGRToRGB)

	if err := writeFrame(d.stdin, d.rgb.Cols(), d.rgb.Rows(), d.rgb.Channels(), d.rgb.ToBytes()); err != nil {
		d.terminate()
		return nil, fmt.Errorf("%w: %v", ErrDetectorClosed, err)
	}

	line, err := d.stdout.ReadBytes('\n')
	if err != nil {
		d.terminate()
		return nil, fmt.Errorf("%w: read response: %v", ErrDetectorClosed, err)
	}

	hands, err := parseResponse(line)
	if err != nil {
		return nil, err
	}

	if len(hands) > d.config.MaxHands {
		hands = hands[:d.config.MaxHands]
	}
	return hands, nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	d.rgb.Close()

	// Closing stdin is the sidecar's signal to exit
	d.stdin.Close()
	return d.cmd.Wait()
}

// terminate kills a sidecar that broke the protocol.
func (d *MediaPipeDetector) terminate() {
	d.closed = true
	d.rgb.Close()
	d.stdin.Close()
	if d.cmd.Process != nil {
		d.cmd.Process.Kill()
	}
	d.cmd.Wait()
}

// writeFrame sends one frame using the sidecar's framing.
func writeFrame(w io.Writer, width, height, channels int, pixels []byte) error {
	if want := width * height * channels; len(pixels) != want {
		return fmt.Errorf("frame has %d bytes, want %d", len(pixels), want)
	}

	header := make([]byte, frameHeaderSize)
	binary.BigEndian.PutUint32(header[0:4], uint32(width))
	binary.BigEndian.PutUint32(header[4:8], uint32(height))
	binary.BigEndian.PutUint32(header[8:12], uint32(channels))

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := w.Write(pixels); err != nil {
		return fmt.Errorf("write pixels: %w", err)
	}
	return nil
}

// parseResponse decodes one JSON response line from the sidecar.
func parseResponse(line []byte) ([]HandLandmarks, error) {
	var response struct {
		Hands []jsonHand `json:"hands"`
		Error string     `json:"error"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("mediapipe: %s", response.Error)
	}
	if len(response.Hands) == 0 {
		return nil, nil
	}

	result := make([]HandLandmarks, len(response.Hands))
	for i, h := range response.Hands {
		result[i] = h.toHandLandmarks()
	}
	return result, nil
}

func findMediaPipeScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", ScriptName),
		filepath.Join("..", "scripts", ScriptName),
		filepath.Join(execDir, "scripts", ScriptName),
		filepath.Join(os.Getenv("HOME"), ".handtrack", "scripts", ScriptName),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment
// next to the working directory, the executable, or under ~/.handtrack.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		"../../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".handtrack/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// jsonHand represents the JSON structure from the Python service.
type jsonHand struct {
	Points     []jsonPoint `json:"points"`
	Handedness string      `json:"handedness"`
	Score      float64     `json:"score"`
}

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (h jsonHand) toHandLandmarks() HandLandmarks {
	lm := HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	for i := 0; i < NumLandmarks && i < len(h.Points); i++ {
		lm.Points[i] = Point3D{
			X: h.Points[i].X,
			Y: h.Points[i].Y,
			Z: h.Points[i].Z,
		}
	}

	return lm
}
