package detector

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"testing"

	"gocv.io/x/gocv"
)

// TestHelperProcess stands in for the Python sidecar when re-executed by
// startHelper. It speaks the same framing and replies with one synthetic hand
// whose handedness reports the channel order it received.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	in := bufio.NewReader(os.Stdin)
	out := bufio.NewWriter(os.Stdout)
	header := make([]byte, frameHeaderSize)

	for {
		if _, err := io.ReadFull(in, header); err != nil {
			os.Exit(0)
		}
		w := binary.BigEndian.Uint32(header[0:4])
		h := binary.BigEndian.Uint32(header[4:8])
		c := binary.BigEndian.Uint32(header[8:12])
		pixels := make([]byte, w*h*c)
		if _, err := io.ReadFull(in, pixels); err != nil {
			os.Exit(1)
		}

		switch os.Getenv("HELPER_MODE") {
		case "exit":
			os.Exit(0)
		case "error":
			fmt.Fprintln(out, `{"error":"model failure"}`)
		case "empty":
			fmt.Fprintln(out, `{"hands":[]}`)
		default:
			order := "bgr"
			if pixels[0] == 0 && pixels[2] == 255 {
				order = "rgb"
			}
			hand := jsonHand{Handedness: order, Score: float64(w*1000 + h)}
			for i := 0; i < NumLandmarks; i++ {
				hand.Points = append(hand.Points, jsonPoint{X: 0.5, Y: 0.25})
			}
			msg, _ := json.Marshal(map[string]any{"hands": []jsonHand{hand, hand, hand}})
			out.Write(msg)
			out.WriteByte('\n')
		}
		out.Flush()
	}
}

func startHelper(t *testing.T, mode string, cfg Config) *MediaPipeDetector {
	t.Helper()
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	t.Setenv("HELPER_MODE", mode)

	d, err := startDetector(cfg, os.Args[0], "-test.run=^TestHelperProcess$")
	if err != nil {
		t.Fatalf("startDetector() error = %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

// blueFrame returns a BGR frame filled with pure blue.
func blueFrame(t *testing.T, w, h int) *gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	m.SetTo(gocv.NewScalar(255, 0, 0, 0))
	t.Cleanup(func() { m.Close() })
	return &m
}

func TestMediaPipeDetector_Detect(t *testing.T) {
	d := startHelper(t, "echo", DefaultConfig())

	hands, err := d.Detect(blueFrame(t, 8, 6))
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}

	t.Run("truncates to max hands", func(t *testing.T) {
		if len(hands) != 2 {
			t.Errorf("len(hands) = %d, want 2", len(hands))
		}
	})

	t.Run("sends RGB pixels", func(t *testing.T) {
		if hands[0].Handedness != "rgb" {
			t.Errorf("sidecar saw %s channel order, want rgb", hands[0].Handedness)
		}
	})

	t.Run("header carries frame size", func(t *testing.T) {
		if hands[0].Score != 8006 {
			t.Errorf("sidecar saw size code %v, want 8006", hands[0].Score)
		}
	})

	t.Run("landmarks decoded", func(t *testing.T) {
		pos := hands[0].Positions(8, 6)
		if pos[IndexTip].X != 4 || pos[IndexTip].Y != 1 {
			t.Errorf("IndexTip = %+v, want (4,1)", pos[IndexTip])
		}
	})

	t.Run("sidecar is reused across frames", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			if _, err := d.Detect(blueFrame(t, 4, 4)); err != nil {
				t.Fatalf("Detect() frame %d error = %v", i, err)
			}
		}
	})
}

func TestMediaPipeDetector_NoHands(t *testing.T) {
	d := startHelper(t, "empty", DefaultConfig())

	hands, err := d.Detect(blueFrame(t, 4, 4))
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(hands) != 0 {
		t.Errorf("len(hands) = %d, want 0", len(hands))
	}
}

func TestMediaPipeDetector_ModelError(t *testing.T) {
	d := startHelper(t, "error", DefaultConfig())

	_, err := d.Detect(blueFrame(t, 4, 4))
	if err == nil || errors.Is(err, ErrDetectorClosed) {
		t.Fatalf("Detect() error = %v, want model error", err)
	}

	// The sidecar is still usable after a reported error
	if _, err := d.Detect(blueFrame(t, 4, 4)); errors.Is(err, ErrDetectorClosed) {
		t.Errorf("detector closed after model error: %v", err)
	}
}

func TestMediaPipeDetector_SidecarExit(t *testing.T) {
	d := startHelper(t, "exit", DefaultConfig())

	if _, err := d.Detect(blueFrame(t, 4, 4)); !errors.Is(err, ErrDetectorClosed) {
		t.Fatalf("Detect() error = %v, want ErrDetectorClosed", err)
	}
	if _, err := d.Detect(blueFrame(t, 4, 4)); !errors.Is(err, ErrDetectorClosed) {
		t.Errorf("second Detect() error = %v, want ErrDetectorClosed", err)
	}
}

func TestMediaPipeDetector_EmptyFrame(t *testing.T) {
	d := startHelper(t, "echo", DefaultConfig())

	empty := gocv.NewMat()
	defer empty.Close()

	if _, err := d.Detect(&empty); err == nil {
		t.Error("Detect() on empty frame should fail")
	}
	if _, err := d.Detect(nil); err == nil {
		t.Error("Detect(nil) should fail")
	}
}

func TestMediaPipeDetector_CloseTwice(t *testing.T) {
	d := startHelper(t, "echo", DefaultConfig())

	if err := d.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := d.Detect(blueFrame(t, 4, 4)); !errors.Is(err, ErrDetectorClosed) {
		t.Errorf("Detect() after Close error = %v, want ErrDetectorClosed", err)
	}
}

func TestNewMediaPipeDetector_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxHands = 0

	if _, err := NewMediaPipeDetector(cfg); err == nil {
		t.Error("NewMediaPipeDetector() should reject an invalid config")
	}
}

func TestNewMediaPipeDetector_MissingScript(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	if _, err := NewMediaPipeDetector(DefaultConfig()); err == nil {
		t.Error("NewMediaPipeDetector() should fail without the sidecar script")
	}
}

func TestSidecarArgs(t *testing.T) {
	cfg := Config{StaticImageMode: true, MaxHands: 1, MinDetectionConf: 0.7, MinTrackingConf: 0.25}

	want := []string{
		"--max-hands", "1",
		"--min-detection-confidence", "0.7",
		"--min-tracking-confidence", "0.25",
		"--static-image-mode",
	}
	if got := sidecarArgs(cfg); !reflect.DeepEqual(got, want) {
		t.Errorf("sidecarArgs() = %v, want %v", got, want)
	}
}

func TestWriteFrame(t *testing.T) {
	t.Run("header then pixels", func(t *testing.T) {
		var buf bytes.Buffer
		pixels := bytes.Repeat([]byte{1, 2, 3}, 6)

		if err := writeFrame(&buf, 3, 2, 3, pixels); err != nil {
			t.Fatalf("writeFrame() error = %v", err)
		}

		b := buf.Bytes()
		if len(b) != frameHeaderSize+len(pixels) {
			t.Fatalf("wrote %d bytes, want %d", len(b), frameHeaderSize+len(pixels))
		}
		if w := binary.BigEndian.Uint32(b[0:4]); w != 3 {
			t.Errorf("width = %d, want 3", w)
		}
		if h := binary.BigEndian.Uint32(b[4:8]); h != 2 {
			t.Errorf("height = %d, want 2", h)
		}
		if c := binary.BigEndian.Uint32(b[8:12]); c != 3 {
			t.Errorf("channels = %d, want 3", c)
		}
		if !bytes.Equal(b[frameHeaderSize:], pixels) {
			t.Error("pixel payload mismatch")
		}
	})

	t.Run("size mismatch", func(t *testing.T) {
		if err := writeFrame(io.Discard, 3, 2, 3, make([]byte, 5)); err == nil {
			t.Error("writeFrame() should reject a short payload")
		}
	})
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantHands int
		wantErr   bool
	}{
		{"no hands", `{"hands":[]}`, 0, false},
		{"missing hands", `{}`, 0, false},
		{"one hand", `{"hands":[{"points":[{"x":0.1,"y":0.2,"z":0}],"handedness":"Left","score":0.9}]}`, 1, false},
		{"model error", `{"error":"bad input"}`, 0, true},
		{"not json", `hello`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hands, err := parseResponse([]byte(tt.line))
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseResponse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(hands) != tt.wantHands {
				t.Errorf("len(hands) = %d, want %d", len(hands), tt.wantHands)
			}
		})
	}

	t.Run("short point list leaves zeros", func(t *testing.T) {
		hands, _ := parseResponse([]byte(`{"hands":[{"points":[{"x":0.1,"y":0.2,"z":0.3}],"handedness":"Left","score":0.9}]}`))
		if hands[0].Points[Wrist].Z != 0.3 || hands[0].Points[PinkyTip] != (Point3D{}) {
			t.Errorf("unexpected points: %+v", hands[0].Points)
		}
	})
}
