package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"

	"github.com/ayusman/handtrack/internal/log"
	"github.com/ayusman/handtrack/internal/tracker"
)

// FrameHub keeps the latest annotated frame as JPEG and serves it as MJPEG.
// It is a tracker.FrameSink; frames are only encoded while a viewer is
// connected.
type FrameHub struct {
	mu      sync.Mutex
	jpeg    []byte
	seq     int64
	updated chan struct{}
	viewers atomic.Int32
}

// NewFrameHub creates an empty FrameHub.
func NewFrameHub() *FrameHub {
	return &FrameHub{seq: -1, updated: make(chan struct{})}
}

// Publish implements tracker.Sink. Results are carried by LandmarkHub.
func (h *FrameHub) Publish(tracker.FrameResult) {}

// PublishFrame implements tracker.FrameSink.
func (h *FrameHub) PublishFrame(img *gocv.Mat) {
	if h.viewers.Load() == 0 || img == nil || img.Empty() {
		return
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *img)
	if err != nil {
		log.Debug("jpeg encode failed", "err", err)
		return
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	h.mu.Lock()
	h.jpeg = data
	h.seq++
	close(h.updated)
	h.updated = make(chan struct{})
	h.mu.Unlock()
}

// Latest returns the most recent JPEG and its sequence number, or -1 if no
// frame has been encoded yet.
func (h *FrameHub) Latest() ([]byte, int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.jpeg, h.seq
}

// Next blocks until a frame newer than after is available or ctx is done.
func (h *FrameHub) Next(ctx context.Context, after int64) ([]byte, int64, error) {
	for {
		h.mu.Lock()
		if h.seq > after {
			data, seq := h.jpeg, h.seq
			h.mu.Unlock()
			return data, seq, nil
		}
		updated := h.updated
		h.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, after, ctx.Err()
		case <-updated:
		}
	}
}

// Viewers reports how many MJPEG clients are connected.
func (h *FrameHub) Viewers() int {
	return int(h.viewers.Load())
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *FrameHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.viewers.Add(1)
	defer h.viewers.Add(-1)

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	_, seq := h.Latest()
	if seq >= 0 {
		seq--
	}
	for {
		data, next, err := h.Next(r.Context(), seq)
		if err != nil {
			return
		}
		seq = next

		if err := writePart(w, data); err != nil {
			log.Debug("mjpeg client gone", "err", err)
			return
		}
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

// writePart writes one JPEG as a multipart section.
func writePart(w http.ResponseWriter, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	_, err := fmt.Fprint(w, "\r\n")
	return err
}
