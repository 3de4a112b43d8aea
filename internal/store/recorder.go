package store

import (
	"github.com/ayusman/handtrack/internal/log"
	"github.com/ayusman/handtrack/internal/tracker"
)

// DefaultFlushFrames is how many frames with hands a Recorder buffers.
const DefaultFlushFrames = 30

// Recorder is a tracker sink that writes every published landmark to a session.
// Frames without hands are not stored.
type Recorder struct {
	positions   *PositionRepository
	sessionID   string
	flushFrames int
	pending     []Position
	frames      int
	written     int
}

// NewRecorder returns a Recorder for sessionID. flushFrames <= 0 uses
// DefaultFlushFrames.
func NewRecorder(s *Store, sessionID string, flushFrames int) *Recorder {
	if flushFrames <= 0 {
		flushFrames = DefaultFlushFrames
	}
	return &Recorder{
		positions:   s.Positions(),
		sessionID:   sessionID,
		flushFrames: flushFrames,
	}
}

// Publish implements tracker.Sink.
func (r *Recorder) Publish(res tracker.FrameResult) {
	if len(res.Hands) == 0 {
		return
	}

	for _, h := range res.Hands {
		for _, p := range h.Positions {
			r.pending = append(r.pending, Position{
				SessionID:     r.sessionID,
				FrameSeq:      res.Seq,
				HandIndex:     h.Index,
				Handedness:    h.Handedness,
				LandmarkIndex: p.ID,
				X:             p.X,
				Y:             p.Y,
				CapturedAt:    res.Time,
			})
		}
	}

	r.frames++
	if r.frames >= r.flushFrames {
		if err := r.Flush(); err != nil {
			log.Warn("dropping buffered landmarks", "session", r.sessionID, "err", err)
		}
	}
}

// Flush writes buffered positions. Buffered positions are discarded even when
// the write fails, so one bad batch cannot grow the buffer without bound.
func (r *Recorder) Flush() error {
	if len(r.pending) == 0 {
		return nil
	}

	batch := r.pending
	r.pending = nil
	r.frames = 0

	if err := r.positions.Append(batch); err != nil {
		return err
	}
	r.written += len(batch)
	return nil
}

// Written returns how many positions have been stored.
func (r *Recorder) Written() int {
	return r.written
}

// Close flushes what is left.
func (r *Recorder) Close() error {
	return r.Flush()
}
