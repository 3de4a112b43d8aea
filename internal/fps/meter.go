// Package fps measures frame rate from the time between consecutive frames.
package fps

import "time"

// Meter reports instantaneous frames per second as 1 / (now - previous).
// It is not safe for concurrent use; the capture loop owns it.
type Meter struct {
	alpha  float64
	first  time.Time
	prev   time.Time
	last   float64
	frames int
}

// NewMeter returns a Meter. An alpha in (0,1) applies exponential smoothing
// to the readout; any other value reports the raw per-frame rate.
func NewMeter(alpha float64) *Meter {
	return &Meter{alpha: alpha}
}

// Tick records a frame at now and returns the current rate. The first tick
// has no previous frame and returns 0. A tick that does not advance the clock
// returns the previous reading.
func (m *Meter) Tick(now time.Time) float64 {
	m.frames++

	if m.prev.IsZero() {
		m.first = now
		m.prev = now
		return 0
	}

	delta := now.Sub(m.prev)
	if delta <= 0 {
		return m.last
	}
	m.prev = now

	raw := 1 / delta.Seconds()
	if m.last == 0 || m.alpha <= 0 || m.alpha >= 1 {
		m.last = raw
	} else {
		m.last = m.alpha*raw + (1-m.alpha)*m.last
	}
	return m.last
}

// Frames returns the number of ticks recorded.
func (m *Meter) Frames() int {
	return m.frames
}

// Average returns the mean rate between the first and latest frame.
func (m *Meter) Average() float64 {
	elapsed := m.prev.Sub(m.first)
	if m.frames < 2 || elapsed <= 0 {
		return 0
	}
	return float64(m.frames-1) / elapsed.Seconds()
}

// Reset forgets all recorded frames.
func (m *Meter) Reset() {
	*m = Meter{alpha: m.alpha}
}
