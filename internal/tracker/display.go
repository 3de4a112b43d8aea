package tracker

import (
	"gocv.io/x/gocv"
)

// Display shows frames and reports key presses.
type Display interface {
	Show(img *gocv.Mat)
	// WaitKey waits up to ms milliseconds for a key and returns its code,
	// or -1 if none was pressed.
	WaitKey(ms int) int
	IsOpen() bool
	Close() error
}

// WindowDisplay is an OpenCV HighGUI window. It must be created and used
// from the main OS thread on most platforms.
type WindowDisplay struct {
	window *gocv.Window
}

// NewWindowDisplay opens a window with the given title.
func NewWindowDisplay(name string) *WindowDisplay {
	return &WindowDisplay{window: gocv.NewWindow(name)}
}

func (d *WindowDisplay) Show(img *gocv.Mat) { d.window.IMShow(*img) }
func (d *WindowDisplay) WaitKey(ms int) int { return d.window.WaitKey(ms) }
func (d *WindowDisplay) IsOpen() bool       { return d.window.IsOpen() }
func (d *WindowDisplay) Close() error       { return d.window.Close() }

// HeadlessDisplay discards frames and never reports a key. The loop then runs
// until its context is cancelled or the camera fails.
type HeadlessDisplay struct {
	closed bool
}

// NewHeadlessDisplay returns a HeadlessDisplay.
func NewHeadlessDisplay() *HeadlessDisplay {
	return &HeadlessDisplay{}
}

func (d *HeadlessDisplay) Show(*gocv.Mat)  {}
func (d *HeadlessDisplay) WaitKey(int) int { return -1 }
func (d *HeadlessDisplay) IsOpen() bool    { return !d.closed }

func (d *HeadlessDisplay) Close() error {
	d.closed = true
	return nil
}
