// Package overlay draws hand landmarks and the frame rate onto video frames.
// All drawing happens in place on the BGR frame.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/handtrack/internal/detector"
)

// NoHighlight disables the highlighted landmark.
const NoHighlight = -1

var (
	Red     = color.RGBA{R: 255, A: 255}
	Green   = color.RGBA{G: 255, A: 255}
	Blue    = color.RGBA{B: 255, A: 255}
	Magenta = color.RGBA{R: 255, B: 255, A: 255}
	White   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Style describes how landmarks and the FPS readout are rendered.
// A zero radius or thickness disables that element.
type Style struct {
	// Skeleton edges between landmarks.
	LineColor     color.RGBA
	LineThickness int

	// Small joint dots drawn on every landmark of every hand.
	JointColor  color.RGBA
	JointRadius int

	// Filled position circles. Only the first hand gets them unless AllHands.
	PointColor  color.RGBA
	PointRadius int
	AllHands    bool

	// One landmark emphasised on every hand, or NoHighlight.
	Highlight       int
	HighlightColor  color.RGBA
	HighlightRadius int

	FPSLabel     string // printf format taking the integer rate
	FPSOrigin    image.Point
	FPSFont      gocv.HersheyFont
	FPSScale     float64
	FPSColor     color.RGBA
	FPSThickness int
}

// ModuleStyle mirrors the reusable detector module: white skeleton with red
// joints, blue position circles on the first hand, "FPS : N" in green italics.
func ModuleStyle() Style {
	return Style{
		LineColor:     White,
		LineThickness: 2,
		JointColor:    Red,
		JointRadius:   2,
		PointColor:    Blue,
		PointRadius:   7,
		Highlight:     NoHighlight,
		FPSLabel:      "FPS : %d",
		FPSOrigin:     image.Pt(40, 70),
		FPSFont:       gocv.FontItalic,
		FPSScale:      1,
		FPSColor:      Green,
		FPSThickness:  3,
	}
}

// TrackerStyle mirrors the standalone tracker: large magenta circles on every
// hand, the thumb tip emphasised, and a bare magenta rate in the corner.
func TrackerStyle() Style {
	return Style{
		LineColor:       White,
		LineThickness:   2,
		JointColor:      Red,
		JointRadius:     2,
		PointColor:      Magenta,
		PointRadius:     15,
		AllHands:        true,
		Highlight:       detector.ThumbTip,
		HighlightColor:  Green,
		HighlightRadius: 25,
		FPSLabel:        "%d",
		FPSOrigin:       image.Pt(10, 70),
		FPSFont:         gocv.FontHersheyComplex,
		FPSScale:        3,
		FPSColor:        Magenta,
		FPSThickness:    3,
	}
}

// StyleByName returns the preset for "module" or "tracker".
func StyleByName(name string) (Style, error) {
	switch name {
	case "module":
		return ModuleStyle(), nil
	case "tracker":
		return TrackerStyle(), nil
	default:
		return Style{}, fmt.Errorf("unknown overlay style %q", name)
	}
}

// DrawHands renders every hand: skeleton, joints, position circles and the
// highlight, in that order so later elements sit on top.
func DrawHands(img *gocv.Mat, hands [][]detector.Position, s Style) {
	for i, pos := range hands {
		DrawSkeleton(img, pos, s)
		DrawJoints(img, pos, s)
		if i == 0 || s.AllHands {
			DrawPoints(img, pos, s)
		}
		DrawHighlight(img, pos, s)
	}
}

// DrawSkeleton draws the hand connections. Landmarks missing from pos are skipped.
func DrawSkeleton(img *gocv.Mat, pos []detector.Position, s Style) {
	if s.LineThickness <= 0 {
		return
	}
	for _, c := range detector.Connections {
		if c[0] >= len(pos) || c[1] >= len(pos) {
			continue
		}
		gocv.Line(img, point(pos[c[0]]), point(pos[c[1]]), s.LineColor, s.LineThickness)
	}
}

// DrawJoints draws the small landmark dots.
func DrawJoints(img *gocv.Mat, pos []detector.Position, s Style) {
	if s.JointRadius <= 0 {
		return
	}
	for _, p := range pos {
		gocv.Circle(img, point(p), s.JointRadius, s.JointColor, -1)
	}
}

// DrawPoints draws a filled circle on each landmark.
func DrawPoints(img *gocv.Mat, pos []detector.Position, s Style) {
	if s.PointRadius <= 0 {
		return
	}
	for _, p := range pos {
		gocv.Circle(img, point(p), s.PointRadius, s.PointColor, -1)
	}
}

// DrawHighlight emphasises the style's highlighted landmark, if present.
func DrawHighlight(img *gocv.Mat, pos []detector.Position, s Style) {
	if s.Highlight < 0 || s.Highlight >= len(pos) || s.HighlightRadius <= 0 {
		return
	}
	gocv.Circle(img, point(pos[s.Highlight]), s.HighlightRadius, s.HighlightColor, -1)
}

// DrawFPS writes the integer-truncated rate.
func DrawFPS(img *gocv.Mat, fps float64, s Style) {
	if s.FPSThickness <= 0 || s.FPSLabel == "" {
		return
	}
	gocv.PutText(img, FPSText(fps, s), s.FPSOrigin, s.FPSFont, s.FPSScale, s.FPSColor, s.FPSThickness)
}

// FPSText formats the rate the way DrawFPS renders it.
func FPSText(fps float64, s Style) string {
	return fmt.Sprintf(s.FPSLabel, int(fps))
}

func point(p detector.Position) image.Point {
	return image.Pt(p.X, p.Y)
}
