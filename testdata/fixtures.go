// Package testdata builds synthetic camera frames for tests that run without
// a webcam.
package testdata

import (
	"gocv.io/x/gocv"
)

// Frame returns a width x height BGR frame with a horizontal gradient whose
// hue shifts with seed, so consecutive frames differ.
func Frame(width, height, seed int) *gocv.Mat {
	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), height, width, gocv.MatTypeCV8UC3)
	for x := 0; x < width; x++ {
		v := uint8((x*255/max(width-1, 1) + seed*16) % 256)
		for y := 0; y < height; y++ {
			mat.SetUCharAt3(y, x, 0, v)
			mat.SetUCharAt3(y, x, 1, 255-v)
			mat.SetUCharAt3(y, x, 2, uint8(seed*32))
		}
	}
	return &mat
}

// Sequence returns n frames built by Frame with seeds 0..n-1.
func Sequence(n, width, height int) []*gocv.Mat {
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		frames[i] = Frame(width, height, i)
	}
	return frames
}

// CloseAll releases every frame.
func CloseAll(frames []*gocv.Mat) {
	for _, f := range frames {
		if f != nil {
			f.Close()
		}
	}
}
