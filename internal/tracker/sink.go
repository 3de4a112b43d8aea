package tracker

import (
	"fmt"
	"io"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/handtrack/internal/detector"
)

// HandResult is one detected hand in pixel coordinates.
type HandResult struct {
	Index      int                 `json:"index"`
	Handedness string              `json:"handedness"`
	Score      float64             `json:"score"`
	Positions  []detector.Position `json:"positions"`
}

// FrameResult is everything the loop learned about one frame. It is only
// valid for that frame; sinks that keep it must copy what they need.
type FrameResult struct {
	Seq    int64        `json:"seq"`
	Time   time.Time    `json:"time"`
	Width  int          `json:"width"`
	Height int          `json:"height"`
	FPS    float64      `json:"fps"`
	Hands  []HandResult `json:"hands"`
}

// Sink receives per-frame results from the loop. Publish is called on the
// loop goroutine and must not block.
type Sink interface {
	Publish(FrameResult)
}

// FrameSink additionally receives the annotated frame. The Mat is only valid
// during the call.
type FrameSink interface {
	Sink
	PublishFrame(img *gocv.Mat)
}

// Print modes for PrintSink.
const (
	PrintNone = "none"
	PrintTip  = "tip"
	PrintAll  = "all"
)

// PrintSink writes landmark positions as "id x y" lines. In PrintTip mode only
// the thumb tip of the first hand is written; in PrintAll mode every landmark
// of every hand.
type PrintSink struct {
	w    io.Writer
	mode string
}

// NewPrintSink returns a PrintSink writing to w.
func NewPrintSink(w io.Writer, mode string) *PrintSink {
	return &PrintSink{w: w, mode: mode}
}

// Publish implements Sink.
func (p *PrintSink) Publish(res FrameResult) {
	if len(res.Hands) == 0 {
		return
	}
	switch p.mode {
	case PrintTip:
		pos := res.Hands[0].Positions
		if len(pos) > detector.ThumbTip {
			tip := pos[detector.ThumbTip]
			fmt.Fprintf(p.w, "%d %d %d\n", tip.ID, tip.X, tip.Y)
		}
	case PrintAll:
		for _, h := range res.Hands {
			for _, lm := range h.Positions {
				fmt.Fprintf(p.w, "%d %d %d\n", lm.ID, lm.X, lm.Y)
			}
		}
	}
}
