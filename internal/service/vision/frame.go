package vision

import (
	"time"

	"gocv.io/x/gocv"
)

// Frame is a captured image. The perception loop closes it after use.
type Frame struct {
	Mat        gocv.Mat
	Seq        uint64
	CapturedAt time.Time
}

// Close releases the underlying matrix.
func (f *Frame) Close() error {
	return f.Mat.Close()
}
