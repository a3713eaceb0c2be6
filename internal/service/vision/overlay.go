package vision

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"recicleai/internal/model"
)

const windowTitle = "RecicleAI - Realtime"

var (
	detectionColor = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	roiColor       = color.RGBA{R: 255, G: 255, B: 0, A: 0}
)

// Overlay draws detections and the ROI on frames and optionally shows them in
// a window. Pressing q in the window requests shutdown.
type Overlay struct {
	roi    image.Rectangle
	window *gocv.Window
}

// NewOverlay creates a renderer. With show=false no window is opened.
func NewOverlay(roi image.Rectangle, show bool) *Overlay {
	o := &Overlay{roi: roi}
	if show {
		o.window = gocv.NewWindow(windowTitle)
	}
	return o
}

// Draw renders the ROI and every detection box with its caption.
func (o *Overlay) Draw(frame *Frame, inference model.Inference) error {
	if !o.roi.Empty() {
		if err := gocv.Rectangle(&frame.Mat, o.roi, roiColor, 2); err != nil {
			return fmt.Errorf("failed to draw roi: %v", err)
		}
	}

	for _, detection := range inference.Detections {
		if err := gocv.Rectangle(&frame.Mat, detection.Box, detectionColor, 2); err != nil {
			return fmt.Errorf("failed to draw rectangle: %v", err)
		}

		caption := fmt.Sprintf("%s %.2f", detection.Label, detection.Confidence)
		pt := image.Pt(detection.Box.Min.X, detection.Box.Min.Y-5)
		if err := gocv.PutText(&frame.Mat, caption, pt, gocv.FontHersheySimplex, 0.7, detectionColor, 2); err != nil {
			return fmt.Errorf("failed to draw text: %v", err)
		}
	}
	return nil
}

// Snapshot encodes the frame as JPEG.
func (o *Overlay) Snapshot(frame *Frame) ([]byte, error) {
	buf, err := gocv.IMEncode(".jpg", frame.Mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %v", err)
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data, nil
}

// Show displays the frame and reports whether q was pressed.
func (o *Overlay) Show(frame *Frame) bool {
	if o.window == nil {
		return false
	}
	o.window.IMShow(frame.Mat)
	key := o.window.WaitKey(1) & 0xFF
	return key == 'q' || key == 'Q'
}

// Close destroys the window.
func (o *Overlay) Close() error {
	if o.window == nil {
		return nil
	}
	return o.window.Close()
}
