package model

import "image"

// Detection represents one object recognized in a frame.
type Detection struct {
	Box        image.Rectangle `json:"box"`
	Label      Label           `json:"label"`
	Confidence float64         `json:"confidence"`
}

// Inference is the per-frame result of the detector: the dominant label and
// every detection in model output order.
type Inference struct {
	Label      Label       `json:"label"`
	Detections []Detection `json:"detections"`
}

// Empty reports whether nothing was detected in the frame.
func (i Inference) Empty() bool {
	return len(i.Detections) == 0
}
