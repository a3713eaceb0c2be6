// Package detect holds the OpenCV-free part of object detection: decoding raw
// network output and choosing the label that represents a frame.
package detect

import (
	"fmt"

	"recicleai/internal/model"
)

// Policy picks the dominant label of a frame from its detections, given in
// model output order. It must return model.None for an empty slice.
type Policy func(detections []model.Detection) model.Label

// LastDetection returns the label of the last detection in output order,
// regardless of confidence. This is the historical behavior of the sorter.
func LastDetection(detections []model.Detection) model.Label {
	if len(detections) == 0 {
		return model.None
	}
	return detections[len(detections)-1].Label
}

// MostConfident returns the label of the highest-confidence detection. Ties go
// to the earlier detection.
func MostConfident(detections []model.Detection) model.Label {
	if len(detections) == 0 {
		return model.None
	}
	best := detections[0]
	for _, d := range detections[1:] {
		if d.Confidence > best.Confidence {
			best = d
		}
	}
	return best.Label
}

// SingleClass returns the shared label when every detection has the same
// class, and NONE when the frame is ambiguous.
func SingleClass(detections []model.Detection) model.Label {
	if len(detections) == 0 {
		return model.None
	}
	label := detections[0].Label
	for _, d := range detections[1:] {
		if d.Label != label {
			return model.None
		}
	}
	return label
}

// PolicyByName resolves a configured policy name.
func PolicyByName(name string) (Policy, error) {
	switch name {
	case "", "last":
		return LastDetection, nil
	case "confident":
		return MostConfident, nil
	case "single":
		return SingleClass, nil
	default:
		return nil, fmt.Errorf("unknown dominant label policy %q", name)
	}
}

// Summarize builds the per-frame inference from detections.
func Summarize(detections []model.Detection, policy Policy) model.Inference {
	if policy == nil {
		policy = LastDetection
	}
	return model.Inference{
		Label:      policy(detections),
		Detections: detections,
	}
}
