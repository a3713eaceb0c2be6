package dto

import "recicleai/internal/model"

type DetectionResult struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

// NewDetectionResults flattens detections into the wire form.
func NewDetectionResults(detections []model.Detection) []DetectionResult {
	results := make([]DetectionResult, 0, len(detections))
	for _, d := range detections {
		results = append(results, DetectionResult{
			Label:      string(d.Label),
			Confidence: d.Confidence,
			X:          d.Box.Min.X,
			Y:          d.Box.Min.Y,
			Width:      d.Box.Dx(),
			Height:     d.Box.Dy(),
		})
	}
	return results
}
