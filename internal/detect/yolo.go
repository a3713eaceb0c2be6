package detect

import (
	"fmt"
	"image"
	"math"

	"recicleai/internal/model"
)

// Candidate is a decoded network row before non-maximum suppression.
type Candidate struct {
	Box     image.Rectangle
	ClassID int
	Score   float32
}

// Geometry maps network input coordinates back to frame pixels.
type Geometry struct {
	InputSize   int
	FrameWidth  int
	FrameHeight int
}

func (g Geometry) scale() (float64, float64) {
	return float64(g.FrameWidth) / float64(g.InputSize), float64(g.FrameHeight) / float64(g.InputSize)
}

// DecodeYOLO decodes a YOLOv5 style output of rows
// [cx, cy, w, h, objectness, class scores...] in network input pixels.
// Rows whose objectness times best class score is below threshold are skipped,
// as are boxes that collapse after clamping to the frame.
func DecodeYOLO(data []float32, numClasses int, threshold float32, geo Geometry) ([]Candidate, error) {
	if numClasses <= 0 {
		return nil, fmt.Errorf("invalid class count %d", numClasses)
	}
	if geo.InputSize <= 0 {
		return nil, fmt.Errorf("invalid input size %d", geo.InputSize)
	}
	stride := 5 + numClasses
	if len(data)%stride != 0 {
		return nil, fmt.Errorf("output length %d is not a multiple of row size %d", len(data), stride)
	}

	sx, sy := geo.scale()
	bounds := image.Rect(0, 0, geo.FrameWidth, geo.FrameHeight)

	var candidates []Candidate
	for off := 0; off < len(data); off += stride {
		row := data[off : off+stride]

		objectness := row[4]
		if objectness < threshold {
			continue
		}

		classID, classScore := 0, row[5]
		for c := 1; c < numClasses; c++ {
			if row[5+c] > classScore {
				classID, classScore = c, row[5+c]
			}
		}

		score := objectness * classScore
		if score < threshold {
			continue
		}

		cx, cy, w, h := float64(row[0]), float64(row[1]), float64(row[2]), float64(row[3])
		box := image.Rect(
			int(math.Round((cx-w/2)*sx)),
			int(math.Round((cy-h/2)*sy)),
			int(math.Round((cx+w/2)*sx)),
			int(math.Round((cy+h/2)*sy)),
		).Intersect(bounds)
		if box.Empty() {
			continue
		}

		candidates = append(candidates, Candidate{Box: box, ClassID: classID, Score: score})
	}
	return candidates, nil
}

// Detections converts kept candidates into detections in the order given by
// keep. Unknown class ids are named CLASS<n>.
func Detections(candidates []Candidate, keep []int, names []model.Label) []model.Detection {
	detections := make([]model.Detection, 0, len(keep))
	for _, idx := range keep {
		if idx < 0 || idx >= len(candidates) {
			continue
		}
		c := candidates[idx]

		label := model.Label(fmt.Sprintf("CLASS%d", c.ClassID))
		if c.ClassID < len(names) {
			label = names[c.ClassID]
		}

		detections = append(detections, model.Detection{
			Box:        c.Box,
			Label:      label,
			Confidence: float64(c.Score),
		})
	}
	return detections
}
