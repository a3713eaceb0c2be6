package detect

import (
	"image"
	"testing"

	"recicleai/internal/model"
)

func det(label model.Label, conf float64) model.Detection {
	return model.Detection{Box: image.Rect(10, 10, 50, 50), Label: label, Confidence: conf}
}

func TestLastDetection_OrderNotConfidence(t *testing.T) {
	tests := []struct {
		name       string
		detections []model.Detection
		expected   model.Label
	}{
		{"empty", nil, model.None},
		{"single", []model.Detection{det("PAPER", 0.4)}, "PAPER"},
		{"last wins over more confident", []model.Detection{det("A", 0.95), det("B", 0.30)}, "B"},
		{"last wins when less confident first", []model.Detection{det("A", 0.30), det("B", 0.95)}, "B"},
		{"same label", []model.Detection{det("A", 0.90), det("A", 0.20)}, "A"},
		{"three classes", []model.Detection{det("A", 0.9), det("B", 0.8), det("C", 0.1)}, "C"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LastDetection(tt.detections); got != tt.expected {
				t.Errorf("LastDetection() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestMostConfident(t *testing.T) {
	tests := []struct {
		detections []model.Detection
		expected   model.Label
	}{
		{nil, model.None},
		{[]model.Detection{det("A", 0.95), det("B", 0.30)}, "A"},
		{[]model.Detection{det("A", 0.30), det("B", 0.95)}, "B"},
		{[]model.Detection{det("A", 0.50), det("B", 0.50)}, "A"},
	}

	for _, tt := range tests {
		if got := MostConfident(tt.detections); got != tt.expected {
			t.Errorf("MostConfident(%v) = %q, expected %q", tt.detections, got, tt.expected)
		}
	}
}

func TestSingleClass(t *testing.T) {
	tests := []struct {
		detections []model.Detection
		expected   model.Label
	}{
		{nil, model.None},
		{[]model.Detection{det("A", 0.9), det("A", 0.2)}, "A"},
		{[]model.Detection{det("A", 0.9), det("B", 0.2)}, model.None},
	}

	for _, tt := range tests {
		if got := SingleClass(tt.detections); got != tt.expected {
			t.Errorf("SingleClass(%v) = %q, expected %q", tt.detections, got, tt.expected)
		}
	}
}

func TestPolicyByName(t *testing.T) {
	for _, name := range []string{"", "last", "confident", "single"} {
		if _, err := PolicyByName(name); err != nil {
			t.Errorf("PolicyByName(%q) failed: %v", name, err)
		}
	}
	if _, err := PolicyByName("loudest"); err == nil {
		t.Error("Expected error for unknown policy")
	}
}

func TestSummarize(t *testing.T) {
	inf := Summarize([]model.Detection{det("A", 0.9), det("B", 0.1)}, nil)
	if inf.Label != "B" || len(inf.Detections) != 2 {
		t.Errorf("Unexpected inference: %+v", inf)
	}

	empty := Summarize(nil, MostConfident)
	if empty.Label != model.None || !empty.Empty() {
		t.Errorf("Expected NONE for empty frame, got %+v", empty)
	}
}

func TestDecodeYOLO(t *testing.T) {
	// Two classes, 100x100 network input, 200x100 frame.
	data := []float32{
		// kept: class 1, score 0.9*0.8
		50, 50, 20, 20, 0.9, 0.1, 0.8,
		// objectness below threshold
		10, 10, 4, 4, 0.2, 0.9, 0.1,
		// class score drags total below threshold
		30, 30, 10, 10, 0.6, 0.5, 0.4,
		// partly outside the frame, clamped
		95, 5, 20, 20, 0.99, 0.99, 0.01,
	}
	geo := Geometry{InputSize: 100, FrameWidth: 200, FrameHeight: 100}

	candidates, err := DecodeYOLO(data, 2, 0.5, geo)
	if err != nil {
		t.Fatalf("DecodeYOLO failed: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("Expected 2 candidates, got %d: %+v", len(candidates), candidates)
	}

	first := candidates[0]
	if first.ClassID != 1 {
		t.Errorf("Expected class 1, got %d", first.ClassID)
	}
	if want := image.Rect(80, 40, 120, 60); first.Box != want {
		t.Errorf("Expected box %v, got %v", want, first.Box)
	}

	second := candidates[1]
	if want := image.Rect(170, 0, 200, 15); second.Box != want {
		t.Errorf("Expected clamped box %v, got %v", want, second.Box)
	}
}

func TestDecodeYOLO_InvalidShape(t *testing.T) {
	geo := Geometry{InputSize: 640, FrameWidth: 640, FrameHeight: 480}
	if _, err := DecodeYOLO(make([]float32, 8), 2, 0.5, geo); err == nil {
		t.Error("Expected error for truncated output")
	}
	if _, err := DecodeYOLO(nil, 0, 0.5, geo); err == nil {
		t.Error("Expected error for zero classes")
	}
}

func TestDetections_KeepOrderAndNames(t *testing.T) {
	candidates := []Candidate{
		{Box: image.Rect(0, 0, 10, 10), ClassID: 0, Score: 0.9},
		{Box: image.Rect(5, 5, 20, 20), ClassID: 1, Score: 0.7},
		{Box: image.Rect(1, 1, 2, 2), ClassID: 7, Score: 0.6},
	}
	names := []model.Label{"PLASTIC", "PAPER"}

	detections := Detections(candidates, []int{1, 0, 2, 9}, names)

	expected := []model.Label{"PAPER", "PLASTIC", "CLASS7"}
	if len(detections) != len(expected) {
		t.Fatalf("Expected %d detections, got %d", len(expected), len(detections))
	}
	for i, d := range detections {
		if d.Label != expected[i] {
			t.Errorf("detections[%d] = %q, expected %q", i, d.Label, expected[i])
		}
	}
	if LastDetection(detections) != "CLASS7" {
		t.Errorf("Expected order from keep to drive the dominant label")
	}
}
