package ai

import (
	"context"
	"fmt"
	"image"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"

	"recicleai/internal/config"
	"recicleai/internal/detect"
	"recicleai/internal/logger"
	"recicleai/internal/model"
	"recicleai/internal/service/vision"
)

type forwardResult struct {
	detections []model.Detection
	err        error
}

// DetectorService runs a YOLO ONNX model through the OpenCV DNN module.
// Only one forward pass runs at a time; a pass that outlives its deadline
// keeps the detector busy and later frames are skipped until it finishes.
type DetectorService struct {
	net           gocv.Net
	names         []model.Label
	inputSize     int
	confThreshold float32
	iouThreshold  float32
	policy        detect.Policy
	busy          int32
	inflight      sync.WaitGroup
	logger        *logger.Logger
}

// NewDetectorService loads the model and prepares the network for the
// configured device.
func NewDetectorService(cfg *config.Config, names []model.Label, logger *logger.Logger) (*DetectorService, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("no class names loaded")
	}

	policy, err := detect.PolicyByName(cfg.DominantPolicy)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	net := gocv.ReadNet(cfg.ModelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", cfg.ModelPath)
	}

	backend, target := gocv.NetBackendDefault, gocv.NetTargetCPU
	if strings.HasPrefix(strings.ToLower(cfg.Device), "cuda") {
		backend, target = gocv.NetBackendCUDA, gocv.NetTargetCUDA
	}
	errBackend := net.SetPreferableBackend(backend)
	errTarget := net.SetPreferableTarget(target)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend or target for device %s", cfg.Device)
	}

	logger.Info("🧠 Detection network loaded: %s (%d classes, device=%s, policy=%s)",
		cfg.ModelPath, len(names), cfg.Device, cfg.DominantPolicy)

	return &DetectorService{
		net:           net,
		names:         names,
		inputSize:     cfg.ImageSize,
		confThreshold: float32(cfg.ConfidenceThreshold),
		iouThreshold:  float32(cfg.IoUThreshold),
		policy:        policy,
		logger:        logger,
	}, nil
}

// Infer runs one forward pass on the frame. When ctx expires first the result
// is abandoned and model.ErrInferenceTimeout is returned.
func (s *DetectorService) Infer(ctx context.Context, frame *vision.Frame) (model.Inference, error) {
	if !atomic.CompareAndSwapInt32(&s.busy, 0, 1) {
		return model.Inference{}, model.ErrDetectorBusy
	}
	if err := ctx.Err(); err != nil {
		atomic.StoreInt32(&s.busy, 0)
		return model.Inference{}, err
	}
	if frame.Mat.Empty() {
		atomic.StoreInt32(&s.busy, 0)
		return model.Inference{}, fmt.Errorf("frame %d is empty", frame.Seq)
	}

	geo := detect.Geometry{
		InputSize:   s.inputSize,
		FrameWidth:  frame.Mat.Cols(),
		FrameHeight: frame.Mat.Rows(),
	}
	blob := gocv.BlobFromImage(frame.Mat, 1.0/255.0, image.Pt(s.inputSize, s.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)

	done := make(chan forwardResult, 1)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer atomic.StoreInt32(&s.busy, 0)
		defer blob.Close()

		detections, err := s.forward(blob, geo)
		done <- forwardResult{detections: detections, err: err}
	}()

	select {
	case result := <-done:
		if result.err != nil {
			return model.Inference{}, result.err
		}
		return detect.Summarize(result.detections, s.policy), nil
	case <-ctx.Done():
		return model.Inference{}, fmt.Errorf("%w: frame %d: %v", model.ErrInferenceTimeout, frame.Seq, ctx.Err())
	}
}

func (s *DetectorService) forward(blob gocv.Mat, geo detect.Geometry) ([]model.Detection, error) {
	s.net.SetInput(blob, "")

	output := s.net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read network output: %v", err)
	}

	candidates, err := detect.DecodeYOLO(data, len(s.names), s.confThreshold, geo)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	boxes := make([]image.Rectangle, len(candidates))
	scores := make([]float32, len(candidates))
	for i, c := range candidates {
		boxes[i] = c.Box
		scores[i] = c.Score
	}
	keep := gocv.NMSBoxes(boxes, scores, s.confThreshold, s.iouThreshold)

	return detect.Detections(candidates, keep, s.names), nil
}

// Close waits for an in-flight forward pass and releases the network.
func (s *DetectorService) Close() error {
	s.inflight.Wait()
	return s.net.Close()
}
