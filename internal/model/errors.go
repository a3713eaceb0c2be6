package model

import "errors"

var (
	// ErrEndOfStream is returned by a frame source once no more frames can be read.
	ErrEndOfStream = errors.New("end of frame stream")
	// ErrFrameTimeout is returned when no frame arrived within the read timeout.
	ErrFrameTimeout = errors.New("frame read timed out")
	// ErrInferenceTimeout is returned when a forward pass exceeds its deadline.
	ErrInferenceTimeout = errors.New("inference timed out")
	// ErrDetectorBusy is returned while a timed-out forward pass is still running.
	ErrDetectorBusy = errors.New("detector busy with a stalled frame")
)
