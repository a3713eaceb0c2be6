package vision

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"

	"recicleai/internal/logger"
	"recicleai/internal/model"
)

// CameraSource captures frames on its own goroutine into a single slot.
// For live devices a new frame replaces an unconsumed one, so the loop always
// sees the most recent image. For files every frame is kept.
type CameraSource struct {
	capture   *gocv.VideoCapture
	name      string
	live      bool
	timeout   time.Duration
	logger    *logger.Logger
	slot      chan *Frame
	ended     chan struct{}
	stop      chan struct{}
	closeOnce sync.Once
	seq       uint64
	drops     uint64
}

// OpenCamera opens a device index ("0") or a file/URL. It fails when the
// source cannot be opened, which aborts startup.
func OpenCamera(source string, timeout time.Duration, logger *logger.Logger) (*CameraSource, error) {
	var (
		capture *gocv.VideoCapture
		err     error
		live    bool
	)

	if idx, convErr := strconv.Atoi(source); convErr == nil && idx >= 0 {
		capture, err = gocv.OpenVideoCapture(idx)
		live = true
	} else {
		capture, err = gocv.OpenVideoCapture(source)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open frame source %s: %w", source, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("frame source %s is not available", source)
	}

	s := &CameraSource{
		capture: capture,
		name:    source,
		live:    live,
		timeout: timeout,
		logger:  logger,
		slot:    make(chan *Frame, 1),
		ended:   make(chan struct{}),
		stop:    make(chan struct{}),
	}
	go s.captureLoop()

	logger.Info("📷 Frame source %s opened (live=%v)", source, live)
	return s, nil
}

// Read waits for the next frame. It returns model.ErrEndOfStream once capture
// has stopped and model.ErrFrameTimeout when no frame arrives in time.
func (s *CameraSource) Read(ctx context.Context) (*Frame, error) {
	var timeout <-chan time.Time
	if s.timeout > 0 {
		timer := time.NewTimer(s.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case frame := <-s.slot:
		return frame, nil
	case <-s.ended:
		select {
		case frame := <-s.slot:
			return frame, nil
		default:
			return nil, model.ErrEndOfStream
		}
	case <-timeout:
		return nil, fmt.Errorf("%w after %s", model.ErrFrameTimeout, s.timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Drops returns how many stale frames were replaced before being read.
func (s *CameraSource) Drops() uint64 {
	return atomic.LoadUint64(&s.drops)
}

// Close stops capturing and releases the device.
func (s *CameraSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.ended

		for {
			select {
			case frame := <-s.slot:
				frame.Close()
				continue
			default:
			}
			break
		}

		err = s.capture.Close()
		s.logger.Info("Frame source %s released (%d stale frames dropped)", s.name, s.Drops())
	})
	return err
}

func (s *CameraSource) captureLoop() {
	defer close(s.ended)

	for {
		select {
		case <-s.stop:
			return
		default:
		}

		mat := gocv.NewMat()
		if ok := s.capture.Read(&mat); !ok || mat.Empty() {
			mat.Close()
			s.logger.Info("Frame source %s returned no more frames", s.name)
			return
		}

		frame := &Frame{
			Mat:        mat,
			Seq:        atomic.AddUint64(&s.seq, 1),
			CapturedAt: time.Now(),
		}
		if !s.publish(frame) {
			frame.Close()
			return
		}
	}
}

// publish hands a frame to the slot. Live sources evict the stale frame, file
// sources wait for the consumer. It returns false when stopping.
func (s *CameraSource) publish(frame *Frame) bool {
	if !s.live {
		select {
		case s.slot <- frame:
			return true
		case <-s.stop:
			return false
		}
	}

	select {
	case s.slot <- frame:
		return true
	default:
	}

	select {
	case stale := <-s.slot:
		stale.Close()
		atomic.AddUint64(&s.drops, 1)
	default:
	}
	s.slot <- frame
	return true
}
