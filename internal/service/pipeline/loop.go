// Package pipeline runs the perception loop: frame in, detection, debounce,
// actuation on confirmation.
package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"recicleai/internal/logger"
	"recicleai/internal/model"
	"recicleai/internal/service/debounce"
)

// Frame is an image owned by the loop until it calls Close.
type Frame interface {
	Close() error
}

// FrameSource delivers frames at sensor pace. Read returns model.ErrEndOfStream
// when capture is over and model.ErrFrameTimeout when a frame is late.
type FrameSource[F Frame] interface {
	Read(ctx context.Context) (F, error)
}

// Detector runs inference on a frame and honors ctx as its deadline.
type Detector[F Frame] interface {
	Infer(ctx context.Context, frame F) (model.Inference, error)
}

// Renderer draws overlays, encodes snapshots and shows the frame.
type Renderer[F Frame] interface {
	Draw(frame F, inference model.Inference) error
	Snapshot(frame F) ([]byte, error)
	// Show displays the frame and reports whether the user asked to quit.
	Show(frame F) bool
}

// Sender delivers confirmed labels to the actuator.
type Sender interface {
	Send(message string) error
	Connected() bool
}

// Observer receives loop events. Calls happen on the loop goroutine and must
// return quickly.
type Observer interface {
	OnConfirmation(c model.Confirmation, snapshot []byte)
	OnFrame(seq uint64, inference model.Inference, snapshot []byte)
}

// Options tune the loop.
type Options struct {
	SessionID        string
	HoldDuration     time.Duration
	InferenceTimeout time.Duration // 0 disables the deadline
	ConfirmNone      bool          // send NONE confirmations to the actuator
	StreamEveryNth   int           // 0 disables OnFrame
}

// Stats are loop counters.
type Stats struct {
	Frames             uint64      `json:"frames"`
	SkippedReads       uint64      `json:"skipped_reads"`
	SkippedInferences  uint64      `json:"skipped_inferences"`
	Confirmations      uint64      `json:"confirmations"`
	Sends              uint64      `json:"sends"`
	SendFailures       uint64      `json:"send_failures"`
	SuppressedSends    uint64      `json:"suppressed_sends"`
	LastLabel          model.Label `json:"last_label"`
	LastConfirmedLabel model.Label `json:"last_confirmed_label"`
}

// Loop is the perception loop. It is driven by a single goroutine via Run.
type Loop[F Frame] struct {
	source    FrameSource[F]
	detector  Detector[F]
	renderer  Renderer[F]
	sender    Sender
	observers []Observer
	debouncer *debounce.Debouncer
	opts      Options
	now       func() time.Time
	logger    *logger.Logger

	frames            uint64
	skippedReads      uint64
	skippedInferences uint64
	confirmations     uint64
	sends             uint64
	sendFailures      uint64
	suppressedSends   uint64
	lastLabel         atomic.Value
	lastConfirmed     atomic.Value
}

// New creates a loop. renderer may be nil for headless operation.
func New[F Frame](source FrameSource[F], detector Detector[F], renderer Renderer[F], sender Sender, opts Options, logger *logger.Logger, observers ...Observer) *Loop[F] {
	return &Loop[F]{
		source:    source,
		detector:  detector,
		renderer:  renderer,
		sender:    sender,
		observers: observers,
		debouncer: debounce.New(opts.HoldDuration),
		opts:      opts,
		now:       time.Now,
		logger:    logger,
	}
}

// Run processes frames until end of stream, a quit request or ctx
// cancellation. None of these is an error.
func (l *Loop[F]) Run(ctx context.Context) error {
	l.logger.Info("🎥 Detection started (hold %s)", l.debouncer.Hold())
	defer func() {
		s := l.Stats()
		l.logger.Info("🛑 Detection stopped: %d frames, %d confirmations, %d sent, %d skipped",
			s.Frames, s.Confirmations, s.Sends, s.SkippedReads+s.SkippedInferences)
	}()

	for {
		if ctx.Err() != nil {
			l.logger.Info("Stop requested")
			return nil
		}

		frame, err := l.source.Read(ctx)
		if err != nil {
			switch {
			case errors.Is(err, model.ErrFrameTimeout):
				atomic.AddUint64(&l.skippedReads, 1)
				l.logger.Warning("Skipping frame: %v", err)
				continue
			case ctx.Err() != nil:
				l.logger.Info("Stop requested")
				return nil
			case errors.Is(err, model.ErrEndOfStream):
				l.logger.Info("Frame stream ended")
				return nil
			default:
				l.logger.Warning("Frame read failed, treating as end of stream: %v", err)
				return nil
			}
		}

		quit := l.processFrame(ctx, frame)
		frame.Close()

		if quit {
			l.logger.Info("Quit requested by user")
			return nil
		}
	}
}

// processFrame runs one iteration and reports whether the user asked to quit.
func (l *Loop[F]) processFrame(ctx context.Context, frame F) bool {
	seq := atomic.AddUint64(&l.frames, 1)

	inference, err := l.infer(ctx, frame)
	if err != nil {
		atomic.AddUint64(&l.skippedInferences, 1)
		l.logger.Warning("Skipping frame %d: %v", seq, err)
		return l.show(frame)
	}
	l.lastLabel.Store(inference.Label)

	if l.renderer != nil {
		if err := l.renderer.Draw(frame, inference); err != nil {
			l.logger.Error("Failed to draw overlays: %v", err)
		}
	}

	now := l.now()
	if label, ok := l.debouncer.Update(inference.Label, now); ok {
		l.confirm(label, now, frame)
	}

	if l.opts.StreamEveryNth > 0 && seq%uint64(l.opts.StreamEveryNth) == 0 {
		snapshot := l.snapshot(frame)
		for _, o := range l.observers {
			o.OnFrame(seq, inference, snapshot)
		}
	}

	return l.show(frame)
}

func (l *Loop[F]) infer(ctx context.Context, frame F) (model.Inference, error) {
	if l.opts.InferenceTimeout <= 0 {
		return l.detector.Infer(ctx, frame)
	}
	ictx, cancel := context.WithTimeout(ctx, l.opts.InferenceTimeout)
	defer cancel()
	return l.detector.Infer(ictx, frame)
}

func (l *Loop[F]) confirm(label model.Label, now time.Time, frame F) {
	atomic.AddUint64(&l.confirmations, 1)
	l.lastConfirmed.Store(label)
	l.logger.Info("✔ Class confirmed after %s: %s", l.debouncer.Hold(), label)

	c := model.Confirmation{
		SessionID:   l.opts.SessionID,
		Label:       label,
		ConfirmedAt: now,
	}

	switch {
	case label.IsNone() && !l.opts.ConfirmNone:
		atomic.AddUint64(&l.suppressedSends, 1)
		l.logger.Info("Absence confirmed - actuation suppressed")
	default:
		if err := l.sender.Send(label.String()); err != nil {
			atomic.AddUint64(&l.sendFailures, 1)
			l.logger.Warning("Could not send %s: %v", label, err)
		} else if l.sender.Connected() {
			atomic.AddUint64(&l.sends, 1)
			c.Sent = true
		}
	}

	if len(l.observers) == 0 {
		return
	}
	snapshot := l.snapshot(frame)
	for _, o := range l.observers {
		o.OnConfirmation(c, snapshot)
	}
}

func (l *Loop[F]) snapshot(frame F) []byte {
	if l.renderer == nil {
		return nil
	}
	data, err := l.renderer.Snapshot(frame)
	if err != nil {
		l.logger.Error("Failed to encode snapshot: %v", err)
		return nil
	}
	return data
}

func (l *Loop[F]) show(frame F) bool {
	if l.renderer == nil {
		return false
	}
	return l.renderer.Show(frame)
}

// Stats returns a snapshot of the loop counters. Safe to call from any goroutine.
func (l *Loop[F]) Stats() Stats {
	s := Stats{
		Frames:            atomic.LoadUint64(&l.frames),
		SkippedReads:      atomic.LoadUint64(&l.skippedReads),
		SkippedInferences: atomic.LoadUint64(&l.skippedInferences),
		Confirmations:     atomic.LoadUint64(&l.confirmations),
		Sends:             atomic.LoadUint64(&l.sends),
		SendFailures:      atomic.LoadUint64(&l.sendFailures),
		SuppressedSends:   atomic.LoadUint64(&l.suppressedSends),
	}
	if v, ok := l.lastLabel.Load().(model.Label); ok {
		s.LastLabel = v
	}
	if v, ok := l.lastConfirmed.Load().(model.Label); ok {
		s.LastConfirmedLabel = v
	}
	return s
}
