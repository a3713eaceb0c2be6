// Package monitor drains unsolicited lines from the microcontroller and hands
// them to observers without ever holding up the serial reader.
package monitor

import (
	"context"
	"sync/atomic"
	"time"

	"recicleai/internal/logger"
	"recicleai/internal/model"
)

const defaultBufferSize = 64

// Sink observes inbound messages. Sinks run on the monitor's delivery
// goroutine and may be slow.
type Sink interface {
	HandleInbound(msg model.InboundMessage)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(msg model.InboundMessage)

func (f SinkFunc) HandleInbound(msg model.InboundMessage) {
	f(msg)
}

// Stats are counters for the monitor.
type Stats struct {
	Received  uint64 `json:"received"`
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped"`
}

// InboundMonitor pulls lines from a source stream into a bounded buffer and
// delivers them to sinks. When sinks fall behind the oldest buffered message
// is dropped.
type InboundMonitor struct {
	source    <-chan string
	sinks     []Sink
	queue     chan model.InboundMessage
	sessionID string
	now       func() time.Time
	logger    *logger.Logger

	stop        chan struct{}
	stopped     int32
	pumpDone    chan struct{}
	deliverDone chan struct{}

	received  uint64
	delivered uint64
	dropped   uint64
}

// New creates a monitor over source. bufferSize bounds the number of
// undelivered messages.
func New(source <-chan string, bufferSize int, sessionID string, logger *logger.Logger, sinks ...Sink) *InboundMonitor {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &InboundMonitor{
		source:      source,
		sinks:       sinks,
		queue:       make(chan model.InboundMessage, bufferSize),
		sessionID:   sessionID,
		now:         time.Now,
		logger:      logger,
		stop:        make(chan struct{}),
		pumpDone:    make(chan struct{}),
		deliverDone: make(chan struct{}),
	}
}

// Start launches the pump and delivery goroutines.
func (m *InboundMonitor) Start() {
	go m.pump()
	go m.deliver()
	m.logger.Info("📟 Inbound monitor started")
}

// Stop signals the monitor to stop reading and waits until buffered messages
// are delivered or ctx expires.
func (m *InboundMonitor) Stop(ctx context.Context) error {
	if atomic.CompareAndSwapInt32(&m.stopped, 0, 1) {
		close(m.stop)
	}

	select {
	case <-m.deliverDone:
		return nil
	case <-ctx.Done():
		m.logger.Warning("Inbound monitor did not drain in time: %v", ctx.Err())
		return ctx.Err()
	}
}

// Done is closed once the monitor has delivered its last message.
func (m *InboundMonitor) Done() <-chan struct{} {
	return m.deliverDone
}

// Stats returns a snapshot of the monitor counters.
func (m *InboundMonitor) Stats() Stats {
	return Stats{
		Received:  atomic.LoadUint64(&m.received),
		Delivered: atomic.LoadUint64(&m.delivered),
		Dropped:   atomic.LoadUint64(&m.dropped),
	}
}

func (m *InboundMonitor) pump() {
	defer close(m.pumpDone)
	defer close(m.queue)

	for {
		select {
		case <-m.stop:
			m.logger.Info("Inbound monitor stopping on request")
			return
		case line, ok := <-m.source:
			if !ok {
				m.logger.Info("Inbound stream ended - monitor stopping")
				return
			}
			atomic.AddUint64(&m.received, 1)
			m.enqueue(model.InboundMessage{
				SessionID:  m.sessionID,
				Text:       line,
				ReceivedAt: m.now(),
			})
		}
	}
}

// enqueue never blocks: the pump is the only sender, so after evicting the
// oldest entry there is always room.
func (m *InboundMonitor) enqueue(msg model.InboundMessage) {
	select {
	case m.queue <- msg:
		return
	default:
	}

	select {
	case old := <-m.queue:
		atomic.AddUint64(&m.dropped, 1)
		m.logger.Warning("Inbound buffer full - dropped %q", old.Text)
	default:
	}
	m.queue <- msg
}

func (m *InboundMonitor) deliver() {
	defer close(m.deliverDone)

	for msg := range m.queue {
		for _, sink := range m.sinks {
			sink.HandleInbound(msg)
		}
		atomic.AddUint64(&m.delivered, 1)
	}
}

// LogSink writes every inbound message to the logger.
func LogSink(logger *logger.Logger) Sink {
	return SinkFunc(func(msg model.InboundMessage) {
		logger.Info("[BOARD] %s", msg.Text)
	})
}
