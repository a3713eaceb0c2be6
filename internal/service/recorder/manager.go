package recorder

import (
	"sync"
	"sync/atomic"
	"time"

	"recicleai/internal/dto"
	"recicleai/internal/logger"
	"recicleai/internal/model"
	"recicleai/internal/repository"
)

const defaultQueueSize = 100

// EventPublisher pushes dashboard events without blocking.
type EventPublisher interface {
	BroadcastEvent(event dto.Event) bool
}

// SnapshotStore keeps confirmation snapshots and returns their file path.
type SnapshotStore interface {
	AddImage(data []byte, label model.Label, capturedAt time.Time) (string, bool)
}

// Options wires the optional outputs. Any of them may be nil.
type Options struct {
	Confirmations repository.ConfirmationRepository
	Inbound       repository.InboundRepository
	Snapshots     SnapshotStore
	Publisher     EventPublisher
	QueueSize     int
}

// Manager records confirmations and inbound lines. Callers only enqueue;
// a single worker writes to the database and publishes events, so neither the
// perception loop nor the inbound monitor waits on storage.
type Manager struct {
	confirmations repository.ConfirmationRepository
	inbound       repository.InboundRepository
	snapshots     SnapshotStore
	publisher     EventPublisher
	logger        *logger.Logger

	queue   chan task
	mu      sync.RWMutex
	closed  bool
	dropped uint64
	wg      sync.WaitGroup
}

type task struct {
	confirmation *model.Confirmation
	inbound      *model.InboundMessage
}

func NewManager(opts Options, logger *logger.Logger) *Manager {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}

	m := &Manager{
		confirmations: opts.Confirmations,
		inbound:       opts.Inbound,
		snapshots:     opts.Snapshots,
		publisher:     opts.Publisher,
		logger:        logger,
		queue:         make(chan task, opts.QueueSize),
	}

	m.wg.Add(1)
	go m.processingWorker()

	return m
}

// OnConfirmation buffers the snapshot and queues the confirmation.
func (m *Manager) OnConfirmation(c model.Confirmation, snapshot []byte) {
	if m.snapshots != nil && len(snapshot) > 0 {
		if path, ok := m.snapshots.AddImage(snapshot, c.Label, c.ConfirmedAt); ok {
			c.Snapshot = path
		}
	}
	m.enqueue(task{confirmation: &c})
}

// OnFrame streams the annotated frame to dashboard viewers.
func (m *Manager) OnFrame(seq uint64, inference model.Inference, jpeg []byte) {
	if m.publisher == nil {
		return
	}
	m.publisher.BroadcastEvent(dto.NewFrameEvent(seq, inference, jpeg, time.Now()))
}

// HandleInbound queues a line received from the board.
func (m *Manager) HandleInbound(msg model.InboundMessage) {
	m.enqueue(task{inbound: &msg})
}

// Dropped returns how many records were discarded because the queue was full.
func (m *Manager) Dropped() uint64 {
	return atomic.LoadUint64(&m.dropped)
}

// Stop drains the queue and waits for the worker.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.queue)
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Info("🛑 Recorder stopped")
}

func (m *Manager) enqueue(t task) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		atomic.AddUint64(&m.dropped, 1)
		return
	}

	select {
	case m.queue <- t:
	default:
		atomic.AddUint64(&m.dropped, 1)
		m.logger.Warning("⚠️  Recorder queue full - record dropped")
	}
}

// processingWorker zapisuje zdarzenia w kolejności nadejścia
func (m *Manager) processingWorker() {
	defer m.wg.Done()

	for t := range m.queue {
		switch {
		case t.confirmation != nil:
			m.recordConfirmation(t.confirmation)
		case t.inbound != nil:
			m.recordInbound(t.inbound)
		}
	}
}

func (m *Manager) recordConfirmation(c *model.Confirmation) {
	if m.confirmations != nil {
		id, err := m.confirmations.Insert(c)
		if err != nil {
			m.logger.Error("Error saving confirmation %s: %v", c.Label, err)
		} else {
			c.ID = id
		}
	}
	if m.publisher != nil {
		m.publisher.BroadcastEvent(dto.NewConfirmationEvent(*c))
	}
}

func (m *Manager) recordInbound(msg *model.InboundMessage) {
	if m.inbound != nil {
		id, err := m.inbound.Insert(msg)
		if err != nil {
			m.logger.Error("Error saving inbound message: %v", err)
		} else {
			msg.ID = id
		}
	}
	if m.publisher != nil {
		m.publisher.BroadcastEvent(dto.NewInboundEvent(*msg))
	}
}
