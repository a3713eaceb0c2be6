package recorder

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"recicleai/internal/dto"
	"recicleai/internal/logger"
	"recicleai/internal/model"
)

type memConfirmations struct {
	mu    sync.Mutex
	items []model.Confirmation
	block chan struct{}
}

func (r *memConfirmations) Insert(c *model.Confirmation) (int64, error) {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, *c)
	return int64(len(r.items)), nil
}

func (r *memConfirmations) Recent(int) ([]model.Confirmation, error) { return nil, nil }
func (r *memConfirmations) BySession(string, int) ([]model.Confirmation, error) {
	return nil, nil
}
func (r *memConfirmations) CountByLabel() (map[model.Label]int, error) { return nil, nil }

func (r *memConfirmations) all() []model.Confirmation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Confirmation(nil), r.items...)
}

type memInbound struct {
	mu    sync.Mutex
	items []model.InboundMessage
}

func (r *memInbound) Insert(m *model.InboundMessage) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, *m)
	return int64(len(r.items)), nil
}

func (r *memInbound) Recent(int) ([]model.InboundMessage, error) { return nil, nil }

type memSnapshots struct {
	added []model.Label
}

func (s *memSnapshots) AddImage(data []byte, label model.Label, at time.Time) (string, bool) {
	s.added = append(s.added, label)
	return "images/" + string(label) + ".jpg", true
}

type memPublisher struct {
	mu     sync.Mutex
	events []dto.Event
}

func (p *memPublisher) BroadcastEvent(e dto.Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return true
}

func (p *memPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var types []string
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

func testLogger() *logger.Logger {
	return logger.NewWithWriter(&bytes.Buffer{})
}

func TestManager_RecordsInOrder(t *testing.T) {
	confirmations := &memConfirmations{}
	inbound := &memInbound{}
	snapshots := &memSnapshots{}
	publisher := &memPublisher{}

	m := NewManager(Options{
		Confirmations: confirmations,
		Inbound:       inbound,
		Snapshots:     snapshots,
		Publisher:     publisher,
	}, testLogger())

	now := time.Now()
	m.OnConfirmation(model.Confirmation{SessionID: "s", Label: "PLASTIC", ConfirmedAt: now, Sent: true}, []byte("jpeg"))
	m.HandleInbound(model.InboundMessage{SessionID: "s", Text: "SORTED", ReceivedAt: now})
	m.OnConfirmation(model.Confirmation{SessionID: "s", Label: model.None, ConfirmedAt: now}, nil)
	m.Stop()

	got := confirmations.all()
	if len(got) != 2 {
		t.Fatalf("Expected 2 confirmations, got %d", len(got))
	}
	if got[0].Snapshot != "images/PLASTIC.jpg" {
		t.Errorf("Snapshot = %q", got[0].Snapshot)
	}
	if got[1].Snapshot != "" {
		t.Errorf("Expected no snapshot without image data, got %q", got[1].Snapshot)
	}
	if len(snapshots.added) != 1 {
		t.Errorf("Expected 1 buffered snapshot, got %d", len(snapshots.added))
	}
	if len(inbound.items) != 1 || inbound.items[0].Text != "SORTED" {
		t.Errorf("Unexpected inbound records: %+v", inbound.items)
	}

	expected := []string{dto.EventConfirmation, dto.EventInbound, dto.EventConfirmation}
	types := publisher.types()
	if len(types) != len(expected) {
		t.Fatalf("Expected events %v, got %v", expected, types)
	}
	for i := range expected {
		if types[i] != expected[i] {
			t.Errorf("event[%d] = %s, expected %s", i, types[i], expected[i])
		}
	}
}

func TestManager_FullQueueDropsWithoutBlocking(t *testing.T) {
	confirmations := &memConfirmations{block: make(chan struct{})}
	m := NewManager(Options{Confirmations: confirmations, QueueSize: 2}, testLogger())

	// Wait until the worker holds the first record.
	m.OnConfirmation(model.Confirmation{Label: "METAL"}, nil)
	deadline := time.Now().Add(2 * time.Second)
	for len(m.queue) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("worker did not pick up the first record")
		}
		time.Sleep(time.Millisecond)
	}

	done := make(chan struct{})
	go func() {
		for i := 0; i < 9; i++ {
			m.OnConfirmation(model.Confirmation{Label: "METAL"}, nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("OnConfirmation blocked on a full queue")
	}

	// One record is held by the worker, two wait in the queue.
	if m.Dropped() != 7 {
		t.Errorf("Expected 7 dropped, got %d", m.Dropped())
	}

	close(confirmations.block)
	m.Stop()
	if n := len(confirmations.all()); n != 3 {
		t.Errorf("Expected 3 stored, got %d", n)
	}
}

func TestManager_AfterStopIsDropped(t *testing.T) {
	m := NewManager(Options{}, testLogger())
	m.Stop()
	m.Stop()

	m.HandleInbound(model.InboundMessage{Text: "late"})
	if m.Dropped() != 1 {
		t.Errorf("Expected 1 dropped, got %d", m.Dropped())
	}
}

func TestManager_OnFrame(t *testing.T) {
	publisher := &memPublisher{}
	m := NewManager(Options{Publisher: publisher}, testLogger())
	defer m.Stop()

	m.OnFrame(3, model.Inference{Label: "GLASS"}, []byte{0xFF, 0xD8})

	types := publisher.types()
	if len(types) != 1 || types[0] != dto.EventFrame {
		t.Errorf("Expected one frame event, got %v", types)
	}
}
