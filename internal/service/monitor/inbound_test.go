package monitor

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"recicleai/internal/logger"
	"recicleai/internal/model"
	"recicleai/internal/service/serial"
)

type recordingSink struct {
	mu    sync.Mutex
	texts []string
	delay time.Duration
	gate  chan struct{}
}

func (s *recordingSink) HandleInbound(msg model.InboundMessage) {
	if s.gate != nil {
		<-s.gate
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, msg.Text)
}

func (s *recordingSink) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.texts))
	copy(out, s.texts)
	return out
}

func quietLogger() *logger.Logger {
	return logger.NewWithWriter(io.Discard)
}

func TestMonitor_DeliversInOrderAndStopsAtStreamEnd(t *testing.T) {
	source := make(chan string)
	sink := &recordingSink{}
	m := New(source, 8, "session-1", quietLogger(), sink)

	var sessionSeen string
	var mu sync.Mutex
	m.sinks = append(m.sinks, SinkFunc(func(msg model.InboundMessage) {
		mu.Lock()
		sessionSeen = msg.SessionID
		mu.Unlock()
	}))
	m.Start()

	for _, line := range []string{"ready", "servo 1 open", "servo 1 closed"} {
		source <- line
	}
	close(source)

	select {
	case <-m.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not stop after stream end")
	}

	got := sink.Texts()
	expected := []string{"ready", "servo 1 open", "servo 1 closed"}
	if fmt.Sprint(got) != fmt.Sprint(expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}

	mu.Lock()
	if sessionSeen != "session-1" {
		t.Errorf("Expected session id on messages, got %q", sessionSeen)
	}
	mu.Unlock()

	if stats := m.Stats(); stats.Received != 3 || stats.Delivered != 3 || stats.Dropped != 0 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestMonitor_BlockedSinkDropsOldest(t *testing.T) {
	source := make(chan string)
	sink := &recordingSink{gate: make(chan struct{})}
	m := New(source, 2, "", quietLogger(), sink)
	m.Start()

	const total = 10
	for i := 0; i < total; i++ {
		select {
		case source <- fmt.Sprintf("line %d", i):
		case <-time.After(time.Second):
			t.Fatalf("Pump blocked on line %d behind a stalled sink", i)
		}
	}
	close(source)
	close(sink.gate)

	select {
	case <-m.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not finish")
	}

	stats := m.Stats()
	if stats.Received != total {
		t.Errorf("Expected %d received, got %d", total, stats.Received)
	}
	if stats.Dropped == 0 {
		t.Error("Expected drops with a stalled sink")
	}
	if stats.Delivered+stats.Dropped != total {
		t.Errorf("Delivered (%d) + dropped (%d) != %d", stats.Delivered, stats.Dropped, total)
	}

	got := sink.Texts()
	if len(got) == 0 || got[len(got)-1] != fmt.Sprintf("line %d", total-1) {
		t.Errorf("Expected newest line to survive, got %v", got)
	}
}

func TestMonitor_StopWithStalledSinkHonorsContext(t *testing.T) {
	source := make(chan string)
	sink := &recordingSink{gate: make(chan struct{})}
	defer close(sink.gate)

	m := New(source, 4, "", quietLogger(), sink)
	m.Start()
	source <- "stuck"

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := m.Stop(ctx); err == nil {
		t.Error("Expected context error while sink is stalled")
	}
}

func TestMonitor_StopIsIdempotent(t *testing.T) {
	source := make(chan string)
	m := New(source, 4, "", quietLogger())
	m.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := m.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("Second Stop failed: %v", err)
	}
}

// chattyPort produces an inbound line on every read and records writes.
type chattyPort struct {
	mu      sync.Mutex
	written []string
	closed  bool
}

func (p *chattyPort) Read(b []byte) (int, error) {
	time.Sleep(time.Millisecond)
	return copy(b, "weight 120g\n"), nil
}

func (p *chattyPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written = append(p.written, string(b))
	return len(b), nil
}

func (p *chattyPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *chattyPort) writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.written)
}

func TestMonitor_SlowSinkDoesNotDelaySends(t *testing.T) {
	port := &chattyPort{}
	ch := serial.Open(serial.Config{Name: "fake", Baud: 9600}, func(serial.Config) (serial.Port, error) {
		return port, nil
	}, quietLogger())
	defer ch.Close()

	sink := &recordingSink{delay: 200 * time.Millisecond}
	m := New(ch.Subscribe(), 4, "", quietLogger(), sink)
	m.Start()

	// Let the inbound side saturate behind the slow sink.
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 5; i++ {
		start := time.Now()
		if err := ch.Send("PLASTIC"); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
		if elapsed := time.Since(start); elapsed > 20*time.Millisecond {
			t.Errorf("Send %d took %s behind a slow sink", i, elapsed)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for port.writes() < 5 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := port.writes(); n != 5 {
		t.Errorf("Expected 5 writes, got %d", n)
	}

	if m.Stats().Dropped == 0 {
		t.Error("Expected the slow sink to cause drops, not backpressure")
	}
}
