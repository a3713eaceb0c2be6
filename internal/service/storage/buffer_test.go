package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"recicleai/internal/config"
	"recicleai/internal/logger"
)

func newTestBuffer(t *testing.T, limit int, interval time.Duration) (*BufferService, string) {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "images")
	cfg := &config.Config{
		ImageDirectory:           dir,
		ImageBufferLimit:         limit,
		ImageBufferFlushInterval: interval,
	}
	return NewBufferService(cfg, logger.NewWithWriter(&bytes.Buffer{})), dir
}

func TestBufferService_AddAndFlush(t *testing.T) {
	buffer, dir := newTestBuffer(t, 5, time.Hour)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	path, ok := buffer.AddImage([]byte("jpeg"), "PLASTIC", at)
	if !ok {
		t.Fatal("Expected snapshot to be buffered")
	}
	expected := filepath.Join(dir, "2024-05-01_10-00-00.000_PLASTIC.jpg")
	if path != expected {
		t.Errorf("path = %s, expected %s", path, expected)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Snapshot should not be on disk before flush")
	}

	if n := buffer.FlushImages(); n != 1 {
		t.Fatalf("Expected 1 flushed image, got %d", n)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read flushed image: %v", err)
	}
	if string(data) != "jpeg" {
		t.Errorf("Unexpected content %q", data)
	}
	if buffer.Pending() != 0 {
		t.Errorf("Expected empty buffer after flush, got %d", buffer.Pending())
	}
}

func TestBufferService_LimitDropsExtra(t *testing.T) {
	buffer, _ := newTestBuffer(t, 2, time.Hour)
	at := time.Now()

	for i := 0; i < 2; i++ {
		if _, ok := buffer.AddImage([]byte{byte(i)}, "METAL", at.Add(time.Duration(i)*time.Millisecond)); !ok {
			t.Fatalf("Add %d should succeed", i)
		}
	}
	if _, ok := buffer.AddImage([]byte{9}, "METAL", at); ok {
		t.Error("Expected add beyond limit to be rejected")
	}
	if buffer.Pending() != 2 {
		t.Errorf("Expected 2 pending, got %d", buffer.Pending())
	}

	buffer.FlushImages()
	if _, ok := buffer.AddImage([]byte{3}, "METAL", at); !ok {
		t.Error("Expected room after flush")
	}
}

func TestBufferService_FlushEmpty(t *testing.T) {
	buffer, dir := newTestBuffer(t, 2, time.Hour)

	if n := buffer.FlushImages(); n != 0 {
		t.Errorf("Expected 0, got %d", n)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("Empty flush should not create the directory")
	}
}

func TestBufferService_RunFlushesOnCancel(t *testing.T) {
	buffer, _ := newTestBuffer(t, 2, time.Hour)
	path, _ := buffer.AddImage([]byte("x"), "GLASS", time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		buffer.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected snapshot flushed on shutdown: %v", err)
	}
}

func TestBufferService_RunFlushesOnTick(t *testing.T) {
	buffer, _ := newTestBuffer(t, 2, 10*time.Millisecond)
	path, _ := buffer.AddImage([]byte("x"), "PAPER", time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go buffer.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("Snapshot was not flushed by the ticker")
}
