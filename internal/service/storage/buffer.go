package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"recicleai/internal/config"
	"recicleai/internal/dto"
	"recicleai/internal/logger"
	"recicleai/internal/model"
)

const timestampLayout = "2006-01-02_15-04-05.000"

// BufferService keeps confirmation snapshots in memory and periodically
// flushes them to disk. Snapshots beyond the limit are dropped until the
// next flush.
type BufferService struct {
	imagesDir     string
	limit         int
	flushInterval time.Duration
	images        []dto.BufferedImage
	dropped       int
	mu            sync.Mutex
	logger        *logger.Logger
}

// NewBufferService creates a new BufferService with the target directory and logger.
func NewBufferService(config *config.Config, logger *logger.Logger) *BufferService {
	return &BufferService{
		imagesDir:     config.ImageDirectory,
		limit:         config.ImageBufferLimit,
		flushInterval: config.ImageBufferFlushInterval,
		images:        make([]dto.BufferedImage, 0, config.ImageBufferLimit),
		logger:        logger,
	}
}

// Run flushes on every tick until ctx is done, then flushes once more.
func (s *BufferService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.FlushImages()
			return
		case <-ticker.C:
			s.FlushImages()
		}
	}
}

// AddImage buffers a snapshot and returns the path it will be written to.
// It returns false when the buffer is full.
func (s *BufferService) AddImage(imageData []byte, label model.Label, capturedAt time.Time) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.images) >= s.limit {
		s.dropped++
		s.logger.Warning("Snapshot buffer full (%d/%d), dropping %s snapshot", len(s.images), s.limit, label)
		return "", false
	}

	filename := fmt.Sprintf("%s_%s.jpg", capturedAt.Format(timestampLayout), label)
	s.images = append(s.images, dto.BufferedImage{
		Filename:   filename,
		Label:      string(label),
		CapturedAt: capturedAt,
		Data:       imageData,
	})
	s.logger.Info("Snapshot buffer size: %d/%d", len(s.images), s.limit)

	return filepath.Join(s.imagesDir, filename), true
}

// Pending returns the number of buffered snapshots.
func (s *BufferService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

// FlushImages writes buffered snapshots to disk, resets the buffer and
// returns how many files were written.
func (s *BufferService) FlushImages() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.images) == 0 {
		return 0
	}

	if err := os.MkdirAll(s.imagesDir, 0755); err != nil {
		s.logger.Error("Error creating directory: %v", err)
		return 0
	}

	savedCount := 0
	for _, image := range s.images {
		fullpath := filepath.Join(s.imagesDir, image.Filename)
		if err := os.WriteFile(fullpath, image.Data, 0644); err != nil {
			s.logger.Error("Error saving image %s: %v", image.Filename, err)
			continue
		}
		savedCount++
	}

	if s.dropped > 0 {
		s.logger.Warning("%d snapshots dropped since last flush", s.dropped)
	}
	s.logger.Info("Flushed %d images to disk", savedCount)
	s.images = s.images[:0]
	s.dropped = 0
	return savedCount
}
