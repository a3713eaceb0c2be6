package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"recicleai/internal/config"
	"recicleai/internal/dto"
	"recicleai/internal/logger"
	"recicleai/internal/model"
	"recicleai/internal/repository/sqlite"
	"recicleai/internal/routes"
	"recicleai/internal/service/ai"
	"recicleai/internal/service/monitor"
	"recicleai/internal/service/pipeline"
	"recicleai/internal/service/recorder"
	"recicleai/internal/service/serial"
	"recicleai/internal/service/storage"
	"recicleai/internal/service/vision"
	"recicleai/internal/service/websocket"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config    *config.Config
	logger    *logger.Logger
	session   model.Session
	startedAt time.Time

	db            *sqlite.DB
	confirmations *sqlite.ConfirmationRepository

	detector *ai.DetectorService
	source   *vision.CameraSource
	overlay  *vision.Overlay
	channel  *serial.Channel
	monitor  *monitor.InboundMonitor
	buffer   *storage.BufferService
	hub      *websocket.HubService
	recorder *recorder.Manager
	loop     *pipeline.Loop[*vision.Frame]
	server   *http.Server
}

// New builds every component. Failing to load the model or open the frame
// source is fatal; a missing microcontroller only disables actuation.
func New(cfg *config.Config, logger *logger.Logger) (*App, error) {
	a := &App{config: cfg, logger: logger, startedAt: time.Now()}
	if err := a.build(); err != nil {
		a.closeResources()
		return nil, err
	}
	return a, nil
}

func (a *App) build() error {
	cfg, logger := a.config, a.logger

	names, err := config.LoadClassNames(cfg.DataYAML)
	if err != nil {
		return err
	}

	a.detector, err = ai.NewDetectorService(cfg, names, logger)
	if err != nil {
		return fmt.Errorf("failed to load detector: %w", err)
	}

	a.source, err = vision.OpenCamera(cfg.FrameSource, cfg.FrameTimeout, logger)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	a.db, err = sqlite.New(cfg.DatabasePath)
	if err != nil {
		return err
	}
	a.confirmations = sqlite.NewConfirmationRepository(a.db)
	inbound := sqlite.NewInboundRepository(a.db)

	a.channel = serial.Open(serial.Config{
		Name:        cfg.SerialPort,
		Baud:        cfg.SerialBaudrate,
		ReadTimeout: cfg.SerialReadTimeout,
		Settle:      cfg.SerialSettle,
	}, serial.TarmOpener, logger)

	a.session = model.Session{
		ID:          uuid.NewString(),
		StartedAt:   a.startedAt,
		FrameSource: cfg.FrameSource,
		SerialPort:  cfg.SerialPort,
		Connected:   a.channel.Connected(),
	}
	if err := sqlite.NewSessionRepository(a.db).Insert(&a.session); err != nil {
		return err
	}
	logger.Info("Session %s started", a.session.ID)

	a.buffer = storage.NewBufferService(cfg, logger)
	a.hub = websocket.NewHubService(logger)
	a.recorder = recorder.NewManager(recorder.Options{
		Confirmations: a.confirmations,
		Inbound:       inbound,
		Snapshots:     a.buffer,
		Publisher:     a.hub,
	}, logger)

	a.monitor = monitor.New(a.channel.Subscribe(), cfg.InboundBuffer, a.session.ID, logger,
		monitor.LogSink(logger), a.recorder)

	a.overlay = vision.NewOverlay(cfg.ROI.Rect(), cfg.ShowWindow)

	a.loop = pipeline.New[*vision.Frame](a.source, a.detector, a.overlay, a.channel, pipeline.Options{
		SessionID:        a.session.ID,
		HoldDuration:     cfg.HoldDuration,
		InferenceTimeout: cfg.InferenceTimeout,
		ConfirmNone:      cfg.ConfirmNone,
		StreamEveryNth:   cfg.StreamEveryNth,
	}, logger, a.recorder)

	if cfg.StatusPort > 0 {
		a.server = &http.Server{
			Addr: fmt.Sprintf(":%d", cfg.StatusPort),
			Handler: routes.SetupRoutes(routes.Dependencies{
				Logger:        logger,
				Hub:           a.hub,
				Confirmations: a.confirmations,
				Inbound:       inbound,
				Status:        a.Status,
				Token:         cfg.DashboardToken,
			}),
		}
	}

	return nil
}

// Run drives the perception loop until the stream ends, the quit key is
// pressed, ctx is cancelled or SIGINT/SIGTERM arrives, then shuts down.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	bgCtx, cancelBackground := context.WithCancel(context.Background())
	var background sync.WaitGroup
	background.Add(2)
	go func() {
		defer background.Done()
		a.buffer.Run(bgCtx)
	}()
	go func() {
		defer background.Done()
		a.hub.Run(bgCtx)
	}()

	a.monitor.Start()

	if a.server != nil {
		go func() {
			a.logger.Info("📍 Dashboard: http://localhost%s", a.server.Addr)
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("Dashboard server failed: %v", err)
			}
		}()
	}

	a.logger.Info("🚀 RecicleAI running: source=%s serial=%s hold=%s", a.config.FrameSource, a.channel, a.config.HoldDuration)
	loopErr := a.loop.Run(ctx)

	a.shutdown()
	cancelBackground()
	background.Wait()
	a.closeResources()

	return loopErr
}

// shutdown stops producers before consumers: dashboard, serial link (which
// ends the inbound stream), monitor, recorder.
func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Warning("Dashboard shutdown: %v", err)
		}
	}

	if err := a.channel.Close(); err != nil {
		a.logger.Warning("Serial close: %v", err)
	}
	select {
	case <-a.monitor.Done():
	case <-ctx.Done():
	}
	a.monitor.Stop(ctx)
	a.recorder.Stop()

	stats := a.loop.Stats()
	a.logger.Info("Session %s finished: %d frames, %d confirmations, %d sends, %d send failures, %d skipped",
		a.session.ID, stats.Frames, stats.Confirmations, stats.Sends, stats.SendFailures,
		stats.SkippedReads+stats.SkippedInferences)
}

func (a *App) closeResources() {
	if a.channel != nil {
		a.channel.Close()
	}
	if a.overlay != nil {
		a.overlay.Close()
	}
	if a.source != nil {
		a.source.Close()
	}
	if a.detector != nil {
		a.detector.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// Status reports live counters for the dashboard.
func (a *App) Status() dto.Status {
	loop := a.loop.Stats()
	link := a.channel.Stats()
	inbound := a.monitor.Stats()

	status := dto.Status{
		Session: a.session,
		Loop: dto.LoopStatus{
			Frames:             loop.Frames,
			SkippedReads:       loop.SkippedReads,
			SkippedInferences:  loop.SkippedInferences,
			Confirmations:      loop.Confirmations,
			Sends:              loop.Sends,
			SendFailures:       loop.SendFailures,
			SuppressedSends:    loop.SuppressedSends,
			LastLabel:          string(loop.LastLabel),
			LastConfirmedLabel: string(loop.LastConfirmedLabel),
		},
		Serial: dto.SerialStatus{
			Port:          a.config.SerialPort,
			Connected:     link.Connected,
			Sent:          link.Sent,
			SendFailures:  link.SendFailures,
			SendsSkipped:  link.SendsSkipped,
			LinesReceived: link.LinesReceived,
			LinesSkipped:  link.LinesSkipped,
		},
		Inbound: dto.InboundStatus{
			Received:  inbound.Received,
			Delivered: inbound.Delivered,
			Dropped:   inbound.Dropped,
		},
		Clients:       a.hub.GetClientCount(),
		PendingImages: a.buffer.Pending(),
		UptimeSeconds: time.Since(a.startedAt).Seconds(),
	}

	if counts, err := a.confirmations.CountByLabel(); err == nil {
		status.Confirmations = make(map[string]int, len(counts))
		for label, n := range counts {
			status.Confirmations[string(label)] = n
		}
	}
	return status
}
