// Package serial owns the duplex text link to the sorting microcontroller.
//
// Writes are queued and performed by a writer goroutine, reads are performed
// by a reader goroutine that splits the byte stream into lines. The two
// directions share nothing but the port handle, so a blocked read never delays
// a send and the other way round.
package serial

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	tarm "github.com/tarm/serial"

	"recicleai/internal/logger"
)

const (
	defaultQueueSize    = 16
	defaultPollInterval = 50 * time.Millisecond
	maxLineLength       = 4096

	// Tyle pustych odczytów z rzędu, zwróconych przed timeoutem, oznacza odłączone urządzenie
	hangupReads = 3
)

var (
	// ErrClosed is returned by Send after Close.
	ErrClosed = errors.New("serial channel closed")
	// ErrQueueFull is returned by Send when the writer is behind.
	ErrQueueFull = errors.New("serial send queue full")
)

// Port is the physical connection. *tarm.Port satisfies it.
type Port interface {
	io.ReadWriteCloser
}

// Opener opens the physical port described by cfg.
type Opener func(cfg Config) (Port, error)

// Config describes the link.
type Config struct {
	Name         string
	Baud         int
	ReadTimeout  time.Duration
	Settle       time.Duration // wait after opening, the board resets on connect
	QueueSize    int
	PollInterval time.Duration // pause after a read attempt without data
}

// Stats are counters for the channel.
type Stats struct {
	Connected     bool   `json:"connected"`
	Sent          uint64 `json:"sent"`
	SendFailures  uint64 `json:"send_failures"`
	SendsSkipped  uint64 `json:"sends_skipped"`
	LinesReceived uint64 `json:"lines_received"`
	LinesSkipped  uint64 `json:"lines_skipped"`
}

// Channel is the duplex link. A Channel whose port failed to open is disabled:
// Send logs and succeeds, Subscribe yields a closed stream.
type Channel struct {
	cfg    Config
	port   Port
	logger *logger.Logger

	writeMu  sync.Mutex // guards outbound against Close
	closed   bool
	outbound chan []byte
	inbound  chan string

	stop       chan struct{}
	closeOnce  sync.Once
	readerDone chan struct{}
	writerDone chan struct{}

	pollInterval time.Duration
	faulted      int32 // set once the reader gave up on the port

	sent          uint64
	sendFailures  uint64
	sendsSkipped  uint64
	linesReceived uint64
	linesSkipped  uint64
}

// TarmOpener opens a real serial device.
func TarmOpener(cfg Config) (Port, error) {
	return tarm.OpenPort(&tarm.Config{
		Name:        cfg.Name,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
}

// Open attempts to connect and never fails: when the port cannot be opened
// the returned channel is disabled and actuation becomes a logged no-op.
func Open(cfg Config, opener Opener, logger *logger.Logger) *Channel {
	if opener == nil {
		opener = TarmOpener
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	c := &Channel{
		cfg:          cfg,
		logger:       logger,
		inbound:      make(chan string, cfg.QueueSize),
		stop:         make(chan struct{}),
		readerDone:   make(chan struct{}),
		writerDone:   make(chan struct{}),
		pollInterval: cfg.PollInterval,
	}

	logger.Info("Trying to open serial port %s at %d baud...", cfg.Name, cfg.Baud)
	port, err := opener(cfg)
	if err != nil {
		logger.Warning("Could not connect to microcontroller on %s: %v - actuation disabled", cfg.Name, err)
		close(c.inbound)
		close(c.readerDone)
		close(c.writerDone)
		c.closed = true
		return c
	}

	if cfg.Settle > 0 {
		time.Sleep(cfg.Settle)
	}

	c.port = port
	c.outbound = make(chan []byte, cfg.QueueSize)

	go c.readLoop()
	go c.writeLoop()

	logger.Info("🔌 Microcontroller connected on %s", cfg.Name)
	return c
}

// Connected reports whether a physical link is established and its reader
// has not faulted.
func (c *Channel) Connected() bool {
	return c.port != nil && atomic.LoadInt32(&c.faulted) == 0
}

// Send queues message followed by a newline. On a disabled channel the send is
// skipped, logged and reported as success.
func (c *Channel) Send(message string) error {
	if c.port == nil {
		atomic.AddUint64(&c.sendsSkipped, 1)
		c.logger.Warning("Serial link unavailable - skipping send of %q", message)
		return nil
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed {
		return ErrClosed
	}

	payload := make([]byte, 0, len(message)+1)
	payload = append(payload, message...)
	payload = append(payload, '\n')

	select {
	case c.outbound <- payload:
		return nil
	default:
		atomic.AddUint64(&c.sendFailures, 1)
		c.logger.Warning("Serial send queue full - dropping %q", message)
		return ErrQueueFull
	}
}

// Subscribe returns the stream of decoded inbound lines. The stream is closed
// when the reader stops: on Close, on a read fault, or immediately for a
// disabled channel. There is a single stream shared by all callers.
func (c *Channel) Subscribe() <-chan string {
	return c.inbound
}

// Close stops the reader, waits for it to observe the stop signal, flushes
// queued writes and only then closes the port.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.port == nil {
			return
		}

		close(c.stop)
		<-c.readerDone

		c.writeMu.Lock()
		c.closed = true
		close(c.outbound)
		c.writeMu.Unlock()
		<-c.writerDone

		err = c.port.Close()
		c.logger.Info("Serial link %s closed", c.cfg.Name)
	})
	return err
}

// Stats returns a snapshot of the channel counters.
func (c *Channel) Stats() Stats {
	return Stats{
		Connected:     c.Connected(),
		Sent:          atomic.LoadUint64(&c.sent),
		SendFailures:  atomic.LoadUint64(&c.sendFailures),
		SendsSkipped:  atomic.LoadUint64(&c.sendsSkipped),
		LinesReceived: atomic.LoadUint64(&c.linesReceived),
		LinesSkipped:  atomic.LoadUint64(&c.linesSkipped),
	}
}

func (c *Channel) writeLoop() {
	defer close(c.writerDone)

	for payload := range c.outbound {
		if _, err := c.port.Write(payload); err != nil {
			atomic.AddUint64(&c.sendFailures, 1)
			c.logger.Error("Failed to write %q to %s: %v", bytes.TrimSpace(payload), c.cfg.Name, err)
			continue
		}
		atomic.AddUint64(&c.sent, 1)
		c.logger.Info("→ Sent to microcontroller: %s", bytes.TrimSpace(payload))
	}
}

// earlyEOF reports whether an empty read returned too soon to be a timeout.
// Without a ReadTimeout reads block until data arrives, so every EOF is early.
func (c *Channel) earlyEOF(elapsed time.Duration) bool {
	if c.cfg.ReadTimeout <= 0 {
		return true
	}
	return elapsed < c.cfg.ReadTimeout/2
}

func (c *Channel) readLoop() {
	defer close(c.readerDone)
	defer close(c.inbound)

	buf := make([]byte, 256)
	var pending []byte
	earlyEOFs := 0

	for {
		select {
		case <-c.stop:
			return
		default:
		}

		started := time.Now()
		n, err := c.port.Read(buf)
		if n > 0 {
			earlyEOFs = 0
			var ok bool
			pending, ok = c.emitLines(append(pending, buf[:n]...))
			if !ok {
				return
			}
		}

		if err != nil && !errors.Is(err, io.EOF) {
			if c.stopping() {
				return
			}
			atomic.StoreInt32(&c.faulted, 1)
			c.logger.Error("Serial read failed on %s: %v - inbound stream closed", c.cfg.Name, err)
			return
		}

		// A timed out read and a hung up device both report (0, io.EOF). Only
		// the timeout takes ReadTimeout to come back.
		if n == 0 && err != nil {
			if c.earlyEOF(time.Since(started)) {
				earlyEOFs++
			} else {
				earlyEOFs = 0
			}
			if earlyEOFs >= hangupReads {
				if c.stopping() {
					return
				}
				atomic.StoreInt32(&c.faulted, 1)
				c.logger.Error("Serial device %s hung up - inbound stream closed", c.cfg.Name)
				return
			}
		}

		// Read timeout without data. Wait before the next attempt.
		if n == 0 {
			select {
			case <-c.stop:
				return
			case <-time.After(c.pollInterval):
			}
		}
	}
}

// emitLines publishes every complete line in data and returns the unterminated
// remainder. It returns false when the channel is stopping.
func (c *Channel) emitLines(data []byte) ([]byte, bool) {
	for {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			break
		}
		line := data[:idx]
		data = data[idx+1:]

		text, ok := decodeLine(line)
		if !ok {
			atomic.AddUint64(&c.linesSkipped, 1)
			continue
		}
		if text == "" {
			continue
		}

		atomic.AddUint64(&c.linesReceived, 1)
		select {
		case c.inbound <- text:
		case <-c.stop:
			return nil, false
		}
	}

	if len(data) > maxLineLength {
		atomic.AddUint64(&c.linesSkipped, 1)
		c.logger.Warning("Discarding %d bytes without line terminator from %s", len(data), c.cfg.Name)
		return nil, true
	}

	rest := make([]byte, len(data))
	copy(rest, data)
	return rest, true
}

func (c *Channel) stopping() bool {
	select {
	case <-c.stop:
		return true
	default:
		return false
	}
}

// decodeLine drops invalid UTF-8 sequences and trims whitespace. A line that
// contained nothing but invalid bytes is reported as not ok.
func decodeLine(line []byte) (string, bool) {
	if utf8.Valid(line) {
		return strings.TrimSpace(string(line)), true
	}
	text := strings.TrimSpace(strings.ToValidUTF8(string(line), ""))
	if text == "" {
		return "", false
	}
	return text, true
}

// String describes the link for logs.
func (c *Channel) String() string {
	if c.port == nil {
		return fmt.Sprintf("serial %s (disabled)", c.cfg.Name)
	}
	return fmt.Sprintf("serial %s@%d", c.cfg.Name, c.cfg.Baud)
}
