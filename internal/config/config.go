package config

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Dominant label policies understood by the detector.
const (
	PolicyLast      = "last"
	PolicyConfident = "confident"
	PolicySingle    = "single"
)

// ROI is the region of interest drawn on every frame. It is cosmetic only.
type ROI struct {
	XStart int
	YStart int
	XEnd   int
	YEnd   int
}

// Rect returns the ROI as an image rectangle.
func (r ROI) Rect() image.Rectangle {
	return image.Rect(r.XStart, r.YStart, r.XEnd, r.YEnd)
}

type Config struct {
	HoldDuration        time.Duration // Czas potwierdzenia etykiety
	ConfidenceThreshold float64
	IoUThreshold        float64
	ImageSize           int
	ModelPath           string
	DataYAML            string
	Device              string // cpu albo cuda
	DominantPolicy      string
	ConfirmNone         bool // Czy NONE potwierdzone ma trafić do Arduino
	InferenceTimeout    time.Duration
	FrameTimeout        time.Duration

	FrameSource string
	ShowWindow  bool
	ROI         ROI

	SerialPort        string
	SerialBaudrate    int
	SerialSettle      time.Duration
	SerialReadTimeout time.Duration
	InboundBuffer     int

	DatabasePath             string
	ImageDirectory           string
	ImageBufferLimit         int
	ImageBufferFlushInterval time.Duration
	LogDirectory             string
	StatusPort               int
	DashboardToken           string
	StreamEveryNth           int // Co którą klatkę wysyłać do podglądu (0=wyłączone)
}

// Load reads an optional .env file and then builds the configuration. Values
// come from the built-in defaults, then from the YAML file named by CONFIG_YAML
// (if set), then from the environment. A missing env file is not an error; a
// set but malformed value is.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	cfg := defaults()
	if path := os.Getenv("CONFIG_YAML"); path != "" {
		if err := applyYAMLFile(cfg, path); err != nil {
			return nil, err
		}
	}

	env := &envReader{}
	cfg.HoldDuration = env.getEnvAsDuration("HOLD_DURATION", cfg.HoldDuration)
	cfg.ConfidenceThreshold = env.getEnvAsFloat("CONFIDENCE_THRESHOLD", cfg.ConfidenceThreshold)
	cfg.IoUThreshold = env.getEnvAsFloat("IOU_THRESHOLD", cfg.IoUThreshold)
	cfg.ImageSize = env.getEnvAsInt("IMAGE_SIZE", cfg.ImageSize)
	cfg.ModelPath = getEnv("MODEL_PATH", cfg.ModelPath)
	cfg.DataYAML = getEnv("DATA_YAML", cfg.DataYAML)
	cfg.Device = strings.ToLower(getEnv("DEVICE", cfg.Device))
	cfg.DominantPolicy = strings.ToLower(getEnv("DOMINANT_POLICY", cfg.DominantPolicy))
	cfg.ConfirmNone = env.getEnvAsBool("CONFIRM_NONE", cfg.ConfirmNone)
	cfg.InferenceTimeout = env.getEnvAsDuration("INFERENCE_TIMEOUT", cfg.InferenceTimeout)
	cfg.FrameTimeout = env.getEnvAsDuration("FRAME_TIMEOUT", cfg.FrameTimeout)

	cfg.FrameSource = getEnv("FRAME_SOURCE", cfg.FrameSource)
	cfg.ShowWindow = env.getEnvAsBool("SHOW_WINDOW", cfg.ShowWindow)
	cfg.ROI.XStart = env.getEnvAsInt("ROI_X_START", cfg.ROI.XStart)
	cfg.ROI.YStart = env.getEnvAsInt("ROI_Y_START", cfg.ROI.YStart)
	cfg.ROI.XEnd = env.getEnvAsInt("ROI_X_END", cfg.ROI.XEnd)
	cfg.ROI.YEnd = env.getEnvAsInt("ROI_Y_END", cfg.ROI.YEnd)

	cfg.SerialPort = getEnv("SERIAL_PORT", cfg.SerialPort)
	cfg.SerialBaudrate = env.getEnvAsInt("SERIAL_BAUDRATE", cfg.SerialBaudrate)
	cfg.SerialSettle = env.getEnvAsDuration("SERIAL_SETTLE", cfg.SerialSettle)
	cfg.SerialReadTimeout = env.getEnvAsDuration("SERIAL_READ_TIMEOUT", cfg.SerialReadTimeout)
	cfg.InboundBuffer = env.getEnvAsInt("INBOUND_BUFFER", cfg.InboundBuffer)

	cfg.DatabasePath = getEnv("DB_PATH", cfg.DatabasePath)
	cfg.ImageDirectory = getEnv("IMAGE_DIR", cfg.ImageDirectory)
	cfg.ImageBufferLimit = env.getEnvAsInt("BUFFER_LIMIT", cfg.ImageBufferLimit)
	cfg.ImageBufferFlushInterval = env.getEnvAsDuration("FLUSH_INTERVAL", cfg.ImageBufferFlushInterval)
	cfg.LogDirectory = getEnv("LOG_DIR", cfg.LogDirectory)
	cfg.StatusPort = env.getEnvAsInt("STATUS_PORT", cfg.StatusPort)
	cfg.DashboardToken = getEnv("DASHBOARD_TOKEN", cfg.DashboardToken)
	cfg.StreamEveryNth = env.getEnvAsInt("STREAM_EVERY_NTH", cfg.StreamEveryNth)

	if err := env.err(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		HoldDuration:        3 * time.Second,
		ConfidenceThreshold: 0.5,
		IoUThreshold:        0.45,
		ImageSize:           640,
		ModelPath:           filepath.Join(".", "weights", "best.onnx"),
		DataYAML:            filepath.Join(".", "data.yaml"),
		Device:              "cpu",
		DominantPolicy:      PolicyLast,
		ConfirmNone:         true,

		FrameSource: "0",
		ShowWindow:  true,

		SerialPort:        "/dev/ttyACM0",
		SerialBaudrate:    9600,
		SerialSettle:      2 * time.Second,
		SerialReadTimeout: time.Second,
		InboundBuffer:     64,

		DatabasePath:             filepath.Join(".", "data", "recicleai.db"),
		ImageDirectory:           filepath.Join(".", "images"),
		ImageBufferLimit:         7,
		ImageBufferFlushInterval: 30 * time.Second,
		LogDirectory:             filepath.Join(".", "logs"),
	}
}

// Validate checks option ranges that would otherwise fail deep inside the loop.
func (c *Config) Validate() error {
	if c.HoldDuration <= 0 {
		return fmt.Errorf("invalid configuration: HOLD_DURATION must be positive, got %s", c.HoldDuration)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("invalid configuration: CONFIDENCE_THRESHOLD must be in [0,1], got %v", c.ConfidenceThreshold)
	}
	if c.IoUThreshold < 0 || c.IoUThreshold > 1 {
		return fmt.Errorf("invalid configuration: IOU_THRESHOLD must be in [0,1], got %v", c.IoUThreshold)
	}
	if c.ImageSize <= 0 {
		return fmt.Errorf("invalid configuration: IMAGE_SIZE must be positive, got %d", c.ImageSize)
	}
	if c.SerialBaudrate <= 0 {
		return fmt.Errorf("invalid configuration: SERIAL_BAUDRATE must be positive, got %d", c.SerialBaudrate)
	}
	if c.InboundBuffer <= 0 {
		return fmt.Errorf("invalid configuration: INBOUND_BUFFER must be positive, got %d", c.InboundBuffer)
	}
	if c.ImageBufferLimit <= 0 || c.ImageBufferFlushInterval <= 0 {
		return fmt.Errorf("invalid configuration: BUFFER_LIMIT and FLUSH_INTERVAL must be positive")
	}
	if c.ROI.XEnd < c.ROI.XStart || c.ROI.YEnd < c.ROI.YStart {
		return fmt.Errorf("invalid configuration: ROI end (%d,%d) before start (%d,%d)",
			c.ROI.XEnd, c.ROI.YEnd, c.ROI.XStart, c.ROI.YStart)
	}
	switch c.DominantPolicy {
	case PolicyLast, PolicyConfident, PolicySingle:
	default:
		return fmt.Errorf("invalid configuration: unknown DOMINANT_POLICY %q", c.DominantPolicy)
	}
	return nil
}

// SourceIndex returns the camera index when FrameSource is numeric.
func (c *Config) SourceIndex() (int, bool) {
	idx, err := strconv.Atoi(c.FrameSource)
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envReader collects values that are set but cannot be parsed.
type envReader struct {
	problems []string
}

func (r *envReader) invalid(key, value, want string) {
	r.problems = append(r.problems, fmt.Sprintf("%s=%q is not %s", key, value, want))
}

func (r *envReader) err() error {
	if len(r.problems) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(r.problems, "; "))
}

func (r *envReader) getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		r.invalid(key, value, "an integer")
		return defaultValue
	}
	return intValue
}

func (r *envReader) getEnvAsFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		r.invalid(key, value, "a number")
		return defaultValue
	}
	return floatValue
}

func (r *envReader) getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		r.invalid(key, value, "a boolean")
		return defaultValue
	}
	return boolValue
}

// getEnvAsDuration accepts plain seconds ("3", "2.5") or a Go duration ("1500ms").
func (r *envReader) getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := parseDuration(value)
	if err != nil {
		r.invalid(key, value, "seconds or a duration")
		return defaultValue
	}
	return d
}

func parseDuration(value string) (time.Duration, error) {
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(seconds * float64(time.Second)), nil
	}
	return time.ParseDuration(value)
}
