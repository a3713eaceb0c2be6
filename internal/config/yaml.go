package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the sections of the project's config.yaml. Every field is
// optional; absent keys keep the current value.
type fileConfig struct {
	Paths struct {
		Model    *string `yaml:"model"`
		DataYAML *string `yaml:"data_yaml"`
	} `yaml:"paths"`
	Realtime struct {
		ConfThres *float64 `yaml:"conf_thres"`
		IoUThres  *float64 `yaml:"iou_thres"`
		Source    *string  `yaml:"source"`
		Device    *string  `yaml:"device"`
		Hold      *string  `yaml:"hold_duration"`
		ROIXStart *int     `yaml:"roi_x_start"`
		ROIYStart *int     `yaml:"roi_y_start"`
		ROIXEnd   *int     `yaml:"roi_x_end"`
		ROIYEnd   *int     `yaml:"roi_y_end"`
	} `yaml:"realtime"`
	Training struct {
		ImgSize *int `yaml:"img_size"`
	} `yaml:"training"`
	Arduino struct {
		Port     *string `yaml:"port"`
		Baudrate *int    `yaml:"baudrate"`
	} `yaml:"arduino"`
}

func applyYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	// Ścieżki względne liczone od katalogu pliku
	return applyYAML(cfg, data, filepath.Dir(path))
}

func applyYAML(cfg *Config, data []byte, baseDir string) error {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) || baseDir == "" {
			return p
		}
		return filepath.Join(baseDir, p)
	}

	if v := fc.Paths.Model; v != nil {
		cfg.ModelPath = resolve(*v)
	}
	if v := fc.Paths.DataYAML; v != nil {
		cfg.DataYAML = resolve(*v)
	}

	rt := fc.Realtime
	if rt.ConfThres != nil {
		cfg.ConfidenceThreshold = *rt.ConfThres
	}
	if rt.IoUThres != nil {
		cfg.IoUThreshold = *rt.IoUThres
	}
	if rt.Source != nil {
		cfg.FrameSource = *rt.Source
	}
	if rt.Device != nil {
		cfg.Device = strings.ToLower(*rt.Device)
	}
	if rt.Hold != nil {
		d, err := parseDuration(*rt.Hold)
		if err != nil {
			return fmt.Errorf("invalid configuration: realtime.hold_duration %q is not seconds or a duration", *rt.Hold)
		}
		cfg.HoldDuration = d
	}
	if rt.ROIXStart != nil {
		cfg.ROI.XStart = *rt.ROIXStart
	}
	if rt.ROIYStart != nil {
		cfg.ROI.YStart = *rt.ROIYStart
	}
	if rt.ROIXEnd != nil {
		cfg.ROI.XEnd = *rt.ROIXEnd
	}
	if rt.ROIYEnd != nil {
		cfg.ROI.YEnd = *rt.ROIYEnd
	}

	if v := fc.Training.ImgSize; v != nil {
		cfg.ImageSize = *v
	}
	if v := fc.Arduino.Port; v != nil {
		cfg.SerialPort = *v
	}
	if v := fc.Arduino.Baudrate; v != nil {
		cfg.SerialBaudrate = *v
	}
	return nil
}
