package util

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bietkhonhungvandi212/bufmgr/internal/logger"
	"github.com/bietkhonhungvandi212/bufmgr/internal/telemetry"
)

// Options represents buffer manager configuration options
type Options struct {
	Path           string           `yaml:"path"`
	BufferPoolSize int              `yaml:"buffer_pool_size"`
	InitialPages   int              `yaml:"initial_pages"`
	Logger         logger.Config    `yaml:"logger"`
	Telemetry      telemetry.Config `yaml:"telemetry"`
}

// DefaultOptions returns default options
func DefaultOptions() Options {
	return Options{
		Path:           "bufmgr.dat",
		BufferPoolSize: 1000, // 4MB default buffer pool
		InitialPages:   16,
		Logger: logger.Config{
			Level:      "info",
			Format:     "console",
			OutputFile: "stderr",
		},
		Telemetry: telemetry.Config{
			Enabled:        false,
			ServiceName:    "bufmgr",
			PrometheusPort: 9464,
		},
	}
}

// LoadOptions reads a yaml file on top of DefaultOptions.
// An empty path returns the defaults.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	if path == "" {
		return opts, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &opts); err != nil {
		return opts, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

func (o Options) Validate() error {
	if o.BufferPoolSize <= 0 {
		return fmt.Errorf("buffer_pool_size %d: %w", o.BufferPoolSize, ErrInvalidPoolSize)
	}
	if o.InitialPages <= 0 {
		return fmt.Errorf("initial_pages %d: %w", o.InitialPages, ErrInvalidInitialPages)
	}
	return nil
}
