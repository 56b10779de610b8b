// Package config - YAML configuration for the detection pipeline.
package config

import (
	"fmt"
	"image/color"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/inference"
	"github.com/nvr-ai/go-detect/models/model"
	"github.com/nvr-ai/go-detect/models/postprocess"
)

// TargetSize is the model input resolution. In YAML it accepts either a single
// edge length (square input) or an [height, width] pair.
type TargetSize struct {
	Height int
	Width  int
}

// UnmarshalYAML accepts `640` as well as `[640, 480]`.
func (s *TargetSize) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var edge int
		if err := value.Decode(&edge); err != nil {
			return err
		}
		s.Height = edge
		s.Width = edge
		return nil
	case yaml.SequenceNode:
		var pair []int
		if err := value.Decode(&pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("target_size pair must have 2 entries, got %d", len(pair))
		}
		s.Height = pair[0]
		s.Width = pair[1]
		return nil
	default:
		return fmt.Errorf("target_size must be an integer or an [height, width] pair")
	}
}

// MarshalYAML writes the compact form when the input is square.
func (s TargetSize) MarshalYAML() (interface{}, error) {
	if s.Height == s.Width {
		return s.Height, nil
	}
	return []int{s.Height, s.Width}, nil
}

// PadColor is an RGB triple for the letterbox border.
type PadColor [3]uint8

// RGBA converts the triple into an opaque color.Color.
func (p PadColor) RGBA() color.Color {
	return color.RGBA{R: p[0], G: p[1], B: p[2], A: 255}
}

// Config is the full pipeline configuration.
type Config struct {
	// Model selects and locates the detection model.
	Model model.NewModelArgs `json:"model" yaml:"model"`
	// Session configures the ONNX Runtime session.
	Session inference.Config `json:"session" yaml:"session"`
	// SessionPoolSize is the number of pooled inference sessions.
	SessionPoolSize int `json:"session_pool_size" yaml:"session_pool_size"`

	// TargetSize is the letterbox target resolution.
	TargetSize TargetSize `json:"target_size" yaml:"target_size"`
	// Stride is the network downsampling factor.
	Stride int `json:"stride" yaml:"stride"`
	// AllowUpscale permits scale ratios above 1.
	AllowUpscale bool `json:"allow_upscale" yaml:"allow_upscale"`
	// AutoPad enables minimum-rectangle (stride remainder) padding.
	AutoPad bool `json:"auto_pad" yaml:"auto_pad"`
	// PadColor fills letterbox borders.
	PadColor PadColor `json:"pad_color" yaml:"pad_color"`

	// Filter holds the NMS parameters.
	Filter postprocess.Config `json:"filter" yaml:"filter"`
}

// Default returns the configuration with the documented defaults applied.
func Default() *Config {
	return &Config{
		SessionPoolSize: 1,
		TargetSize:      TargetSize{Height: 640, Width: 640},
		Stride:          32,
		AllowUpscale:    true,
		PadColor:        PadColor{114, 114, 114},
		Filter: postprocess.Config{
			ConfidenceThreshold: 0.25,
			IoUThreshold:        0.45,
			MaxDetections:       300,
			Redundant:           true,
		},
	}
}

// Load reads a YAML file over the defaults.
//
// Arguments:
//   - path: The YAML file location.
//
// Returns:
//   - *Config: Defaults overridden by the file's values, validated.
//   - error: If reading, decoding or validation fails.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}

// LetterboxOptions assembles the resize policy for the model preprocessor.
func (c *Config) LetterboxOptions() images.LetterboxOptions {
	return images.LetterboxOptions{
		TargetHeight: c.TargetSize.Height,
		TargetWidth:  c.TargetSize.Width,
		Stride:       c.Stride,
		Auto:         c.AutoPad,
		AllowUpscale: c.AllowUpscale,
		PadColor:     c.PadColor.RGBA(),
	}
}

// Validate rejects configurations the pipeline would fail fast on anyway.
func (c *Config) Validate() error {
	if c.TargetSize.Height <= 0 || c.TargetSize.Width <= 0 {
		return fmt.Errorf("target_size must be positive, got %dx%d", c.TargetSize.Height, c.TargetSize.Width)
	}
	if c.Stride <= 0 {
		return fmt.Errorf("stride must be positive, got %d", c.Stride)
	}
	if c.SessionPoolSize < 0 {
		return fmt.Errorf("session_pool_size must not be negative, got %d", c.SessionPoolSize)
	}
	return c.Filter.Validate()
}
