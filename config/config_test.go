package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, TargetSize{Height: 640, Width: 640}, cfg.TargetSize)
	assert.Equal(t, 32, cfg.Stride)
	assert.True(t, cfg.AllowUpscale)
	assert.False(t, cfg.AutoPad)
	assert.Equal(t, PadColor{114, 114, 114}, cfg.PadColor)
	assert.InDelta(t, 0.25, cfg.Filter.ConfidenceThreshold, 1e-6)
	assert.InDelta(t, 0.45, cfg.Filter.IoUThreshold, 1e-6)
	assert.Equal(t, 300, cfg.Filter.MaxDetections)
	assert.False(t, cfg.Filter.MultiLabel)
	assert.False(t, cfg.Filter.ClassAgnostic)
	assert.False(t, cfg.Filter.Merge)
	assert.True(t, cfg.Filter.Redundant)

	require.NoError(t, cfg.Validate())
}

func TestTargetSizeScalarAndPair(t *testing.T) {
	var scalar struct {
		Size TargetSize `yaml:"target_size"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("target_size: 416"), &scalar))
	assert.Equal(t, TargetSize{Height: 416, Width: 416}, scalar.Size)

	var pair struct {
		Size TargetSize `yaml:"target_size"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("target_size: [480, 640]"), &pair))
	assert.Equal(t, TargetSize{Height: 480, Width: 640}, pair.Size)

	var bad struct {
		Size TargetSize `yaml:"target_size"`
	}
	assert.Error(t, yaml.Unmarshal([]byte("target_size: [1, 2, 3]"), &bad))
	assert.Error(t, yaml.Unmarshal([]byte("target_size: {h: 1}"), &bad))
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	doc := `
model:
  name: yolov3
  path: weights/yolov3.onnx
  classes: [person, car]
target_size: [640, 640]
filter:
  confidence_threshold: 0.5
  multi_label: true
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "weights/yolov3.onnx", cfg.Model.Path)
	assert.Equal(t, []string{"person", "car"}, cfg.Model.Classes)
	assert.InDelta(t, 0.5, cfg.Filter.ConfidenceThreshold, 1e-6)
	assert.True(t, cfg.Filter.MultiLabel)
	// Untouched keys keep their defaults.
	assert.InDelta(t, 0.45, cfg.Filter.IoUThreshold, 1e-6)
	assert.Equal(t, 32, cfg.Stride)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	doc := `
filter:
  confidence_threshold: 1.5
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	_, err := Load(path)
	assert.Error(t, err, "out-of-range thresholds must be rejected at load time")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Stride = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.TargetSize.Width = -1
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Filter.IoUThreshold = 2
	assert.Error(t, cfg.Validate())
}

func TestLetterboxOptions(t *testing.T) {
	cfg := Default()
	cfg.AutoPad = true
	cfg.TargetSize = TargetSize{Height: 480, Width: 640}

	opts := cfg.LetterboxOptions()
	assert.Equal(t, 480, opts.TargetHeight)
	assert.Equal(t, 640, opts.TargetWidth)
	assert.Equal(t, 32, opts.Stride)
	assert.True(t, opts.Auto)
	assert.True(t, opts.AllowUpscale)
	require.NotNil(t, opts.PadColor)
	r, _, _, _ := opts.PadColor.RGBA()
	assert.Equal(t, uint32(114), r>>8)
}

func TestPadColorRGBA(t *testing.T) {
	c := PadColor{114, 114, 114}
	r, g, b, a := c.RGBA().RGBA()
	assert.Equal(t, uint32(114), r>>8)
	assert.Equal(t, uint32(114), g>>8)
	assert.Equal(t, uint32(114), b>>8)
	assert.Equal(t, uint32(255), a>>8)
}
