// Package detector - End-to-end detection: preprocess, inference, filtering,
// coordinate recovery.
package detector

import (
	"image"
	"time"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/models/model"
	"github.com/nvr-ai/go-detect/models/postprocess"
)

// Runner executes one inference call over a flat input tensor. Both
// inference.Session and inference.Pool satisfy it; tests substitute fakes.
type Runner interface {
	Predict(input []float32) ([]float32, []int, error)
}

// Detector wires a model adapter, an inference runner and the detection
// filter into a single image-in, detections-out pipeline.
type Detector struct {
	model  model.Model
	runner Runner
	filter *postprocess.Config
	log    *logrus.Logger
}

// New creates a detector.
//
// Arguments:
//   - m: The model adapter (preprocessing and output decoding).
//   - runner: The inference backend.
//   - filter: NMS parameters applied to every image.
//   - log: Destination for per-image diagnostics; nil discards them.
//
// Returns:
//   - *Detector: The assembled pipeline.
func New(m model.Model, runner Runner, filter *postprocess.Config, log *logrus.Logger) *Detector {
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.PanicLevel)
	}
	return &Detector{model: m, runner: runner, filter: filter, log: log}
}

// Detect runs the full pipeline on one image and returns detections in the
// original image's coordinate space, clamped to its bounds.
//
// Arguments:
//   - img: The source image.
//
// Returns:
//   - []postprocess.Result: Final detections in NMS selection order.
//   - error: A preprocessing, inference or filtering failure.
func (d *Detector) Detect(img image.Image) ([]postprocess.Result, error) {
	start := time.Now()

	input, err := d.model.PreProcess(img)
	if err != nil {
		return nil, errors.Wrap(err, "preprocess failed")
	}

	out, shape, err := d.runner.Predict(input.Data)
	if err != nil {
		return nil, errors.Wrap(err, "inference failed")
	}

	raw := tensor.New(tensor.WithShape(shape...), tensor.WithBacking(out))
	batch, err := d.model.PostProcess(raw, d.filter)
	if err != nil {
		return nil, errors.Wrap(err, "postprocess failed")
	}
	if len(batch) != 1 {
		return nil, errors.Errorf("expected a single-image batch, got %d", len(batch))
	}

	bounds := img.Bounds()
	results := batch[0]
	for i := range results {
		mapped := input.Letterbox.ToOriginal(results[i].Box)
		results[i].Box = clampRect(mapped, float32(bounds.Dx()), float32(bounds.Dy()))
	}

	d.log.WithFields(logrus.Fields{
		"detections": len(results),
		"elapsed":    time.Since(start),
	}).Debug("image processed")

	return results, nil
}

// clampRect restricts a box to the [0, w] x [0, h] viewport.
func clampRect(r images.Rect, w, h float32) images.Rect {
	return images.Rect{
		X1: math32.Min(math32.Max(r.X1, 0), w),
		Y1: math32.Min(math32.Max(r.Y1, 0), h),
		X2: math32.Min(math32.Max(r.X2, 0), w),
		Y2: math32.Min(math32.Max(r.Y2, 0), h),
	}
}
