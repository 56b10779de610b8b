package yolo

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-detect/models/postprocess"
)

// DecodeBatch validates a raw [batch, anchors, 5+classes] prediction tensor
// and splits it into per-image row matrices.
//
// For models emitting normalized box coordinates, centers and extents are
// rescaled into input-pixel units (x and w by the input width, y and h by the
// input height) so downstream filtering sees the same scale the letterboxed
// image uses. Scores are copied through untouched.
//
// Arguments:
//   - raw: The inference output tensor.
//
// Returns:
//   - [][][]float32: One row matrix per batch image.
//   - int: The class count implied by the tensor's last dimension.
//   - error: A tensor layout contract violation.
func (y *YOLO) DecodeBatch(raw tensor.Tensor) ([][][]float32, int, error) {
	dense, ok := raw.(*tensor.Dense)
	if !ok {
		return nil, 0, errors.Errorf("yolo: unsupported tensor type %T", raw)
	}

	shape := dense.Shape()
	if len(shape) != 3 {
		return nil, 0, errors.Errorf("yolo: prediction tensor must be rank 3 [batch, anchors, 5+classes], got shape %v", shape)
	}
	batch, anchors, rowWidth := shape[0], shape[1], shape[2]
	if rowWidth != 5+y.NumClasses() {
		return nil, 0, errors.Errorf("yolo: tensor row width %d disagrees with %d classes (want %d)", rowWidth, y.NumClasses(), 5+y.NumClasses())
	}

	data, ok := dense.Data().([]float32)
	if !ok {
		return nil, 0, errors.Errorf("yolo: prediction tensor must hold float32, got %v", dense.Dtype())
	}
	if len(data) != batch*anchors*rowWidth {
		return nil, 0, errors.Errorf("yolo: tensor backing holds %d values, shape %v needs %d", len(data), shape, batch*anchors*rowWidth)
	}

	w := float32(y.options.InputWidth)
	h := float32(y.options.InputHeight)

	out := make([][][]float32, batch)
	for b := 0; b < batch; b++ {
		rows := make([][]float32, anchors)
		base := b * anchors * rowWidth
		for a := 0; a < anchors; a++ {
			row := make([]float32, rowWidth)
			copy(row, data[base+a*rowWidth:base+(a+1)*rowWidth])
			if y.normalized {
				row[0] *= w
				row[1] *= h
				row[2] *= w
				row[3] *= h
			}
			rows[a] = row
		}
		out[b] = rows
	}
	return out, y.NumClasses(), nil
}

// PostProcess decodes the raw prediction tensor and filters every image of
// the batch through NMS.
//
// Arguments:
//   - raw: The inference output tensor, shape [batch, anchors, 5+classes].
//   - cfg: Filter parameters.
//
// Returns:
//   - [][]postprocess.Result: Per-image detections in batch order.
//   - error: A layout or configuration contract violation.
func (y *YOLO) PostProcess(raw tensor.Tensor, cfg *postprocess.Config) ([][]postprocess.Result, error) {
	batch, numClasses, err := y.DecodeBatch(raw)
	if err != nil {
		return nil, err
	}
	return postprocess.FilterBatch(batch, numClasses, cfg)
}
