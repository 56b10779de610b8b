// Package yolo - YOLO-family detection model adapter.
package yolo

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/models/model"
)

// defaultInputEdge is the usual YOLO square input resolution.
const defaultInputEdge = 640

// YOLO adapts YOLO-family ONNX models (v3/v5 single-output layout) to the
// model.Model interface.
type YOLO struct {
	options model.BaseModel

	// letterbox is the resize policy applied by PreProcess.
	letterbox images.LetterboxOptions

	// normalized marks models whose box outputs are in [0, 1] units and need
	// rescaling into input pixels before filtering.
	normalized bool
}

// NewModel creates a YOLO model adapter.
//
// Arguments:
//   - args: Model name, path, class names and optional input dimensions
//     (defaulting to 640x640).
//
// Returns:
//   - *YOLO: The configured adapter.
//   - error: If the arguments are incomplete.
func NewModel(args model.NewModelArgs) (*YOLO, error) {
	if args.Path == "" {
		return nil, errors.New("yolo: model path is required")
	}
	if len(args.Classes) == 0 {
		return nil, errors.New("yolo: at least one class name is required")
	}

	width := args.InputWidth
	if width == 0 {
		width = defaultInputEdge
	}
	height := args.InputHeight
	if height == 0 {
		height = defaultInputEdge
	}

	return &YOLO{
		options: model.BaseModel{
			Name:        args.Name,
			Family:      model.ModelFamilyYOLO,
			Path:        args.Path,
			InputWidth:  width,
			InputHeight: height,
			Classes:     args.Classes,
		},
		letterbox: images.LetterboxOptions{
			TargetHeight: height,
			TargetWidth:  width,
			Stride:       32,
			AllowUpscale: true,
		},
		normalized: args.Name == model.ModelNameYOLOv3,
	}, nil
}

// Options returns the model metadata.
func (y *YOLO) Options() model.BaseModel {
	return y.options
}

// SetLetterbox replaces the default resize policy. The target dimensions must
// stay consistent with the inference session's input shape.
func (y *YOLO) SetLetterbox(opts images.LetterboxOptions) {
	y.letterbox = opts
}

// NumClasses returns the class count the model was trained on.
func (y *YOLO) NumClasses() int {
	return len(y.options.Classes)
}

// ClassName resolves a class index to its label, or "" when out of range.
func (y *YOLO) ClassName(class int) string {
	if class < 0 || class >= len(y.options.Classes) {
		return ""
	}
	return y.options.Classes[class]
}
