// Package model - Shared model definitions and the detection model interface.
package model

import (
	"image"

	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/models/postprocess"
)

// Family is the family of models.
type Family string

const (
	// ModelFamilyYOLO is the YOLO model family.
	ModelFamilyYOLO Family = "yolo"
	// ModelFamilyCOCO is the COCO model family.
	ModelFamilyCOCO Family = "coco"
)

// Name is the unique identifier of a model.
type Name string

const (
	// ModelNameYOLOv3 is the name of the YOLOv3 model.
	ModelNameYOLOv3 Name = "yolov3"
	// ModelNameYOLOv5 is the name of the YOLOv5 model.
	ModelNameYOLOv5 Name = "yolov5"
)

// BaseModel is the base metadata shared by all models.
type BaseModel struct {
	Name        Name
	Family      Family
	Path        string
	InputWidth  int
	InputHeight int
	Classes     []string
}

// Input is a preprocessed image ready for inference, together with the
// letterbox mapping needed to bring detections back to source coordinates.
type Input struct {
	// Data is the normalized CHW tensor backing.
	Data []float32
	// Shape is the tensor shape [1, C, H, W].
	Shape []int64
	// Letterbox carries the scale ratio and padding of the resize.
	Letterbox *images.LetterboxResult
}

// Model is a detection model: it prepares images for inference and reduces
// raw inference output to detections.
type Model interface {
	Options() BaseModel
	// SetLetterbox overrides the model's default resize policy (stride,
	// padding mode, pad color).
	SetLetterbox(opts images.LetterboxOptions)
	PreProcess(img image.Image) (*Input, error)
	PostProcess(raw tensor.Tensor, cfg *postprocess.Config) ([][]postprocess.Result, error)
}

// NewModelArgs is the arguments for creating a new model.
type NewModelArgs struct {
	Name        Name     `json:"name" yaml:"name"`
	Path        string   `json:"path" yaml:"path"`
	InputWidth  int      `json:"input_width" yaml:"input_width"`
	InputHeight int      `json:"input_height" yaml:"input_height"`
	Classes     []string `json:"classes" yaml:"classes"`
}
