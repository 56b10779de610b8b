// Package models - registry for detection models.
package models

import (
	"fmt"

	"github.com/nvr-ai/go-detect/models/model"
	"github.com/nvr-ai/go-detect/models/yolo"
)

// NewModel creates a detection model instance based on the specified model
// type. Creation is centralized here so new model families plug in without
// touching callers.
//
// Arguments:
//   - args: Configuration parameters specifying the model type and location.
//
// Returns:
//   - model.Model: A fully configured model instance.
//   - error: If creation fails or the model name is unsupported.
func NewModel(args model.NewModelArgs) (model.Model, error) {
	switch args.Name {
	case model.ModelNameYOLOv3, model.ModelNameYOLOv5:
		return yolo.NewModel(args)
	default:
		return nil, fmt.Errorf("unsupported model name: %s", args.Name)
	}
}
