// Package postprocess - Detection filtering (confidence gating, NMS, merge).
package postprocess

import "github.com/nvr-ai/go-detect/images"

// Result represents a single final detection.
type Result struct {
	// The corner-form bounding box of the detection.
	Box images.Rect
	// The fused confidence score (objectness x class score), in [0, 1].
	Score float32
	// The predicted class index, in [0, numClasses).
	Class int
}
