package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-detect/models/model"
)

func TestNewModel(t *testing.T) {
	m, err := NewModel(model.NewModelArgs{
		Name:    model.ModelNameYOLOv5,
		Path:    "weights/yolov5.onnx",
		Classes: COCOClasses,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ModelFamilyYOLO, m.Options().Family)
	assert.Len(t, m.Options().Classes, 80)

	_, err = NewModel(model.NewModelArgs{Name: "rfdetr", Path: "x.onnx", Classes: COCOClasses})
	assert.Error(t, err, "unknown model names are rejected")
}

func TestCOCOClasses(t *testing.T) {
	require.Len(t, COCOClasses, 80)
	assert.Equal(t, "person", COCOClasses[0])
	assert.Equal(t, "toothbrush", COCOClasses[79])
}
