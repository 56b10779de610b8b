package yolo

import (
	"image"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/models/model"
)

// PreProcess letterboxes the image to the model input size and converts it to
// a normalized CHW RGB float32 tensor.
//
// Arguments:
//   - img: The source image.
//
// Returns:
//   - *model.Input: Tensor backing, shape [1, 3, H, W] and the letterbox
//     mapping for coordinate recovery.
//   - error: If the image is malformed.
func (y *YOLO) PreProcess(img image.Image) (*model.Input, error) {
	lb, err := images.Letterbox(img, y.letterbox)
	if err != nil {
		return nil, errors.Wrap(err, "yolo: preprocess failed")
	}

	// Dimensions come from the letterboxed image: in auto (minimum-rectangle)
	// mode they can be smaller than the configured target.
	width := lb.Image.Bounds().Dx()
	height := lb.Image.Bounds().Dy()
	channelSize := width * height

	data := make([]float32, 3*channelSize)
	red := data[0:channelSize]
	green := data[channelSize : 2*channelSize]
	blue := data[2*channelSize : 3*channelSize]

	boxed := lb.Image
	min := boxed.Bounds().Min
	i := 0
	for yy := 0; yy < height; yy++ {
		for xx := 0; xx < width; xx++ {
			r, g, b, _ := boxed.At(min.X+xx, min.Y+yy).RGBA()
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(b>>8) / 255.0
			i++
		}
	}

	return &model.Input{
		Data:      data,
		Shape:     []int64{1, 3, int64(height), int64(width)},
		Letterbox: lb,
	}, nil
}
