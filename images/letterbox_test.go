package images

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// solidImage creates a uniformly colored test image.
func solidImage(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestLetterboxFullPadding(t *testing.T) {
	// 1280x720 into a 640x640 square: scale 0.5, vertical bars only.
	src := solidImage(1280, 720, color.RGBA{R: 255, A: 255})

	res, err := Letterbox(src, LetterboxOptions{
		TargetHeight: 640,
		TargetWidth:  640,
		Stride:       32,
		AllowUpscale: true,
	})
	require.NoError(t, err)

	bounds := res.Image.Bounds()
	assert.Equal(t, 640, bounds.Dx(), "output width must match the target")
	assert.Equal(t, 640, bounds.Dy(), "output height must match the target")
	assert.InDelta(t, 0.5, res.Ratio, 1e-9, "scale ratio should be min(640/720, 640/1280)")
	assert.InDelta(t, 0.0, res.PadX, 1e-9)
	assert.InDelta(t, 140.0, res.PadY, 1e-9, "vertical padding should be (640-360)/2")

	// Border pixels carry the default mid-gray, content pixels the source color.
	r, g, b, _ := res.Image.At(320, 10).RGBA()
	assert.Equal(t, []uint32{114, 114, 114}, []uint32{r >> 8, g >> 8, b >> 8}, "top border should be pad color")
	r, _, _, _ = res.Image.At(320, 320).RGBA()
	assert.Equal(t, uint32(255), r>>8, "center should be source content")
}

func TestLetterboxAutoStridePadding(t *testing.T) {
	// Minimum-rectangle mode pads 360 only up to the next multiple of 32 (384).
	src := solidImage(1280, 720, color.White)

	res, err := Letterbox(src, LetterboxOptions{
		TargetHeight: 640,
		TargetWidth:  640,
		Stride:       32,
		Auto:         true,
		AllowUpscale: true,
	})
	require.NoError(t, err)

	bounds := res.Image.Bounds()
	assert.Equal(t, 640, bounds.Dx())
	assert.Equal(t, 384, bounds.Dy(), "auto mode should stop at the stride multiple above 360")
	assert.Zero(t, bounds.Dy()%32, "output height must stay stride aligned")
	assert.InDelta(t, 12.0, res.PadY, 1e-9, "remaining padding is (280 mod 32)/2")
}

func TestLetterboxNoUpscale(t *testing.T) {
	src := solidImage(320, 240, color.White)

	res, err := Letterbox(src, LetterboxOptions{
		TargetHeight: 640,
		TargetWidth:  640,
		AllowUpscale: false,
	})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, res.Ratio, 1e-9, "ratio must clamp to 1 when upscaling is off")
	assert.Equal(t, 640, res.Image.Bounds().Dx())
	assert.Equal(t, 640, res.Image.Bounds().Dy())
	assert.InDelta(t, 160.0, res.PadX, 1e-9)
	assert.InDelta(t, 200.0, res.PadY, 1e-9)
}

func TestLetterboxOddPaddingSplit(t *testing.T) {
	// One pixel of total horizontal padding: the -0.1/+0.1 bias puts it on the
	// right side, deterministically.
	src := solidImage(639, 640, color.White)

	res, err := Letterbox(src, LetterboxOptions{
		TargetHeight: 640,
		TargetWidth:  640,
		AllowUpscale: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 640, res.Image.Bounds().Dx())
	assert.Equal(t, 640, res.Image.Bounds().Dy())
	assert.InDelta(t, 0.5, res.PadX, 1e-9)

	// Left column must be content (zero left pad), right column border.
	left, _, _, _ := res.Image.At(0, 320).RGBA()
	assert.Equal(t, uint32(255), left>>8, "left column should be source content")
	r, g, b, _ := res.Image.At(639, 320).RGBA()
	assert.Equal(t, []uint32{114, 114, 114}, []uint32{r >> 8, g >> 8, b >> 8}, "single pad pixel should land on the high side")
}

func TestLetterboxRoundTripMapping(t *testing.T) {
	src := solidImage(1280, 720, color.White)

	res, err := Letterbox(src, LetterboxOptions{
		TargetHeight: 640,
		TargetWidth:  640,
		AllowUpscale: true,
	})
	require.NoError(t, err)

	// A box known in original coordinates, pushed forward through the resize
	// and recovered via ToOriginal, must land within one pixel.
	orig := Rect{X1: 100, Y1: 50, X2: 900, Y2: 700}
	ratio := float32(res.Ratio)
	resized := Rect{
		X1: orig.X1*ratio + float32(res.PadX),
		Y1: orig.Y1*ratio + float32(res.PadY),
		X2: orig.X2*ratio + float32(res.PadX),
		Y2: orig.Y2*ratio + float32(res.PadY),
	}

	back := res.ToOriginal(resized)
	assert.InDelta(t, orig.X1, back.X1, 1.0)
	assert.InDelta(t, orig.Y1, back.Y1, 1.0)
	assert.InDelta(t, orig.X2, back.X2, 1.0)
	assert.InDelta(t, orig.Y2, back.Y2, 1.0)
}

func TestLetterboxCustomPadColor(t *testing.T) {
	src := solidImage(100, 50, color.White)

	res, err := Letterbox(src, LetterboxOptions{
		TargetHeight: 100,
		TargetWidth:  100,
		AllowUpscale: true,
		PadColor:     color.RGBA{R: 1, G: 2, B: 3, A: 255},
	})
	require.NoError(t, err)

	r, g, b, _ := res.Image.At(50, 0).RGBA()
	assert.Equal(t, []uint32{1, 2, 3}, []uint32{r >> 8, g >> 8, b >> 8})
}

func TestLetterboxContractViolations(t *testing.T) {
	tests := []struct {
		name string
		img  image.Image
		opts LetterboxOptions
	}{
		{
			name: "nil image",
			img:  nil,
			opts: SquareLetterboxOptions(640),
		},
		{
			name: "zero-sized image",
			img:  image.NewRGBA(image.Rect(0, 0, 0, 0)),
			opts: SquareLetterboxOptions(640),
		},
		{
			name: "zero target",
			img:  solidImage(10, 10, color.White),
			opts: LetterboxOptions{TargetHeight: 0, TargetWidth: 640},
		},
		{
			name: "auto without stride",
			img:  solidImage(10, 10, color.White),
			opts: LetterboxOptions{TargetHeight: 640, TargetWidth: 640, Auto: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Letterbox(tt.img, tt.opts)
			assert.Error(t, err, "malformed input must fail fast")
		})
	}
}
