package images

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/nfnt/resize"
)

// DefaultPadColor is the mid-gray used to fill letterbox borders.
var DefaultPadColor = color.RGBA{R: 114, G: 114, B: 114, A: 255}

// LetterboxOptions controls the aspect-preserving resize.
type LetterboxOptions struct {
	// TargetHeight and TargetWidth are the model input dimensions.
	TargetHeight int
	TargetWidth  int
	// Stride is the network downsampling factor; output dimensions stay a
	// multiple of it when Auto is set.
	Stride int
	// Auto enables minimum-rectangle mode: pad only up to the next stride
	// multiple instead of all the way to the target size.
	Auto bool
	// AllowUpscale permits a scale ratio above 1 for images smaller than the
	// target.
	AllowUpscale bool
	// PadColor fills the border; nil means DefaultPadColor.
	PadColor color.Color
}

// LetterboxResult is the resized image plus the mapping back to the original.
type LetterboxResult struct {
	// Image has exactly the target dimensions (or their stride-reduced
	// variant in Auto mode).
	Image image.Image
	// Ratio is the scale applied to the original image, identical per axis.
	Ratio float64
	// PadX and PadY are the per-side padding in sub-pixel units. The integer
	// border extents differ from these by at most half a pixel of rounding.
	PadX float64
	PadY float64
}

// SquareLetterboxOptions returns options for a square target edge with the
// usual detector defaults (stride 32, upscaling allowed, full padding).
func SquareLetterboxOptions(edge int) LetterboxOptions {
	return LetterboxOptions{
		TargetHeight: edge,
		TargetWidth:  edge,
		Stride:       32,
		AllowUpscale: true,
	}
}

// Letterbox resizes an image to the target size while preserving its aspect
// ratio, filling the remainder with a constant border.
//
// The scale ratio is min(targetH/H, targetW/W), clamped to 1 when upscaling is
// disallowed. In Auto mode the padding on each axis is reduced modulo Stride,
// producing the smallest stride-aligned canvas that still contains the scaled
// image. Total padding is split across the two sides of each axis; a +-0.1
// bias before rounding keeps the split deterministic for exact halves, with
// the two sides differing by at most one pixel.
//
// Arguments:
//   - img: The source image; both dimensions must be positive.
//   - opts: Resize parameters.
//
// Returns:
//   - *LetterboxResult: The padded image with the exact Ratio/PadX/PadY needed
//     to map detections back via orig = (resized - pad) / ratio.
//   - error: If the image or target dimensions are malformed.
func Letterbox(img image.Image, opts LetterboxOptions) (*LetterboxResult, error) {
	if img == nil {
		return nil, fmt.Errorf("letterbox: nil image")
	}
	bounds := img.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()
	if srcW <= 0 || srcH <= 0 {
		return nil, fmt.Errorf("letterbox: invalid image dimensions %dx%d", srcW, srcH)
	}
	if opts.TargetWidth <= 0 || opts.TargetHeight <= 0 {
		return nil, fmt.Errorf("letterbox: invalid target dimensions %dx%d", opts.TargetWidth, opts.TargetHeight)
	}
	if opts.Auto && opts.Stride <= 0 {
		return nil, fmt.Errorf("letterbox: auto mode requires a positive stride, got %d", opts.Stride)
	}

	// Scale ratio (new / old), identical on both axes.
	r := math.Min(
		float64(opts.TargetHeight)/float64(srcH),
		float64(opts.TargetWidth)/float64(srcW),
	)
	if !opts.AllowUpscale {
		r = math.Min(r, 1.0)
	}

	unpadW := int(math.Round(float64(srcW) * r))
	unpadH := int(math.Round(float64(srcH) * r))

	padW := float64(opts.TargetWidth - unpadW)
	padH := float64(opts.TargetHeight - unpadH)
	if opts.Auto {
		// Minimum rectangle: keep only the remainder needed to reach the next
		// stride multiple.
		padW = math.Mod(padW, float64(opts.Stride))
		padH = math.Mod(padH, float64(opts.Stride))
	}
	padW /= 2
	padH /= 2

	resized := img
	if unpadW != srcW || unpadH != srcH {
		resized = resize.Resize(uint(unpadW), uint(unpadH), img, resize.Bilinear)
	}

	top := int(math.Round(padH - 0.1))
	bottom := int(math.Round(padH + 0.1))
	left := int(math.Round(padW - 0.1))
	right := int(math.Round(padW + 0.1))

	padColor := opts.PadColor
	if padColor == nil {
		padColor = DefaultPadColor
	}

	canvas := image.NewRGBA(image.Rect(0, 0, unpadW+left+right, unpadH+top+bottom))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: padColor}, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(left, top, left+unpadW, top+unpadH), resized, resized.Bounds().Min, draw.Src)

	return &LetterboxResult{
		Image: canvas,
		Ratio: r,
		PadX:  padW,
		PadY:  padH,
	}, nil
}

// ToOriginal maps a corner-form box from letterboxed coordinates back into the
// original image's coordinate space.
func (l *LetterboxResult) ToOriginal(r Rect) Rect {
	ratio := float32(l.Ratio)
	padX := float32(l.PadX)
	padY := float32(l.PadY)
	return Rect{
		X1: (r.X1 - padX) / ratio,
		Y1: (r.Y1 - padY) / ratio,
		X2: (r.X2 - padX) / ratio,
		Y2: (r.Y2 - padY) / ratio,
	}
}
