// Package images - Image geometry and letterbox utilities.
package images

import "github.com/chewxy/math32"

// Rect is a corner-form bounding box (x1, y1) top-left, (x2, y2) bottom-right.
//
// Coordinates are float32 pixels; X1 <= X2 and Y1 <= Y2 hold for any box
// produced by CenterToCorner from non-negative extents.
type Rect struct {
	X1, Y1, X2, Y2 float32
}

// CenterBox is a center-form bounding box: center point plus width and height.
type CenterBox struct {
	Cx, Cy, W, H float32
}

// Width returns the horizontal extent of the box.
func (r Rect) Width() float32 { return r.X2 - r.X1 }

// Height returns the vertical extent of the box.
func (r Rect) Height() float32 { return r.Y2 - r.Y1 }

// Area returns the box area in square pixels.
func (r Rect) Area() float32 { return r.Width() * r.Height() }

// Offset returns a copy of the box translated by (dx, dy).
//
// The receiver is not mutated; callers that need a shifted view of shared
// candidate boxes (e.g. class-offset NMS) get an independent copy.
func (r Rect) Offset(dx, dy float32) Rect {
	return Rect{X1: r.X1 + dx, Y1: r.Y1 + dy, X2: r.X2 + dx, Y2: r.Y2 + dy}
}

// Corner converts a center-form box to corner form.
func (b CenterBox) Corner() Rect {
	return Rect{
		X1: b.Cx - b.W/2,
		Y1: b.Cy - b.H/2,
		X2: b.Cx + b.W/2,
		Y2: b.Cy + b.H/2,
	}
}

// Center converts a corner-form box to center form.
func (r Rect) Center() CenterBox {
	return CenterBox{
		Cx: (r.X1 + r.X2) / 2,
		Cy: (r.Y1 + r.Y2) / 2,
		W:  r.X2 - r.X1,
		H:  r.Y2 - r.Y1,
	}
}

// CenterToCorner converts a slice of center-form boxes to corner form.
//
// Arguments:
//   - boxes: Center-form boxes (cx, cy, w, h).
//
// Returns:
//   - A new slice of corner-form boxes; the input is left untouched.
func CenterToCorner(boxes []CenterBox) []Rect {
	out := make([]Rect, len(boxes))
	for i, b := range boxes {
		out[i] = b.Corner()
	}
	return out
}

// CornerToCenter converts a slice of corner-form boxes to center form.
func CornerToCenter(boxes []Rect) []CenterBox {
	out := make([]CenterBox, len(boxes))
	for i, r := range boxes {
		out[i] = r.Center()
	}
	return out
}

// CalculateIoU computes the Intersection over Union (Jaccard index) of two
// corner-form boxes.
//
// The intersection is the product of the per-axis overlaps clamped to >= 0;
// the union follows from inclusion-exclusion: area(r) + area(o) - intersection.
// For any pair of proper (positive-area) boxes the union is positive, so the
// division is safe; a pair of fully degenerate boxes yields 0.
//
// Arguments:
//   - r: The first box.
//   - o: The other box.
//
// Returns:
//   - float32: A value in [0, 1]; 1 means the boxes coincide, 0 means no overlap.
func CalculateIoU(r, o Rect) float32 {
	interW := math32.Min(r.X2, o.X2) - math32.Max(r.X1, o.X1)
	interH := math32.Min(r.Y2, o.Y2) - math32.Max(r.Y1, o.Y1)
	if interW <= 0 || interH <= 0 {
		return 0
	}
	inter := interW * interH

	union := r.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// IoUMatrix computes pairwise IoU between two sets of corner-form boxes.
//
// Arguments:
//   - a: First set of boxes (N entries).
//   - b: Second set of boxes (M entries).
//
// Returns:
//   - An NxM matrix where element [i][j] is CalculateIoU(a[i], b[j]).
func IoUMatrix(a, b []Rect) [][]float32 {
	m := make([][]float32, len(a))
	for i := range a {
		row := make([]float32, len(b))
		for j := range b {
			row[j] = CalculateIoU(a[i], b[j])
		}
		m[i] = row
	}
	return m
}
