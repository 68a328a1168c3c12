package geom

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Bounds is an axis aligned bounding box.
type Bounds struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// BoundsOf returns the bounding box of points. Empty input yields the zero box.
func BoundsOf(points []Point) Bounds {
	if len(points) == 0 {
		return Bounds{}
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p[0]
		ys[i] = p[1]
	}

	return Bounds{
		MinX: floats.Min(xs),
		MinY: floats.Min(ys),
		MaxX: floats.Max(xs),
		MaxY: floats.Max(ys),
	}
}

// Contains reports whether p lies in the box, edges included.
func (b Bounds) Contains(p Point) bool {
	return p[0] >= b.MinX && p[0] <= b.MaxX && p[1] >= b.MinY && p[1] <= b.MaxY
}

// Expand grows the box by pad on every side.
func (b Bounds) Expand(pad float64) Bounds {
	return Bounds{
		MinX: b.MinX - pad,
		MinY: b.MinY - pad,
		MaxX: b.MaxX + pad,
		MaxY: b.MaxY + pad,
	}
}

// magnitude is the largest absolute coordinate of the box.
func (b Bounds) magnitude() float64 {
	return floats.Max([]float64{
		math.Abs(b.MinX), math.Abs(b.MinY),
		math.Abs(b.MaxX), math.Abs(b.MaxY),
	})
}

// tolerance scales an absolute tolerance to the coordinate magnitude.
func tolerance(b Bounds) float64 {
	return 1e-9 * math.Max(1, b.magnitude())
}
