package geom

import (
	"math"
	"sort"

	"geopoints/pkg/geoerr"
)

// minIndexed is the point count below which a linear scan beats building an R-tree.
const minIndexed = 64

// Polygon is a closed ring given by its vertices. The last vertex connects back to the first.
type Polygon []Point

// Validate checks the polygon has at least three vertices.
func (poly Polygon) Validate() error {
	if len(poly) < 3 {
		return geoerr.Validationf("polygon must have at least 3 vertices, got %d", len(poly))
	}
	return nil
}

// Bounds of the polygon vertices.
func (poly Polygon) Bounds() Bounds {
	return BoundsOf(poly)
}

// Contains is the point-in-polygon predicate. When closed is true points on the
// boundary belong to the polygon, otherwise they do not.
func (poly Polygon) Contains(p Point, closed bool) bool {
	return poly.contains(p, closed, tolerance(poly.Bounds()))
}

func (poly Polygon) contains(p Point, closed bool, tol float64) bool {
	n := len(poly)

	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		if onSegment(p, poly[j], poly[i], tol) {
			return closed
		}
	}

	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := poly[i][0], poly[i][1]
		xj, yj := poly[j][0], poly[j][1]

		if (yi > p[1]) != (yj > p[1]) &&
			p[0] < (xj-xi)*(p[1]-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}

	return inside
}

// onSegment reports whether p lies on segment a-b within tol.
func onSegment(p, a, b Point, tol float64) bool {
	dx, dy := b[0]-a[0], b[1]-a[1]
	length := math.Hypot(dx, dy)
	if length == 0 {
		return p.ApproxEqual(a, tol)
	}

	// Distance from the supporting line.
	cross := dx*(p[1]-a[1]) - dy*(p[0]-a[0])
	if math.Abs(cross)/length > tol {
		return false
	}

	// Projection must fall between the end points.
	dot := (p[0]-a[0])*dx + (p[1]-a[1])*dy
	return dot >= -tol*length && dot <= length*length+tol*length
}

// SeparatePoints splits the indices of points into those inside the polygon and
// those outside it. Both lists are sorted and together cover every index once.
func SeparatePoints(points []Point, poly Polygon, closed bool) (inside, outside []int, err error) {
	if err := poly.Validate(); err != nil {
		return nil, nil, err
	}

	bounds := poly.Bounds()
	tol := tolerance(bounds)

	var candidates []int
	if len(points) >= minIndexed {
		candidates = NewIndex(points).Search(bounds.Expand(tol))
	} else {
		candidates = make([]int, 0, len(points))
		for i, p := range points {
			if bounds.Expand(tol).Contains(p) {
				candidates = append(candidates, i)
			}
		}
	}

	isInside := make([]bool, len(points))
	for _, idx := range candidates {
		isInside[idx] = poly.contains(points[idx], closed, tol)
	}

	inside = make([]int, 0, len(candidates))
	outside = make([]int, 0, len(points)-len(candidates))
	for i, in := range isInside {
		if in {
			inside = append(inside, i)
		} else {
			outside = append(outside, i)
		}
	}

	return inside, outside, nil
}

// InsidePolygon returns the sorted indices of points inside the polygon.
func InsidePolygon(points []Point, poly Polygon, closed bool) ([]int, error) {
	inside, _, err := SeparatePoints(points, poly, closed)
	return inside, err
}

// OutsidePolygon returns the sorted indices of points outside the polygon.
func OutsidePolygon(points []Point, poly Polygon, closed bool) ([]int, error) {
	_, outside, err := SeparatePoints(points, poly, closed)
	return outside, err
}

func sortedCopy(idx []int) []int {
	out := append([]int(nil), idx...)
	sort.Ints(out)
	return out
}
