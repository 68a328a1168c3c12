package geom

import (
	"fmt"
	"math"
)

// Point is an (x, y) coordinate pair.
type Point [2]float64

func (p Point) X() float64 {
	return p[0]
}

func (p Point) Y() float64 {
	return p[1]
}

// Add translates the point by (dx, dy).
func (p Point) Add(dx, dy float64) Point {
	return Point{p[0] + dx, p[1] + dy}
}

// ApproxEqual compares both coordinates within tol.
func (p Point) ApproxEqual(q Point, tol float64) bool {
	return math.Abs(p[0]-q[0]) <= tol && math.Abs(p[1]-q[1]) <= tol
}

// FromRows converts an Nx2 row list into points. Rows of any other width are rejected.
func FromRows(rows [][]float64) ([]Point, error) {
	out := make([]Point, len(rows))
	for i, row := range rows {
		if len(row) != 2 {
			return nil, fmt.Errorf("row %d has %d columns, expected 2", i, len(row))
		}
		out[i] = Point{row[0], row[1]}
	}
	return out, nil
}

// Rows converts points back into an Nx2 row list.
func Rows(points []Point) [][]float64 {
	out := make([][]float64, len(points))
	for i, p := range points {
		out[i] = []float64{p[0], p[1]}
	}
	return out
}

// Translate returns a new slice with every point shifted by (dx, dy).
func Translate(points []Point, dx, dy float64) []Point {
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = p.Add(dx, dy)
	}
	return out
}

// Take gathers the points at the given indices. Duplicates are allowed.
func Take(points []Point, indices []int) ([]Point, error) {
	out := make([]Point, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= len(points) {
			return nil, fmt.Errorf("index %d out of range [0, %d)", idx, len(points))
		}
		out[i] = points[idx]
	}
	return out, nil
}
