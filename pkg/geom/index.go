package geom

import (
	"github.com/dhconnelly/rtreego"
)

// indexedPoint wraps a point for R-tree storage.
type indexedPoint struct {
	idx   int
	point Point
	pad   float64
}

// Bounds implements rtreego.Spatial. Points get a small box since the tree
// rejects zero sized rectangles.
func (e *indexedPoint) Bounds() rtreego.Rect {
	rect, _ := rtreego.NewRect(
		rtreego.Point{e.point[0] - e.pad, e.point[1] - e.pad},
		[]float64{2 * e.pad, 2 * e.pad},
	)
	return rect
}

// Index is an R-tree over a fixed point list.
type Index struct {
	rtree *rtreego.Rtree
	size  int
	pad   float64
}

// NewIndex builds an R-tree holding every point by its position in the slice.
func NewIndex(points []Point) *Index {
	pad := tolerance(BoundsOf(points))
	rtree := rtreego.NewTree(2, 25, 50)

	for i, p := range points {
		rtree.Insert(&indexedPoint{idx: i, point: p, pad: pad})
	}

	return &Index{rtree: rtree, size: len(points), pad: pad}
}

// Len is the number of indexed points.
func (ix *Index) Len() int {
	return ix.size
}

// Search returns the sorted indices of points whose box intersects b.
func (ix *Index) Search(b Bounds) []int {
	if ix.size == 0 {
		return nil
	}

	width := b.MaxX - b.MinX
	height := b.MaxY - b.MinY
	if width <= 0 {
		width = ix.pad
	}
	if height <= 0 {
		height = ix.pad
	}

	query, err := rtreego.NewRect(rtreego.Point{b.MinX, b.MinY}, []float64{width, height})
	if err != nil {
		return nil
	}

	spatials := ix.rtree.SearchIntersect(query)
	out := make([]int, 0, len(spatials))
	for _, s := range spatials {
		out = append(out, s.(*indexedPoint).idx)
	}

	return sortedCopy(out)
}
