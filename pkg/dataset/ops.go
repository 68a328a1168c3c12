package dataset

import (
	"math"
	"math/rand/v2"
	"time"

	"geopoints/pkg/geoerr"
	"geopoints/pkg/geom"
	"geopoints/pkg/georef"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// Combine concatenates b after a. The result is stored in absolute coordinates
// under the reconciled zone with a zero origin. A nil operand returns a copy of
// the other one in that form.
func Combine(a, b *Dataset) (*Dataset, error) {
	if a == nil {
		if b == nil {
			return nil, geoerr.Validationf("both datasets are nil")
		}
		return Combine(b, nil)
	}

	ga := a.geoRef
	points := a.GetDataPoints(true)
	attrs := a.GetAllAttributes()

	if b != nil {
		gb := b.geoRef
		if err := ga.Reconcile(&gb); err != nil {
			return nil, err
		}

		if !sameKeys(a.attributes, b.attributes) {
			return nil, geoerr.Validationf("datasets have different attributes: %v and %v",
				sortedKeys(a.attributes), sortedKeys(b.attributes))
		}

		points = append(points, b.GetDataPoints(true)...)
		for name, values := range b.attributes {
			attrs[name] = append(attrs[name], values...)
		}
	}

	return build(points, attrs, a.defaultAttribute, ga.WithOrigin(0, 0))
}

func sameKeys(a, b map[string][]float64) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// GetSample gathers the points and attributes at indices, in order. The sample
// holds absolute coordinates under a default geo reference.
func (d *Dataset) GetSample(indices []int) (*Dataset, error) {
	points, err := geom.Take(d.GetDataPoints(true), indices)
	if err != nil {
		return nil, geoerr.Validationf("invalid sample: %v", err)
	}

	attrs := make(map[string][]float64, len(d.attributes))
	for name, values := range d.attributes {
		sampled := make([]float64, len(indices))
		for i, idx := range indices {
			sampled[i] = values[idx]
		}
		attrs[name] = sampled
	}

	return build(points, attrs, d.defaultAttribute, georef.Default())
}

// Split partitions the dataset in two. The first part holds round(factor*N)
// points drawn uniformly without replacement from src, the second the rest in
// index order. A nil src is seeded from the clock.
func (d *Dataset) Split(factor float64, src rand.Source) (*Dataset, *Dataset, error) {
	if factor < 0 || factor > 1 || math.IsNaN(factor) {
		return nil, nil, geoerr.Validationf("split factor must be in [0, 1], got %g", factor)
	}

	if src == nil {
		now := uint64(time.Now().UnixNano())
		src = rand.NewPCG(now, now>>1)
	}

	n := d.Len()
	k := int(math.Round(factor * float64(n)))

	first, rest := splitIndices(n, k, src)

	log.Debug().
		Int("total", n).
		Int("first", len(first)).
		Int("second", len(rest)).
		Msg("split dataset")

	g1, err := d.GetSample(first)
	if err != nil {
		return nil, nil, err
	}
	g2, err := d.GetSample(rest)
	if err != nil {
		return nil, nil, err
	}

	return g1, g2, nil
}

func splitIndices(n, k int, src rand.Source) (first, rest []int) {
	first = make([]int, k)
	if k > 0 {
		sampleuv.WithoutReplacement(first, n, src)
	}

	taken := make([]bool, n)
	for _, i := range first {
		taken[i] = true
	}

	rest = make([]int, 0, n-k)
	for i := 0; i < n; i++ {
		if !taken[i] {
			rest = append(rest, i)
		}
	}

	return first, rest
}

// Clip keeps the points inside poly. Poly is given in absolute coordinates.
func (d *Dataset) Clip(poly geom.Polygon, closed bool) (*Dataset, error) {
	inside, err := geom.InsidePolygon(d.GetDataPoints(true), poly, closed)
	if err != nil {
		return nil, err
	}
	return d.GetSample(inside)
}

// ClipOutside keeps the points Clip would drop.
func (d *Dataset) ClipOutside(poly geom.Polygon, closed bool) (*Dataset, error) {
	outside, err := geom.OutsidePolygon(d.GetDataPoints(true), poly, closed)
	if err != nil {
		return nil, err
	}
	return d.GetSample(outside)
}

// AsPolygon uses the absolute points of d as polygon vertices.
func (d *Dataset) AsPolygon() geom.Polygon {
	return geom.Polygon(d.GetDataPoints(true))
}
