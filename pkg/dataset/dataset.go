package dataset

import (
	"fmt"
	"sort"
	"strings"

	"geopoints/pkg/geoerr"
	"geopoints/pkg/geom"
	"geopoints/pkg/georef"
	"geopoints/pkg/projection"
)

// DefaultAttributeName is the key a bare attribute vector is stored under.
const DefaultAttributeName = "elevation"

// Params holds the inputs of New. Points and Latitudes/Longitudes are mutually exclusive.
type Params struct {
	// Points are N×2 rows relative to GeoReference.
	Points [][]float64

	// Attributes is either a bare vector (stored as "elevation") or a map
	// of name to vector. Values are coerced to float64.
	Attributes any

	GeoReference     *georef.GeoReference
	DefaultAttribute string

	Latitudes  []float64
	Longitudes []float64

	// PointsAreLatLong treats Points as (lat, long) rows to be projected.
	PointsAreLatLong bool

	// Projector converts lat/long input. Defaults to projection.Default.
	Projector projection.Projector
}

// Record is the raw output of a codec read: points relative to GeoReference,
// attribute vectors, and an optional frame.
type Record struct {
	Points       []geom.Point
	Attributes   map[string][]float64
	GeoReference *georef.GeoReference
}

// Dataset is a set of points with named per-point attributes, stored relative
// to its GeoReference.
type Dataset struct {
	points           []geom.Point
	attributes       map[string][]float64
	defaultAttribute string
	geoRef           georef.GeoReference
}

// New builds a dataset from explicit points or from latitude/longitude vectors.
func New(p Params) (*Dataset, error) {
	latLong := p.Latitudes != nil || p.Longitudes != nil

	if latLong {
		if p.Points != nil {
			return nil, geoerr.Validationf("give either points or latitudes and longitudes, not both")
		}
		if p.Latitudes == nil || p.Longitudes == nil {
			return nil, geoerr.Validationf("latitudes and longitudes must be given together")
		}
	}
	if (latLong || p.PointsAreLatLong) && p.GeoReference != nil {
		return nil, geoerr.Validationf("a geo reference cannot be given with lat/long input, it is derived from the coordinates")
	}

	lats, lons := p.Latitudes, p.Longitudes
	if p.PointsAreLatLong {
		if p.Points == nil {
			return nil, geoerr.Validationf("no points given")
		}
		var err error
		lats, lons, err = splitRows(p.Points)
		if err != nil {
			return nil, err
		}
		latLong = true
	}

	var (
		points []geom.Point
		g      = georef.Default()
	)

	if latLong {
		projector := p.Projector
		if projector == nil {
			projector = projection.Default
		}
		utm, zone, err := projector.ToUTM(lats, lons)
		if err != nil {
			return nil, err
		}
		points = utm
		g = georef.New(zone, 0, 0)
	} else {
		if p.Points == nil {
			return nil, geoerr.Validationf("no points given")
		}
		var err error
		points, err = geom.FromRows(p.Points)
		if err != nil {
			return nil, geoerr.Validationf("points must be an N×2 array: %v", err)
		}
		if p.GeoReference != nil {
			g = *p.GeoReference
		}
	}

	attrs, err := coerceAttributes(p.Attributes)
	if err != nil {
		return nil, err
	}

	return build(points, attrs, p.DefaultAttribute, g)
}

// FromRecord builds a dataset from codec output. The record is copied.
func FromRecord(r Record, defaultAttribute string) (*Dataset, error) {
	if r.Points == nil {
		return nil, geoerr.Validationf("no points given")
	}

	g := georef.Default()
	if r.GeoReference != nil {
		g = *r.GeoReference
	}

	points := make([]geom.Point, len(r.Points))
	copy(points, r.Points)

	return build(points, copyAttributes(r.Attributes), defaultAttribute, g)
}

// build takes ownership of points and attrs.
func build(points []geom.Point, attrs map[string][]float64, defaultAttr string, g georef.GeoReference) (*Dataset, error) {
	if attrs == nil {
		attrs = make(map[string][]float64)
	}

	for name, values := range attrs {
		if name == PointsColumn {
			return nil, geoerr.Validationf("attribute name %q is reserved for the point coordinates", name)
		}
		if len(values) != len(points) {
			return nil, geoerr.Validationf("attribute %q has %d values, expected %d", name, len(values), len(points))
		}
	}

	if defaultAttr != "" {
		if _, ok := attrs[defaultAttr]; !ok {
			return nil, geoerr.Validationf("default attribute %q is not one of the attributes %v", defaultAttr, sortedKeys(attrs))
		}
	}

	return &Dataset{
		points:           points,
		attributes:       attrs,
		defaultAttribute: defaultAttr,
		geoRef:           g,
	}, nil
}

func splitRows(rows [][]float64) (lats, lons []float64, err error) {
	lats = make([]float64, len(rows))
	lons = make([]float64, len(rows))
	for i, row := range rows {
		if len(row) != 2 {
			return nil, nil, geoerr.Validationf("points must be an N×2 array: row %d has %d columns", i, len(row))
		}
		lats[i], lons[i] = row[0], row[1]
	}
	return lats, lons, nil
}

func copyAttributes(attrs map[string][]float64) map[string][]float64 {
	out := make(map[string][]float64, len(attrs))
	for k, v := range attrs {
		c := make([]float64, len(v))
		copy(c, v)
		out[k] = c
	}
	return out
}

func sortedKeys(attrs map[string][]float64) []string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len is the number of points.
func (d *Dataset) Len() int {
	return len(d.points)
}

// String lists the absolute points.
func (d *Dataset) String() string {
	var b strings.Builder
	b.WriteString("[")
	for i, p := range d.GetDataPoints(true) {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "[%g %g]", p[0], p[1])
	}
	b.WriteString("]")
	return b.String()
}
