package georef

import (
	"fmt"
	"strconv"

	"geopoints/pkg/geoerr"
	"geopoints/pkg/geom"
	"geopoints/pkg/projection"
)

// DefaultZone marks a frame without a real projection.
const DefaultZone = projection.NoZone

const (
	DefaultDatum      = "wgs84"
	DefaultProjection = "UTM"
	DefaultUnits      = "m"
)

// Metadata keys used when a GeoReference is persisted.
const (
	KeyXOrigin       = "xllcorner"
	KeyYOrigin       = "yllcorner"
	KeyZone          = "zone"
	KeyFalseEasting  = "false_easting"
	KeyFalseNorthing = "false_northing"
	KeyDatum         = "datum"
	KeyProjection    = "projection"
	KeyUnits         = "units"
)

// GeoReference ties relative coordinates to the UTM grid: a zone plus the
// origin that relative points are offset from.
type GeoReference struct {
	Zone          int     `json:"zone"`
	XOrigin       float64 `json:"xllcorner"`
	YOrigin       float64 `json:"yllcorner"`
	FalseEasting  float64 `json:"false_easting"`
	FalseNorthing float64 `json:"false_northing"`
	Datum         string  `json:"datum"`
	Projection    string  `json:"projection"`
	Units         string  `json:"units"`
}

// New creates a GeoReference for a zone and origin with the UTM defaults.
func New(zone int, xOrigin, yOrigin float64) GeoReference {
	return GeoReference{
		Zone:          zone,
		XOrigin:       xOrigin,
		YOrigin:       yOrigin,
		FalseEasting:  500000,
		FalseNorthing: projection.FalseNorthing(true),
		Datum:         DefaultDatum,
		Projection:    DefaultProjection,
		Units:         DefaultUnits,
	}
}

// Default is the default zone with a zero origin.
func Default() GeoReference {
	return New(DefaultZone, 0, 0)
}

func (g GeoReference) IsDefaultZone() bool {
	return g.Zone == DefaultZone
}

// Absolute returns points + origin.
func (g GeoReference) Absolute(points []geom.Point) []geom.Point {
	return geom.Translate(points, g.XOrigin, g.YOrigin)
}

// Relative re-expresses points given in inFrame relative to g. A nil inFrame
// means the points are already absolute.
func (g GeoReference) Relative(points []geom.Point, inFrame *GeoReference) []geom.Point {
	dx, dy := -g.XOrigin, -g.YOrigin
	if inFrame != nil {
		dx += inFrame.XOrigin
		dy += inFrame.YOrigin
	}
	return geom.Translate(points, dx, dy)
}

// Reconcile checks the two zones may be merged. When one side carries the
// default zone it adopts the other's zone, so both references agree afterwards.
func (g *GeoReference) Reconcile(other *GeoReference) error {
	if other == nil {
		return nil
	}

	switch {
	case g.Zone == other.Zone:
	case g.IsDefaultZone():
		g.Zone = other.Zone
	case other.IsDefaultZone():
		other.Zone = g.Zone
	default:
		return geoerr.ZoneConflictf("geo reference zone %d does not match zone %d", g.Zone, other.Zone)
	}

	return nil
}

// ToLatLong converts absolute points of this zone into (lat, long) pairs.
func (g GeoReference) ToLatLong(points []geom.Point, south bool) ([]geom.Point, error) {
	if g.IsDefaultZone() {
		return nil, geoerr.Validationf("points need a zone to be converted into lats and longs")
	}
	return projection.UTMToLatLon(points, g.Zone, south)
}

// Equal compares zone and origin. Descriptive fields are ignored.
func (g GeoReference) Equal(o GeoReference) bool {
	return g.Zone == o.Zone && g.XOrigin == o.XOrigin && g.YOrigin == o.YOrigin
}

// WithOrigin returns a copy with a different origin.
func (g GeoReference) WithOrigin(xOrigin, yOrigin float64) GeoReference {
	g.XOrigin = xOrigin
	g.YOrigin = yOrigin
	return g
}

func (g GeoReference) String() string {
	return fmt.Sprintf("zone=%d xllcorner=%g yllcorner=%g", g.Zone, g.XOrigin, g.YOrigin)
}

// Metadata encodes the reference as string key/value pairs.
func (g GeoReference) Metadata() map[string]string {
	datum, proj, units := g.Datum, g.Projection, g.Units
	if datum == "" {
		datum = DefaultDatum
	}
	if proj == "" {
		proj = DefaultProjection
	}
	if units == "" {
		units = DefaultUnits
	}

	return map[string]string{
		KeyXOrigin:       strconv.FormatFloat(g.XOrigin, 'g', -1, 64),
		KeyYOrigin:       strconv.FormatFloat(g.YOrigin, 'g', -1, 64),
		KeyZone:          strconv.Itoa(g.Zone),
		KeyFalseEasting:  strconv.FormatFloat(g.FalseEasting, 'g', -1, 64),
		KeyFalseNorthing: strconv.FormatFloat(g.FalseNorthing, 'g', -1, 64),
		KeyDatum:         datum,
		KeyProjection:    proj,
		KeyUnits:         units,
	}
}

// FromMetadata decodes a reference written by Metadata. It returns nil when the
// zone key is absent.
func FromMetadata(md map[string]string) (*GeoReference, error) {
	zoneStr, ok := md[KeyZone]
	if !ok {
		return nil, nil
	}

	zone, err := strconv.Atoi(zoneStr)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", KeyZone, zoneStr, err)
	}

	g := New(zone, 0, 0)

	floatKeys := []struct {
		key string
		dst *float64
	}{
		{KeyXOrigin, &g.XOrigin},
		{KeyYOrigin, &g.YOrigin},
		{KeyFalseEasting, &g.FalseEasting},
		{KeyFalseNorthing, &g.FalseNorthing},
	}
	for _, f := range floatKeys {
		s, ok := md[f.key]
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", f.key, s, err)
		}
		*f.dst = v
	}

	if v, ok := md[KeyDatum]; ok {
		g.Datum = v
	}
	if v, ok := md[KeyProjection]; ok {
		g.Projection = v
	}
	if v, ok := md[KeyUnits]; ok {
		g.Units = v
	}

	return &g, nil
}
