package dataset

import (
	"geopoints/pkg/geoerr"
	"geopoints/pkg/geom"
	"geopoints/pkg/georef"
)

// GetDataPoints returns a copy of the points, either absolute or relative to the
// dataset's own geo reference.
func (d *Dataset) GetDataPoints(absolute bool) []geom.Point {
	if absolute {
		return d.geoRef.Absolute(d.points)
	}
	out := make([]geom.Point, len(d.points))
	copy(out, d.points)
	return out
}

// GetDataPointsIn returns the points re-expressed relative to frame.
func (d *Dataset) GetDataPointsIn(frame georef.GeoReference) []geom.Point {
	return frame.Relative(d.points, &d.geoRef)
}

// GetLatLong converts the absolute points into (lat, long) pairs.
func (d *Dataset) GetLatLong(south bool) ([]geom.Point, error) {
	return d.geoRef.ToLatLong(d.GetDataPoints(true), south)
}

// GetAttributes returns a copy of one attribute vector. An empty name resolves
// to the default attribute, then to the first attribute by name.
func (d *Dataset) GetAttributes(name string) ([]float64, error) {
	if name == "" {
		name = d.defaultAttribute
	}
	if name == "" {
		keys := sortedKeys(d.attributes)
		if len(keys) == 0 {
			return nil, geoerr.Validationf("dataset has no attributes")
		}
		name = keys[0]
	}

	values, ok := d.attributes[name]
	if !ok {
		return nil, geoerr.Validationf("attribute %q not found, available attributes are %v", name, sortedKeys(d.attributes))
	}

	out := make([]float64, len(values))
	copy(out, values)
	return out, nil
}

// GetAllAttributes returns a copy of every attribute vector.
func (d *Dataset) GetAllAttributes() map[string][]float64 {
	return copyAttributes(d.attributes)
}

// AttributeNames in sorted order.
func (d *Dataset) AttributeNames() []string {
	return sortedKeys(d.attributes)
}

func (d *Dataset) GetGeoReference() georef.GeoReference {
	return d.geoRef
}

func (d *Dataset) GetDefaultAttribute() string {
	return d.defaultAttribute
}

// SetDefaultAttribute picks the attribute returned by GetAttributes(""). An
// empty name clears it.
func (d *Dataset) SetDefaultAttribute(name string) error {
	if name != "" {
		if _, ok := d.attributes[name]; !ok {
			return geoerr.Validationf("attribute %q not found, available attributes are %v", name, sortedKeys(d.attributes))
		}
	}
	d.defaultAttribute = name
	return nil
}

// SetGeoReference re-bases the stored points onto g. Absolute positions do not change.
func (d *Dataset) SetGeoReference(g georef.GeoReference) {
	d.points = g.Relative(d.points, &d.geoRef)
	d.geoRef = g
}
