package dataset

import (
	"geopoints/pkg/geoerr"
	"geopoints/pkg/geom"
	"geopoints/pkg/georef"
)

// PointsDictionary is the loose exchange form used by mesh and boundary tools.
type PointsDictionary struct {
	PointList     [][]float64
	AttributeList map[string][]float64
	GeoReference  *georef.GeoReference
}

// ToPointsDictionary exports the relative points with their frame.
func (d *Dataset) ToPointsDictionary() PointsDictionary {
	g := d.geoRef
	return PointsDictionary{
		PointList:     geom.Rows(d.points),
		AttributeList: d.GetAllAttributes(),
		GeoReference:  &g,
	}
}

func FromPointsDictionary(pd PointsDictionary) (*Dataset, error) {
	return New(Params{
		Points:       pd.PointList,
		Attributes:   pd.AttributeList,
		GeoReference: pd.GeoReference,
	})
}

// EnsureAbsolute returns absolute points for a *Dataset, [][]float64 or
// []geom.Point. Raw points are taken relative to origin when it is given. A
// dataset already carries its frame, so passing an origin with one is rejected.
func EnsureAbsolute(points any, origin *georef.GeoReference) ([]geom.Point, error) {
	switch p := points.(type) {
	case *Dataset:
		if origin != nil {
			return nil, geoerr.Validationf("a dataset cannot be given with a separate origin")
		}
		return p.GetDataPoints(true), nil
	case [][]float64:
		pts, err := geom.FromRows(p)
		if err != nil {
			return nil, geoerr.Validationf("points must be an N×2 array: %v", err)
		}
		return absoluteIn(pts, origin), nil
	case []geom.Point:
		return absoluteIn(p, origin), nil
	default:
		return nil, geoerr.Validationf("unsupported points type %T", points)
	}
}

func absoluteIn(points []geom.Point, origin *georef.GeoReference) []geom.Point {
	if origin == nil {
		out := make([]geom.Point, len(points))
		copy(out, points)
		return out
	}
	return origin.Absolute(points)
}

// EnsureGeospatial wraps raw points into a dataset relative to origin. A
// dataset is returned unchanged.
func EnsureGeospatial(points any, origin *georef.GeoReference) (*Dataset, error) {
	switch p := points.(type) {
	case *Dataset:
		if origin != nil {
			return nil, geoerr.Validationf("a dataset cannot be given with a separate origin")
		}
		return p, nil
	case [][]float64:
		return New(Params{Points: p, GeoReference: origin})
	case []geom.Point:
		return New(Params{Points: geom.Rows(p), GeoReference: origin})
	default:
		return nil, geoerr.Validationf("unsupported points type %T", points)
	}
}
