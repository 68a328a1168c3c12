package api

import (
	"geopoints/pkg/dataset"
	"geopoints/pkg/georef"
)

// GeoJSONFeatureCollection represents a GeoJSON FeatureCollection
type GeoJSONFeatureCollection struct {
	Type         string               `json:"type"`
	GeoReference *georef.GeoReference `json:"geo_reference,omitempty"`
	Features     []GeoJSONFeature     `json:"features"`
}

// GeoJSONFeature represents a GeoJSON Feature
type GeoJSONFeature struct {
	Type       string             `json:"type"`
	Geometry   GeoJSONGeometry    `json:"geometry"`
	Properties map[string]float64 `json:"properties"`
}

// GeoJSONGeometry represents a GeoJSON Geometry
type GeoJSONGeometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// ToGeoJSON converts a dataset into a FeatureCollection. Coordinates are
// absolute grid coordinates, or [lon, lat] when latLong is set.
func ToGeoJSON(ds *dataset.Dataset, latLong, south bool) (*GeoJSONFeatureCollection, error) {
	fc := &GeoJSONFeatureCollection{
		Type:     "FeatureCollection",
		Features: make([]GeoJSONFeature, 0, ds.Len()),
	}

	points := ds.GetDataPoints(true)
	if latLong {
		ll, err := ds.GetLatLong(south)
		if err != nil {
			return nil, err
		}
		// GeoJSON uses [lon, lat] order
		for i, p := range ll {
			points[i][0], points[i][1] = p[1], p[0]
		}
	} else {
		g := ds.GetGeoReference().WithOrigin(0, 0)
		fc.GeoReference = &g
	}

	attrs := ds.GetAllAttributes()
	for i, p := range points {
		properties := make(map[string]float64, len(attrs))
		for name, values := range attrs {
			properties[name] = values[i]
		}

		fc.Features = append(fc.Features, GeoJSONFeature{
			Type: "Feature",
			Geometry: GeoJSONGeometry{
				Type:        "Point",
				Coordinates: []float64{p[0], p[1]},
			},
			Properties: properties,
		})
	}

	return fc, nil
}
