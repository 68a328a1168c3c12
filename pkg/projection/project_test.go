package projection

import (
	"context"
	"testing"

	"geopoints/pkg/geoerr"

	"github.com/duckdb/duckdb-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wollongong and a second point in zone 56.
var (
	lats = []float64{-34.5, -34.0}
	lons = []float64{150.0 + 55.0/60.0, 150.0}
)

func TestZone(t *testing.T) {
	assert.Equal(t, 56, Zone(150.91666))
	assert.Equal(t, 56, Zone(150.0))
	assert.Equal(t, 55, Zone(149.99))
	assert.Equal(t, 1, Zone(-180))
	assert.Equal(t, 60, Zone(180))
	assert.Equal(t, 31, Zone(0))
	assert.Equal(t, 153.0, CentralMeridian(56))
}

func TestRedfearn(t *testing.T) {
	t.Run("southern hemisphere", func(t *testing.T) {
		points, zone, err := LatLonToUTM(lats, lons)
		require.NoError(t, err)

		assert.Equal(t, 56, zone)
		assert.InDelta(t, 308728.009, points[0][0], 0.002)
		assert.InDelta(t, 6180432.601, points[0][1], 0.002)
		assert.InDelta(t, 222908.705, points[1][0], 0.002)
		assert.InDelta(t, 6233785.284, points[1][1], 0.002)
	})

	t.Run("northern hemisphere has no false northing", func(t *testing.T) {
		points, zone, err := LatLonToUTM([]float64{40.7}, []float64{-74.0})
		require.NoError(t, err)

		assert.Equal(t, 18, zone)
		assert.InDelta(t, 584482.352, points[0][0], 0.002)
		assert.InDelta(t, 4505935.869, points[0][1], 0.002)
	})

	t.Run("round trip", func(t *testing.T) {
		points, zone, err := LatLonToUTM(lats, lons)
		require.NoError(t, err)

		back, err := UTMToLatLon(points, zone, true)
		require.NoError(t, err)

		for i := range lats {
			assert.InDelta(t, lats[i], back[i][0], 1e-7)
			assert.InDelta(t, lons[i], back[i][1], 1e-7)
		}
	})

	t.Run("points in several zones", func(t *testing.T) {
		_, _, err := LatLonToUTM([]float64{-25.0, -34.0}, []float64{180.0, 150.0})
		assert.ErrorIs(t, err, geoerr.ErrZoneConflict)
	})

	t.Run("mismatched lengths", func(t *testing.T) {
		_, _, err := LatLonToUTM([]float64{-25.0}, nil)
		assert.ErrorIs(t, err, geoerr.ErrValidation)
	})

	t.Run("out of range", func(t *testing.T) {
		_, _, err := LatLonToUTM([]float64{-95.0}, []float64{150})
		assert.ErrorIs(t, err, geoerr.ErrValidation)
	})

	t.Run("empty input has no zone", func(t *testing.T) {
		points, zone, err := LatLonToUTM(nil, nil)
		require.NoError(t, err)
		assert.Empty(t, points)
		assert.Equal(t, NoZone, zone)
	})

	t.Run("inverse needs a zone", func(t *testing.T) {
		_, err := UTMToLatLon(nil, NoZone, true)
		assert.ErrorIs(t, err, geoerr.ErrValidation)
	})
}

func TestDuckDBProjector(t *testing.T) {
	connector, err := duckdb.NewConnector("", nil)
	require.NoError(t, err)
	defer connector.Close()

	p := NewDuckDBProjector(connector)
	if err := p.LoadSpatial(context.Background()); err != nil {
		t.Skipf("spatial extension unavailable: %v", err)
	}

	_, _, err = p.ToUTM(lats, lons)
	require.NoError(t, err)

	// A second call reuses the same connector.
	points, zone, err := p.ToUTM(lats, lons)
	require.NoError(t, err)

	assert.Equal(t, 56, zone)
	require.Len(t, points, 2)
	assert.InDelta(t, 308728.009, points[0][0], 0.01)
	assert.InDelta(t, 6180432.601, points[0][1], 0.01)
	assert.InDelta(t, 222908.705, points[1][0], 0.01)
	assert.InDelta(t, 6233785.284, points[1][1], 0.01)

	conn, err := connector.Connect(context.Background())
	require.NoError(t, err)
	require.NoError(t, conn.Close())
}

func TestDuckDBProjectorWithoutConnector(t *testing.T) {
	err := NewDuckDBProjector(nil).LoadSpatial(context.Background())
	assert.Error(t, err)
}

func TestEPSG(t *testing.T) {
	assert.Equal(t, "EPSG:32756", EPSG(56, true))
	assert.Equal(t, "EPSG:32618", EPSG(18, false))
}
