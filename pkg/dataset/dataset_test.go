package dataset

import (
	"testing"

	"geopoints/pkg/geoerr"
	"geopoints/pkg/geom"
	"geopoints/pkg/georef"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func ref(zone int, x, y float64) *georef.GeoReference {
	g := georef.New(zone, x, y)
	return &g
}

func TestNew(t *testing.T) {
	t.Run("bare attribute becomes elevation", func(t *testing.T) {
		d, err := New(Params{
			Points:     [][]float64{{1, 0}, {0, 1}, {1, 0}},
			Attributes: []float64{10.0, 0.0, 10.4},
		})
		require.NoError(t, err)

		got, err := d.GetAttributes("")
		require.NoError(t, err)
		assert.Equal(t, []float64{10.0, 0.0, 10.4}, got)
		assert.Equal(t, []string{"elevation"}, d.AttributeNames())
		assert.True(t, d.GetGeoReference().IsDefaultZone())
	})

	t.Run("attribute values are coerced", func(t *testing.T) {
		d, err := New(Params{
			Points:     [][]float64{{1, 0}, {0, 1}},
			Attributes: map[string]any{"a": []int{1, 2}, "b": []string{"1.5", " 2.5"}, "c": []any{3, "4"}},
		})
		require.NoError(t, err)

		all := d.GetAllAttributes()
		assert.Equal(t, []float64{1, 2}, all["a"])
		assert.Equal(t, []float64{1.5, 2.5}, all["b"])
		assert.Equal(t, []float64{3, 4}, all["c"])
	})

	t.Run("non numeric attribute", func(t *testing.T) {
		_, err := New(Params{
			Points:     [][]float64{{1, 0}},
			Attributes: []string{"abc"},
		})
		assert.ErrorIs(t, err, geoerr.ErrValidation)
	})

	t.Run("attribute length mismatch", func(t *testing.T) {
		_, err := New(Params{
			Points:     [][]float64{{1, 0}, {0, 1}},
			Attributes: []float64{1},
		})
		assert.ErrorIs(t, err, geoerr.ErrValidation)
	})

	t.Run("attribute named like the points column", func(t *testing.T) {
		_, err := New(Params{
			Points:     [][]float64{{1, 0}},
			Attributes: map[string][]float64{PointsColumn: {1}},
		})
		assert.ErrorIs(t, err, geoerr.ErrValidation)
	})

	t.Run("points shape", func(t *testing.T) {
		_, err := New(Params{Points: [][]float64{{1, 0, 3}}})
		assert.ErrorIs(t, err, geoerr.ErrValidation)

		_, err = New(Params{})
		assert.ErrorIs(t, err, geoerr.ErrValidation)

		d, err := New(Params{Points: [][]float64{}})
		require.NoError(t, err)
		assert.Equal(t, 0, d.Len())
	})

	t.Run("unknown default attribute", func(t *testing.T) {
		_, err := New(Params{
			Points:           [][]float64{{1, 0}},
			Attributes:       []float64{1},
			DefaultAttribute: "friction",
		})
		assert.ErrorIs(t, err, geoerr.ErrValidation)
	})

	t.Run("invalid lat/long combinations", func(t *testing.T) {
		lats, lons := []float64{-34.5}, []float64{150.9}

		_, err := New(Params{Points: [][]float64{{1, 0}}, Latitudes: lats, Longitudes: lons})
		assert.ErrorIs(t, err, geoerr.ErrValidation)

		_, err = New(Params{Latitudes: lats})
		assert.ErrorIs(t, err, geoerr.ErrValidation)

		_, err = New(Params{Latitudes: lats, Longitudes: lons, GeoReference: ref(56, 0, 0)})
		assert.ErrorIs(t, err, geoerr.ErrValidation)
	})

	t.Run("lat/long vectors are projected", func(t *testing.T) {
		d, err := New(Params{
			Latitudes:  []float64{-34.5},
			Longitudes: []float64{150.0 + 55.0/60.0},
		})
		require.NoError(t, err)

		assert.Equal(t, 56, d.GetGeoReference().Zone)
		p := d.GetDataPoints(true)[0]
		assert.InDelta(t, 308728.009, p[0], 0.002)
		assert.InDelta(t, 6180432.601, p[1], 0.002)
	})

	t.Run("points given as lat/long", func(t *testing.T) {
		d, err := New(Params{
			Points:           [][]float64{{-34.5, 150.0 + 55.0/60.0}},
			PointsAreLatLong: true,
		})
		require.NoError(t, err)
		assert.Equal(t, 56, d.GetGeoReference().Zone)
	})

	t.Run("lat/long in several zones", func(t *testing.T) {
		_, err := New(Params{
			Latitudes:  []float64{-25, -34},
			Longitudes: []float64{180, 150},
		})
		assert.ErrorIs(t, err, geoerr.ErrZoneConflict)
	})
}

func TestAccessors(t *testing.T) {
	d, err := New(Params{
		Points:           [][]float64{{1.0, 2.1}, {3.0, 4.0}},
		Attributes:       map[string][]float64{"b": {1, 2}, "a": {3, 4}},
		GeoReference:     ref(56, 1.0, 2.0),
		DefaultAttribute: "b",
	})
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff([]geom.Point{{2.0, 4.1}, {4.0, 6.0}}, d.GetDataPoints(true), approx))
	assert.Equal(t, []geom.Point{{1.0, 2.1}, {3.0, 4.0}}, d.GetDataPoints(false))

	got := d.GetDataPointsIn(georef.New(56, 2.0, 4.0))
	assert.Empty(t, cmp.Diff([]geom.Point{{0, 0.1}, {2.0, 2.0}}, got, approx))

	t.Run("attribute resolution", func(t *testing.T) {
		v, err := d.GetAttributes("")
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2}, v)

		require.NoError(t, d.SetDefaultAttribute(""))
		v, err = d.GetAttributes("")
		require.NoError(t, err)
		assert.Equal(t, []float64{3, 4}, v, "first attribute by name")

		_, err = d.GetAttributes("missing")
		assert.ErrorIs(t, err, geoerr.ErrValidation)
		assert.ErrorIs(t, d.SetDefaultAttribute("missing"), geoerr.ErrValidation)
	})

	t.Run("no attributes", func(t *testing.T) {
		e, err := New(Params{Points: [][]float64{{0, 0}}})
		require.NoError(t, err)
		_, err = e.GetAttributes("")
		assert.ErrorIs(t, err, geoerr.ErrValidation)
	})

	t.Run("copies do not alias storage", func(t *testing.T) {
		pts := d.GetDataPoints(false)
		pts[0] = geom.Point{99, 99}
		attrs := d.GetAllAttributes()
		attrs["a"][0] = 99

		assert.Equal(t, geom.Point{1.0, 2.1}, d.GetDataPoints(false)[0])
		v, _ := d.GetAttributes("a")
		assert.Equal(t, 3.0, v[0])
	})

	t.Run("lat long needs a zone", func(t *testing.T) {
		e, err := New(Params{Points: [][]float64{{0, 0}}})
		require.NoError(t, err)
		_, err = e.GetLatLong(true)
		assert.ErrorIs(t, err, geoerr.ErrValidation)
	})

	assert.Equal(t, "[[2 4.1] [4 6]]", d.String())
}

func TestSetGeoReference(t *testing.T) {
	d, err := New(Params{
		Points:       [][]float64{{1.0, 2.1}, {-5.5, 7.25}, {1e5, 3e6}},
		GeoReference: ref(55, 1.0, 2.0),
	})
	require.NoError(t, err)
	before := d.GetDataPoints(true)

	for _, g := range []georef.GeoReference{
		georef.New(55, 100.5, -20.25),
		georef.New(55, 0, 0),
		georef.New(55, 308500, 6180000),
	} {
		d.SetGeoReference(g)
		assert.Empty(t, cmp.Diff(before, d.GetDataPoints(true), cmpopts.EquateApprox(0, 1e-6)))
		assert.Equal(t, g, d.GetGeoReference())
	}
}

func TestPointsDictionary(t *testing.T) {
	d, err := New(Params{
		Points:       [][]float64{{1, 2}},
		Attributes:   map[string][]float64{"a": {5}},
		GeoReference: ref(56, 10, 20),
	})
	require.NoError(t, err)

	pd := d.ToPointsDictionary()
	assert.Equal(t, [][]float64{{1, 2}}, pd.PointList)
	assert.Equal(t, 56, pd.GeoReference.Zone)

	back, err := FromPointsDictionary(pd)
	require.NoError(t, err)
	assert.Equal(t, d.GetDataPoints(true), back.GetDataPoints(true))
	assert.Equal(t, d.GetAllAttributes(), back.GetAllAttributes())
}

func TestEnsure(t *testing.T) {
	origin := ref(56, 10, 20)

	abs, err := EnsureAbsolute([][]float64{{1, 2}}, origin)
	require.NoError(t, err)
	assert.Equal(t, []geom.Point{{11, 22}}, abs)

	abs, err = EnsureAbsolute([]geom.Point{{1, 2}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []geom.Point{{1, 2}}, abs)

	d, err := EnsureGeospatial([][]float64{{1, 2}}, origin)
	require.NoError(t, err)
	assert.Equal(t, []geom.Point{{11, 22}}, d.GetDataPoints(true))

	same, err := EnsureGeospatial(d, nil)
	require.NoError(t, err)
	assert.Same(t, d, same)

	_, err = EnsureAbsolute(d, origin)
	assert.ErrorIs(t, err, geoerr.ErrValidation)
	_, err = EnsureGeospatial(d, origin)
	assert.ErrorIs(t, err, geoerr.ErrValidation)
	_, err = EnsureAbsolute("nope", nil)
	assert.ErrorIs(t, err, geoerr.ErrValidation)
}
