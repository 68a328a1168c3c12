package dataset

import (
	"testing"

	"geopoints/pkg/geoerr"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordBatch(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	d, err := New(Params{
		Points:       [][]float64{{1, 0}, {0, 1}, {1, 0}},
		Attributes:   map[string][]float64{"elevation": {10.0, 0.0, 10.4}, "friction": {0.1, 0.2, 0.3}},
		GeoReference: ref(56, 100, 200),
	})
	require.NoError(t, err)

	t.Run("relative", func(t *testing.T) {
		rec, err := d.ToRecordBatch(mem, RecordOptions{})
		require.NoError(t, err)
		defer rec.Release()

		assert.Equal(t, int64(3), rec.NumRows())
		assert.Equal(t, PointsColumn, rec.ColumnName(0))
		assert.Equal(t, "elevation", rec.ColumnName(1))
		assert.Equal(t, "friction", rec.ColumnName(2))

		md := rec.Schema().Metadata().ToMap()
		assert.Equal(t, "3", md[MetaNumberOfPoints])
		assert.Equal(t, "2", md[MetaNumberOfDimensions])

		back, err := FromRecordBatch(rec, "")
		require.NoError(t, err)
		assert.Equal(t, d.GetDataPoints(false), back.GetDataPoints(false))
		assert.Equal(t, d.GetAllAttributes(), back.GetAllAttributes())
		assert.True(t, d.GetGeoReference().Equal(back.GetGeoReference()))
	})

	t.Run("absolute zeroes the origin", func(t *testing.T) {
		rec, err := d.ToRecordBatch(mem, RecordOptions{Absolute: true})
		require.NoError(t, err)
		defer rec.Release()

		back, err := FromRecordBatch(rec, "")
		require.NoError(t, err)
		g := back.GetGeoReference()
		assert.Equal(t, 56, g.Zone)
		assert.Equal(t, 0.0, g.XOrigin)
		assert.Equal(t, d.GetDataPoints(true), back.GetDataPoints(false))
	})

	t.Run("missing points column", func(t *testing.T) {
		schema := arrow.NewSchema([]arrow.Field{{Name: "elevation", Type: arrow.PrimitiveTypes.Float64}}, nil)
		b := array.NewRecordBuilder(mem, schema)
		defer b.Release()
		b.Field(0).(*array.Float64Builder).Append(1)
		rec := b.NewRecordBatch()
		defer rec.Release()

		_, err := FromRecordBatch(rec, "")
		assert.ErrorIs(t, err, geoerr.ErrFormat)
	})

	t.Run("variable length list points", func(t *testing.T) {
		schema := arrow.NewSchema([]arrow.Field{
			{Name: PointsColumn, Type: arrow.ListOf(arrow.PrimitiveTypes.Float64)},
			{Name: "count", Type: arrow.PrimitiveTypes.Int64},
		}, nil)
		b := array.NewRecordBuilder(mem, schema)
		defer b.Release()

		lb := b.Field(0).(*array.ListBuilder)
		vb := lb.ValueBuilder().(*array.Float64Builder)
		lb.Append(true)
		vb.AppendValues([]float64{3, 4}, nil)
		b.Field(1).(*array.Int64Builder).Append(7)

		rec := b.NewRecordBatch()
		defer rec.Release()

		back, err := FromRecordBatch(rec, "count")
		require.NoError(t, err)
		assert.Equal(t, 1, back.Len())
		v, err := back.GetAttributes("")
		require.NoError(t, err)
		assert.Equal(t, []float64{7}, v)
		assert.True(t, back.GetGeoReference().IsDefaultZone())
	})
}
