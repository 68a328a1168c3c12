package dataset

import (
	"fmt"
	"strconv"

	"geopoints/pkg/geoerr"
	"geopoints/pkg/geom"
	"geopoints/pkg/georef"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Column and metadata names of the columnar layout.
const (
	PointsColumn           = "points"
	MetaNumberOfPoints     = "number_of_points"
	MetaNumberOfDimensions = "number_of_dimensions"
	MetaInstitution        = "institution"
	MetaDescription        = "description"
)

const (
	Institution = "Geoscience Australia"
	Description = "Compact and portable storage of spatial point data"
)

// PointType is the arrow type of the points column.
var PointType = arrow.FixedSizeListOf(2, arrow.PrimitiveTypes.Float64)

// RecordOptions controls ToRecordBatch.
type RecordOptions struct {
	// Absolute writes absolute points and zeroes the origin in the metadata.
	Absolute bool
}

// Schema for a dataset with the given attribute columns.
func Schema(attributes []string, md map[string]string) *arrow.Schema {
	fields := make([]arrow.Field, 0, len(attributes)+1)
	fields = append(fields, arrow.Field{Name: PointsColumn, Type: PointType})
	for _, name := range attributes {
		fields = append(fields, arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Float64})
	}

	if md == nil {
		return arrow.NewSchema(fields, nil)
	}

	keys := make([]string, 0, len(md))
	values := make([]string, 0, len(md))
	for k, v := range md {
		keys = append(keys, k)
		values = append(values, v)
	}
	meta := arrow.NewMetadata(keys, values)
	return arrow.NewSchema(fields, &meta)
}

// Metadata describes the dataset for a file level header.
func (d *Dataset) Metadata(opts RecordOptions) map[string]string {
	g := d.geoRef
	if opts.Absolute {
		g = g.WithOrigin(0, 0)
	}

	md := g.Metadata()
	md[MetaNumberOfPoints] = strconv.Itoa(d.Len())
	md[MetaNumberOfDimensions] = "2"
	md[MetaInstitution] = Institution
	md[MetaDescription] = Description
	return md
}

// ToRecordBatch converts the dataset into a single arrow record batch with
// attribute columns sorted by name. The caller releases the batch.
func (d *Dataset) ToRecordBatch(mem memory.Allocator, opts RecordOptions) (arrow.RecordBatch, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	names := d.AttributeNames()
	schema := Schema(names, d.Metadata(opts))

	builder := array.NewRecordBuilder(mem, schema)
	defer builder.Release()

	points := d.GetDataPoints(opts.Absolute)

	pb, ok := builder.Field(0).(*array.FixedSizeListBuilder)
	if !ok {
		return nil, fmt.Errorf("unexpected points builder %T", builder.Field(0))
	}
	vb := pb.ValueBuilder().(*array.Float64Builder)
	vb.Reserve(2 * len(points))
	for _, p := range points {
		pb.Append(true)
		vb.Append(p[0])
		vb.Append(p[1])
	}

	for i, name := range names {
		fb := builder.Field(i + 1).(*array.Float64Builder)
		fb.AppendValues(d.attributes[name], nil)
	}

	return builder.NewRecordBatch(), nil
}

// RecordFromArrow decodes a record batch. The geo reference comes from md, or
// from the batch schema metadata when md is nil. A missing points column is a
// format error.
func RecordFromArrow(rec arrow.RecordBatch, md map[string]string) (Record, error) {
	schema := rec.Schema()
	if md == nil {
		md = schema.Metadata().ToMap()
	}

	indices := schema.FieldIndices(PointsColumn)
	if len(indices) == 0 {
		return Record{}, geoerr.Formatf("", "required column %s not found in records", PointsColumn)
	}

	points, err := pointValues(rec.Column(indices[0]))
	if err != nil {
		return Record{}, geoerr.Formatf("", "invalid %s column: %v", PointsColumn, err)
	}

	attrs := make(map[string][]float64)
	for i := 0; i < int(rec.NumCols()); i++ {
		name := schema.Field(i).Name
		if name == PointsColumn {
			continue
		}
		values, err := float64Values(rec.Column(i))
		if err != nil {
			return Record{}, geoerr.Formatf("", "invalid attribute column %s: %v", name, err)
		}
		attrs[name] = values
	}

	g, err := georef.FromMetadata(md)
	if err != nil {
		return Record{}, geoerr.Formatf("", "invalid geo reference: %v", err)
	}

	return Record{Points: points, Attributes: attrs, GeoReference: g}, nil
}

// FromRecordBatch builds a dataset from a record batch carrying its geo
// reference in the schema metadata.
func FromRecordBatch(rec arrow.RecordBatch, defaultAttribute string) (*Dataset, error) {
	r, err := RecordFromArrow(rec, nil)
	if err != nil {
		return nil, err
	}
	return FromRecord(r, defaultAttribute)
}

// pointValues reads a list or fixed size list column of float64 pairs.
func pointValues(col arrow.Array) ([]geom.Point, error) {
	list, ok := col.(array.ListLike)
	if !ok {
		return nil, fmt.Errorf("unsupported column type for points: %T", col)
	}

	values, ok := list.ListValues().(*array.Float64)
	if !ok {
		return nil, fmt.Errorf("unsupported value type for points: %T", list.ListValues())
	}

	out := make([]geom.Point, list.Len())
	for i := range out {
		if list.IsNull(i) {
			return nil, fmt.Errorf("null point at row %d", i)
		}
		start, end := list.ValueOffsets(i)
		if end-start != 2 {
			return nil, fmt.Errorf("point at row %d has %d dimensions, expected 2", i, end-start)
		}
		out[i] = geom.Point{values.Value(int(start)), values.Value(int(start) + 1)}
	}

	return out, nil
}

// float64Values extracts a numeric column as float64.
func float64Values(col arrow.Array) ([]float64, error) {
	out := make([]float64, col.Len())

	for i := range out {
		if col.IsNull(i) {
			return nil, fmt.Errorf("null value at row %d", i)
		}

		switch c := col.(type) {
		case *array.Float64:
			out[i] = c.Value(i)
		case *array.Float32:
			out[i] = float64(c.Value(i))
		case *array.Int64:
			out[i] = float64(c.Value(i))
		case *array.Int32:
			out[i] = float64(c.Value(i))
		default:
			return nil, fmt.Errorf("unsupported column type for float conversion: %T", col)
		}
	}

	return out, nil
}
