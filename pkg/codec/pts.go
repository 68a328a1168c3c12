package codec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"geopoints/pkg/dataset"
	"geopoints/pkg/geoerr"
	"geopoints/pkg/geom"
	"geopoints/pkg/georef"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// defaultBatchSize is the parquet read batch used when no block size is given.
const defaultBatchSize = 10000

// WritePTS writes the dataset as a Snappy compressed parquet file with the
// geo reference in the file metadata.
func WritePTS(w io.Writer, ds *dataset.Dataset, absolute bool) error {
	rec, err := ds.ToRecordBatch(memory.NewGoAllocator(), dataset.RecordOptions{Absolute: absolute})
	if err != nil {
		return err
	}
	defer rec.Release()

	writer, err := pqarrow.NewFileWriter(
		rec.Schema(),
		w,
		parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy)),
		pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()),
	)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}

	if err := writer.Write(rec); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write record batch: %w", err)
	}

	return writer.Close()
}

// PTSReader reads a points parquet file in blocks of exact size.
type PTSReader struct {
	path  string
	f     *os.File
	rr    pqarrow.RecordReader
	meta  map[string]string
	ref   *georef.GeoReference
	names []string
	total int64

	points []geom.Point
	attrs  map[string][]float64
}

// OpenPTS opens path and validates that it carries a points column.
func OpenPTS(path string, batchSize int64) (*PTSReader, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, geoerr.FromOS("import", path, err)
	}

	r, err := newPTSReader(path, f, batchSize)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func newPTSReader(path string, f *os.File, batchSize int64) (*PTSReader, error) {
	pf, err := file.NewParquetReader(f)
	if err != nil {
		return nil, geoerr.Formatf(path, "not a points file: %v", err)
	}

	kv := pf.MetaData().KeyValueMetadata()
	meta := make(map[string]string, len(kv.Keys()))
	for i, k := range kv.Keys() {
		meta[k] = kv.Values()[i]
	}

	ref, err := georef.FromMetadata(meta)
	if err != nil {
		return nil, geoerr.Formatf(path, "invalid geo reference: %v", err)
	}

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{BatchSize: batchSize}, memory.NewGoAllocator())
	if err != nil {
		return nil, geoerr.Formatf(path, "failed to create arrow reader: %v", err)
	}

	schema, err := fr.Schema()
	if err != nil {
		return nil, geoerr.Formatf(path, "failed to read schema: %v", err)
	}
	if len(schema.FieldIndices(dataset.PointsColumn)) == 0 {
		return nil, geoerr.Formatf(path, "required variable %s not found", dataset.PointsColumn)
	}

	var names []string
	for _, field := range schema.Fields() {
		if field.Name != dataset.PointsColumn {
			names = append(names, field.Name)
		}
	}

	rr, err := fr.GetRecordReader(context.Background(), nil, nil)
	if err != nil {
		return nil, geoerr.Formatf(path, "failed to get record reader: %v", err)
	}

	r := &PTSReader{
		path:  path,
		f:     f,
		rr:    rr,
		meta:  meta,
		ref:   ref,
		names: names,
		total: pf.NumRows(),
		attrs: make(map[string][]float64, len(names)),
	}
	for _, name := range names {
		r.attrs[name] = nil
	}

	return r, nil
}

// Total is the number of rows in the file.
func (r *PTSReader) Total() (int64, bool) {
	return r.total, true
}

func (r *PTSReader) AttributeNames() []string {
	return r.names
}

func (r *PTSReader) GeoReference() *georef.GeoReference {
	return r.ref
}

// Next returns the next min(n, remaining) rows, or io.EOF once every row has
// been returned. n <= 0 reads the rest of the file.
func (r *PTSReader) Next(n int) (dataset.Record, error) {
	if r.rr == nil {
		return dataset.Record{}, io.EOF
	}
	if n <= 0 {
		n = int(r.total)
	}

	for len(r.points) < n && r.rr.Next() {
		rec, err := dataset.RecordFromArrow(r.rr.RecordBatch(), r.meta)
		if err != nil {
			return dataset.Record{}, withPath(err, r.path)
		}
		r.points = append(r.points, rec.Points...)
		for _, name := range r.names {
			r.attrs[name] = append(r.attrs[name], rec.Attributes[name]...)
		}
	}
	if err := r.rr.Err(); err != nil && !errors.Is(err, io.EOF) {
		return dataset.Record{}, geoerr.Formatf(r.path, "failed to read records: %v", err)
	}

	if len(r.points) == 0 {
		return dataset.Record{}, io.EOF
	}

	take := min(n, len(r.points))
	out := dataset.Record{
		Points:       append([]geom.Point(nil), r.points[:take]...),
		Attributes:   make(map[string][]float64, len(r.names)),
		GeoReference: r.ref,
	}
	r.points = r.points[take:]
	for _, name := range r.names {
		out.Attributes[name] = append([]float64(nil), r.attrs[name][:take]...)
		r.attrs[name] = r.attrs[name][take:]
	}

	return out, nil
}

// Close releases the file. It is safe to call more than once.
func (r *PTSReader) Close() error {
	if r.rr != nil {
		r.rr.Release()
		r.rr = nil
	}
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}

// readPTS loads the whole file.
func readPTS(path string) (dataset.Record, error) {
	r, err := OpenPTS(path, defaultBatchSize)
	if err != nil {
		return dataset.Record{}, err
	}
	defer r.Close()

	rec, err := r.Next(0)
	if errors.Is(err, io.EOF) {
		return emptyRecord(r.names, r.ref), nil
	}
	return rec, err
}

func emptyRecord(names []string, ref *georef.GeoReference) dataset.Record {
	attrs := make(map[string][]float64, len(names))
	for _, name := range names {
		attrs[name] = []float64{}
	}
	return dataset.Record{Points: []geom.Point{}, Attributes: attrs, GeoReference: ref}
}

// withPath fills in the file path of a codec error raised without one.
func withPath(err error, path string) error {
	var e *geoerr.Error
	if errors.As(err, &e) && e.Path == "" {
		c := *e
		c.Path = path
		return &c
	}
	return err
}
