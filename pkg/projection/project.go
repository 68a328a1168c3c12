package projection

import (
	"bytes"
	"context"
	"database/sql/driver"
	"fmt"
	"text/template"

	"geopoints/pkg/geoerr"
	"geopoints/pkg/geom"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/duckdb/duckdb-go/v2"
)

// NoZone marks coordinates without a UTM projection.
const NoZone = -1

// Projector converts latitude/longitude vectors into UTM points of a single zone.
type Projector interface {
	ToUTM(latitudes, longitudes []float64) ([]geom.Point, int, error)
}

// Default is the projector used when none is configured.
var Default Projector = RedfearnProjector{}

// LatLonToUTM converts with the default projector.
func LatLonToUTM(latitudes, longitudes []float64) ([]geom.Point, int, error) {
	return Default.ToUTM(latitudes, longitudes)
}

// UTMToLatLon converts absolute grid points of a zone into (lat, long) pairs.
func UTMToLatLon(points []geom.Point, zone int, south bool) ([]geom.Point, error) {
	if zone == NoZone {
		return nil, geoerr.Validationf("points need a zone to be converted into lats and longs")
	}

	out := make([]geom.Point, len(points))
	for i, p := range points {
		lat, lon := InverseRedfearn(p[1], p[0], zone, south)
		out[i] = geom.Point{lat, lon}
	}
	return out, nil
}

// frame picks the zone and hemisphere for a set of coordinates. The first point
// decides; every other point must fall into the same zone.
func frame(latitudes, longitudes []float64) (zone int, south bool, err error) {
	if len(latitudes) != len(longitudes) {
		return 0, false, geoerr.Validationf("got %d latitudes but %d longitudes", len(latitudes), len(longitudes))
	}
	if len(latitudes) == 0 {
		return NoZone, true, nil
	}

	for i := range latitudes {
		if latitudes[i] < -90 || latitudes[i] > 90 || longitudes[i] < -180 || longitudes[i] > 180 {
			return 0, false, geoerr.Validationf("invalid coordinate: lat=%f lon=%f", latitudes[i], longitudes[i])
		}
	}

	zone = Zone(longitudes[0])
	south = latitudes[0] < 0

	for i := 1; i < len(longitudes); i++ {
		if z := Zone(longitudes[i]); z != zone {
			return 0, false, geoerr.ZoneConflictf("point %d is in zone %d, expected zone %d", i, z, zone)
		}
	}

	return zone, south, nil
}

// RedfearnProjector is the native series projection.
type RedfearnProjector struct{}

func (RedfearnProjector) ToUTM(latitudes, longitudes []float64) ([]geom.Point, int, error) {
	zone, south, err := frame(latitudes, longitudes)
	if err != nil {
		return nil, 0, err
	}

	out := make([]geom.Point, len(latitudes))
	for i := range latitudes {
		e, n := Redfearn(latitudes[i], longitudes[i], zone, south)
		out[i] = geom.Point{e, n}
	}

	return out, zone, nil
}

// DuckDBProjector delegates the transform to the DuckDB spatial extension.
type DuckDBProjector struct {
	connector *duckdb.Connector
}

// NewDuckDBProjector wraps an existing connector. A nil connector opens an
// in-memory database per call.
func NewDuckDBProjector(connector *duckdb.Connector) *DuckDBProjector {
	return &DuckDBProjector{connector: connector}
}

// EPSG code of the WGS84 UTM zone.
func EPSG(zone int, south bool) string {
	if south {
		return fmt.Sprintf("EPSG:%d", 32700+zone)
	}
	return fmt.Sprintf("EPSG:%d", 32600+zone)
}

// LoadSpatial checks that the spatial extension can be installed and loaded
// on the connector.
func (d *DuckDBProjector) LoadSpatial(ctx context.Context) error {
	if d.connector == nil {
		return fmt.Errorf("duckdb projector has no connector")
	}

	conn, err := d.connector.Connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	return loadSpatial(ctx, conn)
}

// loadSpatial runs on the raw connection. Going through sql.OpenDB would close
// the shared connector along with the pool.
func loadSpatial(ctx context.Context, conn driver.Conn) error {
	execer, ok := conn.(driver.ExecerContext)
	if !ok {
		return fmt.Errorf("duckdb connection %T cannot execute statements", conn)
	}

	for _, stmt := range []string{"INSTALL spatial", "LOAD spatial"} {
		if _, err := execer.ExecContext(ctx, stmt, nil); err != nil {
			return fmt.Errorf("failed to load spatial extension: %w", err)
		}
	}
	return nil
}

func (d *DuckDBProjector) ToUTM(latitudes, longitudes []float64) ([]geom.Point, int, error) {
	zone, south, err := frame(latitudes, longitudes)
	if err != nil {
		return nil, 0, err
	}
	if len(latitudes) == 0 {
		return []geom.Point{}, zone, nil
	}

	ctx := context.Background()

	c := d.connector
	if c == nil {
		c, err = duckdb.NewConnector("", nil)
		if err != nil {
			return nil, 0, err
		}
		defer c.Close()
	}

	conn, err := c.Connect(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer conn.Close()

	ar, err := duckdb.NewArrowFromConn(conn)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create arrow from duckdb: %w", err)
	}

	pool := memory.NewGoAllocator()

	schema := arrow.NewSchema(
		[]arrow.Field{
			{Name: "IDX", Type: arrow.PrimitiveTypes.Int64},
			{Name: "LAT", Type: arrow.PrimitiveTypes.Float64},
			{Name: "LON", Type: arrow.PrimitiveTypes.Float64},
		},
		nil,
	)

	builder := array.NewRecordBuilder(pool, schema)
	defer builder.Release()

	for i := range latitudes {
		builder.Field(0).(*array.Int64Builder).Append(int64(i))
		builder.Field(1).(*array.Float64Builder).Append(latitudes[i])
		builder.Field(2).(*array.Float64Builder).Append(longitudes[i])
	}

	rec := builder.NewRecordBatch()
	defer rec.Release()

	rr, err := array.NewRecordReader(schema, []arrow.RecordBatch{rec})
	if err != nil {
		return nil, 0, err
	}
	defer rr.Release()

	release, err := ar.RegisterView(rr, "records")
	if err != nil {
		return nil, 0, fmt.Errorf("failed to register records view: %w", err)
	}
	defer release()

	if err := loadSpatial(ctx, conn); err != nil {
		return nil, 0, err
	}

	query := `
	with
	transformed as (
	select
	IDX,
	ST_Transform(ST_Point(LAT, LON), '{{.OriginCRS}}', '{{.TargetCRS}}') as shape
	from records
	)
	select IDX, ST_X(shape) as EASTING, ST_Y(shape) as NORTHING from transformed order by IDX
	`

	data := map[string]string{
		"OriginCRS": "EPSG:4326",
		"TargetCRS": EPSG(zone, south),
	}

	templ, err := template.New("queryTemplate").Parse(query)
	if err != nil {
		return nil, 0, err
	}

	var buf bytes.Buffer
	if err := templ.Execute(&buf, data); err != nil {
		return nil, 0, err
	}

	outReader, err := ar.QueryContext(ctx, buf.String())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to execute transform query: %w", err)
	}
	defer outReader.Release()

	out := make([]geom.Point, 0, len(latitudes))
	for outReader.Next() {
		batch := outReader.RecordBatch()
		schema := batch.Schema()

		eastIdx := schema.FieldIndices("EASTING")
		northIdx := schema.FieldIndices("NORTHING")
		if len(eastIdx) == 0 || len(northIdx) == 0 {
			return nil, 0, fmt.Errorf("transform query returned no EASTING/NORTHING columns")
		}

		eastCol, ok := batch.Column(eastIdx[0]).(*array.Float64)
		if !ok {
			return nil, 0, fmt.Errorf("unexpected EASTING column type %T", batch.Column(eastIdx[0]))
		}
		northCol, ok := batch.Column(northIdx[0]).(*array.Float64)
		if !ok {
			return nil, 0, fmt.Errorf("unexpected NORTHING column type %T", batch.Column(northIdx[0]))
		}

		for i := 0; i < int(batch.NumRows()); i++ {
			out = append(out, geom.Point{eastCol.Value(i), northCol.Value(i)})
		}
	}
	if err := outReader.Err(); err != nil {
		return nil, 0, err
	}

	if len(out) != len(latitudes) {
		return nil, 0, fmt.Errorf("transform returned %d points, expected %d", len(out), len(latitudes))
	}

	return out, zone, nil
}
