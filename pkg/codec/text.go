package codec

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"geopoints/pkg/dataset"
	"geopoints/pkg/geoerr"
	"geopoints/pkg/geom"
	"geopoints/pkg/georef"
	"geopoints/pkg/projection"
)

// DefaultDelimiter of the text format.
const DefaultDelimiter = ","

const maxLineSize = 1 << 20

// TextReader reads a delimited text file row by row.
type TextReader struct {
	path      string
	f         *os.File
	sc        *bufio.Scanner
	delim     string
	names     []string
	latLong   bool
	latFirst  bool
	projector projection.Projector
	line      int
	done      bool
}

// OpenText opens path and parses its header line.
func OpenText(path string, delimiter string, projector projection.Projector) (*TextReader, error) {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	if projector == nil {
		projector = projection.Default
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, geoerr.FromOS("import", path, err)
	}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	r := &TextReader{
		path:      path,
		f:         f,
		sc:        sc,
		delim:     delimiter,
		projector: projector,
	}

	if err := r.readHeader(); err != nil {
		f.Close()
		return nil, err
	}

	return r, nil
}

func (r *TextReader) readHeader() error {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return geoerr.FormatHelp(r.path, err)
		}
		return geoerr.FormatHelp(r.path, errors.New("missing header line"))
	}
	r.line++

	header := splitLine(r.sc.Text(), r.delim)
	if len(header) < 2 {
		return geoerr.FormatHelp(r.path, fmt.Errorf("header %q has fewer than two columns", r.sc.Text()))
	}

	seen := make(map[string]bool, len(header))
	for _, name := range header[2:] {
		if name == "" || name == dataset.PointsColumn || seen[name] {
			return geoerr.FormatHelp(r.path, fmt.Errorf("invalid attribute column name %q", name))
		}
		seen[name] = true
	}
	r.names = header[2:]

	x, y := titlePrefix(header[0]), titlePrefix(header[1])
	switch {
	case x == "lat" && y == "lon":
		r.latLong, r.latFirst = true, true
	case x == "lon" && y == "lat":
		r.latLong = true
	}

	return nil
}

func titlePrefix(name string) string {
	name = strings.ToLower(name)
	if len(name) > 3 {
		name = name[:3]
	}
	return name
}

func splitLine(line, delim string) []string {
	parts := strings.Split(line, delim)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	// A trailing delimiter does not add a column.
	if len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

func (r *TextReader) AttributeNames() []string {
	return r.names
}

// Total is unknown for text files.
func (r *TextReader) Total() (int64, bool) {
	return 0, false
}

// Next reads up to n data rows; n <= 0 reads to the end of the data. It returns
// io.EOF when no rows are left. Lat/long rows are projected and the block
// carries the derived geo reference, otherwise the block has none.
func (r *TextReader) Next(n int) (dataset.Record, error) {
	if r.done || r.f == nil {
		return dataset.Record{}, io.EOF
	}

	var (
		coords [][2]float64
		attrs  = make([][]float64, len(r.names))
	)

	for n <= 0 || len(coords) < n {
		if !r.sc.Scan() {
			if err := r.sc.Err(); err != nil {
				return dataset.Record{}, geoerr.FormatHelp(r.path, err)
			}
			r.done = true
			break
		}
		r.line++
		line := r.sc.Text()
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "#") {
			if isGeoTrailer(trimmed) {
				if err := r.readTrailer(); err != nil {
					return dataset.Record{}, err
				}
				r.done = true
				break
			}
			continue
		}

		fields := splitLine(line, r.delim)
		if len(fields) <= 1 {
			if err := r.finish(); err != nil {
				return dataset.Record{}, err
			}
			r.done = true
			break
		}

		if len(fields)-2 != len(r.names) {
			return dataset.Record{}, geoerr.FormatHelp(r.path,
				fmt.Errorf("line %d has %d attribute values, header has %d", r.line, len(fields)-2, len(r.names)))
		}

		values := make([]float64, len(fields))
		for i, s := range fields {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return dataset.Record{}, geoerr.FormatHelp(r.path,
					fmt.Errorf("line %d: value %q is not numeric", r.line, s))
			}
			values[i] = v
		}

		coords = append(coords, [2]float64{values[0], values[1]})
		for i := range r.names {
			attrs[i] = append(attrs[i], values[i+2])
		}
	}

	if len(coords) == 0 {
		return dataset.Record{}, io.EOF
	}

	rec := dataset.Record{Attributes: make(map[string][]float64, len(r.names))}
	for i, name := range r.names {
		rec.Attributes[name] = attrs[i]
	}

	if !r.latLong {
		rec.Points = make([]geom.Point, len(coords))
		for i, c := range coords {
			rec.Points[i] = geom.Point(c)
		}
		return rec, nil
	}

	lats := make([]float64, len(coords))
	lons := make([]float64, len(coords))
	for i, c := range coords {
		if r.latFirst {
			lats[i], lons[i] = c[0], c[1]
		} else {
			lons[i], lats[i] = c[0], c[1]
		}
	}

	points, zone, err := r.projector.ToUTM(lats, lons)
	if err != nil {
		if geoerr.KindOf(err) == geoerr.Validation {
			return dataset.Record{}, geoerr.FormatHelp(r.path, err)
		}
		return dataset.Record{}, err
	}
	g := georef.New(zone, 0, 0)
	rec.Points = points
	rec.GeoReference = &g

	return rec, nil
}

func isGeoTrailer(line string) bool {
	return strings.HasPrefix(strings.ToLower(line), "#geo")
}

// finish consumes what follows the end of the data. Only comments, blank lines
// and a single geo reference trailer may follow.
func (r *TextReader) finish() error {
	end := r.line
	for r.sc.Scan() {
		r.line++
		trimmed := strings.TrimSpace(r.sc.Text())
		switch {
		case isGeoTrailer(trimmed):
			return r.readTrailer()
		case trimmed == "" || strings.HasPrefix(trimmed, "#"):
			continue
		default:
			return geoerr.Formatf(r.path, "unexpected content %q on line %d after the data ended on line %d", trimmed, r.line, end)
		}
	}
	if err := r.sc.Err(); err != nil {
		return geoerr.FormatHelp(r.path, err)
	}
	return nil
}

// readTrailer validates a "#geo" block: an integer zone, an x origin and a y
// origin on three lines, then nothing but blank or comment lines. The values
// are not applied to the data.
func (r *TextReader) readTrailer() error {
	start := r.line

	for i := 0; i < 3; i++ {
		if !r.sc.Scan() {
			return geoerr.Formatf(r.path, "geo reference block at line %d is truncated", start)
		}
		r.line++
		s := strings.TrimSpace(r.sc.Text())

		var err error
		if i == 0 {
			_, err = strconv.Atoi(s)
		} else {
			_, err = strconv.ParseFloat(s, 64)
		}
		if err != nil {
			return geoerr.Formatf(r.path, "geo reference block at line %d: invalid value %q on line %d", start, s, r.line)
		}
	}

	for r.sc.Scan() {
		r.line++
		s := strings.TrimSpace(r.sc.Text())
		if s != "" && !strings.HasPrefix(s, "#") {
			return geoerr.Formatf(r.path, "unexpected content %q after geo reference block on line %d", s, r.line)
		}
	}
	if err := r.sc.Err(); err != nil {
		return geoerr.FormatHelp(r.path, err)
	}

	return nil
}

// Close releases the file. It is safe to call more than once.
func (r *TextReader) Close() error {
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}

// readText loads the whole file.
func readText(path string, delimiter string, projector projection.Projector) (dataset.Record, error) {
	r, err := OpenText(path, delimiter, projector)
	if err != nil {
		return dataset.Record{}, err
	}
	defer r.Close()

	rec, err := r.Next(0)
	if errors.Is(err, io.EOF) {
		return emptyRecord(r.names, nil), nil
	}
	return rec, err
}

// WriteText writes absolute points (or lat/long pairs) and the attributes
// sorted by name.
func WriteText(w io.Writer, header [2]string, points []geom.Point, names []string, attrs map[string][]float64, delimiter string) error {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}

	bw := bufio.NewWriter(w)

	titles := append([]string{header[0], header[1]}, names...)
	if _, err := bw.WriteString(strings.Join(titles, delimiter) + "\n"); err != nil {
		return err
	}

	row := make([]string, 2+len(names))
	for i, p := range points {
		row[0] = formatFloat(p[0])
		row[1] = formatFloat(p[1])
		for j, name := range names {
			row[j+2] = formatFloat(attrs[name][i])
		}
		if _, err := bw.WriteString(strings.Join(row, delimiter) + "\n"); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
