package flight

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"geopoints/pkg/codec"
	"geopoints/pkg/dataset"
	"geopoints/pkg/geoerr"
	"geopoints/pkg/geom"
	"geopoints/pkg/store"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Exchange operations.
const (
	OpClip = "clip"
)

// PutResult is the app metadata of the single DoPut result.
type PutResult struct {
	File   string `json:"file"`
	Points int    `json:"points"`
}

// Action is the JSON command of a DoExchange descriptor.
type Action struct {
	Operation string      `json:"operation"`
	Polygon   [][]float64 `json:"polygon"`
	Closed    *bool       `json:"closed,omitempty"`
	Outside   bool        `json:"outside,omitempty"`
}

// PointsFlightServer serves the point files of a repository as arrow streams.
// Tickets and descriptor paths are file names inside the repository.
type PointsFlightServer struct {
	flight.BaseFlightServer
	repo *store.PointsRepository
	mem  memory.Allocator
}

func NewPointsFlightServer(repo *store.PointsRepository) *PointsFlightServer {
	return &PointsFlightServer{
		repo: repo,
		mem:  memory.DefaultAllocator,
	}
}

// ListFlights lists the readable files of the repository.
func (s *PointsFlightServer) ListFlights(_ *flight.Criteria, stream flight.FlightService_ListFlightsServer) error {
	files, err := s.repo.List()
	if err != nil {
		return grpcError(err)
	}

	for _, f := range files {
		format, err := codec.FormatFromPath(f.Name)
		if err != nil || !format.Readable() {
			continue
		}

		info := &flight.FlightInfo{
			FlightDescriptor: &flight.FlightDescriptor{
				Type: flight.DescriptorPATH,
				Path: []string{f.Name},
			},
			Endpoint: []*flight.FlightEndpoint{
				{Ticket: &flight.Ticket{Ticket: []byte(f.Name)}},
			},
			TotalRecords: -1,
			TotalBytes:   f.Size,
		}
		if err := stream.Send(info); err != nil {
			return err
		}
	}

	return nil
}

// DoGet streams a file block by block. Each batch holds grid coordinates
// relative to the geo reference in the stream schema metadata.
func (s *PointsFlightServer) DoGet(ticket *flight.Ticket, stream flight.FlightService_DoGetServer) error {
	name := string(ticket.GetTicket())

	reader, err := s.repo.OpenBlocks(name)
	if err != nil {
		return grpcError(err)
	}
	defer reader.Close()

	var writer *flight.Writer
	defer func() {
		if writer != nil {
			writer.Close()
		}
	}()

	blocks := 0
	for ds, err := range reader.All() {
		if err != nil {
			return grpcError(err)
		}

		rec, err := ds.ToRecordBatch(s.mem, dataset.RecordOptions{})
		if err != nil {
			return err
		}

		if writer == nil {
			writer = flight.NewRecordWriter(stream, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(s.mem))
		}
		err = writer.Write(rec)
		rec.Release()
		if err != nil {
			return err
		}
		blocks++
	}

	if writer == nil {
		// Nothing to stream, still send a schema so clients can read the stream.
		writer = flight.NewRecordWriter(stream, ipc.WithSchema(dataset.Schema(nil, nil)), ipc.WithAllocator(s.mem))
	}

	log.Debug().Str("file", name).Int("blocks", blocks).Msg("streamed points file")
	return nil
}

// DoPut stores the uploaded batches as one file. The file name is the first
// descriptor path element, or a generated .pts name.
func (s *PointsFlightServer) DoPut(stream flight.FlightService_DoPutServer) error {
	reader, err := flight.NewRecordReader(stream, ipc.WithAllocator(s.mem))
	if err != nil {
		return err
	}
	defer reader.Release()

	name := ""
	if desc := reader.LatestFlightDescriptor(); desc != nil && len(desc.Path) > 0 {
		name = desc.Path[0]
	}
	if name == "" {
		name = s.repo.NewName(".pts")
	}

	var acc *dataset.Dataset
	for reader.Next() {
		rec := reader.RecordBatch()

		log.Debug().Int64("rows", rec.NumRows()).Msg("received record batch")

		ds, err := dataset.FromRecordBatch(rec, "")
		if err != nil {
			return grpcError(err)
		}
		if acc == nil {
			acc = ds
			continue
		}
		if acc, err = dataset.Combine(acc, ds); err != nil {
			return grpcError(err)
		}
	}
	if err := reader.Err(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	if acc == nil {
		return status.Error(codes.InvalidArgument, "no records received")
	}

	if err := s.repo.Save(acc, name, codec.ExportOptions{}); err != nil {
		return grpcError(err)
	}

	log.Info().Str("file", name).Int("points", acc.Len()).Msg("stored uploaded points")

	meta, err := json.Marshal(PutResult{File: name, Points: acc.Len()})
	if err != nil {
		return err
	}
	return stream.Send(&flight.PutResult{AppMetadata: meta})
}

// DoExchange runs an operation over streamed points. The operation comes as a
// JSON Action in the command of the first descriptor.
func (s *PointsFlightServer) DoExchange(stream flight.FlightService_DoExchangeServer) error {
	reader, err := flight.NewRecordReader(stream, ipc.WithAllocator(s.mem))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	defer reader.Release()

	desc := reader.LatestFlightDescriptor()
	if desc == nil || len(desc.Cmd) == 0 {
		return status.Error(codes.InvalidArgument, "missing command descriptor")
	}

	var action Action
	if err := json.Unmarshal(desc.Cmd, &action); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid command: %v", err)
	}

	log.Debug().Str("operation", action.Operation).Msg("exchange started")

	switch action.Operation {
	case OpClip:
		return s.handleClip(stream, reader, action)
	default:
		return status.Errorf(codes.InvalidArgument, "unsupported operation: %s", action.Operation)
	}
}

// handleClip answers every incoming batch with its points inside (or outside)
// the polygon, in absolute coordinates.
func (s *PointsFlightServer) handleClip(stream flight.FlightService_DoExchangeServer, reader *flight.Reader, action Action) error {
	rows, err := geom.FromRows(action.Polygon)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid polygon: %v", err)
	}
	poly := geom.Polygon(rows)

	closed := true
	if action.Closed != nil {
		closed = *action.Closed
	}

	var writer *flight.Writer
	defer func() {
		if writer != nil {
			writer.Close()
		}
	}()

	for reader.Next() {
		ds, err := dataset.FromRecordBatch(reader.RecordBatch(), "")
		if err != nil {
			return grpcError(err)
		}

		var clipped *dataset.Dataset
		if action.Outside {
			clipped, err = ds.ClipOutside(poly, closed)
		} else {
			clipped, err = ds.Clip(poly, closed)
		}
		if err != nil {
			return grpcError(err)
		}

		rec, err := clipped.ToRecordBatch(s.mem, dataset.RecordOptions{Absolute: true})
		if err != nil {
			return err
		}
		if writer == nil {
			writer = flight.NewRecordWriter(stream, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(s.mem))
		}
		err = writer.Write(rec)
		rec.Release()
		if err != nil {
			return err
		}
	}
	if err := reader.Err(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	return nil
}

// grpcError maps the error kinds onto gRPC status codes.
func grpcError(err error) error {
	var code codes.Code
	switch geoerr.KindOf(err) {
	case geoerr.FileNotFound:
		code = codes.NotFound
	case geoerr.AccessDenied:
		code = codes.PermissionDenied
	case geoerr.UnsupportedExtension, geoerr.Validation, geoerr.Format:
		code = codes.InvalidArgument
	case geoerr.ZoneConflict:
		code = codes.FailedPrecondition
	default:
		return fmt.Errorf("points flight: %w", err)
	}
	return status.Error(code, err.Error())
}
