package flight

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"geopoints/pkg/codec"
	"geopoints/pkg/dataset"
	"geopoints/pkg/geom"
	"geopoints/pkg/georef"
	"geopoints/pkg/store"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

func gridDataset(t *testing.T) *dataset.Dataset {
	t.Helper()

	g := georef.New(56, 308000, 6180000)
	d, err := dataset.New(dataset.Params{
		Points:       [][]float64{{0, 0}, {500, 500}, {1000, 1000}, {728.009, 432.601}, {100, 900}},
		Attributes:   map[string][]float64{"elevation": {1, 2, 3, 4, 5}, "friction": {0.1, 0.2, 0.3, 0.4, 0.5}},
		GeoReference: &g,
	})
	require.NoError(t, err)
	return d
}

// startServer serves a repository holding grid.pts, with blocks of two points.
func startServer(t *testing.T) (*store.PointsRepository, flight.Client) {
	t.Helper()

	repo := store.NewPointsRepository(filepath.Join(t.TempDir(), "data"), codec.ImportOptions{}, 2)
	require.NoError(t, repo.Save(gridDataset(t), "grid.pts", codec.ExportOptions{Relative: true}))

	server := NewFlightServer(repo, grpc.Creds(insecure.NewCredentials()))
	require.NoError(t, server.Init("127.0.0.1:0"))
	go server.Serve()
	t.Cleanup(server.Shutdown)

	client, err := flight.NewClientWithMiddleware(server.Addr().String(), nil, nil,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return repo, client
}

func readAll(t *testing.T, r *flight.Reader) []*dataset.Dataset {
	t.Helper()

	var out []*dataset.Dataset
	for r.Next() {
		ds, err := dataset.FromRecordBatch(r.RecordBatch(), "")
		require.NoError(t, err)
		out = append(out, ds)
	}
	return out
}

func TestDoGet(t *testing.T) {
	_, client := startServer(t)
	ctx := context.Background()

	t.Run("streams blocks", func(t *testing.T) {
		stream, err := client.DoGet(ctx, &flight.Ticket{Ticket: []byte("grid.pts")})
		require.NoError(t, err)

		reader, err := flight.NewRecordReader(stream)
		require.NoError(t, err)
		defer reader.Release()

		blocks := readAll(t, reader)
		require.Len(t, blocks, 3)
		assert.Equal(t, 2, blocks[0].Len())
		assert.Equal(t, 1, blocks[2].Len())

		var all *dataset.Dataset
		for _, b := range blocks {
			assert.Equal(t, 56, b.GetGeoReference().Zone)
			if all == nil {
				all = b
				continue
			}
			all, err = dataset.Combine(all, b)
			require.NoError(t, err)
		}

		want := gridDataset(t)
		assert.InDeltaSlice(t, flatten(want.GetDataPoints(true)), flatten(all.GetDataPoints(true)), 1e-6)

		friction, err := all.GetAttributes("friction")
		require.NoError(t, err)
		assert.Equal(t, []float64{0.1, 0.2, 0.3, 0.4, 0.5}, friction)
	})

	t.Run("missing file", func(t *testing.T) {
		stream, err := client.DoGet(ctx, &flight.Ticket{Ticket: []byte("missing.pts")})
		require.NoError(t, err)

		_, err = flight.NewRecordReader(stream)
		require.Error(t, err)
		assert.Equal(t, codes.NotFound, status.Code(err))
	})
}

func TestListFlights(t *testing.T) {
	_, client := startServer(t)

	stream, err := client.ListFlights(context.Background(), &flight.Criteria{})
	require.NoError(t, err)

	var names []string
	for {
		info, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, info.GetFlightDescriptor().GetPath()...)
	}

	assert.Equal(t, []string{"grid.pts"}, names)
}

func TestDoPut(t *testing.T) {
	repo, client := startServer(t)
	ctx := context.Background()

	rec, err := gridDataset(t).ToRecordBatch(memory.DefaultAllocator, dataset.RecordOptions{})
	require.NoError(t, err)
	defer rec.Release()

	stream, err := client.DoPut(ctx)
	require.NoError(t, err)

	writer := flight.NewRecordWriter(stream, ipc.WithSchema(rec.Schema()))
	writer.SetFlightDescriptor(&flight.FlightDescriptor{Type: flight.DescriptorPATH, Path: []string{"upload.pts"}})
	require.NoError(t, writer.Write(rec))
	require.NoError(t, writer.Write(rec))
	require.NoError(t, writer.Close())
	require.NoError(t, stream.CloseSend())

	res, err := stream.Recv()
	require.NoError(t, err)

	var put PutResult
	require.NoError(t, json.Unmarshal(res.GetAppMetadata(), &put))
	assert.Equal(t, PutResult{File: "upload.pts", Points: 10}, put)

	stored, err := repo.Load("upload.pts")
	require.NoError(t, err)
	assert.Equal(t, 10, stored.Len())
	assert.Equal(t, 56, stored.GetGeoReference().Zone)
}

func TestDoExchangeClip(t *testing.T) {
	_, client := startServer(t)
	ctx := context.Background()

	exchange := func(t *testing.T, action Action) (*flight.Reader, error) {
		t.Helper()

		rec, err := gridDataset(t).ToRecordBatch(memory.DefaultAllocator, dataset.RecordOptions{})
		require.NoError(t, err)
		defer rec.Release()

		cmd, err := json.Marshal(action)
		require.NoError(t, err)

		stream, err := client.DoExchange(ctx)
		require.NoError(t, err)

		writer := flight.NewRecordWriter(stream, ipc.WithSchema(rec.Schema()))
		writer.SetFlightDescriptor(&flight.FlightDescriptor{Type: flight.DescriptorCMD, Cmd: cmd})
		// A rejected exchange may end the stream before the batch is sent,
		// the status then comes from the read side.
		if err := writer.Write(rec); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		writer.Close()
		stream.CloseSend()

		return flight.NewRecordReader(stream)
	}

	square := [][]float64{{308000, 6180000}, {308600, 6180000}, {308600, 6180600}, {308000, 6180600}}

	t.Run("inside", func(t *testing.T) {
		reader, err := exchange(t, Action{Operation: OpClip, Polygon: square})
		require.NoError(t, err)
		defer reader.Release()

		blocks := readAll(t, reader)
		require.Len(t, blocks, 1)
		assert.Equal(t, []geom.Point{{308000, 6180000}, {308500, 6180500}}, blocks[0].GetDataPoints(true))
	})

	t.Run("outside", func(t *testing.T) {
		reader, err := exchange(t, Action{Operation: OpClip, Polygon: square, Outside: true})
		require.NoError(t, err)
		defer reader.Release()

		blocks := readAll(t, reader)
		require.Len(t, blocks, 1)
		assert.Equal(t, 3, blocks[0].Len())
	})

	t.Run("unknown operation", func(t *testing.T) {
		_, err := exchange(t, Action{Operation: "calculate"})
		require.Error(t, err)
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})
}

func flatten(points []geom.Point) []float64 {
	out := make([]float64, 0, 2*len(points))
	for _, p := range points {
		out = append(out, p[0], p[1])
	}
	return out
}
