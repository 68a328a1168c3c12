package flight

import (
	"context"

	"geopoints/pkg/store"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
)

// NewFlightServer registers the points service on a new flight server.
func NewFlightServer(repo *store.PointsRepository, opts ...grpc.ServerOption) flight.Server {
	server := flight.NewServerWithMiddleware(nil, opts...)
	server.RegisterFlightService(NewPointsFlightServer(repo))
	return server
}

// StartFlightServer serves the repository on addr until ctx is done, then shuts
// the server down.
func StartFlightServer(ctx context.Context, repo *store.PointsRepository, addr string, opts ...grpc.ServerOption) error {
	server := NewFlightServer(repo, opts...)
	if err := server.Init(addr); err != nil {
		return err
	}

	log.Info().Str("addr", server.Addr().String()).Msg("Starting points Flight server")

	errc := make(chan error, 1)
	go func() { errc <- server.Serve() }()

	select {
	case <-ctx.Done():
		server.Shutdown()
		<-errc
		log.Info().Msg("Points Flight server stopped")
		return nil
	case err := <-errc:
		return err
	}
}
