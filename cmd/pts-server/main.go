package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"geopoints/pkg/api"
	"geopoints/pkg/codec"
	"geopoints/pkg/config"
	pointsflight "geopoints/pkg/flight"
	"geopoints/pkg/logger"
	"geopoints/pkg/projection"
	"geopoints/pkg/store"

	"github.com/duckdb/duckdb-go/v2"
	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			fmt.Println(ferr.Message)
			return
		}
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Setup(cfg.LogLevel, cfg.LogPretty)

	projector, closeProjector, err := newProjector(cfg.Projector)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up projector")
	}
	defer closeProjector()

	// Repository setup
	repo := store.NewPointsRepository(cfg.DataDir, codec.ImportOptions{
		Delimiter: cfg.Delimiter,
		Projector: projector,
		BlockSize: int64(cfg.BlockSize),
	}, cfg.BlockSize)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apiServer := api.NewAPIServer(repo, cfg.HTTPPort)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("REST API server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := pointsflight.StartFlightServer(ctx, repo, fmt.Sprintf(":%d", cfg.FlightPort)); err != nil {
			return fmt.Errorf("flight server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return apiServer.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// newProjector picks the lat/long projector. The DuckDB one needs the spatial
// extension loaded on its connector.
func newProjector(name string) (projection.Projector, func(), error) {
	switch name {
	case "duckdb":
		connector, err := duckdb.NewConnector("", nil)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
		}

		projector := projection.NewDuckDBProjector(connector)
		if err := projector.LoadSpatial(context.Background()); err != nil {
			connector.Close()
			return nil, nil, err
		}

		return projector, func() { connector.Close() }, nil
	default:
		return projection.RedfearnProjector{}, func() {}, nil
	}
}
