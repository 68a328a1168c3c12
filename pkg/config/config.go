package config

import (
	"errors"
	"io/fs"

	"geopoints/pkg/geoerr"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds the server settings. Every option can be given as a flag or
// through its environment variable, which may come from a .env file.
type Config struct {
	BlockSize  int    `long:"block-size"  env:"GEOPTS_BLOCK_SIZE"  default:"500"      description:"Maximum points per streamed block"`
	Delimiter  string `long:"delimiter"   env:"GEOPTS_DELIMITER"   default:","        description:"Delimiter of text point files"`
	DataDir    string `long:"data-dir"    env:"GEOPTS_DATA_DIR"    default:"./data"   description:"Directory holding point files"`
	LogLevel   string `long:"log-level"   env:"GEOPTS_LOG_LEVEL"   default:"info"     description:"Log level" choice:"trace" choice:"debug" choice:"info" choice:"warn" choice:"error"`
	LogPretty  bool   `long:"log-pretty"  env:"GEOPTS_LOG_PRETTY"                     description:"Human readable console logs"`
	HTTPPort   int    `long:"http-port"   env:"GEOPTS_HTTP_PORT"   default:"8080"     description:"REST API port"`
	FlightPort int    `long:"flight-port" env:"GEOPTS_FLIGHT_PORT" default:"50051"    description:"Arrow Flight port"`
	Projector  string `long:"projector"   env:"GEOPTS_PROJECTOR"   default:"redfearn" description:"Lat/long to UTM projector" choice:"redfearn" choice:"duckdb"`
}

// Load reads the env files (".env" when none are given) and then parses args.
// Missing env files are not an error.
func Load(args []string, envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		log.Warn().Err(err).Msg(".env file not found")
	}

	var cfg Config
	parser := flags.NewParser(&cfg, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.BlockSize <= 0 {
		return geoerr.Validationf("block size must be positive, got %d", c.BlockSize)
	}
	if c.Delimiter == "" {
		return geoerr.Validationf("delimiter must not be empty")
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return geoerr.Validationf("invalid http port %d", c.HTTPPort)
	}
	if c.FlightPort <= 0 || c.FlightPort > 65535 {
		return geoerr.Validationf("invalid flight port %d", c.FlightPort)
	}
	return nil
}
