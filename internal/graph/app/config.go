package app

import (
	"flag"

	"github.com/latticeworks/lattice/internal/platform/config"
)

// Config holds graphd runtime configuration.
type Config struct {
	Port              int    `env:"LATTICE_GRAPHD_PORT" envDefault:"8084"`
	Addr              string `env:"LATTICE_GRAPHD_ADDR"`
	EventsDBPath      string `env:"LATTICE_EVENTS_DB_PATH" envDefault:"data/events.db"`
	ProjectionsDBPath string `env:"LATTICE_PROJECTIONS_DB_PATH" envDefault:"data/projections.db"`
	SnapshotEvery     uint64 `env:"LATTICE_SNAPSHOT_EVERY" envDefault:"100"`
}

// ParseConfig parses environment and flags into a Config. Flags override
// environment values.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The graphd server port")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The graphd listen address (overrides -port)")
	fs.StringVar(&cfg.EventsDBPath, "events-db", cfg.EventsDBPath, "Path to the event journal database")
	fs.StringVar(&cfg.ProjectionsDBPath, "projections-db", cfg.ProjectionsDBPath, "Path to the projections database")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
