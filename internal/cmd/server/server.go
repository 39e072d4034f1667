// Package server parses server command flags and starts the lucky money
// runtime.
package server

import (
	"context"
	"flag"
	"fmt"

	app "github.com/louisbranch/luckymoney/internal/app/server"
	entrypoint "github.com/louisbranch/luckymoney/internal/platform/cmd"
)

// Config holds server command configuration.
type Config struct {
	Port    int    `env:"LUCKYMONEY_PORT" envDefault:"8080"`
	Addr    string `env:"LUCKYMONEY_ADDR"`
	DBPath  string `env:"LUCKYMONEY_DB_PATH" envDefault:"data/luckymoney.db"`
	BaseURL string `env:"LUCKYMONEY_BASE_URL" envDefault:"http://localhost:8080"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The server port")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The server listen address (overrides -port)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the SQLite database file")
	fs.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "Public base URL used in share links")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the lucky money HTTP service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceServer, func(ctx context.Context) error {
		addr := cfg.Addr
		if addr == "" {
			addr = fmt.Sprintf(":%d", cfg.Port)
		}
		srv, err := app.New(app.Config{
			Addr:    addr,
			DBPath:  cfg.DBPath,
			BaseURL: cfg.BaseURL,
		})
		if err != nil {
			return err
		}
		return srv.Serve(ctx)
	})
}
