// Package config loads the berry command line configuration.
package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/eigerco/berrydb/pkg/store"
)

type Database struct {
	Path     string `toml:"path"`
	Engine   string `toml:"engine"`
	ReadOnly bool   `toml:"readOnly"`
	Sync     bool   `toml:"sync"`
	InMemory bool   `toml:"inMemory"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Config struct {
	Database Database `toml:"database"`
	Log      Log      `toml:"log"`
}

func Default() Config {
	return Config{
		Database: Database{
			Path: "berrydb",
			Sync: true,
		},
		Log: Log{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Load reads path on top of the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Database.Path == "" && !c.Database.InMemory {
		return fmt.Errorf("database path is empty")
	}
	if c.Database.Engine != "" {
		if _, err := store.ParseEngine(c.Database.Engine); err != nil {
			return err
		}
	}
	return nil
}

// StoreOptions translates the database section into store.Open options.
func (c Config) StoreOptions() ([]store.Option, error) {
	opts := []store.Option{
		store.WithReadOnly(c.Database.ReadOnly),
		store.WithSync(c.Database.Sync),
	}
	if c.Database.Engine != "" {
		engine, err := store.ParseEngine(c.Database.Engine)
		if err != nil {
			return nil, err
		}
		opts = append(opts, store.WithEngine(engine))
	}
	if c.Database.InMemory {
		opts = append(opts, store.WithInMemory())
	}
	return opts, nil
}
