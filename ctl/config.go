// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/molecula/histql"
	"github.com/molecula/histql/boltdb"
	"github.com/molecula/histql/catalog"
	"github.com/molecula/histql/errors"
	"github.com/molecula/histql/logger"
	"github.com/molecula/histql/sqldb"
	"github.com/molecula/histql/toml"
	"github.com/molecula/histql/tracing"
	fbopentracing "github.com/molecula/histql/tracing/opentracing"
	"github.com/opentracing/opentracing-go"
	gotoml "github.com/pelletier/go-toml"
	"github.com/spf13/pflag"
)

// Backends a Config may name.
const (
	BackendBolt     = "bolt"
	BackendPostgres = sqldb.DialectPostgres
	BackendMySQL    = sqldb.DialectMySQL
)

// Tracers a Config may name.
const (
	TracerNone        = "none"
	TracerLog         = "log"
	TracerOpenTracing = "opentracing"
)

// Config is the configuration shared by every command that opens a store.
type Config struct {
	// Backend is one of "bolt", "postgres" or "mysql".
	Backend string `toml:"backend"`

	// DSN is "file:PATH" for bolt and a driver datasource name otherwise.
	DSN string `toml:"dsn"`

	// Schema holds the stored functions of the relational backends.
	Schema string `toml:"schema"`

	// Catalog is the path of the catalog document.
	Catalog string `toml:"catalog"`

	// Timeout bounds each command's work on the store.
	Timeout toml.Duration `toml:"timeout"`

	// Tracer is one of "none", "log" or "opentracing". The opentracing
	// tracer reports to opentracing's global tracer.
	Tracer string `toml:"tracer"`

	Verbose bool `toml:"verbose"`
}

// NewConfig returns a Config with default values.
func NewConfig() *Config {
	return &Config{
		Backend: BackendBolt,
		DSN:     "file:histql.db",
		Schema:  sqldb.DefaultSchema,
		Catalog: "catalog.yaml",
		Timeout: toml.Duration(30 * time.Second),
		Tracer:  TracerNone,
	}
}

// BuildConfigFlags registers a flag for each field of cfg, using the
// current values as defaults.
func BuildConfigFlags(flags *pflag.FlagSet, cfg *Config) {
	flags.StringVarP(&cfg.Backend, "backend", "b", cfg.Backend, "Store backend: bolt, postgres or mysql.")
	flags.StringVarP(&cfg.DSN, "dsn", "d", cfg.DSN, "Store datasource name; file:PATH for bolt.")
	flags.StringVar(&cfg.Schema, "schema", cfg.Schema, "Schema holding the stored functions (postgres, mysql).")
	flags.StringVar(&cfg.Catalog, "catalog", cfg.Catalog, "Path of the catalog document (YAML or JSON).")
	flags.DurationVar((*time.Duration)(&cfg.Timeout), "timeout", time.Duration(cfg.Timeout), "Time limit for each command.")
	flags.StringVar(&cfg.Tracer, "tracer", cfg.Tracer, "Span tracer: none, log or opentracing.")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Enable debug logging.")
}

// Validate checks the fields which name one of a fixed set of choices.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendBolt, BackendPostgres, BackendMySQL:
	default:
		return errors.New(errors.ErrBackend, fmt.Sprintf("unknown backend '%s'", c.Backend))
	}
	switch c.Tracer {
	case TracerNone, TracerLog, TracerOpenTracing:
	default:
		return errors.Errorf("unknown tracer '%s'", c.Tracer)
	}
	if c.Timeout <= 0 {
		return errors.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

// Logger returns the logger commands log to, writing to w.
func (c *Config) Logger(w io.Writer) logger.Logger {
	return logger.New(w, c.Verbose)
}

// SetupTracing points tracing.GlobalTracer at the configured tracer.
func (c *Config) SetupTracing(l logger.Logger) {
	switch c.Tracer {
	case TracerLog:
		tracing.GlobalTracer = tracing.NewLogTracer(l)
	case TracerOpenTracing:
		tracing.GlobalTracer = fbopentracing.NewTracer(opentracing.GlobalTracer())
	default:
		tracing.GlobalTracer = tracing.NopTracer()
	}
}

// LoadCatalog reads the catalog document.
func (c *Config) LoadCatalog() (*catalog.Catalog, error) {
	return catalog.Load(c.Catalog)
}

// Open opens the configured store. Bolt stores are opened read-only unless
// writable is set; the relational stores are never written.
func (c *Config) Open(ctx context.Context, cat *catalog.Catalog, l logger.Logger, writable bool) (histql.Database, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	switch c.Backend {
	case BackendBolt:
		if !strings.HasPrefix(c.DSN, "file:") {
			return nil, errors.New(errors.ErrBackend, fmt.Sprintf("bolt dsn must begin with file:, got '%s'", c.DSN))
		}
		db := boltdb.NewDB(c.DSN, cat, boltdb.OptDBLogger(l), boltdb.OptDBReadOnly(!writable))
		if err := db.Open(); err != nil {
			return nil, err
		}
		return db, nil
	default:
		if writable {
			return nil, errors.New(errors.ErrBackend, fmt.Sprintf("the %s backend is read-only", c.Backend))
		}
		db, err := sqldb.NewDB(c.Backend, c.DSN, cat, sqldb.OptDBLogger(l), sqldb.OptDBSchema(c.Schema))
		if err != nil {
			return nil, err
		}
		if err := db.Open(ctx); err != nil {
			return nil, err
		}
		return db, nil
	}
}

// ConfigCommand represents a command for printing the effective config.
type ConfigCommand struct {
	*histql.CmdIO
	Config *Config
}

// NewConfigCommand returns a new instance of ConfigCommand.
func NewConfigCommand(stdin io.Reader, stdout, stderr io.Writer) *ConfigCommand {
	return &ConfigCommand{
		CmdIO:  histql.NewCmdIO(stdin, stdout, stderr),
		Config: NewConfig(),
	}
}

// Run prints out the config as TOML.
func (cmd *ConfigCommand) Run(_ context.Context) error {
	buf, err := gotoml.Marshal(*cmd.Config)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.Stdout, string(buf))
	return nil
}
