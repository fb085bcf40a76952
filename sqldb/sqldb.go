// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package sqldb implements the relational query backend. Every catalog query
// maps to a stored function in one schema; a request becomes one call to that
// function, and its result columns are converted back to wire rows.
package sqldb

import (
	"context"
	"database/sql"

	// Drivers for the supported dialects.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/molecula/histql"
	"github.com/molecula/histql/catalog"
	"github.com/molecula/histql/errors"
	"github.com/molecula/histql/logger"
	"github.com/molecula/histql/stats"
)

// DefaultSchema is the schema the filler writes to unless told otherwise.
const DefaultSchema = "chain"

// Ensure type implements interface.
var _ histql.Database = (*DB)(nil)

// DB is a pool of connections to the relational store.
type DB struct {
	db      *sql.DB
	dialect *dialect
	catalog *catalog.Catalog
	logger  logger.Logger

	// Datasource name, in the driver's format.
	DSN string

	// Schema holds the stored functions and the filler's status tables.
	Schema string
}

// DBOption is a functional option for NewDB.
type DBOption func(db *DB)

func OptDBLogger(l logger.Logger) DBOption {
	return func(db *DB) {
		db.logger = l
	}
}

func OptDBSchema(schema string) DBOption {
	return func(db *DB) {
		db.Schema = schema
	}
}

// OptDBHandle makes the DB use an already open handle instead of opening
// DSN.
func OptDBHandle(h *sql.DB) DBOption {
	return func(db *DB) {
		db.db = h
	}
}

// NewDB returns a DB for the given dialect, DialectPostgres or DialectMySQL.
// Queries are resolved against cat.
func NewDB(dialectName, dsn string, cat *catalog.Catalog, opts ...DBOption) (*DB, error) {
	d, err := lookupDialect(dialectName)
	if err != nil {
		return nil, err
	}
	db := &DB{
		dialect: d,
		catalog: cat,
		logger:  logger.NopLogger,
		DSN:     dsn,
		Schema:  DefaultSchema,
	}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

// Open opens the connection pool unless a handle was given, and checks that
// the server answers.
func (db *DB) Open(ctx context.Context) error {
	if db.db == nil {
		h, err := sql.Open(db.dialect.driver, db.DSN)
		if err != nil {
			return db.dialect.wrap(err, "opening "+db.dialect.name+" connection")
		}
		db.db = h
	}
	if err := db.db.PingContext(ctx); err != nil {
		return db.dialect.wrap(err, "pinging "+db.dialect.name)
	}
	db.logger.Debugf("opened %s store, schema '%s'", db.dialect.name, db.Schema)
	return nil
}

func (db *DB) Close() error {
	if db.db == nil {
		return nil
	}
	return db.db.Close()
}

// Catalog returns the catalog queries are resolved against.
func (db *DB) Catalog() *catalog.Catalog {
	return db.catalog
}

// NewSession takes a dedicated connection out of the pool. The connection
// goes back to the pool when the session is closed.
func (db *DB) NewSession(ctx context.Context) (histql.Session, error) {
	if db.db == nil {
		return nil, errors.New(errors.ErrBackend, "sqldb: store is not open")
	}
	conn, err := db.db.Conn(ctx)
	if err != nil {
		err = db.dialect.wrap(err, "taking a connection")
		stats.ObserveError(db.dialect.name, err)
		return nil, err
	}
	stats.ObserveSession(db.dialect.name)
	return &Session{
		db:     db,
		conn:   conn,
		logger: db.logger,
	}, nil
}
