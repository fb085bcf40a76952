// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package boltdb implements the key-value query backend on top of bbolt.
//
// The store is split into four buckets. "indexes" holds one entry per row
// per index, keyed by table short name, index short name, the range field
// keys and the sort field keys; entries of delta tables carry the block
// number, inverted, as a four byte suffix so the newest version of a key
// sorts first. Index values are keys into "rows", which holds the rows in
// their wire encoding. "status" holds the fill status and "blocks" maps
// block numbers to block ids.
package boltdb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/molecula/histql"
	"github.com/molecula/histql/catalog"
	"github.com/molecula/histql/errors"
	"github.com/molecula/histql/logger"
	bolt "go.etcd.io/bbolt"
)

// Backend is the label this backend reports metrics under.
const Backend = "bolt"

const (
	ErrFmtBucketNotFound = "boltdb: bucket '%s' not found"
)

type Bucket []byte

var (
	bucketIndexes = Bucket("indexes")
	bucketRows    = Bucket("rows")
	bucketStatus  = Bucket("status")
	bucketBlocks  = Bucket("blocks")

	fillStatusKey = []byte("fill_status")
)

// BucketNames lists the store's buckets in the order Walk visits them.
var BucketNames = []string{"indexes", "rows", "status", "blocks"}

// Ensure type implements interface.
var _ histql.Database = (*DB)(nil)

// DB represents the database connection.
type DB struct {
	db      *bolt.DB
	catalog *catalog.Catalog
	logger  logger.Logger

	// Datasource name.
	DSN string

	// ReadOnly opens the file with a shared lock. A read-only DB cannot
	// create its buckets, so a file the loader never wrote reads as empty.
	ReadOnly bool

	// Timeout bounds the wait for the file lock on Open.
	Timeout time.Duration

	filePath string
}

// DBOption is a functional option for NewDB.
type DBOption func(db *DB)

// OptDBLogger sets the logger used by the DB and its sessions.
func OptDBLogger(l logger.Logger) DBOption {
	return func(db *DB) {
		db.logger = l
	}
}

// OptDBReadOnly opens the file read-only.
func OptDBReadOnly(readOnly bool) DBOption {
	return func(db *DB) {
		db.ReadOnly = readOnly
	}
}

// NewDB returns a new instance of DB associated with the given datasource
// name, which must begin with "file:". Queries are resolved against cat.
func NewDB(dsn string, cat *catalog.Catalog, opts ...DBOption) *DB {
	db := &DB{
		DSN:     dsn,
		catalog: cat,
		logger:  logger.NopLogger,
		Timeout: time.Second,
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// path returns the file path to the boltdb database file.
func (db *DB) path() (string, error) {
	if !strings.HasPrefix(db.DSN, "file:") {
		return "", errors.New(errors.ErrBackend, "boltdb package only supports a DSN beginning with `file:`")
	}
	return db.DSN[5:], nil
}

// Open opens the database file, creating it and its buckets unless the DB is
// read-only.
func (db *DB) Open() (err error) {
	path, err := db.path()
	if err != nil {
		return errors.Wrap(err, "getting path from DSN")
	}

	if !db.ReadOnly {
		if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
			return errors.Wrapf(err, "mkdir %s", filepath.Dir(path))
		}
	}
	opts := &bolt.Options{Timeout: db.Timeout, ReadOnly: db.ReadOnly}
	if db.db, err = bolt.Open(path, 0666, opts); err != nil {
		return errors.WithCode(err, errors.ErrBackend, "opening "+path)
	}
	db.filePath = path

	if !db.ReadOnly {
		if err := db.initializeBuckets(bucketIndexes, bucketRows, bucketStatus, bucketBlocks); err != nil {
			return errors.Wrap(err, "initializing buckets")
		}
	}
	db.logger.Debugf("opened bolt store %s (read-only: %v)", path, db.ReadOnly)
	return nil
}

// initializeBuckets creates the given buckets if they do not already exist.
func (db *DB) initializeBuckets(buckets ...Bucket) error {
	return db.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return errors.Wrapf(err, "creating bucket: %s", bucket)
			}
		}
		return nil
	})
}

// Close closes the database connection.
func (db *DB) Close() (err error) {
	if db.db == nil {
		return nil
	}
	return db.db.Close()
}

// Catalog returns the catalog queries are resolved against.
func (db *DB) Catalog() *catalog.Catalog {
	return db.catalog
}

func (db *DB) Path() string {
	return db.filePath
}

// BeginTx starts a transaction and returns a wrapper Tx type carrying the
// context it was started with.
func (db *DB) BeginTx(ctx context.Context, writable bool) (*Tx, error) {
	tx, err := db.db.Begin(writable)
	if err != nil {
		return nil, errors.WithCode(err, errors.ErrBackend, "beginning transaction")
	}
	return &Tx{
		Tx:  tx,
		ctx: ctx,
		db:  db,
	}, nil
}

// Tx wraps the bolt Tx object.
type Tx struct {
	*bolt.Tx
	ctx context.Context
	db  *DB
}

func (tx *Tx) Context() context.Context {
	return tx.ctx
}

// bucket returns the named bucket, or nil when a read-only file lacks it.
func (tx *Tx) bucket(name Bucket) *bolt.Bucket {
	return tx.Tx.Bucket(name)
}

// mustBucket returns the named bucket of a writable transaction.
func (tx *Tx) mustBucket(name Bucket) (*bolt.Bucket, error) {
	b := tx.Tx.Bucket(name)
	if b == nil {
		return nil, errBucketNotFound(name)
	}
	return b, nil
}

func errBucketNotFound(name Bucket) error {
	return errors.New(errors.ErrBackend, fmt.Sprintf(ErrFmtBucketNotFound, name))
}

// Walk calls fn for every entry of the named buckets, in key order, within
// one read transaction. A bucket the store does not have is skipped.
func (db *DB) Walk(ctx context.Context, buckets []string, fn func(bucket string, k, v []byte) error) error {
	tx, err := db.BeginTx(ctx, false)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, name := range buckets {
		b := tx.bucket(Bucket(name))
		if b == nil {
			db.logger.Debugf("bucket '%s' not found", name)
			continue
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(name, k, v); err != nil {
				return err
			}
		}
	}
	return nil
}
