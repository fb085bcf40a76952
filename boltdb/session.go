// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package boltdb

import (
	"bytes"
	"context"
	"time"

	"github.com/molecula/histql"
	"github.com/molecula/histql/catalog"
	"github.com/molecula/histql/errors"
	"github.com/molecula/histql/logger"
	"github.com/molecula/histql/stats"
	"github.com/molecula/histql/tracing"
	"github.com/molecula/histql/wire"
	bolt "go.etcd.io/bbolt"
)

// Ensure type implements interface.
var _ histql.Session = (*Session)(nil)

// Session reads from a single bolt read transaction, so every call sees the
// store as it was when the session was opened. It keeps one cursor per scan
// role for its whole life.
type Session struct {
	db     *DB
	tx     *Tx
	logger logger.Logger

	fillStatus *histql.FillStatus

	indexes *bolt.Bucket
	rows    *bolt.Bucket
	blocks  *bolt.Bucket

	outer *bolt.Cursor
	join  *bolt.Cursor
	inner *bolt.Cursor
}

// NewSession opens a read transaction and reads the fill status.
func (db *DB) NewSession(ctx context.Context) (histql.Session, error) {
	s, err := db.newSession(ctx)
	if err != nil {
		stats.ObserveError(Backend, err)
		return nil, err
	}
	stats.ObserveSession(Backend)
	return s, nil
}

func (db *DB) newSession(ctx context.Context) (*Session, error) {
	tx, err := db.BeginTx(ctx, false)
	if err != nil {
		return nil, err
	}
	s := &Session{
		db:      db,
		tx:      tx,
		logger:  db.logger,
		indexes: tx.bucket(bucketIndexes),
		rows:    tx.bucket(bucketRows),
		blocks:  tx.bucket(bucketBlocks),
	}
	if s.indexes != nil {
		s.outer = s.indexes.Cursor()
		s.join = s.indexes.Cursor()
		s.inner = s.indexes.Cursor()
	}
	if status := tx.bucket(bucketStatus); status != nil {
		if v := status.Get(fillStatusKey); v != nil {
			fs, err := decodeFillStatus(v)
			if err != nil {
				_ = tx.Rollback()
				return nil, errors.WithCode(err, errors.ErrBackend, "decoding fill status")
			}
			s.fillStatus = &fs
		}
	}
	s.logger.Debugf("opened bolt session (fill status present: %v)", s.fillStatus != nil)
	return s, nil
}

// Close releases the session's read transaction.
func (s *Session) Close() error {
	return s.tx.Rollback()
}

// FillStatus returns the fill status read when the session was opened.
func (s *Session) FillStatus(ctx context.Context) (histql.FillStatus, error) {
	if s.fillStatus == nil {
		err := histql.NewErrFillStatusMissing()
		stats.ObserveError(Backend, err)
		return histql.FillStatus{}, err
	}
	return *s.fillStatus, nil
}

func (s *Session) BlockID(ctx context.Context, blockNum uint32) (histql.Checksum256, bool, error) {
	var id histql.Checksum256
	if s.blocks == nil {
		return id, false, nil
	}
	v := s.blocks.Get(blockKey(blockNum))
	if v == nil {
		return id, false, nil
	} else if len(v) != len(id) {
		err := errors.New(errors.ErrBackend, "boltdb: block id has the wrong size")
		stats.ObserveError(Backend, err)
		return id, false, err
	}
	copy(id[:], v)
	return id, true, nil
}

// QueryDatabase runs the request in queryBin. Requests may not carry
// arguments beyond the index range values.
func (s *Session) QueryDatabase(ctx context.Context, queryBin []byte, head uint32) ([]byte, error) {
	span, ctx := tracing.StartSpanFromContext(ctx, "boltdb.QueryDatabase")
	defer span.Finish()

	start := time.Now()
	var name string
	result, n, err := s.queryDatabase(ctx, queryBin, head, &name)
	span.LogKV("query", name, "rows", n)
	stats.ObserveQuery(Backend, name, n, start, err)
	if err != nil {
		s.logger.Debugf("query '%s' failed: %v", name, err)
		return nil, err
	}
	return result, nil
}

func (s *Session) queryDatabase(ctx context.Context, queryBin []byte, head uint32, name *string) ([]byte, int, error) {
	qname, r, err := catalog.RequestName(queryBin)
	if err != nil {
		return nil, 0, err
	}
	q, err := s.db.catalog.Lookup(qname)
	if err != nil {
		return nil, 0, err
	}
	*name = q.Name.String()
	if len(q.ArgTypes) > 0 {
		return nil, 0, histql.NewErrUnsupportedQuery(q.Name, "the key-value backend does not take query arguments")
	}
	if !q.StoredLayout() {
		return nil, 0, histql.NewErrUnsupportedQuery(q.Name, "the key-value backend returns stored rows, and result_fields differ from them")
	}

	// Queries without a snapshot read the newest versions.
	snapshot := head
	if q.HasBlockSnapshot {
		requested, err := r.ReadUint32()
		if err != nil {
			return nil, 0, errors.Wrap(err, "reading snapshot block")
		}
		snapshot = catalog.Snapshot(requested, head)
	}

	prefix := indexPrefix(q.Table.ShortName, q.Index.ShortName)
	first, err := appendRangeKey(append([]byte(nil), prefix...), r, q.Index.RangeFields)
	if err != nil {
		return nil, 0, err
	}
	last, err := appendRangeKey(append([]byte(nil), prefix...), r, q.Index.RangeFields)
	if err != nil {
		return nil, 0, err
	}
	requested, err := r.ReadUint32()
	if err != nil {
		return nil, 0, errors.Wrap(err, "reading max results")
	}
	if err := catalog.RequestEnd(r); err != nil {
		return nil, 0, err
	}
	max := q.EffectiveMax(requested)

	var result wire.Result
	if max > 0 && s.indexes != nil {
		err = s.forEachSubkey(s.outer, first, last, q.Table.Delta, func(sub []byte) (bool, error) {
			if err := ctx.Err(); err != nil {
				return false, errors.WithCode(err, errors.ErrBackend, "scanning index")
			}
			row, ok, err := s.lookup(sub, q.Table.Delta, snapshot)
			if err != nil || !ok {
				return true, err
			}
			out := append(make([]byte, 0, len(row)), row...)
			if q.Join != nil {
				if out, err = s.appendJoin(out, row, q, snapshot); err != nil {
					return false, err
				}
			}
			if err := result.Append(out); err != nil {
				return false, err
			}
			return uint32(result.Len()) < max, nil
		})
		if err != nil {
			return nil, 0, err
		}
	}
	s.logger.Debugf("query '%s': snapshot %d, %d of at most %d rows", q.Name, snapshot, result.Len(), max)

	buf, err := result.Bytes()
	if err != nil {
		return nil, 0, err
	}
	return buf, result.Len(), nil
}

// forEachSubkey walks c over the distinct index keys between first and last,
// ignoring version suffixes, and calls fn for each until fn returns false.
func (s *Session) forEachSubkey(c *bolt.Cursor, first, last []byte, delta bool, fn func(sub []byte) (bool, error)) error {
	k, _ := c.Seek(first)
	for k != nil && inRange(k, last) {
		sub, err := subkey(k, delta)
		if err != nil {
			return err
		}
		sub = append([]byte(nil), sub...)
		if more, err := fn(sub); err != nil || !more {
			return err
		}
		if delta {
			k, _ = c.Seek(afterSubkey(sub))
		} else {
			k, _ = c.Next()
		}
	}
	return nil
}

// lookup finds the version of the index entry sub visible at snapshot and
// fetches the row it points to. A delta entry with an empty value marks the
// row as deleted as of that block.
func (s *Session) lookup(sub []byte, delta bool, snapshot uint32) ([]byte, bool, error) {
	var rowKey []byte
	if delta {
		k, v := s.inner.Seek(appendBlockSuffix(append([]byte(nil), sub...), snapshot))
		if k == nil || len(k) != len(sub)+blockSuffixLen || !bytes.HasPrefix(k, sub) {
			return nil, false, nil
		}
		rowKey = v
	} else {
		rowKey = s.indexes.Get(sub)
	}
	if len(rowKey) == 0 {
		return nil, false, nil
	}
	if s.rows == nil {
		return nil, false, errBucketNotFound(bucketRows)
	}
	row := s.rows.Get(rowKey)
	if row == nil {
		return nil, false, errors.New(errors.ErrBackend, "boltdb: index entry points at a missing row")
	}
	return row, true, nil
}

// appendJoin appends the joined fields for row to out, or their empty values
// when no joined row exists.
func (s *Session) appendJoin(out, row []byte, q *catalog.Query, snapshot uint32) ([]byte, error) {
	join := q.Join
	pos, err := catalog.ScanPositions(q.Table.Fields, row)
	if err != nil {
		return nil, errors.Wrap(err, "scanning row")
	}
	if !pos.Has(join.KeyFields) {
		return catalog.FillEmpty(out, join.Fields), nil
	}

	key := indexPrefix(join.Table.ShortName, join.Index.ShortName)
	if key, err = pos.AppendKeys(key, row, join.KeyFields); err != nil {
		return nil, err
	}

	// The join key covers the range fields only; take the first row under it.
	var joined []byte
	found := false
	err = s.forEachSubkey(s.join, key, key, join.Table.Delta, func(sub []byte) (bool, error) {
		joined, found, err = s.lookup(sub, join.Table.Delta, snapshot)
		return !found && err == nil, err
	})
	if err != nil {
		return nil, err
	} else if !found {
		return catalog.FillEmpty(out, join.Fields), nil
	}

	jpos, err := catalog.ScanPositions(join.Table.Fields, joined)
	if err != nil {
		return nil, errors.Wrap(err, "scanning joined row")
	}
	return jpos.AppendValues(out, joined, join.Fields)
}
