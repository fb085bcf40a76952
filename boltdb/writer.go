// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package boltdb

import (
	"context"

	"github.com/molecula/histql"
	"github.com/molecula/histql/catalog"
	"github.com/molecula/histql/errors"
	bolt "go.etcd.io/bbolt"
)

// Writer fills the store inside one write transaction.
type Writer struct {
	tx *Tx

	indexes *bolt.Bucket
	rows    *bolt.Bucket
	status  *bolt.Bucket
	blocks  *bolt.Bucket
}

// Update runs fn in a write transaction, committing when fn returns nil.
func (db *DB) Update(ctx context.Context, fn func(w *Writer) error) error {
	if db.ReadOnly {
		return errors.New(errors.ErrBackend, "boltdb: store is open read-only")
	}
	tx, err := db.BeginTx(ctx, true)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	w := &Writer{tx: tx}
	for _, b := range []struct {
		name Bucket
		dst  **bolt.Bucket
	}{
		{bucketIndexes, &w.indexes},
		{bucketRows, &w.rows},
		{bucketStatus, &w.status},
		{bucketBlocks, &w.blocks},
	} {
		if *b.dst, err = tx.mustBucket(b.name); err != nil {
			return err
		}
	}

	if err := fn(w); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.WithCode(err, errors.ErrBackend, "committing")
	}
	return nil
}

func (w *Writer) SetFillStatus(fs histql.FillStatus) error {
	return w.put(w.status, fillStatusKey, encodeFillStatus(fs))
}

func (w *Writer) SetBlockID(num uint32, id histql.Checksum256) error {
	return w.put(w.blocks, blockKey(num), id[:])
}

// PutRow stores row as the version of its row written at block and points
// every index of table at it. Rows of non-delta tables have a single version
// and block is ignored.
func (w *Writer) PutRow(t *catalog.Table, block uint32, row []byte) error {
	if err := w.tx.ctx.Err(); err != nil {
		return err
	}
	pos, err := catalog.ScanPositions(t.Fields, row)
	if err != nil {
		return errors.Wrapf(err, "scanning row of '%s'", t.Name)
	}
	rk, err := rowKey(t, row, pos, block)
	if err != nil {
		return err
	}
	if err := w.put(w.rows, rk, row); err != nil {
		return err
	}
	return w.eachIndexKey(t, row, pos, block, func(key []byte) error {
		return w.put(w.indexes, key, rk)
	})
}

// DeleteRow removes row as of block. Delta tables keep their earlier
// versions and gain an empty index entry at block, so snapshots before block
// still see the row.
func (w *Writer) DeleteRow(t *catalog.Table, block uint32, row []byte) error {
	pos, err := catalog.ScanPositions(t.Fields, row)
	if err != nil {
		return errors.Wrapf(err, "scanning row of '%s'", t.Name)
	}
	if t.Delta {
		return w.eachIndexKey(t, row, pos, block, func(key []byte) error {
			return w.put(w.indexes, key, []byte{})
		})
	}

	rk, err := rowKey(t, row, pos, block)
	if err != nil {
		return err
	}
	if err := w.rows.Delete(rk); err != nil {
		return errors.WithCode(err, errors.ErrBackend, "deleting row")
	}
	return w.eachIndexKey(t, row, pos, block, func(key []byte) error {
		if err := w.indexes.Delete(key); err != nil {
			return errors.WithCode(err, errors.ErrBackend, "deleting index entry")
		}
		return nil
	})
}

func (w *Writer) eachIndexKey(t *catalog.Table, row []byte, pos catalog.Positions, block uint32, fn func(key []byte) error) error {
	for _, idx := range t.Indexes {
		key, err := indexKey(idx, row, pos)
		if err != nil {
			return errors.Wrapf(err, "index '%s'", idx.Name)
		}
		if t.Delta {
			key = appendBlockSuffix(key, block)
		}
		if err := fn(key); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) put(b *bolt.Bucket, key, value []byte) error {
	if err := b.Put(key, value); err != nil {
		return errors.WithCode(err, errors.ErrBackend, "writing key")
	}
	return nil
}
