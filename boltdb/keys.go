// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package boltdb

import (
	"bytes"
	"encoding/binary"

	"github.com/molecula/histql"
	"github.com/molecula/histql/catalog"
	"github.com/molecula/histql/errors"
	"github.com/molecula/histql/wire"
)

// blockSuffixLen is the size of the version suffix on delta table keys.
const blockSuffixLen = 4

// indexPrefix returns the key prefix shared by every entry of idx.
func indexPrefix(table, idx wire.Name) []byte {
	key := make([]byte, 0, 32)
	key = binary.BigEndian.AppendUint64(key, uint64(table))
	return binary.BigEndian.AppendUint64(key, uint64(idx))
}

// rowPrefix returns the key prefix shared by every row of table.
func rowPrefix(table wire.Name) []byte {
	return binary.BigEndian.AppendUint64(make([]byte, 0, 32), uint64(table))
}

// appendBlockSuffix appends the version suffix for block. The block number
// is inverted so that later versions sort before earlier ones.
func appendBlockSuffix(key []byte, block uint32) []byte {
	return binary.BigEndian.AppendUint32(key, ^block)
}

// subkey strips the version suffix from a delta table key.
func subkey(key []byte, delta bool) ([]byte, error) {
	if !delta {
		return key, nil
	}
	if len(key) < blockSuffixLen {
		return nil, errors.New(errors.ErrBackend, "boltdb: index key is shorter than its version suffix")
	}
	return key[:len(key)-blockSuffixLen], nil
}

// afterSubkey returns the smallest key greater than every version of sub.
func afterSubkey(sub []byte) []byte {
	key := make([]byte, 0, len(sub)+blockSuffixLen+1)
	key = append(key, sub...)
	return append(key, 0xff, 0xff, 0xff, 0xff, 0x00)
}

func blockKey(block uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, block)
}

// appendRangeKey reads one value per field from r and appends their keys.
func appendRangeKey(dst []byte, r *wire.Reader, fields []*catalog.Field) ([]byte, error) {
	var err error
	for _, f := range fields {
		if dst, err = f.Type.BinToKey(dst, r); err != nil {
			return dst, errors.Wrapf(err, "reading range value '%s'", f.Name)
		}
	}
	return dst, nil
}

// inRange reports whether key lies at or before last, comparing only as
// many bytes as last has.
func inRange(key, last []byte) bool {
	if len(key) > len(last) {
		key = key[:len(last)]
	}
	return bytes.Compare(key, last) <= 0
}

// indexKey builds the key of row in idx, without a version suffix.
func indexKey(idx *catalog.Index, row []byte, pos catalog.Positions) ([]byte, error) {
	key := indexPrefix(idx.Table.ShortName, idx.ShortName)
	key, err := pos.AppendKeys(key, row, idx.RangeFields)
	if err != nil {
		return nil, err
	}
	return pos.AppendKeys(key, row, idx.SortFields)
}

// rowKey builds the key of row in its table's row space.
func rowKey(t *catalog.Table, row []byte, pos catalog.Positions, block uint32) ([]byte, error) {
	key, err := pos.AppendKeys(rowPrefix(t.ShortName), row, t.KeyFields)
	if err != nil {
		return nil, err
	}
	if t.Delta {
		key = appendBlockSuffix(key, block)
	}
	return key, nil
}

// encodeFillStatus lays out fs as head, head id, irreversible, irreversible
// id and first, with little-endian block numbers.
func encodeFillStatus(fs histql.FillStatus) []byte {
	buf := make([]byte, 0, 76)
	buf = wire.AppendUint32(buf, fs.Head)
	buf = append(buf, fs.HeadID[:]...)
	buf = wire.AppendUint32(buf, fs.Irreversible)
	buf = append(buf, fs.IrreversibleID[:]...)
	return wire.AppendUint32(buf, fs.First)
}

func decodeFillStatus(buf []byte) (histql.FillStatus, error) {
	var fs histql.FillStatus
	r := wire.NewReader(buf)
	var err error
	if fs.Head, err = r.ReadUint32(); err != nil {
		return fs, err
	}
	if err = readChecksum(r, &fs.HeadID); err != nil {
		return fs, err
	}
	if fs.Irreversible, err = r.ReadUint32(); err != nil {
		return fs, err
	}
	if err = readChecksum(r, &fs.IrreversibleID); err != nil {
		return fs, err
	}
	if fs.First, err = r.ReadUint32(); err != nil {
		return fs, err
	}
	return fs, nil
}

func readChecksum(r *wire.Reader, c *histql.Checksum256) error {
	b, err := r.Next(len(c), "checksum256")
	if err != nil {
		return err
	}
	copy(c[:], b)
	return nil
}
