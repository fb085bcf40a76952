// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package catalog

import (
	"github.com/molecula/histql"
	"github.com/molecula/histql/codec"
	"github.com/molecula/histql/wire"
)

// Absent marks a field whose optional block is not present in a row.
const Absent = -1

// Positions holds, per field ordinal, the offset in a row where that field's
// value begins, or Absent.
type Positions []int

// ScanPositions walks one encoded row laid out as fields and records where
// each field begins. A row must be scanned before any of its fields is read
// out of order.
func ScanPositions(fields []*Field, row []byte) (Positions, error) {
	pos := make(Positions, len(fields))
	r := wire.NewReader(row)
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		if f.BeginOptional {
			present, err := r.ReadBool()
			if err != nil {
				return nil, err
			}
			if !present {
				for ; i < len(fields); i++ {
					pos[i] = Absent
					if fields[i].EndOptional {
						break
					}
				}
				continue
			}
		}
		pos[i] = r.Pos()
		if err := f.Type.Skip(r); err != nil {
			return nil, err
		}
	}
	return pos, nil
}

// Has reports whether every field in fields is present.
func (p Positions) Has(fields []*Field) bool {
	for _, f := range fields {
		if p[f.Ordinal] == Absent {
			return false
		}
	}
	return true
}

// Reader returns a reader positioned at f's value in row.
func (p Positions) Reader(row []byte, f *Field) (*wire.Reader, error) {
	pos := p[f.Ordinal]
	if pos == Absent || pos > len(row) {
		return nil, histql.NewErrUnknownPosition(f.Name)
	}
	return wire.NewReader(row[pos:]), nil
}

// AppendKeys appends the key encoding of each field of row to dst.
func (p Positions) AppendKeys(dst []byte, row []byte, fields []*Field) ([]byte, error) {
	for _, f := range fields {
		r, err := p.Reader(row, f)
		if err != nil {
			return dst, err
		}
		if dst, err = f.Type.BinToKey(dst, r); err != nil {
			return dst, err
		}
	}
	return dst, nil
}

// AppendValues appends the wire bytes of each field of row to dst. Absent
// fields are filled with their empty value.
func (p Positions) AppendValues(dst []byte, row []byte, fields []*Field) ([]byte, error) {
	for _, f := range fields {
		if p[f.Ordinal] == Absent {
			dst = f.Type.FillEmpty(dst)
			continue
		}
		r, err := p.Reader(row, f)
		if err != nil {
			return dst, err
		}
		if dst, err = codec.BinToBin(f.Type, dst, r); err != nil {
			return dst, err
		}
	}
	return dst, nil
}

// FillEmpty appends the empty value of each field to dst.
func FillEmpty(dst []byte, fields []*Field) []byte {
	for _, f := range fields {
		dst = f.Type.FillEmpty(dst)
	}
	return dst
}
