// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package wire

import (
	"fmt"

	"github.com/molecula/histql/errors"
)

// Result accumulates encoded rows. Its encoding is the row count as a
// varuint32 followed by each row as a varuint32 length and the row bytes.
type Result struct {
	rows [][]byte
	size int
}

// Append adds one encoded row. The row is not copied.
func (r *Result) Append(row []byte) error {
	if err := CheckLen(len(row), "row"); err != nil {
		return err
	}
	r.rows = append(r.rows, row)
	r.size += len(row) + 5
	return nil
}

// Len returns the number of rows appended so far.
func (r *Result) Len() int { return len(r.rows) }

// Rows returns the appended rows.
func (r *Result) Rows() [][]byte { return r.rows }

// Bytes encodes the result. It fails with an OverflowError when the row count
// or the encoded size does not fit in 32 bits.
func (r *Result) Bytes() ([]byte, error) {
	if err := CheckLen(len(r.rows), "row count"); err != nil {
		return nil, err
	}
	out := make([]byte, 0, r.size+5)
	out = AppendVarUint32(out, uint32(len(r.rows)))
	for _, row := range r.rows {
		out = AppendVarUint32(out, uint32(len(row)))
		out = append(out, row...)
	}
	if err := CheckLen(len(out), "result"); err != nil {
		return nil, err
	}
	return out, nil
}

// EncodeResult encodes rows as a result buffer.
func EncodeResult(rows [][]byte) ([]byte, error) {
	var r Result
	for _, row := range rows {
		if err := r.Append(row); err != nil {
			return nil, err
		}
	}
	return r.Bytes()
}

// DecodeResult splits a result buffer into its rows. The buffer must be
// consumed exactly: short reads and trailing bytes are DecodeErrors.
func DecodeResult(buf []byte) ([][]byte, error) {
	r := NewReader(buf)
	n, err := r.ReadVarUint32()
	if err != nil {
		return nil, errors.Wrap(err, "reading row count")
	}
	rows := make([][]byte, 0, n)
	for i := uint32(0); i < n; i++ {
		row, err := r.ReadBytes()
		if err != nil {
			return nil, errors.Wrapf(err, "reading row %d", i)
		}
		rows = append(rows, row)
	}
	if r.Len() != 0 {
		return nil, errors.New(errors.ErrDecode, fmt.Sprintf("wire: %d trailing bytes after %d rows", r.Len(), n))
	}
	return rows, nil
}
