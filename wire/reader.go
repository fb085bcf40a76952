// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package wire implements the compact binary encodings shared by query
// requests, stored rows and query results: little-endian fixed width
// integers, LEB128 varints, chain names and length-prefixed byte strings.
package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/molecula/histql/errors"
)

// Reader is a forward-only cursor over a wire buffer. Every read either
// consumes exactly the bytes of one value or fails with a DecodeError and
// leaves the cursor untouched.
type Reader struct {
	buf []byte
	pos int
}

// NewReader returns a Reader positioned at the start of buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Pos returns the number of bytes consumed so far.
func (r *Reader) Pos() int { return r.pos }

// Len returns the number of unread bytes.
func (r *Reader) Len() int { return len(r.buf) - r.pos }

// Remaining returns the unread bytes without consuming them.
func (r *Reader) Remaining() []byte { return r.buf[r.pos:] }

// Since returns the bytes consumed since position start.
func (r *Reader) Since(start int) []byte { return r.buf[start:r.pos] }

func errShort(what string, need, have int) error {
	return errors.New(errors.ErrDecode, fmt.Sprintf("wire: reading %s: need %d bytes, have %d", what, need, have))
}

// Next consumes n bytes and returns them. The returned slice aliases the
// underlying buffer.
func (r *Reader) Next(n int, what string) ([]byte, error) {
	if n < 0 || r.Len() < n {
		return nil, errShort(what, n, r.Len())
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.Next(1, "uint8")
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadBool() (bool, error) {
	b, err := r.Next(1, "bool")
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

func (r *Reader) ReadUint16() (uint16, error) {
	b, err := r.Next(2, "uint16")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.Next(4, "uint32")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadUint64() (uint64, error) {
	b, err := r.Next(8, "uint64")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadVarUint32 reads an unsigned LEB128 value of at most 5 bytes.
func (r *Reader) ReadVarUint32() (uint32, error) {
	var v uint64
	for i := 0; i < 5; i++ {
		if r.pos+i >= len(r.buf) {
			return 0, errShort("varuint32", i+1, r.Len())
		}
		b := r.buf[r.pos+i]
		v |= uint64(b&0x7f) << (7 * uint(i))
		if b&0x80 == 0 {
			if v > 0xffffffff {
				return 0, errors.New(errors.ErrDecode, "wire: varuint32 overflows 32 bits")
			}
			r.pos += i + 1
			return uint32(v), nil
		}
	}
	return 0, errors.New(errors.ErrDecode, "wire: varuint32 longer than 5 bytes")
}

// ReadVarInt32 reads a zigzag encoded signed LEB128 value.
func (r *Reader) ReadVarInt32() (int32, error) {
	v, err := r.ReadVarUint32()
	if err != nil {
		return 0, err
	}
	return int32(v>>1) ^ -int32(v&1), nil
}

// ReadBytes reads a varuint32 length followed by that many bytes.
func (r *Reader) ReadBytes() ([]byte, error) {
	start := r.pos
	n, err := r.ReadVarUint32()
	if err != nil {
		return nil, err
	}
	b, err := r.Next(int(n), "bytes")
	if err != nil {
		r.pos = start
		return nil, err
	}
	return b, nil
}

func (r *Reader) ReadString() (string, error) {
	b, err := r.ReadBytes()
	return string(b), err
}

func (r *Reader) ReadName() (Name, error) {
	v, err := r.ReadUint64()
	return Name(v), err
}
